package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

func TestParser_Parse(t *testing.T) {
	testCases := []struct {
		name     string
		source   string
		expected string
	}{
		{
			name:     "empty",
			source:   "",
			expected: `doc(paragraph)`,
		},
		{
			name:     "inline math",
			source:   "a $x^2$ b",
			expected: `doc(paragraph("a ", math_inline("x^2"), " b"))`,
		},
		{
			name:     "inline double dollars",
			source:   "$$x$$ tail",
			expected: `doc(paragraph(math_inline("x"), " tail"))`,
		},
		{
			name:     "escaped dollars",
			source:   `\$5 and \$6`,
			expected: `doc(paragraph("$5 and $6"))`,
		},
		{
			name:     "unclosed dollar",
			source:   "costs $5",
			expected: `doc(paragraph("costs $5"))`,
		},
		{
			name:     "display math",
			source:   "$$\n\\sum_i x_i\n$$",
			expected: `doc(math_display("\\sum_i x_i"))`,
		},
		{
			name:     "display math on one line",
			source:   "$$x$$",
			expected: `doc(math_display("x"))`,
		},
		{
			name:     "display math content on opening line",
			source:   "$$ a\nb\n$$\nafter",
			expected: `doc(math_display("a\nb"), paragraph("after"))`,
		},
		{
			name:     "display math interrupts paragraph",
			source:   "before\n$$\ny\n$$",
			expected: `doc(paragraph("before"), math_display("y"))`,
		},
		{
			name:     "soft line break",
			source:   "line one\nline two",
			expected: `doc(paragraph("line one line two"))`,
		},
		{
			name:     "code span is literal",
			source:   "see `$x$`",
			expected: `doc(paragraph("see $x$"))`,
		},
		{
			name:     "code block",
			source:   "```\ncode $x$\n```",
			expected: `doc(paragraph("code $x$"))`,
		},
		{
			name:     "heading and list are flattened",
			source:   "# Title\n\n- one $a$\n- two\n\n> quoted",
			expected: `doc(paragraph("Title"), paragraph("one ", math_inline("a")), paragraph("two"), paragraph("quoted"))`,
		},
		{
			name:     "emphasis keeps text",
			source:   "*so* $y$",
			expected: `doc(paragraph("so ", math_inline("y")))`,
		},
	}
	p := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := p.Parse([]byte(tc.source))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, doc.String())
		})
	}
}

func TestParser_ParseClipboardText(t *testing.T) {
	doc := model.Doc(
		model.Paragraph(model.Text("ab")),
		model.MathDisplay("y"),
	)
	p := NewParser()

	testCases := []struct {
		name     string
		text     string
		pos      int
		expected string
	}{
		{
			name:     "inline",
			text:     "c $x$",
			pos:      2,
			expected: `<paragraph("c ", math_inline("x"))>(1,1)`,
		},
		{
			name:     "blocks",
			text:     "c\n\n$$\nz\n$$",
			pos:      2,
			expected: `<paragraph("c"), math_display("z")>(1,0)`,
		},
		{
			name:     "inside math",
			text:     "$x$",
			pos:      5,
			expected: `<"$x$">(0,0)`,
		},
		{
			name:     "empty",
			text:     "",
			pos:      2,
			expected: `<>(0,0)`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			slice, err := p.ParseClipboardText(tc.text, doc.MustResolve(tc.pos))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, slice.String())
		})
	}
}

func TestSerializeFragment(t *testing.T) {
	testCases := []struct {
		name     string
		content  model.Fragment
		expected string
	}{
		{
			name:     "inline content",
			content:  model.NewFragment(model.Text("a$b "), model.MathInline("x")),
			expected: `a\$b $x$`,
		},
		{
			name: "blocks",
			content: model.NewFragment(
				model.Paragraph(model.Text("a"), model.MathInline("x")),
				model.MathDisplay("\\int f"),
				model.Paragraph(),
			),
			expected: "a$x$\n\n$$\n\\int f\n$$\n\n",
		},
		{
			name:     "document",
			content:  model.NewFragment(model.Doc(model.Paragraph(model.Text("a")), model.Paragraph(model.Text("b")))),
			expected: "a\n\nb",
		},
		{
			name:     "empty",
			expected: "",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SerializeFragment(tc.content))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	doc := model.Doc(
		model.Paragraph(model.Text("price $5 for "), model.MathInline(`\alpha`)),
		model.MathDisplay("a\nb"),
		model.Paragraph(model.Text("end")),
	)
	parsed, err := NewParser().Parse([]byte(SerializeFragment(doc.Content())))
	require.NoError(t, err)
	assert.True(t, doc.Eq(parsed), parsed.String())
}

func TestParser_Plugin(t *testing.T) {
	st, err := state.Create(state.Config{
		Doc:     model.Doc(model.Paragraph(model.Text("ab"))),
		Plugins: []*state.Plugin{NewParser().Plugin()},
	})
	require.NoError(t, err)
	v, err := view.New(dom.NewElement("body"), st)
	require.NoError(t, err)

	sel, err := state.Cursor(v.State().Doc(), 2)
	require.NoError(t, err)
	require.NoError(t, v.Dispatch(v.State().Tr().SetSelection(sel)))

	handled, err := v.PasteText("$x$")
	require.NoError(t, err)
	require.True(t, handled)
	assert.Equal(t, `doc(paragraph("a", math_inline("x"), "b"))`, v.State().Doc().String())

	require.NoError(t, v.Dispatch(v.State().Tr().SetSelection(state.NewAllSelection(v.State().Doc()))))
	assert.Equal(t, "a$x$b", v.CopyText())
}
