package mathplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

func typeText(t *testing.T, v *view.EditorView, text string) {
	t.Helper()
	for _, r := range text {
		_, err := v.FocusGroup().InsertText(string(r))
		require.NoError(t, err)
	}
}

func TestInputRules(t *testing.T) {
	testCases := []struct {
		name      string
		doc       *model.Node
		pos       int
		typed     string
		expected  string
		selection string
	}{
		{
			name:      "inline",
			doc:       model.Doc(model.Paragraph(model.Text("a "))),
			pos:       3,
			typed:     "$x^2$",
			expected:  `doc(paragraph("a ", math_inline("x^2")))`,
			selection: "cursor(8)",
		},
		{
			name:      "inline at block start",
			doc:       model.Doc(model.Paragraph()),
			pos:       1,
			typed:     "$y$ ",
			expected:  `doc(paragraph(math_inline("y"), " "))`,
			selection: "cursor(5)",
		},
		{
			name:      "escaped opening dollar",
			doc:       model.Doc(model.Paragraph(model.Text(`\`))),
			pos:       2,
			typed:     "$x$",
			expected:  `doc(paragraph("\\$x$"))`,
			selection: "cursor(5)",
		},
		{
			name:      "escaped closing dollar",
			doc:       model.Doc(model.Paragraph()),
			pos:       1,
			typed:     `$x\$`,
			expected:  `doc(paragraph("$x\\$"))`,
			selection: "cursor(5)",
		},
		{
			name:      "empty inline",
			doc:       model.Doc(model.Paragraph()),
			pos:       1,
			typed:     "$$",
			expected:  `doc(paragraph("$$"))`,
			selection: "cursor(3)",
		},
		{
			name:      "block",
			doc:       model.Doc(model.Paragraph(model.Text("a")), model.Paragraph()),
			pos:       4,
			typed:     "$$ ",
			expected:  `doc(paragraph("a"), math_display)`,
			selection: "node(3)",
		},
		{
			name:      "block needs block start",
			doc:       model.Doc(model.Paragraph(model.Text("a"))),
			pos:       2,
			typed:     "$$ ",
			expected:  `doc(paragraph("a$$ "))`,
			selection: "cursor(5)",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, _ := newEditor(t, tc.doc)
			cursor(t, v, tc.pos)
			typeText(t, v, tc.typed)
			assert.Equal(t, tc.expected, v.State().Doc().String())
			assert.Equal(t, tc.selection, v.State().Selection().String())
		})
	}
}

func TestBlockMathRule_OpensEditor(t *testing.T) {
	v, _ := newEditor(t, model.Doc(model.Paragraph()))
	cursor(t, v, 1)
	typeText(t, v, "$$ ")
	require.Equal(t, "doc(math_display)", v.State().Doc().String())

	mv := mathViewAt(t, v, 0)
	require.True(t, mv.IsEditing())
	typeText(t, v, `\sum`)
	assert.Equal(t, `doc(math_display("\\sum"))`, v.State().Doc().String())
	assert.Equal(t, "node(0)", v.State().Selection().String())
}

func TestInlineMathRule_SkipsMath(t *testing.T) {
	st, err := state.Create(state.Config{Doc: model.Doc(model.MathDisplay("$x"))})
	require.NoError(t, err)
	rule := InlineMathRule()
	tr, err := rule.Handler(st, []string{"$x$", "", "x"}, 1, 3)
	require.NoError(t, err)
	assert.Nil(t, tr)
}
