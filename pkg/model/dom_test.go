package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
)

func TestSerializeNode(t *testing.T) {
	doc := Doc(
		Paragraph(Text("a"), MathInline("x"), Text("s", Mark{Kind: MarkMathSelect})),
		MathDisplay("y"),
	)
	got := dom.Render(SerializeNode(doc))
	assert.Equal(
		t,
		`<div><p>a<math-inline class="math-node">x</math-inline><math-select>s</math-select></p><math-display class="math-node">y</math-display></div>`,
		got,
	)
}

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return root
}

func TestParseDOM(t *testing.T) {
	testCases := []struct {
		name     string
		src      string
		opts     []ParseOption
		expected *Node
	}{
		{
			name:     "round trip",
			src:      `<div><p>a<math-inline class="math-node">x</math-inline>b</p><math-display>y</math-display></div>`,
			expected: Doc(Paragraph(Text("a"), MathInline("x"), Text("b")), MathDisplay("y")),
		},
		{
			name:     "loose inline content",
			src:      `before<math-inline>x</math-inline><h1>title</h1>`,
			expected: Doc(Paragraph(Text("before"), MathInline("x")), Paragraph(Text("title"))),
		},
		{
			name:     "selection mark",
			src:      `<p><math-select>s</math-select>t</p>`,
			expected: Doc(Paragraph(Text("s", Mark{Kind: MarkMathSelect}), Text("t"))),
		},
		{
			name:     "custom tag",
			src:      `<p><tex-math>\alpha</tex-math></p>`,
			opts:     []ParseOption{WithTagName(KindMathInline, "tex-math")},
			expected: Doc(Paragraph(MathInline(`\alpha`))),
		},
		{
			name: "resolved node",
			src:  `<p>a<span data-view="1">rendered</span></p>`,
			opts: []ParseOption{WithNodeResolver(func(el *html.Node) (*Node, bool) {
				if _, ok := dom.GetAttr(el, "data-view"); ok {
					return MathInline("z"), true
				}
				return nil, false
			})},
			expected: Doc(Paragraph(Text("a"), MathInline("z"))),
		},
		{
			name:     "empty math",
			src:      `<math-display></math-display>`,
			expected: Doc(MathDisplay("")),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDOM(parseHTML(t, tc.src), tc.opts...)
			require.NoError(t, err)
			assert.True(t, tc.expected.Eq(got), "expected %s, got %s", tc.expected, got)
		})
	}
}
