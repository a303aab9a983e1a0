package mathplugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

func TestInsertMathCmd(t *testing.T) {
	testCases := []struct {
		name      string
		doc       *model.Node
		pos       int
		kind      model.Kind
		text      string
		handled   bool
		expected  string
		selection string
	}{
		{
			name:      "inline",
			doc:       model.Doc(model.Paragraph(model.Text("ab"))),
			pos:       2,
			kind:      model.KindMathInline,
			text:      "x",
			handled:   true,
			expected:  `doc(paragraph("a", math_inline("x"), "b"))`,
			selection: "node(2)",
		},
		{
			name:      "empty inline",
			doc:       model.Doc(model.Paragraph()),
			pos:       1,
			kind:      model.KindMathInline,
			handled:   true,
			expected:  `doc(paragraph(math_inline))`,
			selection: "node(1)",
		},
		{
			name:      "display replaces empty paragraph",
			doc:       model.Doc(model.Paragraph(model.Text("a")), model.Paragraph()),
			pos:       4,
			kind:      model.KindMathDisplay,
			text:      "y",
			handled:   true,
			expected:  `doc(paragraph("a"), math_display("y"))`,
			selection: "node(3)",
		},
		{
			name: "display in text",
			doc:  model.Doc(model.Paragraph(model.Text("a"))),
			pos:  2,
			kind: model.KindMathDisplay,
		},
		{
			name: "not math",
			doc:  model.Doc(model.Paragraph()),
			pos:  1,
			kind: model.KindParagraph,
		},
		{
			name: "inside math",
			doc:  model.Doc(model.MathDisplay("z")),
			pos:  1,
			kind: model.KindMathInline,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, _ := newEditor(t, tc.doc)
			cursor(t, v, tc.pos)
			cmd := InsertMathCmd(tc.kind, tc.text)

			dryRun, err := cmd(v.State(), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.handled, dryRun)

			before := v.State().Doc()
			handled, err := cmd(v.State(), v.Dispatch)
			require.NoError(t, err)
			assert.Equal(t, tc.handled, handled)
			if !tc.handled {
				assert.Same(t, before, v.State().Doc())
				return
			}
			assert.Equal(t, tc.expected, v.State().Doc().String())
			assert.Equal(t, tc.selection, v.State().Selection().String())
			nv, ok := v.NodeViewAt(v.State().Selection().From())
			require.True(t, ok)
			assert.True(t, mathViewAt(t, v, v.State().Selection().From()).IsEditing(), "%T", nv)
		})
	}
}

func TestMathBackspaceCmd(t *testing.T) {
	// 0 <p> 1 a 2 <math> 3 x 4 </math> 5 b 6 </p> 7 <math_display> 8 y 9 </math_display> 10 <p> 11 c 12 </p> 13
	doc := model.Doc(
		model.Paragraph(model.Text("a"), model.MathInline("x"), model.Text("b")),
		model.MathDisplay("y"),
		model.Paragraph(model.Text("c")),
	)

	testCases := []struct {
		name     string
		sel      func() (state.Selection, error)
		handled  bool
		expected string
	}{
		{
			name:     "after inline math",
			sel:      func() (state.Selection, error) { return state.Cursor(doc, 5) },
			handled:  true,
			expected: "node(2)",
		},
		{
			name: "after text",
			sel:  func() (state.Selection, error) { return state.Cursor(doc, 6) },
		},
		{
			name: "block start",
			sel:  func() (state.Selection, error) { return state.Cursor(doc, 11) },
		},
		{
			name: "after display math",
			sel:  func() (state.Selection, error) { return state.CreateNodeSelection(doc, 10) },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sel, err := tc.sel()
			require.NoError(t, err)
			st, err := state.Create(state.Config{Doc: doc, Selection: sel})
			require.NoError(t, err)

			var dispatched *state.Transaction
			handled, err := MathBackspaceCmd(st, func(tr *state.Transaction) error {
				dispatched = tr
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, tc.handled, handled)
			if !tc.handled {
				assert.Nil(t, dispatched)
				return
			}
			require.NotNil(t, dispatched)
			assert.Equal(t, tc.expected, dispatched.Selection().String())
		})
	}
}
