package mathplugin

import (
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

// SelectClass marks math nodes inside the outer selection.
const SelectClass = "math-select"

var selectKey = state.NewPluginKey("math-select")

// SelectionDecorations returns a node decoration for every math node in
// the content of sel. The walk does not descend into math nodes.
func SelectionDecorations(sel state.Selection, doc *model.Node) *view.DecorationSet {
	content := sel.Content()
	from := sel.From()
	var decorations []view.Decoration
	content.Content.Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if node.IsText() {
			return false
		}
		if !node.Kind().IsMath() {
			return true
		}
		start := from + pos - content.OpenStart
		decorations = append(decorations, view.NodeDecoration(max(0, start), start+node.NodeSize(), map[string]string{"class": SelectClass}))
		return false
	})
	return view.CreateDecorationSet(doc, decorations)
}

// SelectPlugin decorates the math nodes covered by the selection.
func SelectPlugin() *state.Plugin {
	return &state.Plugin{
		Key: selectKey,
		State: &state.StateField{
			Init: func(_ state.Config, st *state.EditorState) (any, error) {
				return SelectionDecorations(st.Selection(), st.Doc()), nil
			},
			Apply: func(tr *state.Transaction, value any, _, newState *state.EditorState) (any, error) {
				if tr.SelectionSet() {
					return SelectionDecorations(newState.Selection(), newState.Doc()), nil
				}
				set, ok := value.(*view.DecorationSet)
				if !ok || !tr.DocChanged() {
					return value, nil
				}
				return set.Map(tr.Mapping(), newState.Doc()), nil
			},
		},
		Props: &view.Props{
			Decorations: func(st *state.EditorState) *view.DecorationSet {
				v, _ := selectKey.GetState(st)
				set, ok := v.(*view.DecorationSet)
				if !ok {
					return view.EmptyDecorationSet
				}
				return set
			},
		},
	}
}
