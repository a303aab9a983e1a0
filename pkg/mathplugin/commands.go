package mathplugin

import (
	"github.com/stateful/mathedit/pkg/keymap"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

// InsertMathCmd inserts a math node of kind holding initialText and
// selects it, which opens it for editing. Display math replaces an empty
// textblock the cursor is in.
func InsertMathCmd(kind model.Kind, initialText string) state.Command {
	return func(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
		sel := st.Selection()
		rFrom := sel.ResolvedFrom()
		parent := rFrom.Parent()

		var node *model.Node
		switch kind {
		case model.KindMathInline:
			node = model.MathInline(initialText)
		case model.KindMathDisplay:
			node = model.MathDisplay(initialText)
		case model.KindDoc, model.KindParagraph, model.KindText:
			return false, nil
		}

		from, to := sel.From(), sel.To()
		switch {
		case parent.CanReplaceWith(rFrom.Index(rFrom.Depth), rFrom.Index(rFrom.Depth), kind) &&
			rFrom.SameParent(sel.ResolvedTo()) && (kind.IsInline() || !parent.InlineContent()):
		case !kind.IsInline() && parent.IsTextblock() && parent.Content().Size() == 0 && rFrom.Depth > 0 &&
			rFrom.Node(rFrom.Depth-1).Kind().Allows(kind):
			from, to = rFrom.Before(rFrom.Depth), rFrom.After(rFrom.Depth)
		default:
			return false, nil
		}
		if dispatch == nil {
			return true, nil
		}

		tr := st.Tr()
		if err := tr.ReplaceRangeWith(from, to, node); err != nil {
			return false, err
		}
		nodeSel, err := state.CreateNodeSelection(tr.Doc(), from)
		if err != nil {
			return false, err
		}
		return true, dispatch(tr.SetSelection(nodeSel))
	}
}

// MathBackspaceCmd selects the inline math node directly before the
// cursor instead of deleting it. Display math before the cursor is left
// alone: the command does not handle it.
func MathBackspaceCmd(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	rFrom := st.Selection().ResolvedFrom()
	before := rFrom.NodeBefore()
	if before == nil {
		return false, nil
	}
	switch before.Kind() {
	case model.KindMathInline:
		if dispatch == nil {
			return true, nil
		}
		sel, err := state.CreateNodeSelection(st.Doc(), rFrom.Pos-before.NodeSize())
		if err != nil {
			return false, err
		}
		return true, dispatch(st.Tr().SetSelection(sel))
	case model.KindMathDisplay:
		// Left to the next Backspace binding.
		return false, nil
	case model.KindDoc, model.KindParagraph, model.KindText:
	}
	return false, nil
}

// MathKeymap binds the math commands of the outer editor. Install it
// before the base keymap.
func MathKeymap() *state.Plugin {
	return keymap.New(map[string]state.Command{
		"Backspace": MathBackspaceCmd,
	})
}
