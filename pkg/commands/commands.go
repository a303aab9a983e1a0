// Package commands provides the basic editing commands and the key
// bindings that connect them to an editor.
package commands

import (
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

// Chain combines commands into one that runs them in order until one of
// them handles the state.
func Chain(cmds ...state.Command) state.Command {
	return func(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
		for _, cmd := range cmds {
			handled, err := cmd(st, dispatch)
			if err != nil || handled {
				return handled, err
			}
		}
		return false, nil
	}
}

// DeleteSelection deletes a non-empty selection.
func DeleteSelection(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	if st.Selection().Empty() {
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}
	tr := st.Tr()
	if err := tr.DeleteSelection(); err != nil {
		return false, err
	}
	return true, dispatch(tr)
}

// NewlineInCode inserts a newline when the selection is inside a single
// code block.
func NewlineInCode(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	sel := st.Selection()
	head, anchor := sel.ResolvedTo(), sel.ResolvedFrom()
	if !head.Parent().Kind().IsCode() || !head.SameParent(anchor) {
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}
	tr := st.Tr()
	if err := tr.InsertText("\n"); err != nil {
		return false, err
	}
	return true, dispatch(tr)
}

// InsertText returns a command replacing the selection with text.
func InsertText(text string) state.Command {
	return func(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
		if dispatch == nil {
			return true, nil
		}
		tr := st.Tr()
		if err := tr.InsertText(text); err != nil {
			return false, err
		}
		return true, dispatch(tr)
	}
}

// SelectAll selects the whole document.
func SelectAll(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	if dispatch != nil {
		return true, dispatch(st.Tr().SetSelection(state.NewAllSelection(st.Doc())))
	}
	return true, nil
}

// cursorAtBlockStart returns the cursor when it sits at the start of a
// textblock.
func cursorAtBlockStart(st *state.EditorState) (*model.ResolvedPos, bool) {
	sel, ok := st.Selection().(*state.TextSelection)
	if !ok || !sel.Empty() {
		return nil, false
	}
	rPos := sel.ResolvedFrom()
	if rPos.Depth == 0 || rPos.ParentOffset > 0 {
		return nil, false
	}
	return rPos, true
}

// JoinBackward joins the textblock after a cursor at its start with the
// block before it. An atom before the block is deleted, or selected when
// the block is empty and gets deleted instead.
func JoinBackward(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	rPos, ok := cursorAtBlockStart(st)
	if !ok {
		return false, nil
	}
	depth := rPos.Depth
	index := rPos.Index(depth - 1)
	if index == 0 {
		return false, nil
	}
	cut := rPos.Before(depth)
	before := rPos.Node(depth - 1).Child(index - 1)
	tr := st.Tr()

	switch {
	case before.IsAtom() && rPos.Parent().Content().Size() == 0:
		if err := tr.Delete(cut, rPos.After(depth)); err != nil {
			return false, err
		}
		sel, err := state.CreateNodeSelection(tr.Doc(), cut-before.NodeSize())
		if err != nil {
			return false, err
		}
		tr.SetSelection(sel)
	case before.IsAtom():
		if err := tr.Delete(cut-before.NodeSize(), cut); err != nil {
			return false, err
		}
	case before.IsTextblock():
		if err := tr.Delete(cut-1, cut+1); err != nil {
			return false, err
		}
	default:
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}
	return true, dispatch(tr)
}

// SelectNodeBackward selects the node before a cursor at the start of a
// textblock.
func SelectNodeBackward(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	rPos, ok := cursorAtBlockStart(st)
	if !ok {
		return false, nil
	}
	depth := rPos.Depth
	index := rPos.Index(depth - 1)
	if index == 0 {
		return false, nil
	}
	before := rPos.Node(depth - 1).Child(index - 1)
	if before.IsText() {
		return false, nil
	}
	sel, err := state.CreateNodeSelection(st.Doc(), rPos.Before(depth)-before.NodeSize())
	if err != nil {
		return false, err
	}
	if dispatch == nil {
		return true, nil
	}
	return true, dispatch(st.Tr().SetSelection(sel))
}

// DeleteBackward is the Backspace chain: delete the selection, join with
// the block before, select the node before.
func DeleteBackward(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	return Chain(DeleteSelection, JoinBackward, SelectNodeBackward)(st, dispatch)
}

// SplitBlock splits the paragraph at the selection.
func SplitBlock(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	sel, ok := st.Selection().(*state.TextSelection)
	if !ok {
		return false, nil
	}
	rFrom := sel.ResolvedFrom()
	if rFrom.Depth == 0 || rFrom.Parent().Kind() != model.KindParagraph || !rFrom.SameParent(sel.ResolvedTo()) {
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}
	tr := st.Tr()
	split := model.NewSlice(model.NewFragment(model.Paragraph(), model.Paragraph()), 1, 1)
	if err := tr.Replace(sel.From(), sel.To(), split); err != nil {
		return false, err
	}
	cursor, err := state.Cursor(tr.Doc(), sel.From()+2)
	if err != nil {
		return false, err
	}
	tr.SetSelection(cursor)
	return true, dispatch(tr)
}

// BaseKeymap returns the bindings for basic editing.
func BaseKeymap() map[string]state.Command {
	return map[string]state.Command{
		"Enter":         Chain(NewlineInCode, SplitBlock),
		"Backspace":     DeleteBackward,
		"Mod-Backspace": DeleteBackward,
		"Delete":        DeleteSelection,
		"Mod-a":         SelectAll,
	}
}
