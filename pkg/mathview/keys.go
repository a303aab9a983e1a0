package mathview

import (
	"github.com/stateful/mathedit/pkg/commands"
	"github.com/stateful/mathedit/pkg/history"
	"github.com/stateful/mathedit/pkg/keymap"
	"github.com/stateful/mathedit/pkg/state"
)

// innerKeymap binds the keys of the inner editor. Undo and redo act on
// the outer history, where inner edits are recorded.
func (mv *MathView) innerKeymap() (*state.Plugin, error) {
	outer := mv.outer
	backspace := commands.Chain(commands.DeleteSelection, mv.deleteEmptyNode)
	undo := func(*state.EditorState, state.DispatchFunc) (bool, error) {
		return history.Undo(outer.State(), outer.Dispatch)
	}
	redo := func(*state.EditorState, state.DispatchFunc) (bool, error) {
		return history.Redo(outer.State(), outer.Dispatch)
	}

	km, err := keymap.Compile(map[string]state.Command{
		"Tab":            commands.InsertText("\t"),
		"Backspace":      backspace,
		"Ctrl-Backspace": backspace,
		"Enter":          commands.Chain(commands.NewlineInCode, CollapseCmd(outer, +1, false, true)),
		"Ctrl-Enter":     CollapseCmd(outer, +1, false, true),
		"ArrowLeft":      CollapseCmd(outer, -1, true, true),
		"ArrowRight":     CollapseCmd(outer, +1, true, true),
		"ArrowUp":        CollapseCmd(outer, -1, true, true),
		"ArrowDown":      CollapseCmd(outer, +1, true, true),
		"Mod-z":          undo,
		"Mod-y":          redo,
		"Mod-Shift-z":    redo,
	})
	if err != nil {
		return nil, err
	}
	return &state.Plugin{Key: state.NewPluginKey("math-keymap"), Props: km.Props()}, nil
}

// deleteEmptyNode removes an empty math node from the outer document
// and gives focus back to the outer editor.
func (mv *MathView) deleteEmptyNode(inner *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	if !inner.Selection().Empty() || mv.node.TextContent() != "" {
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}
	outer := mv.outer
	tr := outer.State().Tr()
	if err := tr.DeleteSelection(); err != nil {
		return false, err
	}
	if err := outer.Dispatch(tr); err != nil {
		return false, err
	}
	outer.Focus()
	return true, nil
}
