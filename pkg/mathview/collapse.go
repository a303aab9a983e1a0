package mathview

import (
	"github.com/stateful/mathedit/pkg/state"
)

// CollapseCmd returns an inner editor command that leaves the math node
// and moves the outer cursor before it (dir < 0) or after it (dir > 0).
// With requireOnBorder the inner cursor must be at the matching edge of
// the content; with requireEmptySelection the inner selection must be
// empty.
func CollapseCmd(outer OuterEditor, dir int, requireOnBorder, requireEmptySelection bool) state.Command {
	return func(inner *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
		innerSel := inner.Selection()
		if requireEmptySelection && !innerSel.Empty() {
			return false, nil
		}
		current := innerSel.From()
		if dir > 0 {
			current = innerSel.To()
		}
		if requireOnBorder {
			size := inner.Doc().Content().Size()
			if dir > 0 && current < size {
				return false, nil
			}
			if dir < 0 && current > 0 {
				return false, nil
			}
		}
		outerState := outer.State()
		outerSel := outerState.Selection()
		target := outerSel.From()
		if dir > 0 {
			target = outerSel.To()
		}
		rTarget, err := outerState.Doc().Resolve(target)
		if err != nil {
			return false, err
		}
		var sel state.Selection = state.NewTextSelection(rTarget, rTarget)
		if !rTarget.Parent().InlineContent() {
			// Next to display math there is no text position; use the
			// nearest one, preferring the direction of travel.
			sel = state.FindFrom(rTarget, dir, true)
			if sel == nil {
				sel = state.FindFrom(rTarget, -dir, true)
			}
			if sel == nil {
				// Nowhere to put the cursor: stay in the inner editor.
				return false, nil
			}
		}
		if dispatch == nil {
			return true, nil
		}

		if err := outer.Dispatch(outerState.Tr().SetSelection(sel)); err != nil {
			return false, err
		}
		outer.Focus()
		return true, nil
	}
}
