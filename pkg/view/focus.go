package view

// FocusGroup tracks which view out of an outer editor and its nested
// editors holds the input focus. At most one view is focused.
type FocusGroup struct {
	focused *EditorView
}

func NewFocusGroup() *FocusGroup {
	return &FocusGroup{}
}

// Focused returns the focused view or nil.
func (g *FocusGroup) Focused() *EditorView { return g.focused }

func (g *FocusGroup) focus(v *EditorView) { g.focused = v }

func (g *FocusGroup) blur(v *EditorView) {
	if g.focused == v {
		g.focused = nil
	}
}

// HandleKey delivers a key event to the focused view.
func (g *FocusGroup) HandleKey(ev KeyEvent) (bool, error) {
	if g.focused == nil {
		return false, nil
	}
	return g.focused.HandleKey(ev)
}

// InsertText delivers typed text to the focused view.
func (g *FocusGroup) InsertText(text string) (bool, error) {
	if g.focused == nil {
		return false, nil
	}
	return g.focused.InsertText(text)
}

// DeleteBackward performs a native backward delete in the focused view.
func (g *FocusGroup) DeleteBackward() (bool, error) {
	if g.focused == nil {
		return false, nil
	}
	return g.focused.DeleteBackward()
}

// PasteText pastes text into the focused view.
func (g *FocusGroup) PasteText(text string) (bool, error) {
	if g.focused == nil {
		return false, nil
	}
	return g.focused.PasteText(text)
}
