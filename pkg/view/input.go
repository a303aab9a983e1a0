package view

import (
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

// stoppedByNodeView reports whether ev targets a node view that wants to
// handle it itself.
func (v *EditorView) stoppedByNodeView(ev Event) bool {
	if d := v.descContaining(ev.Target); d != nil {
		return d.view.StopEvent(ev)
	}
	return false
}

// HandleKey runs the key-down handlers of the view's props.
func (v *EditorView) HandleKey(ev KeyEvent) (bool, error) {
	if v.destroyed {
		return false, nil
	}
	if v.stoppedByNodeView(Event{Type: EventKeyDown, Target: ev.Target, Key: ev}) {
		return false, nil
	}
	return v.someProp(func(p *Props) (bool, error) {
		if p.HandleKeyDown == nil {
			return false, nil
		}
		return p.HandleKeyDown(v, ev)
	})
}

// InsertText handles typed text. Text-input handlers get the first
// chance; otherwise the text replaces the selection.
func (v *EditorView) InsertText(text string) (bool, error) {
	if v.destroyed || text == "" {
		return false, nil
	}
	sel := v.state.Selection()
	handled, err := v.someProp(func(p *Props) (bool, error) {
		if p.HandleTextInput == nil {
			return false, nil
		}
		return p.HandleTextInput(v, sel.From(), sel.To(), text)
	})
	if handled || err != nil {
		return handled, err
	}
	tr := v.state.Tr()
	if err := tr.InsertText(text); err != nil {
		return false, err
	}
	tr.SetMeta(state.MetaUIEvent, "input")
	return true, v.Dispatch(tr)
}

// DeleteBackward performs the native backward deletion: it deletes a
// non-empty selection or the character before the cursor. It does not
// join blocks or remove nodes; key bindings do that.
func (v *EditorView) DeleteBackward() (bool, error) {
	if v.destroyed {
		return false, nil
	}
	sel := v.state.Selection()
	tr := v.state.Tr()
	if !sel.Empty() {
		if err := tr.DeleteSelection(); err != nil {
			return false, err
		}
	} else {
		rPos := sel.ResolvedFrom()
		before := rPos.NodeBefore()
		if rPos.ParentOffset == 0 || before == nil || !before.IsText() {
			return false, nil
		}
		if err := tr.Delete(rPos.Pos-1, rPos.Pos); err != nil {
			return false, err
		}
	}
	tr.SetMeta(state.MetaUIEvent, "delete")
	return true, v.Dispatch(tr)
}

// PasteText inserts pasted text, parsed by the clipboard text parser
// props when there is one.
func (v *EditorView) PasteText(text string) (bool, error) {
	if v.destroyed || text == "" {
		return false, nil
	}
	sel := v.state.Selection()
	var (
		slice  model.Slice
		parsed bool
	)
	_, err := v.someProp(func(p *Props) (bool, error) {
		if p.ClipboardTextParser == nil {
			return false, nil
		}
		s, err := p.ClipboardTextParser(text, sel.ResolvedFrom())
		if err != nil {
			return false, err
		}
		slice, parsed = s, true
		return true, nil
	})
	if err != nil {
		return false, errors.Wrap(err, "parse clipboard text")
	}
	if !parsed {
		slice = model.SliceOf(model.Text(text))
	}
	tr := v.state.Tr()
	if err := tr.ReplaceSelection(slice); err != nil {
		return false, err
	}
	tr.SetMeta(state.MetaUIEvent, "paste")
	return true, v.Dispatch(tr)
}

// CopyText returns the selected content as text.
func (v *EditorView) CopyText() string {
	slice := v.state.Selection().Content()
	var (
		text       string
		serialized bool
	)
	v.eachProps(func(p *Props) bool {
		if p.ClipboardTextSerializer == nil {
			return false
		}
		text, serialized = p.ClipboardTextSerializer(slice), true
		return true
	})
	if serialized {
		return text
	}
	return slice.Content.TextBetween(0, slice.Content.Size(), "\n\n", "")
}

// Click handles a click on target. Clicking a node view selects its node
// unless the node view stops the event.
func (v *EditorView) Click(target *html.Node) (bool, error) {
	if v.destroyed {
		return false, nil
	}
	d := v.descContaining(target)
	if d == nil {
		return false, nil
	}
	if h, ok := d.view.(ClickHandler); ok {
		h.HandleClick()
	}
	if d.view.StopEvent(Event{Type: EventClick, Target: target}) {
		return false, nil
	}
	sel, err := state.CreateNodeSelection(v.state.Doc(), d.pos)
	if err != nil {
		return false, err
	}
	v.Focus()
	tr := v.state.Tr().SetSelection(sel)
	tr.SetMeta(state.MetaUIEvent, "click")
	return true, v.Dispatch(tr)
}

// HandleMutation reads the view's DOM back into the document after an
// outside change to the DOM below target. Changes inside node views that
// ignore mutations are dropped.
func (v *EditorView) HandleMutation(target *html.Node) (bool, error) {
	if v.destroyed || !dom.Contains(v.dom, target) {
		return false, nil
	}
	if d := v.descContaining(target); d != nil && d.view.IgnoreMutation() {
		return false, nil
	}

	doc := v.state.Doc()
	parsed, err := v.parseDOM()
	if err != nil {
		return false, err
	}
	start, ok := doc.Content().FindDiffStart(parsed.Content(), 0)
	if !ok {
		return false, nil
	}
	end, _ := doc.Content().FindDiffEnd(parsed.Content(), doc.Content().Size(), parsed.Content().Size())
	if end.A < start {
		end.B += start - end.A
		end.A = start
	}
	if end.B < start {
		end.A += start - end.B
		end.B = start
	}
	slice, err := parsed.Slice(start, end.B, false)
	if err != nil {
		return false, err
	}
	tr := v.state.Tr()
	if err := tr.Replace(start, end.A, slice); err != nil {
		return false, err
	}
	tr.SetMeta(state.MetaUIEvent, "mutation")
	return true, v.Dispatch(tr)
}

func (v *EditorView) parseDOM() (*model.Node, error) {
	root := v.state.Doc()
	if root.Kind() != model.KindDoc {
		// An editor for a single textblock, such as a nested math editor.
		return model.New(root.Kind(), nil, textContent(dom.TextContent(v.dom)))
	}
	return model.ParseDOM(v.dom, model.WithNodeResolver(func(el *html.Node) (*model.Node, bool) {
		for _, d := range v.descs {
			if d.alive && d.view.DOM() == el {
				return d.node, true
			}
		}
		return nil, false
	}))
}

func textContent(s string) model.Fragment {
	if s == "" {
		return model.Fragment{}
	}
	return model.NewFragment(model.Text(s))
}
