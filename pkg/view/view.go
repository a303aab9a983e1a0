// Package view implements an editor view: it draws an editor state into
// a DOM tree, hosts node views, and turns input into transactions.
package view

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
)

// ErrViewDestroyed is returned when dispatching to a destroyed view.
var ErrViewDestroyed = errors.New("view destroyed")

// Props influence how a view behaves. Plugins provide them through
// state.Plugin.Props as *Props.
type Props struct {
	// HandleKeyDown can handle a key press.
	HandleKeyDown func(v *EditorView, ev KeyEvent) (bool, error)
	// HandleTextInput can handle typed text replacing [from, to).
	HandleTextInput func(v *EditorView, from, to int, text string) (bool, error)
	// NodeViews provide custom views per node kind.
	NodeViews map[model.Kind]NodeViewFactory
	// Decorations returns the decorations to draw for st.
	Decorations func(st *state.EditorState) *DecorationSet
	// ClipboardTextParser turns pasted text into a slice.
	ClipboardTextParser func(text string, at *model.ResolvedPos) (model.Slice, error)
	// ClipboardTextSerializer turns copied content into text.
	ClipboardTextSerializer func(slice model.Slice) string
}

// Option configures an EditorView.
type Option func(*EditorView)

// WithDispatch replaces the default dispatch, which applies the
// transaction and updates the view with the resulting state.
func WithDispatch(fn state.DispatchFunc) Option {
	return func(v *EditorView) {
		v.dispatchFn = fn
	}
}

// WithProps sets props that take precedence over plugin props.
func WithProps(p Props) Option {
	return func(v *EditorView) {
		v.props = p
	}
}

// WithFocusGroup makes the view share focus with other views.
func WithFocusGroup(g *FocusGroup) Option {
	return func(v *EditorView) {
		v.focus = g
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(v *EditorView) {
		v.logger = logger
	}
}

// EditorView draws an editor state under a mount node.
type EditorView struct {
	mount      *html.Node
	dom        *html.Node
	state      *state.EditorState
	props      Props
	dispatchFn state.DispatchFunc
	focus      *FocusGroup
	logger     *zap.Logger

	descs       []*nodeViewDesc
	selected    *nodeViewDesc
	decorations *DecorationSet
	destroyed   bool
}

// New creates a view for st. Its DOM is appended to mount when mount is
// not nil.
func New(mount *html.Node, st *state.EditorState, opts ...Option) (*EditorView, error) {
	v := &EditorView{
		mount:       mount,
		state:       st,
		logger:      zap.NewNop(),
		decorations: EmptyDecorationSet,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.focus == nil {
		v.focus = NewFocusGroup()
	}

	v.dom = dom.NewElement("div")
	dom.AddClass(v.dom, "ProseMirror")
	dom.SetAttr(v.dom, "contenteditable", "true")
	if mount != nil {
		mount.AppendChild(v.dom)
	}

	if err := v.update(st); err != nil {
		v.Destroy()
		return nil, err
	}
	return v, nil
}

func (v *EditorView) State() *state.EditorState { return v.state }

// DOM returns the editable root element of the view.
func (v *EditorView) DOM() *html.Node { return v.dom }

// Decorations returns the decorations drawn in the last update.
func (v *EditorView) Decorations() *DecorationSet { return v.decorations }

func (v *EditorView) FocusGroup() *FocusGroup { return v.focus }

// Focus makes this view the focused view of its group.
func (v *EditorView) Focus() {
	if !v.destroyed {
		v.focus.focus(v)
	}
}

// HasFocus reports whether this view is focused.
func (v *EditorView) HasFocus() bool { return v.focus.Focused() == v }

func (v *EditorView) IsDestroyed() bool { return v.destroyed }

// Dispatch applies tr: through the dispatch override when one was
// configured, by applying it and updating the view otherwise.
func (v *EditorView) Dispatch(tr *state.Transaction) error {
	if v.destroyed {
		return errors.WithStack(ErrViewDestroyed)
	}
	if v.dispatchFn != nil {
		return v.dispatchFn(tr)
	}
	next, err := v.state.Apply(tr)
	if err != nil {
		return err
	}
	return v.UpdateState(next)
}

// UpdateState updates the view to show st.
func (v *EditorView) UpdateState(st *state.EditorState) error {
	if v.destroyed {
		return errors.WithStack(ErrViewDestroyed)
	}
	return v.update(st)
}

func (v *EditorView) update(st *state.EditorState) error {
	v.state = st
	v.decorations = v.computeDecorations()
	if err := v.reconcile(); err != nil {
		return errors.Wrap(err, "update node views")
	}
	if err := v.syncSelection(); err != nil {
		return err
	}
	if v.destroyed {
		return nil
	}
	v.render()
	return nil
}

func (v *EditorView) computeDecorations() *DecorationSet {
	var sets []*DecorationSet
	v.eachProps(func(p *Props) bool {
		if p.Decorations != nil {
			if set := p.Decorations(v.state); set.Len() > 0 {
				sets = append(sets, set)
			}
		}
		return false
	})
	return joinDecorationSets(sets)
}

func (v *EditorView) syncSelection() error {
	var want *nodeViewDesc
	if sel, ok := v.state.Selection().(*state.NodeSelection); ok {
		want = v.descAt(sel.From())
	}
	if want == v.selected {
		return nil
	}
	prev := v.selected
	v.selected = want
	if prev != nil && prev.alive {
		if err := prev.view.DeselectNode(); err != nil {
			return errors.Wrap(err, "deselect node view")
		}
	}
	if want != nil {
		return errors.Wrap(want.view.SelectNode(), "select node view")
	}
	return nil
}

// eachProps calls fn with the view's own props and then with the props
// of every plugin, until fn returns true.
func (v *EditorView) eachProps(fn func(p *Props) bool) {
	if fn(&v.props) {
		return
	}
	for _, plugin := range v.state.Plugins() {
		if p, ok := plugin.Props.(*Props); ok && p != nil {
			if fn(p) {
				return
			}
		}
	}
}

// someProp calls handler for each props until one handles the input.
func (v *EditorView) someProp(handler func(p *Props) (bool, error)) (bool, error) {
	var (
		handled bool
		err     error
	)
	v.eachProps(func(p *Props) bool {
		handled, err = handler(p)
		return handled || err != nil
	})
	return handled, err
}

func (v *EditorView) nodeViewFactory(kind model.Kind) NodeViewFactory {
	var factory NodeViewFactory
	v.eachProps(func(p *Props) bool {
		factory = p.NodeViews[kind]
		return factory != nil
	})
	return factory
}

// Destroy destroys all node views and removes the view's DOM.
func (v *EditorView) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	for _, d := range v.descs {
		v.destroyDesc(d)
	}
	v.descs = nil
	v.focus.blur(v)
	dom.Detach(v.dom)
}
