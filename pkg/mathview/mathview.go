// Package mathview implements the node view of math nodes. While a math
// node is selected its source is edited in a nested editor whose
// changes are mapped into the outer document.
package mathview

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/mathrender"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/transform"
	"github.com/stateful/mathedit/pkg/view"
)

var (
	// ErrInnerEditorExists is returned when opening an editor that is open.
	ErrInnerEditorExists = errors.New("inner editor already exists")
	// ErrStepDiscarded is returned when an inner step maps to nothing in
	// the outer document.
	ErrStepDiscarded = errors.New("step discarded while mapping to the outer document")
	// ErrUnmappableStep is returned when a mapped inner step does not
	// apply to the outer document.
	ErrUnmappableStep = errors.New("inner step does not apply to the outer document")
	// ErrPositionUnavailable is returned when the node's outer position
	// is unknown, for example after it was removed.
	ErrPositionUnavailable = errors.New("math node position unavailable")
)

// MetaFromOutside marks inner transactions that mirror an outer change.
// They are not mapped back into the outer document.
const MetaFromOutside = "fromOutside"

// DOM classes.
const (
	ClassRender   = "math-render"
	ClassSource   = "math-src"
	ClassEmpty    = "empty-math"
	ClassError    = "parse-error"
	ClassSelected = "ProseMirror-selectednode"
)

// CursorSide is where the cursor is placed when the inner editor opens.
type CursorSide string

const (
	SideStart CursorSide = "start"
	SideEnd   CursorSide = "end"
)

// OuterEditor is what a math view needs from the editor hosting it.
// *view.EditorView implements it.
type OuterEditor interface {
	State() *state.EditorState
	Dispatch(tr *state.Transaction) error
	Focus()
	HasFocus() bool
	FocusGroup() *view.FocusGroup
}

type Option func(*MathView)

// WithDisplayMode renders the node as display math.
func WithDisplayMode(display bool) Option {
	return func(mv *MathView) {
		mv.renderOpts.DisplayMode = display
	}
}

// WithRenderOptions replaces the render options.
func WithRenderOptions(opts mathrender.Options) Option {
	return func(mv *MathView) {
		mv.renderOpts = opts
	}
}

// WithMacros sets the macro table used for rendering.
func WithMacros(macros map[string]string) Option {
	return func(mv *MathView) {
		mv.renderOpts.Macros = macros
	}
}

// WithTagName overrides the tag of the outer DOM element.
func WithTagName(tag string) Option {
	return func(mv *MathView) {
		mv.tagName = tag
	}
}

func WithRenderer(r mathrender.Renderer) Option {
	return func(mv *MathView) {
		mv.renderer = r
	}
}

// WithOnDestroy registers a function called once the view is destroyed.
func WithOnDestroy(fn func()) Option {
	return func(mv *MathView) {
		mv.onDestroy = fn
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(mv *MathView) {
		mv.logger = logger
	}
}

// MathView is the node view of a math node.
type MathView struct {
	node   *model.Node
	outer  OuterEditor
	getPos view.GetPos

	tagName    string
	renderer   mathrender.Renderer
	renderOpts mathrender.Options
	onDestroy  func()
	logger     *zap.Logger

	dom       *html.Node
	renderDOM *html.Node
	srcDOM    *html.Node

	inner      *view.EditorView
	editing    bool
	cursorSide CursorSide
	destroyed  bool
}

var (
	_ view.NodeView     = (*MathView)(nil)
	_ view.ClickHandler = (*MathView)(nil)
)

// New creates the view of node and renders it.
func New(node *model.Node, outer OuterEditor, getPos view.GetPos, opts ...Option) (*MathView, error) {
	mv := &MathView{
		node:       node,
		outer:      outer,
		getPos:     getPos,
		renderOpts: mathrender.Options{ThrowOnError: true},
		logger:     zap.NewNop(),
		cursorSide: SideEnd,
	}
	for _, opt := range opts {
		opt(mv)
	}
	if mv.renderer == nil {
		r, err := mathrender.New(mathrender.WithLogger(mv.logger))
		if err != nil {
			return nil, err
		}
		mv.renderer = r
	}
	if mv.tagName == "" {
		mv.tagName = node.Kind().TagName()
	}

	mv.dom = dom.NewElement(mv.tagName)
	dom.AddClass(mv.dom, model.MathNodeClass)
	mv.renderDOM = dom.NewElement("span")
	dom.AddClass(mv.renderDOM, ClassRender)
	mv.srcDOM = dom.NewElement("span")
	dom.AddClass(mv.srcDOM, ClassSource)
	mv.dom.AppendChild(mv.renderDOM)
	mv.dom.AppendChild(mv.srcDOM)

	if err := mv.RenderMath(); err != nil {
		return nil, err
	}
	return mv, nil
}

func (mv *MathView) DOM() *html.Node { return mv.dom }

// Node returns the node the view currently shows.
func (mv *MathView) Node() *model.Node { return mv.node }

func (mv *MathView) IsEditing() bool { return mv.editing }

// CursorSide returns where the cursor goes when the editor opens next.
func (mv *MathView) CursorSide() CursorSide { return mv.cursorSide }

// InnerView returns the live inner editor or nil.
func (mv *MathView) InnerView() *view.EditorView { return mv.inner }

// Update shows node. It returns false when node is of another kind or
// has other attributes. While editing, outer changes are replayed into
// the inner editor.
func (mv *MathView) Update(node *model.Node) (bool, error) {
	if !node.SameMarkup(mv.node) {
		return false, nil
	}
	mv.node = node

	if mv.inner == nil {
		return true, mv.RenderMath()
	}

	innerState := mv.inner.State()
	innerContent := innerState.Doc().Content()
	start, ok := node.Content().FindDiffStart(innerContent, 0)
	if !ok {
		return true, nil
	}
	end, _ := node.Content().FindDiffEnd(innerContent, node.Content().Size(), innerContent.Size())
	if overlap := start - min(end.A, end.B); overlap > 0 {
		end.A += overlap
		end.B += overlap
	}
	slice, err := node.Slice(start, end.A, false)
	if err != nil {
		return false, errors.WithStack(err)
	}
	tr := innerState.Tr()
	if err := tr.Replace(start, end.B, slice); err != nil {
		return false, errors.Wrap(err, "replay outer change")
	}
	tr.SetMeta(MetaFromOutside, true)
	return true, mv.inner.Dispatch(tr)
}

// UpdateCursorPos updates where the cursor goes when the editor opens,
// based on the outer selection in st. A node before the selection is
// entered from its end, a node after it from its start.
func (mv *MathView) UpdateCursorPos(st *state.EditorState) {
	pos, ok := mv.getPos()
	if !ok {
		return
	}
	sel := st.Selection()
	size := mv.node.NodeSize()
	if sel.From() < pos+size && pos < sel.To() {
		return
	}
	if pos < sel.From() {
		mv.cursorSide = SideEnd
	} else {
		mv.cursorSide = SideStart
	}
}

// SelectNode marks the node selected and opens the editor.
func (mv *MathView) SelectNode() error {
	dom.AddClass(mv.dom, ClassSelected)
	if !mv.editing {
		return mv.OpenEditor()
	}
	return nil
}

// DeselectNode closes the editor.
func (mv *MathView) DeselectNode() error {
	dom.RemoveClass(mv.dom, ClassSelected)
	if mv.editing {
		return mv.CloseEditor(true)
	}
	return nil
}

// StopEvent keeps the outer editor away from events in the inner editor.
func (mv *MathView) StopEvent(ev view.Event) bool {
	return mv.inner != nil && ev.Target != nil && dom.Contains(mv.inner.DOM(), ev.Target)
}

// IgnoreMutation always reports true: the view owns its DOM.
func (mv *MathView) IgnoreMutation() bool { return true }

// HandleClick focuses the inner editor when the outer editor has focus.
func (mv *MathView) HandleClick() { mv.EnsureFocus() }

func (mv *MathView) EnsureFocus() {
	if mv.inner != nil && mv.outer.HasFocus() {
		mv.inner.Focus()
	}
}

// Destroy closes the editor without rendering and detaches the DOM.
func (mv *MathView) Destroy() {
	if mv.destroyed {
		return
	}
	mv.destroyed = true
	// Closing without rendering cannot fail.
	_ = mv.CloseEditor(false)
	dom.Detach(mv.dom)
	if mv.onDestroy != nil {
		mv.onDestroy()
	}
}

// OpenEditor opens an inner editor on the node's content and focuses it.
func (mv *MathView) OpenEditor() error {
	if mv.inner != nil {
		return errors.WithStack(ErrInnerEditorExists)
	}

	cursor := 0
	if mv.cursorSide == SideEnd {
		cursor = mv.node.Content().Size()
	}
	sel, err := state.Cursor(mv.node, cursor)
	if err != nil {
		return err
	}
	keys, err := mv.innerKeymap()
	if err != nil {
		return err
	}
	st, err := state.Create(state.Config{Doc: mv.node, Selection: sel, Plugins: []*state.Plugin{keys}})
	if err != nil {
		return errors.Wrap(err, "create inner state")
	}
	inner, err := view.New(
		mv.srcDOM,
		st,
		view.WithDispatch(mv.DispatchInner),
		view.WithFocusGroup(mv.outer.FocusGroup()),
		view.WithLogger(mv.logger),
	)
	if err != nil {
		return errors.Wrap(err, "create inner view")
	}

	mv.inner = inner
	mv.editing = true
	inner.Focus()
	mv.logger.Debug("opened math editor", zap.Stringer("kind", mv.node.Kind()), zap.String("cursor", string(mv.cursorSide)))
	return nil
}

// CloseEditor destroys the inner editor. With render the node is
// rendered again.
func (mv *MathView) CloseEditor(render bool) error {
	if mv.inner != nil {
		mv.inner.Destroy()
		mv.inner = nil
		mv.logger.Debug("closed math editor", zap.Stringer("kind", mv.node.Kind()))
	}
	mv.editing = false
	if render {
		return mv.RenderMath()
	}
	return nil
}

// DispatchInner applies tr to the inner editor and, unless tr mirrors an
// outer change, applies its steps to the outer document, shifted by the
// position of the node's content. All steps are mapped before anything
// is applied; a step that cannot be mapped fails the whole edit.
func (mv *MathView) DispatchInner(tr *state.Transaction) error {
	if mv.inner == nil {
		return errors.WithStack(view.ErrViewDestroyed)
	}
	next, applied, err := mv.inner.State().ApplyTransaction(tr)
	if err != nil {
		return err
	}

	var outerTr *state.Transaction
	if fromOutside, _ := tr.GetMeta(MetaFromOutside); fromOutside != true {
		outerTr, err = mv.outerTransaction(applied)
		if err != nil {
			return err
		}
	}

	if err := mv.inner.UpdateState(next); err != nil {
		return err
	}
	if outerTr != nil && outerTr.DocChanged() {
		return mv.outer.Dispatch(outerTr)
	}
	return nil
}

func (mv *MathView) outerTransaction(applied []*state.Transaction) (*state.Transaction, error) {
	pos, ok := mv.getPos()
	if !ok {
		return nil, errors.WithStack(ErrPositionUnavailable)
	}
	offset := transform.OffsetMap(pos + 1)
	outerTr := mv.outer.State().Tr()
	for _, tr := range applied {
		for _, step := range tr.Steps() {
			mapped, ok := step.Map(offset)
			if !ok {
				return nil, errors.Wrapf(ErrStepDiscarded, "step %v", step)
			}
			if err := outerTr.Step(mapped); err != nil {
				return nil, errors.Wrapf(ErrUnmappableStep, "step %v at offset %d: %v", mapped, pos+1, err)
			}
		}
	}
	return outerTr, nil
}

// RenderMath renders the node's source into the render region. Parse
// failures are shown on the node; other renderer failures are returned.
func (mv *MathView) RenderMath() error {
	var tex string
	if first := mv.node.FirstChild(); first != nil {
		tex = strings.TrimSpace(first.TextContent())
	}
	if tex == "" {
		dom.AddClass(mv.dom, ClassEmpty)
		dom.RemoveChildren(mv.renderDOM)
		return nil
	}
	dom.RemoveClass(mv.dom, ClassEmpty)

	res := mv.renderer.Render(tex, mv.renderDOM, mv.renderOpts)
	switch res.Kind {
	case mathrender.Ok:
		dom.RemoveClass(mv.renderDOM, ClassError)
		dom.RemoveAttr(mv.dom, "title")
		return nil
	case mathrender.ParseFailure:
		mv.logger.Warn("failed to parse math", zap.String("source", tex), zap.String("error", res.Description))
		dom.AddClass(mv.renderDOM, ClassError)
		dom.SetAttr(mv.dom, "title", res.Description)
		return nil
	case mathrender.OtherFailure:
		if res.Err == nil {
			return errors.New("render math: unknown failure")
		}
		return errors.Wrap(res.Err, "render math")
	default:
		return errors.Errorf("unknown render result %v", res.Kind)
	}
}
