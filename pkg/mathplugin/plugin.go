// Package mathplugin installs math editing into an outer editor. Its
// plugin keeps the registry of live math views and supplies the node
// views of both math kinds.
package mathplugin

import (
	"maps"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/mathedit/pkg/mathrender"
	"github.com/stateful/mathedit/pkg/mathview"
	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

// ErrNoMathPlugin is returned when a math node view is requested from an
// editor whose state has no math plugin.
var ErrNoMathPlugin = errors.New("math plugin not installed")

// PluginKey gives access to the math plugin state.
var PluginKey = state.NewPluginKey("math")

// State is the math plugin state. A new value is created for every
// transaction; Macros and Registry are carried forward.
type State struct {
	Macros   map[string]string
	Registry *Registry
	renderer mathrender.Renderer
	// prevCursorPos is the selection start before the last transaction.
	prevCursorPos int
}

// GetState returns the math plugin state of st.
func GetState(st *state.EditorState) (*State, bool) {
	v, ok := PluginKey.GetState(st)
	if !ok {
		return nil, false
	}
	s, ok := v.(*State)
	return s, ok
}

type config struct {
	macros     map[string]string
	renderer   mathrender.Renderer
	renderOpts *mathrender.Options
	tagNames   map[model.Kind]string
	logger     *zap.Logger
}

type Option func(*config)

// WithMacros sets the macro table shared by all math nodes.
func WithMacros(macros map[string]string) Option {
	return func(c *config) {
		c.macros = maps.Clone(macros)
	}
}

func WithRenderer(r mathrender.Renderer) Option {
	return func(c *config) {
		c.renderer = r
	}
}

// WithRenderOptions sets the base render options. The display mode is
// always derived from the node kind, and Macros falls back to the
// shared macro table.
func WithRenderOptions(opts mathrender.Options) Option {
	return func(c *config) {
		c.renderOpts = &opts
	}
}

// WithTagNames overrides the DOM tags of math node views per kind.
func WithTagNames(tags map[model.Kind]string) Option {
	return func(c *config) {
		c.tagNames = maps.Clone(tags)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates the math plugin.
func New(opts ...Option) *state.Plugin {
	c := &config{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	return &state.Plugin{
		Key: PluginKey,
		State: &state.StateField{
			Init: func(state.Config, *state.EditorState) (any, error) {
				renderer := c.renderer
				if renderer == nil {
					r, err := mathrender.New(mathrender.WithLogger(c.logger))
					if err != nil {
						return nil, err
					}
					renderer = r
				}
				macros := c.macros
				if macros == nil {
					macros = map[string]string{}
				}
				return &State{Macros: macros, Registry: NewRegistry(), renderer: renderer}, nil
			},
			Apply: func(tr *state.Transaction, value any, oldState, newState *state.EditorState) (any, error) {
				prev := value.(*State)
				for _, mv := range prev.Registry.Active() {
					mv.UpdateCursorPos(newState)
				}
				return &State{
					Macros:        prev.Macros,
					Registry:      prev.Registry,
					renderer:      prev.renderer,
					prevCursorPos: oldState.Selection().From(),
				}, nil
			},
		},
		Props: &view.Props{
			NodeViews: map[model.Kind]view.NodeViewFactory{
				model.KindMathInline:  c.nodeView,
				model.KindMathDisplay: c.nodeView,
			},
		},
	}
}

func (c *config) nodeView(node *model.Node, v *view.EditorView, getPos view.GetPos) (view.NodeView, error) {
	st, ok := GetState(v.State())
	if !ok {
		return nil, errors.WithStack(ErrNoMathPlugin)
	}
	display := node.Kind() == model.KindMathDisplay

	renderOpts := mathrender.Options{ThrowOnError: true}
	if c.renderOpts != nil {
		renderOpts = *c.renderOpts
	}
	renderOpts.DisplayMode = display
	if renderOpts.Macros == nil {
		renderOpts.Macros = st.Macros
	}

	var handle *Handle
	opts := []mathview.Option{
		mathview.WithRenderer(st.renderer),
		mathview.WithRenderOptions(renderOpts),
		mathview.WithLogger(c.logger),
		mathview.WithOnDestroy(func() { handle.Release() }),
	}
	if tag := c.tagNames[node.Kind()]; tag != "" {
		opts = append(opts, mathview.WithTagName(tag))
	}
	mv, err := mathview.New(node, v, getPos, opts...)
	if err != nil {
		return nil, err
	}
	handle = st.Registry.Register(mv)
	c.logger.Debug("registered math view", zap.String("id", handle.ID), zap.Stringer("kind", node.Kind()), zap.Int("active", st.Registry.Len()))
	return mv, nil
}
