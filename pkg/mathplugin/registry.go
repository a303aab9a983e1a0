package mathplugin

import (
	"github.com/stateful/mathedit/internal/ulid"
	"github.com/stateful/mathedit/pkg/mathview"
)

// Registry is the ordered set of live math views of one outer editor.
// It is not safe for concurrent use.
type Registry struct {
	handles []*Handle
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Handle is the registration of one math view. Release is the only way
// to remove it from its registry.
type Handle struct {
	ID string

	view     *mathview.MathView
	registry *Registry
}

func (h *Handle) View() *mathview.MathView { return h.view }

// Release removes the view from the registry. Releasing twice is a no-op.
func (h *Handle) Release() {
	if h == nil || h.registry == nil {
		return
	}
	r := h.registry
	h.registry = nil
	for i, other := range r.handles {
		if other == h {
			r.handles = append(r.handles[:i:i], r.handles[i+1:]...)
			return
		}
	}
}

// Register adds mv. Registering a view that is already present returns
// its existing handle.
func (r *Registry) Register(mv *mathview.MathView) *Handle {
	for _, h := range r.handles {
		if h.view == mv {
			return h
		}
	}
	h := &Handle{ID: ulid.GenerateID(), view: mv, registry: r}
	r.handles = append(r.handles, h)
	return h
}

// Active returns the registered views in registration order.
func (r *Registry) Active() []*mathview.MathView {
	views := make([]*mathview.MathView, len(r.handles))
	for i, h := range r.handles {
		views[i] = h.view
	}
	return views
}

func (r *Registry) Len() int { return len(r.handles) }
