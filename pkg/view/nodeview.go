package view

import (
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/stateful/mathedit/internal/dom"
	"github.com/stateful/mathedit/pkg/model"
)

// NodeView takes over drawing and event handling for one node.
type NodeView interface {
	// DOM is the outer DOM node the view renders into.
	DOM() *html.Node
	// Update is called when the node changed. It returns false when the
	// view cannot represent node, after which it is destroyed and
	// recreated.
	Update(node *model.Node) (bool, error)
	// SelectNode is called when the node becomes node-selected.
	SelectNode() error
	// DeselectNode is called when the node stops being node-selected.
	DeselectNode() error
	// StopEvent reports whether the view should leave ev alone.
	StopEvent(ev Event) bool
	// IgnoreMutation reports whether DOM changes inside the view should
	// be ignored instead of read back into the document.
	IgnoreMutation() bool
	// Destroy releases the view.
	Destroy()
}

// ClickHandler is implemented by node views that want to observe clicks
// on their DOM before the view handles them.
type ClickHandler interface {
	HandleClick()
}

// GetPos returns the current position of a node view's node. It reports
// false once the view was removed from the document.
type GetPos func() (int, bool)

// NodeViewFactory creates a node view for node.
type NodeViewFactory func(node *model.Node, v *EditorView, getPos GetPos) (NodeView, error)

type nodeViewDesc struct {
	node  *model.Node
	pos   int
	view  NodeView
	alive bool
	// decorations currently applied to the view's DOM
	applied []Decoration
}

func (d *nodeViewDesc) getPos() (int, bool) {
	if !d.alive {
		return 0, false
	}
	return d.pos, true
}

func (d *nodeViewDesc) contains(target *html.Node) bool {
	return target != nil && d.view != nil && dom.Contains(d.view.DOM(), target)
}

type nodeViewItem struct {
	node    *model.Node
	pos     int
	factory NodeViewFactory
}

// reconcile matches the node views of the previous render against the
// nodes of the current document: identical nodes keep their view, other
// views are offered the next node in document order through Update, and
// views that cannot be reused are destroyed.
func (v *EditorView) reconcile() (err error) {
	var items []nodeViewItem
	v.state.Doc().Descendants(func(node *model.Node, pos int, _ *model.Node, _ int) bool {
		if factory := v.nodeViewFactory(node.Kind()); factory != nil {
			items = append(items, nodeViewItem{node: node, pos: pos, factory: factory})
			return false
		}
		return true
	})

	old := v.descs
	claimed := make([]bool, len(old))
	matched := make([]*nodeViewDesc, len(items))
	oldIndex := make(map[*nodeViewDesc]int, len(old))
	byNode := make(map[*model.Node][]int, len(old))
	for j, d := range old {
		oldIndex[d] = j
		byNode[d.node] = append(byNode[d.node], j)
	}
	for i, it := range items {
		for _, j := range byNode[it.node] {
			if !claimed[j] {
				claimed[j] = true
				matched[i] = old[j]
				old[j].pos = it.pos
				break
			}
		}
	}

	defer func() {
		if err == nil {
			return
		}
		// Keep every live view reachable so that Destroy can release it.
		var live []*nodeViewDesc
		for _, d := range matched {
			if d != nil {
				live = append(live, d)
			}
		}
		for j, d := range old {
			if !claimed[j] && d.alive {
				live = append(live, d)
			}
		}
		v.descs = live
	}()

	cursor := 0
	for i, it := range items {
		if d := matched[i]; d != nil {
			cursor = max(cursor, oldIndex[d]+1)
			continue
		}
		for j := cursor; j < len(old); j++ {
			if claimed[j] {
				continue
			}
			d := old[j]
			claimed[j] = true
			cursor = j + 1
			d.pos = it.pos
			ok, err := d.view.Update(it.node)
			if err != nil {
				matched[i] = d
				return err
			}
			if ok {
				d.node = it.node
				matched[i] = d
			} else {
				v.destroyDesc(d)
			}
			break
		}
		if matched[i] == nil {
			d, err := v.createDesc(it)
			if err != nil {
				return err
			}
			matched[i] = d
		}
	}

	for j, d := range old {
		if !claimed[j] {
			v.destroyDesc(d)
		}
	}
	v.descs = matched
	return nil
}

func (v *EditorView) createDesc(it nodeViewItem) (*nodeViewDesc, error) {
	d := &nodeViewDesc{node: it.node, pos: it.pos, alive: true}
	nv, err := it.factory(it.node, v, d.getPos)
	if err != nil {
		d.alive = false
		return nil, err
	}
	d.view = nv
	v.logger.Debug("created node view", zap.Stringer("kind", it.node.Kind()), zap.Int("pos", it.pos))
	return d, nil
}

func (v *EditorView) destroyDesc(d *nodeViewDesc) {
	if !d.alive {
		return
	}
	d.alive = false
	if v.selected == d {
		v.selected = nil
	}
	v.logger.Debug("destroying node view", zap.Stringer("kind", d.node.Kind()), zap.Int("pos", d.pos))
	d.view.Destroy()
}

func (v *EditorView) descAt(pos int) *nodeViewDesc {
	for _, d := range v.descs {
		if d.pos == pos && d.alive {
			return d
		}
	}
	return nil
}

func (v *EditorView) descContaining(target *html.Node) *nodeViewDesc {
	for _, d := range v.descs {
		if d.alive && d.contains(target) {
			return d
		}
	}
	return nil
}

// NodeViewAt returns the node view of the node starting at pos.
func (v *EditorView) NodeViewAt(pos int) (NodeView, bool) {
	if d := v.descAt(pos); d != nil {
		return d.view, true
	}
	return nil, false
}

// NodeViews returns the live node views in document order.
func (v *EditorView) NodeViews() []NodeView {
	out := make([]NodeView, 0, len(v.descs))
	for _, d := range v.descs {
		if d.alive {
			out = append(out, d.view)
		}
	}
	return out
}
