// Package history implements undo and redo for an editor state.
//
// Changes are recorded as inverted steps, grouped into events. Changes
// made within NewGroupDelay of each other that touch adjacent ranges
// form one event and are undone together.
package history

import (
	"time"

	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/model"
	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/transform"
)

const (
	defaultDepth         = 100
	defaultNewGroupDelay = 500 * time.Millisecond
)

var pluginKey = state.NewPluginKey("history")

type options struct {
	depth         int
	newGroupDelay time.Duration
}

type Option func(*options)

// WithDepth limits the number of undoable events. Defaults to 100.
func WithDepth(depth int) Option {
	return func(o *options) {
		o.depth = depth
	}
}

// WithNewGroupDelay sets how long after a change a following change
// still joins its event. Defaults to 500ms.
func WithNewGroupDelay(d time.Duration) Option {
	return func(o *options) {
		o.newGroupDelay = d
	}
}

// bookmark is a selection stored as positions so it can be mapped
// without a document.
type bookmark struct {
	anchor, head int
	node, all    bool
}

func bookmarkOf(sel state.Selection) bookmark {
	b := bookmark{anchor: sel.Anchor(), head: sel.Head()}
	switch sel.(type) {
	case *state.NodeSelection:
		b.node = true
	case *state.AllSelection:
		b.all = true
	}
	return b
}

func (b bookmark) mapThrough(m transform.Mappable) bookmark {
	if b.all {
		return b
	}
	return bookmark{anchor: m.Map(b.anchor, 1), head: m.Map(b.head, -1), node: b.node}
}

func (b bookmark) resolve(doc *model.Node) state.Selection {
	if b.all {
		return state.NewAllSelection(doc)
	}
	size := doc.Content().Size()
	anchor := doc.MustResolve(min(max(b.anchor, 0), size))
	if b.node {
		if sel := state.NewNodeSelection(anchor); sel != nil {
			return sel
		}
	}
	head := doc.MustResolve(min(max(b.head, 0), size))
	if anchor.Parent().InlineContent() && head.Parent().InlineContent() {
		return state.NewTextSelection(anchor, head)
	}
	return state.Near(head, 1)
}

// event is one undoable unit: the inverted steps in the order they were
// recorded and the selection before the first of them.
type event struct {
	steps     []transform.Step
	selection bookmark
}

func (e *event) mapThrough(mapping *transform.Mapping) *event {
	out := &event{selection: e.selection.mapThrough(mapping)}
	for _, s := range e.steps {
		if mapped, ok := s.Map(mapping); ok {
			out.steps = append(out.steps, mapped)
		}
	}
	return out
}

// historyState is the immutable plugin state.
type historyState struct {
	done   []*event
	undone []*event
	// prevTime and prevRange describe the last recorded change, for
	// grouping.
	prevTime  time.Time
	prevRange [2]int
	hasPrev   bool
}

type historyMeta struct {
	next *historyState
}

// New creates the history plugin.
func New(opts ...Option) *state.Plugin {
	o := options{depth: defaultDepth, newGroupDelay: defaultNewGroupDelay}
	for _, opt := range opts {
		opt(&o)
	}
	return &state.Plugin{
		Key: pluginKey,
		State: &state.StateField{
			Init: func(state.Config, *state.EditorState) (any, error) {
				return &historyState{}, nil
			},
			Apply: func(tr *state.Transaction, value any, oldState, _ *state.EditorState) (any, error) {
				return o.apply(value.(*historyState), tr, oldState), nil
			},
		},
	}
}

func (o options) apply(h *historyState, tr *state.Transaction, oldState *state.EditorState) *historyState {
	if meta, ok := tr.GetMeta(pluginKey); ok {
		return meta.(historyMeta).next
	}
	if !tr.DocChanged() {
		return h
	}
	if add, ok := tr.GetMeta(state.MetaAddToHistory); ok && add == false {
		return h.mapThrough(tr.Mapping())
	}

	inverted := invertSteps(tr.Transform)
	changed := changedRange(tr.Mapping())
	_, appended := tr.GetMeta(state.MetaAppendedTransaction)

	next := &historyState{
		prevTime:  tr.Time(),
		prevRange: changed,
		hasPrev:   true,
	}
	last := len(h.done) - 1
	join := last >= 0 && h.hasPrev &&
		(appended || tr.Time().Sub(h.prevTime) < o.newGroupDelay && adjacent(tr.Mapping(), h.prevRange))
	if join {
		merged := &event{selection: h.done[last].selection}
		merged.steps = append(append(merged.steps, h.done[last].steps...), inverted...)
		next.done = append(append([]*event(nil), h.done[:last]...), merged)
		if appended {
			next.prevTime = h.prevTime
		}
	} else {
		ev := &event{steps: inverted, selection: bookmarkOf(oldState.Selection())}
		next.done = append(append([]*event(nil), h.done...), ev)
		if len(next.done) > o.depth {
			next.done = next.done[len(next.done)-o.depth:]
		}
	}
	return next
}

func invertSteps(tr *transform.Transform) []transform.Step {
	steps, docs := tr.Steps(), tr.Docs()
	out := make([]transform.Step, len(steps))
	for i, s := range steps {
		out[i] = s.Invert(docs[i])
	}
	return out
}

// changedRange returns the range touched by the mapping's changes, in
// the coordinates of the document after them.
func changedRange(mapping *transform.Mapping) [2]int {
	from, to := -1, -1
	maps := mapping.Maps()
	for i, m := range maps {
		rest := transform.NewMapping(maps[i+1:]...)
		m.ForEach(func(_, _, newStart, newEnd int) {
			start, end := rest.Map(newStart, -1), rest.Map(newEnd, 1)
			if from < 0 || start < from {
				from = start
			}
			if end > to {
				to = end
			}
		})
	}
	return [2]int{from, to}
}

// adjacent reports whether the first change of mapping touches r.
func adjacent(mapping *transform.Mapping, r [2]int) bool {
	touches := false
	for _, m := range mapping.Maps() {
		m.ForEach(func(oldStart, oldEnd, _, _ int) {
			if oldStart <= r[1] && oldEnd >= r[0] {
				touches = true
			}
		})
		break
	}
	return touches
}

func (h *historyState) mapThrough(mapping *transform.Mapping) *historyState {
	next := &historyState{prevTime: h.prevTime, hasPrev: false}
	for _, ev := range h.done {
		if mapped := ev.mapThrough(mapping); len(mapped.steps) > 0 {
			next.done = append(next.done, mapped)
		}
	}
	for _, ev := range h.undone {
		if mapped := ev.mapThrough(mapping); len(mapped.steps) > 0 {
			next.undone = append(next.undone, mapped)
		}
	}
	return next
}

func getState(st *state.EditorState) (*historyState, bool) {
	v, ok := pluginKey.GetState(st)
	if !ok {
		return nil, false
	}
	return v.(*historyState), true
}

// Undo undoes the last change.
func Undo(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	return histTransaction(st, dispatch, false)
}

// Redo redoes the last undone change.
func Redo(st *state.EditorState, dispatch state.DispatchFunc) (bool, error) {
	return histTransaction(st, dispatch, true)
}

func histTransaction(st *state.EditorState, dispatch state.DispatchFunc, redo bool) (bool, error) {
	h, ok := getState(st)
	if !ok {
		return false, nil
	}
	pop, push := h.done, h.undone
	if redo {
		pop, push = h.undone, h.done
	}
	if len(pop) == 0 {
		return false, nil
	}
	if dispatch == nil {
		return true, nil
	}

	ev := pop[len(pop)-1]
	tr := st.Tr()
	for i := len(ev.steps) - 1; i >= 0; i-- {
		// Steps mapped through outside changes can stop applying.
		_ = tr.MaybeStep(ev.steps[i])
	}
	tr.SetSelection(ev.selection.resolve(tr.Doc()))

	reverse := &event{steps: invertSteps(tr.Transform), selection: bookmarkOf(st.Selection())}
	next := &historyState{}
	if redo {
		next.undone = append([]*event(nil), pop[:len(pop)-1]...)
		next.done = append(append([]*event(nil), push...), reverse)
	} else {
		next.done = append([]*event(nil), pop[:len(pop)-1]...)
		next.undone = append(append([]*event(nil), push...), reverse)
	}
	tr.SetMeta(pluginKey, historyMeta{next: next})
	tr.SetMeta(state.MetaAddToHistory, false)
	if err := dispatch(tr); err != nil {
		return false, errors.Wrap(err, "dispatch history transaction")
	}
	return true, nil
}

// UndoDepth returns the number of undoable events.
func UndoDepth(st *state.EditorState) int {
	if h, ok := getState(st); ok {
		return len(h.done)
	}
	return 0
}

// RedoDepth returns the number of redoable events.
func RedoDepth(st *state.EditorState) int {
	if h, ok := getState(st); ok {
		return len(h.undone)
	}
	return 0
}
