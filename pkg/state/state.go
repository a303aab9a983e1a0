// Package state implements the editor state: a document, a selection and
// the state of the plugins, updated immutably by transactions.
package state

import (
	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/model"
)

// ErrMismatchedTransaction is returned when a transaction is applied to a
// state whose document is not the one the transaction started from.
var ErrMismatchedTransaction = errors.New("applying a mismatched transaction")

// DispatchFunc receives a transaction produced by a command.
type DispatchFunc func(tr *Transaction) error

// Command inspects st and, when dispatch is non-nil, dispatches a
// transaction. It reports whether it applies. Calling it with a nil
// dispatch is a dry run that must not have side effects.
type Command func(st *EditorState, dispatch DispatchFunc) (bool, error)

// Config configures a new editor state.
type Config struct {
	Doc       *model.Node
	Selection Selection
	Plugins   []*Plugin
}

// EditorState is an immutable editor state.
type EditorState struct {
	doc       *model.Node
	selection Selection
	plugins   []*Plugin
	fields    map[*PluginKey]any
}

// Create creates a state. Without a selection the cursor is placed at
// the start of the document.
func Create(cfg Config) (*EditorState, error) {
	if cfg.Doc == nil {
		return nil, errors.New("state needs a document")
	}
	st := &EditorState{
		doc:       cfg.Doc,
		selection: cfg.Selection,
		plugins:   append([]*Plugin(nil), cfg.Plugins...),
		fields:    make(map[*PluginKey]any, len(cfg.Plugins)),
	}
	if st.selection == nil {
		st.selection = AtStart(cfg.Doc)
	}
	keys := make(map[*PluginKey]bool, len(st.plugins))
	for _, p := range st.plugins {
		key := p.key()
		if keys[key] {
			return nil, errors.Errorf("duplicate plugin key %s", key)
		}
		keys[key] = true
		if p.State == nil {
			continue
		}
		value, err := p.State.Init(cfg, st)
		if err != nil {
			return nil, errors.Wrapf(err, "init plugin %s", key)
		}
		st.fields[key] = value
	}
	return st, nil
}

func (st *EditorState) Doc() *model.Node { return st.doc }

func (st *EditorState) Selection() Selection { return st.selection }

func (st *EditorState) Plugins() []*Plugin { return st.plugins }

// PluginState returns the state of the plugin identified by key.
func (st *EditorState) PluginState(key *PluginKey) (any, bool) {
	return key.GetState(st)
}

// Tr starts a transaction from this state.
func (st *EditorState) Tr() *Transaction {
	return newTransaction(st)
}

// Apply applies tr and returns the new state.
func (st *EditorState) Apply(tr *Transaction) (*EditorState, error) {
	newState, _, err := st.ApplyTransaction(tr)
	return newState, err
}

// ApplyTransaction applies root, lets plugins append transactions, and
// returns the new state together with every transaction that was applied.
func (st *EditorState) ApplyTransaction(root *Transaction) (*EditorState, []*Transaction, error) {
	if !st.filterTransaction(root, -1) {
		return st, nil, nil
	}
	trs := []*Transaction{root}
	newState, err := st.applyInner(root)
	if err != nil {
		return nil, nil, err
	}

	type seenState struct {
		state *EditorState
		n     int
	}
	var seen []seenState
	for {
		haveNew := false
		for i, p := range st.plugins {
			if p.AppendTransaction == nil {
				continue
			}
			n, oldState := 0, st
			if seen != nil {
				n, oldState = seen[i].n, seen[i].state
			}
			if n < len(trs) {
				tr, err := p.AppendTransaction(trs[n:], oldState, newState)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "append transaction for %s", p.key())
				}
				if tr != nil && newState.filterTransaction(tr, i) {
					tr.SetMeta(MetaAppendedTransaction, root)
					if seen == nil {
						seen = make([]seenState, len(st.plugins))
						for j := range st.plugins {
							if j < i {
								seen[j] = seenState{state: newState, n: len(trs)}
							} else {
								seen[j] = seenState{state: st}
							}
						}
					}
					trs = append(trs, tr)
					if newState, err = newState.applyInner(tr); err != nil {
						return nil, nil, err
					}
					haveNew = true
				}
			}
			if seen != nil {
				seen[i] = seenState{state: newState, n: len(trs)}
			}
		}
		if !haveNew {
			return newState, trs, nil
		}
	}
}

func (st *EditorState) filterTransaction(tr *Transaction, ignore int) bool {
	for i, p := range st.plugins {
		if i != ignore && p.FilterTransaction != nil && !p.FilterTransaction(tr, st) {
			return false
		}
	}
	return true
}

func (st *EditorState) applyInner(tr *Transaction) (*EditorState, error) {
	if !tr.Before().Eq(st.doc) {
		return nil, errors.WithStack(ErrMismatchedTransaction)
	}
	next := &EditorState{
		doc:       tr.Doc(),
		selection: tr.Selection(),
		plugins:   st.plugins,
		fields:    make(map[*PluginKey]any, len(st.fields)),
	}
	for _, p := range st.plugins {
		if p.State == nil {
			continue
		}
		key := p.key()
		value, err := p.State.Apply(tr, st.fields[key], st, next)
		if err != nil {
			return nil, errors.Wrapf(err, "apply plugin %s", key)
		}
		next.fields[key] = value
	}
	return next, nil
}

// Reconfigure creates a state with the same document and selection and a
// new set of plugins. Plugins present in both keep their state.
func (st *EditorState) Reconfigure(plugins []*Plugin) (*EditorState, error) {
	next := &EditorState{
		doc:       st.doc,
		selection: st.selection,
		plugins:   append([]*Plugin(nil), plugins...),
		fields:    make(map[*PluginKey]any, len(plugins)),
	}
	cfg := Config{Doc: st.doc, Selection: st.selection, Plugins: plugins}
	for _, p := range next.plugins {
		if p.State == nil {
			continue
		}
		key := p.key()
		if value, ok := st.fields[key]; ok {
			next.fields[key] = value
			continue
		}
		value, err := p.State.Init(cfg, next)
		if err != nil {
			return nil, errors.Wrapf(err, "init plugin %s", key)
		}
		next.fields[key] = value
	}
	return next, nil
}
