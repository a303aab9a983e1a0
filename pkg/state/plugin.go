package state

import (
	"fmt"
	"sync/atomic"
)

// StateField describes a piece of plugin state. Init computes the
// initial value, Apply the value after a transaction.
type StateField struct {
	Init  func(cfg Config, st *EditorState) (any, error)
	Apply func(tr *Transaction, value any, oldState, newState *EditorState) (any, error)
}

// Plugin extends an editor with state and behavior.
type Plugin struct {
	// Key identifies the plugin. A unique key is generated when empty.
	Key *PluginKey
	// State is the optional state field of the plugin.
	State *StateField
	// Props are consumed by the view. The state package never looks at them.
	Props any
	// AppendTransaction can return a transaction to apply after trs.
	AppendTransaction func(trs []*Transaction, oldState, newState *EditorState) (*Transaction, error)
	// FilterTransaction can veto a transaction.
	FilterTransaction func(tr *Transaction, st *EditorState) bool
}

func (p *Plugin) key() *PluginKey {
	if p.Key == nil {
		p.Key = NewPluginKey("plugin")
	}
	return p.Key
}

// GetState returns the plugin's state in st.
func (p *Plugin) GetState(st *EditorState) (any, bool) {
	return p.key().GetState(st)
}

var pluginKeySeq atomic.Int64

// PluginKey gives access to a plugin's state. Keys compare by identity.
type PluginKey struct {
	name string
}

// NewPluginKey creates a key. name only serves debugging.
func NewPluginKey(name string) *PluginKey {
	return &PluginKey{name: fmt.Sprintf("%s$%d", name, pluginKeySeq.Add(1))}
}

func (k *PluginKey) String() string { return k.name }

// Get returns the plugin with this key in st.
func (k *PluginKey) Get(st *EditorState) (*Plugin, bool) {
	for _, p := range st.plugins {
		if p.key() == k {
			return p, true
		}
	}
	return nil, false
}

// GetState returns the state of the plugin with this key in st.
func (k *PluginKey) GetState(st *EditorState) (any, bool) {
	v, ok := st.fields[k]
	return v, ok
}
