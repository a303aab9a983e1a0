// Package keymap binds key names such as "Mod-Shift-z" to commands.
package keymap

import (
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/stateful/mathedit/pkg/state"
	"github.com/stateful/mathedit/pkg/view"
)

var mac = runtime.GOOS == "darwin"

type modifiers struct {
	alt, ctrl, meta, shift bool
}

// format renders a key with its modifiers in canonical order,
// "Shift-Meta-Ctrl-Alt-key".
func (m modifiers) format(base string) string {
	name := base
	if m.alt {
		name = "Alt-" + name
	}
	if m.ctrl {
		name = "Ctrl-" + name
	}
	if m.meta {
		name = "Meta-" + name
	}
	if m.shift {
		name = "Shift-" + name
	}
	return name
}

// Normalize parses a binding name and returns its canonical form. Mod
// is Meta on macOS and Ctrl elsewhere. "Cmd", "Control" and "Option"
// are accepted as aliases.
func Normalize(name string) (string, error) {
	parts := strings.Split(name, "-")
	base := parts[len(parts)-1]
	if base == "" {
		// "Ctrl--" binds the minus key.
		base = "-"
		parts = parts[:len(parts)-1]
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
	} else {
		parts = parts[:len(parts)-1]
	}
	if base == " " {
		base = "Space"
	}

	var m modifiers
	for _, mod := range parts {
		switch strings.ToLower(mod) {
		case "alt", "a", "option":
			m.alt = true
		case "ctrl", "c", "control":
			m.ctrl = true
		case "meta", "m", "cmd":
			m.meta = true
		case "shift", "s":
			m.shift = true
		case "mod":
			if mac {
				m.meta = true
			} else {
				m.ctrl = true
			}
		default:
			return "", errors.Errorf("unrecognized modifier %q in key name %q", mod, name)
		}
	}
	if utf8.RuneCountInString(base) == 1 && m.shift {
		base = strings.ToLower(base)
	}
	return m.format(base), nil
}

// Name returns the canonical name of a key event. Shift is only part of
// the name of a character key when another modifier is held; the
// character itself already reflects it otherwise.
func Name(ev view.KeyEvent) string {
	base := ev.Key
	if base == " " {
		base = "Space"
	}
	m := modifiers{alt: ev.Alt, ctrl: ev.Ctrl, meta: ev.Meta, shift: ev.Shift}
	if utf8.RuneCountInString(base) == 1 {
		if m.shift && !m.alt && !m.ctrl && !m.meta {
			m.shift = false
		} else if m.shift {
			base = strings.ToLower(base)
		}
	}
	return m.format(base)
}

// Event builds the key event that a binding name describes, so that
// Name of the event is the normalized name.
func Event(name string) (view.KeyEvent, error) {
	key, err := Normalize(name)
	if err != nil {
		return view.KeyEvent{}, err
	}
	var ev view.KeyEvent
	for _, m := range []struct {
		prefix string
		flag   *bool
	}{
		{"Shift-", &ev.Shift},
		{"Meta-", &ev.Meta},
		{"Ctrl-", &ev.Ctrl},
		{"Alt-", &ev.Alt},
	} {
		if len(key) > len(m.prefix) && strings.HasPrefix(key, m.prefix) {
			key = key[len(m.prefix):]
			*m.flag = true
		}
	}
	if key == "Space" {
		key = " "
	}
	ev.Key = key
	return ev, nil
}

// Keymap maps canonical key names to commands.
type Keymap struct {
	bindings map[string]state.Command
}

// Compile normalizes the names of bindings.
func Compile(bindings map[string]state.Command) (*Keymap, error) {
	km := &Keymap{bindings: make(map[string]state.Command, len(bindings))}
	for name, cmd := range bindings {
		key, err := Normalize(name)
		if err != nil {
			return nil, err
		}
		if _, ok := km.bindings[key]; ok {
			return nil, errors.Errorf("key %q bound twice", key)
		}
		km.bindings[key] = cmd
	}
	return km, nil
}

// Lookup returns the command bound to ev.
func (km *Keymap) Lookup(ev view.KeyEvent) (state.Command, bool) {
	cmd, ok := km.bindings[Name(ev)]
	return cmd, ok
}

// HandleKeyDown runs the command bound to ev against the view.
func (km *Keymap) HandleKeyDown(v *view.EditorView, ev view.KeyEvent) (bool, error) {
	cmd, ok := km.Lookup(ev)
	if !ok {
		return false, nil
	}
	return cmd(v.State(), v.Dispatch)
}

// Props returns view props handling key presses with the keymap.
func (km *Keymap) Props() *view.Props {
	return &view.Props{HandleKeyDown: km.HandleKeyDown}
}

// New creates a plugin from bindings. It panics on invalid key names,
// which are programming errors.
func New(bindings map[string]state.Command) *state.Plugin {
	km, err := Compile(bindings)
	if err != nil {
		panic(err)
	}
	return &state.Plugin{Props: km.Props()}
}
