package view

import "golang.org/x/net/html"

// EventType is the kind of an input event.
type EventType int

const (
	EventKeyDown EventType = iota
	EventTextInput
	EventClick
	EventPaste
	EventCopy
)

func (t EventType) String() string {
	switch t {
	case EventKeyDown:
		return "keydown"
	case EventTextInput:
		return "textinput"
	case EventClick:
		return "click"
	case EventPaste:
		return "paste"
	case EventCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// KeyEvent is a key press. Key uses the DOM key names ("a", "Enter",
// "Backspace", "ArrowLeft", ...).
type KeyEvent struct {
	Key   string
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	// Target is the DOM node the event was fired at. When nil the event
	// targets the view's own DOM.
	Target *html.Node
}

// Event is an input event as seen by node views.
type Event struct {
	Type   EventType
	Target *html.Node
	Key    KeyEvent
	Text   string
}
