package editor

import (
	"fmt"
	"image"
	"time"

	"colour-replacer/internal/opencv/safe"
)

// EventKind identifies a discrete input event.
type EventKind int

const (
	PointerDown EventKind = iota
	PointerMove
	PointerUp
	KeyPress
	WindowClosed
)

func (k EventKind) String() string {
	switch k {
	case PointerDown:
		return "pointer_down"
	case PointerMove:
		return "pointer_move"
	case PointerUp:
		return "pointer_up"
	case KeyPress:
		return "key_press"
	case WindowClosed:
		return "window_closed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one timestamped input. Point is in image pixel coordinates
// and only meaningful for pointer kinds; Key only for KeyPress. Panel
// names the window that produced the event.
type Event struct {
	Kind  EventKind
	Point image.Point
	Key   string
	Panel string
	Time  time.Time
}

func (k EventKind) isPointer() bool {
	return k == PointerDown || k == PointerMove || k == PointerUp
}

// InputSource delivers events in the order they happened. A closed
// channel means no more input will ever arrive.
type InputSource interface {
	Events() <-chan Event
}

// Display renders the live mask.
type Display interface {
	Render(mask *safe.Mat) error
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(mask *safe.Mat) error

func (f DisplayFunc) Render(mask *safe.Mat) error {
	return f(mask)
}
