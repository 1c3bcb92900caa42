// Package hardware provides the knob's input layer: the Source interface and
// the GPIO rotary encoder driver, plus mock sources for tests and for running
// without the encoder attached.
package hardware

import (
	"context"
	"fmt"
)

// Event is one input from the knob.
type Event int

const (
	RotateClockwise Event = iota
	RotateCounterClockwise
	ButtonPress
)

func (e Event) String() string {
	switch e {
	case RotateClockwise:
		return "rotate-cw"
	case RotateCounterClockwise:
		return "rotate-ccw"
	case ButtonPress:
		return "press"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Handler receives events. Sources call it from their own goroutines, so a
// handler must hand the event off (e.g. loop.Submit) instead of touching
// loop-owned state.
type Handler func(Event)

// Source emits knob events. Delivery is in order per source and at least once.
type Source interface {
	// Start begins delivering events to h. It returns once the source is
	// running; delivery stops when ctx is cancelled or Close is called.
	Start(ctx context.Context, h Handler) error

	// Close stops delivery and releases the underlying resources.
	Close() error
}
