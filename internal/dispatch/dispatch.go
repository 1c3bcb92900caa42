// Package dispatch turns knob rotations into a rate-limited stream of
// Client.SetVolume commands. Two interchangeable policies are provided:
// trailing-edge debounce and leading-edge throttle.
package dispatch

import (
	"fmt"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/loop"
	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// Direction is the sense of one encoder detent.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	if d == CounterClockwise {
		return "ccw"
	}
	return "cw"
}

// Policy selects the rate-limiting algorithm.
type Policy string

const (
	PolicyDebounce Policy = "debounce"
	PolicyThrottle Policy = "throttle"
)

// Store is the part of state.Store the dispatcher needs.
type Store interface {
	Current() models.VolumeState
	Apply(candidate models.VolumeState, origin models.Origin) bool
}

// SendFunc transmits one SetVolume command for v.
type SendFunc func(v models.VolumeState)

// Scheduler provides delayed tasks and the current time. *loop.Loop
// satisfies it; tests substitute a manual clock.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) loop.Stopper
	Now() time.Time
}

// Dispatcher receives rotations. All methods must be called from the event loop.
type Dispatcher interface {
	Rotate(dir Direction)
	// Close releases the dispatcher. A debounce window still open is flushed
	// so the last value reaches the server.
	Close()
}

// Options configures New.
type Options struct {
	Policy           Policy
	Step             int
	DebounceDelay    time.Duration
	ThrottleInterval time.Duration
	// TrackSuppressed makes the throttle policy still step the local state for
	// rotations that fall inside the interval; they are never sent on their own.
	TrackSuppressed bool
}

// New builds the dispatcher selected by opts.Policy.
func New(opts Options, store Store, send SendFunc, sched Scheduler) (Dispatcher, error) {
	if opts.Step <= 0 {
		return nil, fmt.Errorf("dispatch: step must be positive, got %d", opts.Step)
	}
	switch opts.Policy {
	case PolicyDebounce, "":
		if opts.DebounceDelay <= 0 {
			return nil, fmt.Errorf("dispatch: debounce delay must be positive, got %v", opts.DebounceDelay)
		}
		return NewDebounce(store, send, sched, opts.Step, opts.DebounceDelay), nil
	case PolicyThrottle:
		if opts.ThrottleInterval <= 0 {
			return nil, fmt.Errorf("dispatch: throttle interval must be positive, got %v", opts.ThrottleInterval)
		}
		return NewThrottle(store, send, sched, opts.Step, opts.ThrottleInterval, opts.TrackSuppressed), nil
	default:
		return nil, fmt.Errorf("dispatch: unknown policy %q", opts.Policy)
	}
}
