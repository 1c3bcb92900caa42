// Package state holds the locally known volume of the tracked client.
package state

import (
	"log/slog"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// ChangeFunc is called after the stored state changes.
type ChangeFunc func(prev, next models.VolumeState, origin models.Origin)

// Store is the single source of truth for the local (percent, muted) pair.
// Apply is its only mutation entry point. Store is not safe for concurrent
// use; it is confined to the event loop.
type Store struct {
	current  models.VolumeState
	onChange []ChangeFunc
}

// New creates a Store seeded with initial (clamped).
func New(initial models.VolumeState) *Store {
	return &Store{current: initial.Clamped()}
}

// Current returns the stored state.
func (s *Store) Current() models.VolumeState { return s.current }

// OnChange registers fn to be called after every effective change.
func (s *Store) OnChange(fn ChangeFunc) {
	s.onChange = append(s.onChange, fn)
}

// Apply clamps candidate and stores it if it differs from the current state
// in either field. It reports whether the state changed. An unchanged apply
// has no side effects, which is what keeps server echoes of our own commands
// from being acted upon again.
func (s *Store) Apply(candidate models.VolumeState, origin models.Origin) bool {
	next := candidate.Clamped()
	if next == s.current {
		return false
	}
	prev := s.current
	s.current = next
	slog.Debug("state: volume changed", "from", prev.String(), "to", next.String(), "origin", origin)
	for _, fn := range s.onChange {
		fn(prev, next, origin)
	}
	return true
}
