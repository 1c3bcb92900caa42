// Package models defines the data structures shared by the knob daemon.
// JSON field names match the Snapcast JSON-RPC API where the type is sent on the wire.
package models

import "fmt"

// Volume bounds in percent, as used by Snapcast.
const (
	MinPercent = 0
	MaxPercent = 100
)

// VolumeState is the locally known volume of the tracked Snapcast client.
type VolumeState struct {
	Percent int  `json:"percent"`
	Muted   bool `json:"muted"`
}

// Clamped returns a copy of v with Percent forced into [MinPercent, MaxPercent].
func (v VolumeState) Clamped() VolumeState {
	v.Percent = ClampPercent(v.Percent)
	return v
}

// Step returns v moved by delta percent, clamped.
func (v VolumeState) Step(delta int) VolumeState {
	v.Percent = ClampPercent(v.Percent + delta)
	return v
}

func (v VolumeState) String() string {
	if v.Muted {
		return fmt.Sprintf("%d%% (muted)", v.Percent)
	}
	return fmt.Sprintf("%d%%", v.Percent)
}

// ClampPercent forces p into [MinPercent, MaxPercent].
func ClampPercent(p int) int {
	if p < MinPercent {
		return MinPercent
	}
	if p > MaxPercent {
		return MaxPercent
	}
	return p
}

// Origin identifies who caused a state change.
type Origin int

const (
	// OriginLocal is an optimistic change made by the knob itself.
	OriginLocal Origin = iota
	// OriginRemote is an authoritative change reported by the server.
	OriginRemote
)

func (o Origin) String() string {
	switch o {
	case OriginLocal:
		return "local"
	case OriginRemote:
		return "remote"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}
