package dispatch

import (
	"log/slog"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/loop"
	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// Debounce applies every rotation locally at once and sends a single
// SetVolume once rotations have paused for the configured delay.
type Debounce struct {
	store Store
	send  SendFunc
	sched Scheduler
	step  int
	delay time.Duration

	pending loop.Stopper
}

// NewDebounce creates a trailing-edge debounce dispatcher.
func NewDebounce(store Store, send SendFunc, sched Scheduler, step int, delay time.Duration) *Debounce {
	return &Debounce{
		store: store,
		send:  send,
		sched: sched,
		step:  step,
		delay: delay,
	}
}

// Rotate steps the local volume and restarts the send window.
func (d *Debounce) Rotate(dir Direction) {
	next := d.store.Current().Step(int(dir) * d.step)
	if d.store.Apply(next, models.OriginLocal) {
		slog.Info("dispatch: volume set", "percent", next.Percent, "dir", dir)
	}
	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = d.sched.AfterFunc(d.delay, d.fire)
}

// Pending reports whether a send window is open.
func (d *Debounce) Pending() bool { return d.pending != nil }

func (d *Debounce) fire() {
	d.pending = nil
	v := d.store.Current()
	slog.Info("dispatch: sending final volume", "percent", v.Percent)
	d.send(v)
}

// Close sends immediately if a window is open.
func (d *Debounce) Close() {
	if d.pending == nil {
		return
	}
	if d.pending.Stop() {
		d.fire()
		return
	}
	d.pending = nil
}
