package dispatch_test

import (
	"sort"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/loop"
	"github.com/byrdsandbytes/beatnik-knob/internal/models"
	"github.com/byrdsandbytes/beatnik-knob/internal/state"
)

// manualClock is a Scheduler whose time only moves when Advance is called.
type manualClock struct {
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Time
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) AfterFunc(d time.Duration, fn func()) loop.Stopper {
	t := &manualTimer{at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	end := c.now.Add(d)
	for {
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		var next *manualTimer
		for _, t := range c.timers {
			if !t.stopped && !t.at.After(end) {
				next = t
				break
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.stopped = true
		next.fn()
	}
	c.now = end
}

type sent struct {
	at time.Time
	v  models.VolumeState
}

type recorder struct {
	clock *manualClock
	sends []sent
}

func (r *recorder) send(v models.VolumeState) {
	r.sends = append(r.sends, sent{at: r.clock.now, v: v})
}

func newFixture(percent int) (*manualClock, *state.Store, *recorder) {
	clock := newManualClock()
	return clock, state.New(models.VolumeState{Percent: percent}), &recorder{clock: clock}
}
