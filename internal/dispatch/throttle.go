package dispatch

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// Throttle sends the first rotation immediately and ignores rotations for the
// configured interval after each send.
type Throttle struct {
	store           Store
	send            SendFunc
	clock           Scheduler
	step            int
	limiter         *rate.Limiter
	trackSuppressed bool
}

// NewThrottle creates a leading-edge throttle dispatcher. A single-token
// limiter refilled once per interval holds the "last send" timestamp.
func NewThrottle(store Store, send SendFunc, clock Scheduler, step int, interval time.Duration, trackSuppressed bool) *Throttle {
	return &Throttle{
		store:           store,
		send:            send,
		clock:           clock,
		step:            step,
		limiter:         rate.NewLimiter(rate.Every(interval), 1),
		trackSuppressed: trackSuppressed,
	}
}

// Rotate sends a stepped volume if the interval since the last send has
// elapsed. Otherwise the rotation is dropped, or only applied locally when
// TrackSuppressed is set.
func (t *Throttle) Rotate(dir Direction) {
	next := t.store.Current().Step(int(dir) * t.step)
	if !t.limiter.AllowN(t.clock.Now(), 1) {
		if t.trackSuppressed && t.store.Apply(next, models.OriginLocal) {
			slog.Debug("dispatch: throttled, local only", "percent", next.Percent)
			return
		}
		slog.Debug("dispatch: throttled", "dir", dir)
		return
	}
	if t.store.Apply(next, models.OriginLocal) {
		slog.Info("dispatch: volume set", "percent", next.Percent, "dir", dir)
	}
	v := t.store.Current()
	slog.Info("dispatch: sending volume", "percent", v.Percent)
	t.send(v)
}

// Close is a no-op; throttled sends are never deferred.
func (t *Throttle) Close() {}
