package dispatch_test

import (
	"testing"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/dispatch"
	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

func TestDebounceCoalescesBurst(t *testing.T) {
	clock, store, rec := newFixture(0)
	d := dispatch.NewDebounce(store, rec.send, clock, 5, 200*time.Millisecond)
	start := clock.Now()

	d.Rotate(dispatch.Clockwise)
	if got := store.Current().Percent; got != 5 {
		t.Errorf("after first rotation percent = %d, want 5 (local echo)", got)
	}
	clock.Advance(50 * time.Millisecond)
	d.Rotate(dispatch.Clockwise)
	if got := store.Current().Percent; got != 10 {
		t.Errorf("after second rotation percent = %d, want 10", got)
	}

	clock.Advance(199 * time.Millisecond)
	if len(rec.sends) != 0 {
		t.Fatalf("sent %d commands before the window closed", len(rec.sends))
	}

	clock.Advance(time.Second)
	if len(rec.sends) != 1 {
		t.Fatalf("sent %d commands, want exactly 1", len(rec.sends))
	}
	if rec.sends[0].v.Percent != 10 {
		t.Errorf("sent percent = %d, want 10", rec.sends[0].v.Percent)
	}
	if at := rec.sends[0].at.Sub(start); at != 250*time.Millisecond {
		t.Errorf("sent at t=%v, want 250ms", at)
	}
	if d.Pending() {
		t.Error("Pending() true after fire")
	}
}

func TestDebounceLongBurstSendsOnce(t *testing.T) {
	clock, store, rec := newFixture(50)
	d := dispatch.NewDebounce(store, rec.send, clock, 2, 100*time.Millisecond)

	for i := 0; i < 20; i++ {
		d.Rotate(dispatch.CounterClockwise)
		clock.Advance(90 * time.Millisecond)
	}
	clock.Advance(time.Second)

	if len(rec.sends) != 1 {
		t.Fatalf("sent %d commands, want 1", len(rec.sends))
	}
	if rec.sends[0].v.Percent != 10 {
		t.Errorf("sent percent = %d, want 10", rec.sends[0].v.Percent)
	}
}

func TestDebounceSeparateBurstsSendEach(t *testing.T) {
	clock, store, rec := newFixture(0)
	d := dispatch.NewDebounce(store, rec.send, clock, 5, 100*time.Millisecond)

	d.Rotate(dispatch.Clockwise)
	clock.Advance(150 * time.Millisecond)
	d.Rotate(dispatch.Clockwise)
	clock.Advance(150 * time.Millisecond)

	if len(rec.sends) != 2 {
		t.Fatalf("sent %d commands, want 2", len(rec.sends))
	}
	if rec.sends[0].v.Percent != 5 || rec.sends[1].v.Percent != 10 {
		t.Errorf("sent %d then %d, want 5 then 10", rec.sends[0].v.Percent, rec.sends[1].v.Percent)
	}
}

func TestDebounceSendsStateAtFireTime(t *testing.T) {
	clock, store, rec := newFixture(0)
	d := dispatch.NewDebounce(store, rec.send, clock, 5, 100*time.Millisecond)

	d.Rotate(dispatch.Clockwise)
	// A remote update lands while the window is open.
	store.Apply(store.Current().Step(30), models.OriginRemote)
	clock.Advance(time.Second)

	if len(rec.sends) != 1 || rec.sends[0].v.Percent != 35 {
		t.Fatalf("sends = %+v, want one send of 35", rec.sends)
	}
}

func TestDebounceClampsAtBounds(t *testing.T) {
	clock, store, rec := newFixture(97)
	d := dispatch.NewDebounce(store, rec.send, clock, 5, 10*time.Millisecond)

	for i := 0; i < 5; i++ {
		d.Rotate(dispatch.Clockwise)
		if p := store.Current().Percent; p < 0 || p > 100 {
			t.Fatalf("percent %d out of range", p)
		}
	}
	clock.Advance(time.Second)
	if store.Current().Percent != 100 {
		t.Errorf("percent = %d, want 100", store.Current().Percent)
	}

	for i := 0; i < 30; i++ {
		d.Rotate(dispatch.CounterClockwise)
	}
	clock.Advance(time.Second)
	if store.Current().Percent != 0 {
		t.Errorf("percent = %d, want 0", store.Current().Percent)
	}
	for _, s := range rec.sends {
		if s.v.Percent < 0 || s.v.Percent > 100 {
			t.Errorf("sent out-of-range percent %d", s.v.Percent)
		}
	}
}

func TestDebounceCloseFlushesPending(t *testing.T) {
	clock, store, rec := newFixture(20)
	d := dispatch.NewDebounce(store, rec.send, clock, 5, time.Second)

	d.Rotate(dispatch.Clockwise)
	d.Close()
	if len(rec.sends) != 1 || rec.sends[0].v.Percent != 25 {
		t.Fatalf("sends after Close = %+v, want one send of 25", rec.sends)
	}

	clock.Advance(2 * time.Second)
	if len(rec.sends) != 1 {
		t.Errorf("timer fired after Close; sends = %d", len(rec.sends))
	}

	d.Close()
	if len(rec.sends) != 1 {
		t.Errorf("second Close sent again")
	}
}
