// Package loop provides the single-goroutine event loop that owns all mutable
// knob state. Other goroutines (GPIO, socket reader, config watcher, HTTP)
// never touch that state directly; they hand work to the loop with Submit.
package loop

import (
	"context"
	"sync"
	"time"
)

const taskBufferSize = 64

// Loop runs submitted tasks sequentially on one goroutine.
type Loop struct {
	tasks chan func()
	done  chan struct{}

	mu      sync.Mutex
	stopped bool
}

// New creates a Loop. Tasks may be submitted before Run is called; they are
// buffered and executed once the loop starts.
func New() *Loop {
	return &Loop{
		tasks: make(chan func(), taskBufferSize),
		done:  make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. Tasks still queued at that point
// are discarded. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Submit queues fn for execution on the loop. It is safe to call from any
// goroutine. It blocks while the queue is full and returns false if the loop
// has stopped.
func (l *Loop) Submit(fn func()) bool {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return false
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish, or for ctx to end.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Submit(func() {
		fn()
		close(finished)
	}) {
		return context.Canceled
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// AfterFunc schedules fn to run on the loop after d. It must be called from
// the loop. The returned Timer can be stopped from the loop; a stopped timer
// never runs fn, even if its deadline already passed and the wake-up task is
// waiting in the queue.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Stopper {
	t := &Timer{}
	t.t = time.AfterFunc(d, func() {
		l.Submit(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			fn()
		})
	})
	return t
}

// Now returns the current time. It lets the loop act as a dispatch clock.
func (l *Loop) Now() time.Time { return time.Now() }

// Stopper cancels a pending delayed task.
type Stopper interface {
	Stop() bool
}

// Timer is a cancellable delayed task created by Loop.AfterFunc.
// Its methods must be called from the loop.
type Timer struct {
	t       *time.Timer
	stopped bool // loop-confined
}

// Stop cancels the timer. It reports whether the call prevented fn from running.
func (t *Timer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.t.Stop()
	return true
}
