package hardware

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Mock is an in-memory Source. Tests call Emit to inject events.
type Mock struct {
	mu     sync.Mutex
	h      Handler
	closed bool
}

// NewMock creates a Mock source.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Start(ctx context.Context, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.h = h
	m.closed = false
	return nil
}

// Emit delivers e to the handler synchronously. It reports false if the
// source is not started or already closed.
func (m *Mock) Emit(e Event) bool {
	m.mu.Lock()
	h := m.h
	closed := m.closed
	m.mu.Unlock()
	if h == nil || closed {
		return false
	}
	h(e)
	return true
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// KeySource turns characters read from r into events, for running the daemon
// without an encoder: '+' or 'l' rotate clockwise, '-' or 'h' rotate
// counter-clockwise, 'm' or space press the button. Other bytes are ignored.
type KeySource struct {
	r      io.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKeySource creates a KeySource reading from r.
func NewKeySource(r io.Reader) *KeySource {
	return &KeySource{r: r}
}

func (k *KeySource) Start(ctx context.Context, h Handler) error {
	ctx, k.cancel = context.WithCancel(ctx)
	k.done = make(chan struct{})
	go func() {
		defer close(k.done)
		br := bufio.NewReader(k.r)
		for {
			b, err := br.ReadByte()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Warn("keys: read failed", "err", err)
				}
				return
			}
			if ctx.Err() != nil {
				return
			}
			if e, ok := keyEvent(b); ok {
				h(e)
			}
		}
	}()
	return nil
}

func keyEvent(b byte) (Event, bool) {
	switch b {
	case '+', '=', 'l':
		return RotateClockwise, true
	case '-', '_', 'h':
		return RotateCounterClockwise, true
	case 'm', ' ':
		return ButtonPress, true
	default:
		return 0, false
	}
}

// Close stops delivering events. A read already blocked on r returns on its
// own; its result is discarded.
func (k *KeySource) Close() error {
	if k.cancel != nil {
		k.cancel()
	}
	return nil
}

// Done is closed when the reader goroutine exits (EOF, error, or cancel
// observed after the next read).
func (k *KeySource) Done() <-chan struct{} { return k.done }
