package snapcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

const (
	DefaultRetryDelay   = 5 * time.Second
	defaultDialTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second
	readLimit           = 4 << 20 // Server.GetStatus grows with the number of clients
)

// Conn is one open message connection.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// DialFunc opens a connection to url.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// ResolveFunc returns the server URL to dial. It is called before every
// connection attempt so discovery can follow a server that moved.
type ResolveFunc func(ctx context.Context) (string, error)

// StaticURL returns a ResolveFunc that always yields url.
func StaticURL(url string) ResolveFunc {
	return func(context.Context) (string, error) { return url, nil }
}

// Handlers receive connection events. They are called from the manager's
// goroutine and must hand off to the event loop rather than touch shared state.
type Handlers struct {
	OnConnected    func(server string)
	OnMessage      func(data []byte)
	OnDisconnected func(err error)
}

// Manager owns the socket to the Snapcast server and keeps it open, retrying
// after a fixed delay for as long as Run's context lives.
type Manager struct {
	resolve      ResolveFunc
	dial         DialFunc
	retryDelay   time.Duration
	writeTimeout time.Duration

	mu       sync.Mutex
	conn     Conn
	state    models.ConnState
	server   string
	attempts int
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetryDelay sets the wait between a failure and the next attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithWriteTimeout bounds a single Send.
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Manager) { m.writeTimeout = d }
}

// NewManager creates a Manager that connects to whatever resolve returns.
func NewManager(resolve ResolveFunc, opts ...Option) *Manager {
	m := &Manager{
		resolve:      resolve,
		dial:         DialWebSocket,
		retryDelay:   DefaultRetryDelay,
		writeTimeout: defaultWriteTimeout,
		state:        models.ConnDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() models.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Server returns the URL of the open connection, or "" if there is none.
func (m *Manager) Server() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server
}

// Attempts returns the number of connection attempts made so far.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run connects, reads messages and reconnects until ctx is cancelled. Every
// failure is treated the same way: OnDisconnected, wait, retry. There is no
// attempt limit and no backoff. Run returns ctx.Err().
func (m *Manager) Run(ctx context.Context, h Handlers) error {
	for {
		err := m.session(ctx, h)
		m.setDisconnected()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("snapcast: connection lost, reconnecting", "err", err, "delay", m.retryDelay)
		if h.OnDisconnected != nil {
			h.OnDisconnected(err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.retryDelay):
		}
	}
}

// session makes one connection attempt and reads until it fails.
func (m *Manager) session(ctx context.Context, h Handlers) error {
	m.mu.Lock()
	m.state = models.ConnConnecting
	m.attempts++
	attempt := m.attempts
	m.mu.Unlock()

	url, err := m.resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolve server: %w", err)
	}
	slog.Info("snapcast: connecting", "url", url, "attempt", attempt)

	dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	conn, err := m.dial(dialCtx, url)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	m.mu.Lock()
	m.conn = conn
	m.state = models.ConnConnected
	m.server = url
	m.mu.Unlock()
	slog.Info("snapcast: connected", "url", url)

	if h.OnConnected != nil {
		h.OnConnected(url)
	}
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	}
}

func (m *Manager) setDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = nil
	m.server = ""
	m.state = models.ConnDisconnected
}

// Send writes one message. With no open connection the message is dropped
// and models.ErrNotConnected is returned; callers may ignore it since state
// resynchronizes on the next handshake. A failed write closes the socket so
// that Run notices and reconnects.
func (m *Manager) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return models.ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, m.writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, data); err != nil {
		conn.Close()
		return fmt.Errorf("snapcast: write: %w", err)
	}
	return nil
}

// wsConn adapts a coder/websocket connection to Conn.
type wsConn struct {
	c *websocket.Conn
}

// DialWebSocket opens a WebSocket to url.
func DialWebSocket(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(readLimit)
	return &wsConn{c: c}, nil
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.c.Read(ctx)
	return data, err
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.c.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.c.Close(websocket.StatusNormalClosure, "")
}
