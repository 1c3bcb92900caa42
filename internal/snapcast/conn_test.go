package snapcast_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
	"github.com/byrdsandbytes/beatnik-knob/internal/snapcast"
)

// fakeServer is a WebSocket endpoint standing in for snapserver's /jsonrpc.
type fakeServer struct {
	srv      *httptest.Server
	conns    atomic.Int32
	received chan []byte
	handle   func(ctx context.Context, c *websocket.Conn)
}

func newFakeServer(t *testing.T, handle func(ctx context.Context, c *websocket.Conn)) *fakeServer {
	t.Helper()
	fs := &fakeServer{received: make(chan []byte, 16), handle: handle}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		fs.conns.Add(1)
		fs.handle(r.Context(), c)
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http") + "/jsonrpc"
}

// readAll forwards every frame it reads to fs.received.
func (fs *fakeServer) readAll(ctx context.Context, c *websocket.Conn) {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		fs.received <- data
	}
}

func runManager(t *testing.T, m *snapcast.Manager, h snapcast.Handlers) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, h)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
	return cancel
}

func TestManagerSendsOnConnectAndDeliversMessages(t *testing.T) {
	notification := `{"jsonrpc":"2.0","method":"Client.OnMute","params":{"id":"c1","mute":true}}`
	var fs *fakeServer
	fs = newFakeServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Write(ctx, websocket.MessageText, []byte(notification))
		fs.readAll(ctx, c)
	})

	m := snapcast.NewManager(snapcast.StaticURL(fs.url()), snapcast.WithRetryDelay(10*time.Millisecond))
	messages := make(chan []byte, 4)
	runManager(t, m, snapcast.Handlers{
		OnConnected: func(string) {
			data, _ := snapcast.NewGetStatus().Encode()
			if err := m.Send(context.Background(), data); err != nil {
				t.Errorf("Send in OnConnected: %v", err)
			}
		},
		OnMessage: func(data []byte) { messages <- data },
	})

	select {
	case got := <-fs.received:
		if !strings.Contains(string(got), `"Server.GetStatus"`) || !strings.Contains(string(got), `"id":1`) {
			t.Errorf("server received %s, want handshake", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the handshake")
	}

	select {
	case got := <-messages:
		if string(got) != notification {
			t.Errorf("OnMessage got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	if s := m.State(); s != models.ConnConnected {
		t.Errorf("State() = %q, want connected", s)
	}
	if m.Server() != fs.url() {
		t.Errorf("Server() = %q, want %q", m.Server(), fs.url())
	}
}

func TestManagerReconnectsAfterServerClose(t *testing.T) {
	fs := newFakeServer(t, func(ctx context.Context, c *websocket.Conn) {
		c.Close(websocket.StatusGoingAway, "restarting")
	})

	m := snapcast.NewManager(snapcast.StaticURL(fs.url()), snapcast.WithRetryDelay(10*time.Millisecond))
	var mu sync.Mutex
	connected, disconnected := 0, 0
	runManager(t, m, snapcast.Handlers{
		OnConnected: func(string) {
			mu.Lock()
			connected++
			mu.Unlock()
		},
		OnDisconnected: func(error) {
			mu.Lock()
			disconnected++
			mu.Unlock()
		},
	})

	deadline := time.After(3 * time.Second)
	for fs.conns.Load() < 4 {
		select {
		case <-deadline:
			t.Fatalf("only %d connections after 3s", fs.conns.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if connected < 3 || disconnected < 3 {
		t.Errorf("connected=%d disconnected=%d, want at least 3 each", connected, disconnected)
	}
}

func TestManagerRetriesWithoutCeiling(t *testing.T) {
	var dials atomic.Int32
	refused := errors.New("connection refused")
	m := snapcast.NewManager(snapcast.StaticURL("ws://127.0.0.1:1/jsonrpc"),
		snapcast.WithRetryDelay(time.Millisecond),
		snapcast.WithDialer(func(ctx context.Context, url string) (snapcast.Conn, error) {
			dials.Add(1)
			return nil, refused
		}),
	)

	errs := make(chan error, 100)
	runManager(t, m, snapcast.Handlers{
		OnConnected: func(string) { t.Error("OnConnected called for refused dial") },
		OnDisconnected: func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	})

	deadline := time.After(3 * time.Second)
	for dials.Load() < 50 {
		select {
		case <-deadline:
			t.Fatalf("only %d attempts after 3s", dials.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	if err := <-errs; !errors.Is(err, refused) {
		t.Errorf("OnDisconnected err = %v, want wrapped refusal", err)
	}
	if m.Attempts() < 50 {
		t.Errorf("Attempts() = %d", m.Attempts())
	}
}

func TestManagerWaitsRetryDelay(t *testing.T) {
	var mu sync.Mutex
	var times []time.Time
	m := snapcast.NewManager(snapcast.StaticURL("ws://unused"),
		snapcast.WithRetryDelay(50*time.Millisecond),
		snapcast.WithDialer(func(ctx context.Context, url string) (snapcast.Conn, error) {
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
			return nil, errors.New("refused")
		}),
	)
	runManager(t, m, snapcast.Handlers{})

	time.Sleep(180 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(times) < 2 {
		t.Fatalf("only %d attempts", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < 45*time.Millisecond {
			t.Errorf("attempt %d came %v after the previous one, want >= retry delay", i, gap)
		}
	}
}

func TestSendWhileDisconnectedIsDropped(t *testing.T) {
	m := snapcast.NewManager(snapcast.StaticURL("ws://unused"))
	err := m.Send(context.Background(), []byte(`{}`))
	if !errors.Is(err, models.ErrNotConnected) {
		t.Errorf("Send err = %v, want ErrNotConnected", err)
	}
	if s := m.State(); s != models.ConnDisconnected {
		t.Errorf("State() = %q, want disconnected", s)
	}
}
