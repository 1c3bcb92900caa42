// Package controller wires the knob together: input events, the rate-limited
// dispatcher, the Snapcast codec and connection, and reconciliation of server
// notifications. All mutable state is owned by a single event loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/config"
	"github.com/byrdsandbytes/beatnik-knob/internal/dispatch"
	"github.com/byrdsandbytes/beatnik-knob/internal/events"
	"github.com/byrdsandbytes/beatnik-knob/internal/hardware"
	"github.com/byrdsandbytes/beatnik-knob/internal/loop"
	"github.com/byrdsandbytes/beatnik-knob/internal/models"
	"github.com/byrdsandbytes/beatnik-knob/internal/snapcast"
	"github.com/byrdsandbytes/beatnik-knob/internal/state"
)

// shutdownTimeout bounds the final flush of a pending volume command.
const shutdownTimeout = 2 * time.Second

// Connection is the server link. *snapcast.Manager implements it.
type Connection interface {
	Run(ctx context.Context, h snapcast.Handlers) error
	Send(ctx context.Context, data []byte) error
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Source hardware.Source
	Conn   Connection
	Bus    *events.Bus // optional
}

// Controller is the knob's state machine. Construct it with New and start it
// with Run. Fields below loop are confined to the event loop.
type Controller struct {
	clientID string
	source   hardware.Source
	conn     Connection
	bus      *events.Bus
	loop     *loop.Loop
	connCtx  context.Context

	store    *state.Store
	disp     dispatch.Dispatcher
	dispOpts dispatch.Options

	connState        models.ConnState
	server           string
	handshakePending bool
	synced           bool
	lastSync         time.Time
	closed           bool
}

// New creates a Controller for cfg. The local volume starts at 0, unmuted,
// until the server handshake seeds it.
func New(cfg *config.Config, deps Deps) (*Controller, error) {
	if deps.Source == nil {
		return nil, errors.New("controller: no input source")
	}
	if deps.Conn == nil {
		return nil, errors.New("controller: no connection")
	}

	c := &Controller{
		clientID:  cfg.Client.ID,
		source:    deps.Source,
		conn:      deps.Conn,
		bus:       deps.Bus,
		loop:      loop.New(),
		store:     state.New(models.VolumeState{}),
		connState: models.ConnDisconnected,
	}
	c.store.OnChange(func(prev, next models.VolumeState, origin models.Origin) {
		c.publish()
	})

	c.dispOpts = dispatchOptions(cfg)
	disp, err := dispatch.New(c.dispOpts, c.store, c.sendVolume, c.loop)
	if err != nil {
		return nil, err
	}
	c.disp = disp
	return c, nil
}

func dispatchOptions(cfg *config.Config) dispatch.Options {
	return dispatch.Options{
		Policy:           dispatch.Policy(cfg.Volume.Policy),
		Step:             cfg.Volume.Step,
		DebounceDelay:    cfg.Volume.DebounceDelay.Duration,
		ThrottleInterval: cfg.Volume.ThrottleInterval.Duration,
		TrackSuppressed:  cfg.Volume.ThrottleTrackSuppressed,
	}
}

// Run starts the event loop, the input source and the connection, and blocks
// until ctx is cancelled. It then stops input, flushes a pending volume
// command, and closes the connection. Run returns nil after an orderly
// shutdown.
func (c *Controller) Run(ctx context.Context) error {
	connCtx, stopConn := context.WithCancel(context.Background())
	defer stopConn()
	c.connCtx = connCtx

	loopCtx, stopLoop := context.WithCancel(context.Background())
	go c.loop.Run(loopCtx)
	defer func() {
		stopLoop()
		<-c.loop.Done()
	}()

	if err := c.source.Start(ctx, c.HandleEvent); err != nil {
		return fmt.Errorf("controller: start input: %w", err)
	}

	connDone := make(chan struct{})
	go func() {
		defer close(connDone)
		c.conn.Run(connCtx, c.handlers())
	}()
	c.loop.Submit(c.publish)

	slog.Info("controller: running", "client", c.clientID, "policy", c.dispOpts.Policy, "step", c.dispOpts.Step)
	<-ctx.Done()
	slog.Info("controller: shutting down")

	if err := c.source.Close(); err != nil {
		slog.Warn("controller: close input", "err", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err := c.loop.Do(flushCtx, func() {
		c.closed = true
		c.disp.Close()
	})
	cancel()
	if err != nil {
		slog.Warn("controller: flush on shutdown", "err", err)
	}

	stopConn()
	<-connDone
	return nil
}

// HandleEvent hands an input event to the loop. It is safe to call from any
// goroutine and is the hardware.Handler passed to the input source.
func (c *Controller) HandleEvent(e hardware.Event) {
	c.loop.Submit(func() { c.handleEvent(e) })
}

func (c *Controller) handleEvent(e hardware.Event) {
	if c.closed {
		return
	}
	switch e {
	case hardware.RotateClockwise:
		c.disp.Rotate(dispatch.Clockwise)
	case hardware.RotateCounterClockwise:
		c.disp.Rotate(dispatch.CounterClockwise)
	case hardware.ButtonPress:
		c.toggleMute()
	default:
		slog.Debug("controller: unknown input event", "event", e)
	}
}

// toggleMute bypasses the dispatcher: the new mute flag is applied and sent
// at once, whatever rotation window is open.
func (c *Controller) toggleMute() {
	next := c.store.Current()
	next.Muted = !next.Muted
	c.store.Apply(next, models.OriginLocal)
	slog.Info("controller: mute toggled", "muted", next.Muted)
	c.send(snapcast.NewSetMute(c.clientID, next.Muted))
}

func (c *Controller) sendVolume(v models.VolumeState) {
	c.send(snapcast.NewSetVolume(c.clientID, v))
}

// send encodes and writes req. Commands are fire-and-forget; while
// disconnected they are dropped.
func (c *Controller) send(req snapcast.Request) {
	data, err := req.Encode()
	if err != nil {
		slog.Error("controller: encode request", "method", req.Method, "err", err)
		return
	}
	err = c.conn.Send(c.connCtx, data)
	switch {
	case err == nil:
		slog.Debug("controller: sent", "method", req.Method)
	case errors.Is(err, models.ErrNotConnected):
		slog.Debug("controller: dropped, not connected", "method", req.Method)
	default:
		slog.Warn("controller: send failed", "method", req.Method, "err", err)
	}
}

func (c *Controller) handlers() snapcast.Handlers {
	return snapcast.Handlers{
		OnConnected: func(server string) {
			c.loop.Submit(func() { c.onConnected(server) })
		},
		OnMessage: func(data []byte) {
			c.loop.Submit(func() { c.onMessage(data) })
		},
		OnDisconnected: func(err error) {
			c.loop.Submit(func() { c.onDisconnected(err) })
		},
	}
}

func (c *Controller) onConnected(server string) {
	c.connState = models.ConnConnected
	c.server = server
	c.handshakePending = true
	c.publish()
	c.send(snapcast.NewGetStatus())
}

func (c *Controller) onDisconnected(err error) {
	c.connState = models.ConnDisconnected
	c.server = ""
	c.handshakePending = false
	c.synced = false
	c.publish()
}

// Reconfigure applies the live-reloadable settings of cfg (step, policy,
// delays). A dispatcher being replaced is closed first, which flushes a
// pending debounce window.
func (c *Controller) Reconfigure(ctx context.Context, cfg *config.Config) error {
	opts := dispatchOptions(cfg)
	var err error
	doErr := c.loop.Do(ctx, func() {
		if c.closed || opts == c.dispOpts {
			return
		}
		var next dispatch.Dispatcher
		next, err = dispatch.New(opts, c.store, c.sendVolume, c.loop)
		if err != nil {
			return
		}
		c.disp.Close()
		c.disp = next
		c.dispOpts = opts
		slog.Info("controller: dispatcher reconfigured", "policy", opts.Policy, "step", opts.Step)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Snapshot returns the current status.
func (c *Controller) Snapshot(ctx context.Context) (models.Status, error) {
	var s models.Status
	err := c.loop.Do(ctx, func() { s = c.status() })
	return s, err
}

func (c *Controller) status() models.Status {
	s := models.Status{
		ClientID:   c.clientID,
		Volume:     c.store.Current(),
		Connection: c.connState,
		Server:     c.server,
		Synced:     c.synced,
	}
	if !c.lastSync.IsZero() {
		t := c.lastSync
		s.LastSync = &t
	}
	return s
}

func (c *Controller) publish() {
	if c.bus != nil {
		c.bus.Publish(c.status())
	}
}
