package controller

import (
	"errors"
	"log/slog"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
	"github.com/byrdsandbytes/beatnik-knob/internal/snapcast"
)

// onMessage classifies one inbound frame and reconciles it into the store.
// Nothing here sends a command: server state flows in, never back out.
func (c *Controller) onMessage(data []byte) {
	msg, err := snapcast.Decode(data)
	if err != nil {
		slog.Warn("controller: undecodable message", "err", err)
		return
	}
	switch msg.Kind {
	case snapcast.KindNotification:
		c.reconcileNotification(msg)
	case snapcast.KindHandshake:
		c.reconcileHandshake(msg)
	default:
		if msg.Error != nil {
			slog.Warn("controller: server returned error", "id", string(msg.ID), "err", msg.Error)
			return
		}
		slog.Debug("controller: response ignored", "id", string(msg.ID))
	}
}

func (c *Controller) reconcileNotification(msg snapcast.Message) {
	n, err := snapcast.ParseNotification(msg)
	if errors.Is(err, models.ErrUnknownMethod) {
		slog.Debug("controller: notification ignored", "method", msg.Method)
		return
	}
	if err != nil {
		slog.Warn("controller: bad notification", "err", err)
		return
	}
	if n.ClientID != c.clientID {
		slog.Debug("controller: notification for other client", "method", n.Method, "client", n.ClientID)
		return
	}
	if n.Empty() {
		slog.Debug("controller: notification without volume fields", "method", n.Method)
		return
	}

	c.lastSync = c.loop.Now()
	if c.store.Apply(n.Apply(c.store.Current()), models.OriginRemote) {
		slog.Info("controller: volume changed on server", "volume", c.store.Current().String())
	}
}

func (c *Controller) reconcileHandshake(msg snapcast.Message) {
	if !c.handshakePending {
		slog.Debug("controller: stale status response ignored")
		return
	}
	c.handshakePending = false

	v, err := snapcast.ParseStatus(msg.Result, c.clientID)
	if err != nil {
		slog.Warn("controller: no initial state available", "client", c.clientID, "err", err)
		return
	}
	c.synced = true
	c.lastSync = c.loop.Now()
	if !c.store.Apply(v, models.OriginRemote) {
		c.publish()
	}
	slog.Info("controller: synced with server", "volume", v.String())
}
