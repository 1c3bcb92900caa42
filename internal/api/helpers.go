// Package api implements the knob's read-only HTTP status API.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// snapshotTimeout bounds how long a request waits for the event loop.
const snapshotTimeout = 2 * time.Second

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	ctrl   Controller
	events EventBus
}

// Controller is the part of the knob controller the handlers read from.
type Controller interface {
	Snapshot(ctx context.Context) (models.Status, error)
}

// EventBus is the interface for subscribing to status updates.
type EventBus interface {
	Subscribe(id string) <-chan models.Status
	Unsubscribe(id string)
}

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (h *Handlers) snapshot(r *http.Request) (models.Status, error) {
	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()
	return h.ctrl.Snapshot(ctx)
}

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.snapshot(r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type healthBody struct {
	Status     string           `json:"status"`
	Connection models.ConnState `json:"connection"`
	Synced     bool             `json:"synced"`
}

// getHealth answers 200 while the event loop is responsive. A lost server
// connection is reported in the body but is not unhealthy: the knob keeps
// retrying on its own.
func (h *Handlers) getHealth(w http.ResponseWriter, r *http.Request) {
	s, err := h.snapshot(r)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Connection: s.Connection, Synced: s.Synced})
}
