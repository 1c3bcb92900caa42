package models

import "time"

// ConnState is the lifecycle state of the server connection.
type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnecting   ConnState = "connecting"
	ConnConnected    ConnState = "connected"
)

// Status is a point-in-time snapshot published to observers (logs, HTTP API).
type Status struct {
	ClientID   string      `json:"client_id"`
	Volume     VolumeState `json:"volume"`
	Connection ConnState   `json:"connection"`
	Server     string      `json:"server,omitempty"`
	Synced     bool        `json:"synced"`              // initial state received from the server
	LastSync   *time.Time  `json:"last_sync,omitempty"` // last authoritative update
}
