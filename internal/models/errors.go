package models

import "errors"

// Sentinel errors. Callers match them with errors.Is; producers wrap them
// with context using fmt.Errorf("...: %w", err).
var (
	// ErrNotConnected is returned when a command cannot be sent because no
	// server connection is open. The command is dropped, not queued.
	ErrNotConnected = errors.New("not connected")

	// ErrMalformedStatus means a Server.GetStatus result did not have the
	// expected server.groups[].clients[] shape.
	ErrMalformedStatus = errors.New("malformed server status")

	// ErrClientNotFound means the tracked client id is absent from a status result.
	ErrClientNotFound = errors.New("client not found")

	// ErrUnknownMethod is returned for notifications this daemon does not handle.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
)
