// Package snapcast talks to a Snapcast server over its JSON-RPC WebSocket
// endpoint: message encoding and classification, the status snapshot parser,
// and the reconnecting connection manager.
package snapcast

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/byrdsandbytes/beatnik-knob/internal/models"
)

// JSON-RPC method names, case-sensitive.
const (
	MethodGetStatus       = "Server.GetStatus"
	MethodSetVolume       = "Client.SetVolume"
	MethodSetMute         = "Client.SetMute"
	MethodOnVolumeChanged = "Client.OnVolumeChanged"
	MethodOnMute          = "Client.OnMute"
)

const protocolVersion = "2.0"

// HandshakeID is the correlation id reserved for the initial Server.GetStatus.
const HandshakeID = 1

// Request is an outbound JSON-RPC request.
type Request struct {
	ID      any    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Encode returns the wire form of r.
func (r Request) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("snapcast: encode %s: %w", r.Method, err)
	}
	return data, nil
}

// volumeParams is the Client.SetVolume payload.
type volumeParams struct {
	ID     string             `json:"id"`
	Volume models.VolumeState `json:"volume"`
}

// muteParams is the Client.SetMute payload.
type muteParams struct {
	ID   string `json:"id"`
	Mute bool   `json:"mute"`
}

// NewGetStatus builds the handshake request.
func NewGetStatus() Request {
	return Request{
		ID:      HandshakeID,
		JSONRPC: protocolVersion,
		Method:  MethodGetStatus,
		Params:  struct{}{},
	}
}

// NewSetVolume builds a Client.SetVolume request. The percent is clamped.
// SetVolume and SetMute are fire-and-forget: their ids are unique but never
// matched against responses.
func NewSetVolume(clientID string, v models.VolumeState) Request {
	return Request{
		ID:      uuid.NewString(),
		JSONRPC: protocolVersion,
		Method:  MethodSetVolume,
		Params:  volumeParams{ID: clientID, Volume: v.Clamped()},
	}
}

// NewSetMute builds a Client.SetMute request.
func NewSetMute(clientID string, mute bool) Request {
	return Request{
		ID:      uuid.NewString(),
		JSONRPC: protocolVersion,
		Method:  MethodSetMute,
		Params:  muteParams{ID: clientID, Mute: mute},
	}
}

// Kind classifies an inbound message.
type Kind int

const (
	// KindNotification is an unsolicited server message (has "method").
	KindNotification Kind = iota
	// KindHandshake is the response to the Server.GetStatus handshake.
	KindHandshake
	// KindResponse is any other response. These are dropped.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindHandshake:
		return "handshake"
	case KindResponse:
		return "response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Message is a decoded inbound message.
type Message struct {
	Kind   Kind
	ID     json.RawMessage
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *RPCError
}

type rawMessage struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Decode parses and classifies one inbound frame.
func Decode(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("snapcast: decode message: %w", err)
	}
	msg := Message{
		ID:     raw.ID,
		Method: raw.Method,
		Params: raw.Params,
		Result: raw.Result,
		Error:  raw.Error,
	}
	switch {
	case raw.Method != "":
		msg.Kind = KindNotification
	case present(raw.Result) && isHandshakeID(raw.ID):
		msg.Kind = KindHandshake
	case present(raw.Result) || raw.Error != nil:
		msg.Kind = KindResponse
	default:
		return Message{}, fmt.Errorf("snapcast: message has neither method nor result")
	}
	return msg, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

// isHandshakeID reports whether raw is the numeric id HandshakeID.
func isHandshakeID(raw json.RawMessage) bool {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return false
	}
	return n == HandshakeID
}

// Notification is a decoded volume or mute notification. Only the fields
// carried by the message are set.
type Notification struct {
	Method   string
	ClientID string
	Percent  *int
	Muted    *bool
}

type wireVolume struct {
	Percent *int  `json:"percent"`
	Muted   *bool `json:"muted"`
}

type notificationParams struct {
	ID     string      `json:"id"`
	Volume *wireVolume `json:"volume"`
	Mute   *bool       `json:"mute"`
}

// ParseNotification extracts the client id and changed fields from a
// Client.OnVolumeChanged or Client.OnMute notification. Other methods return
// an error wrapping models.ErrUnknownMethod.
func ParseNotification(msg Message) (Notification, error) {
	switch msg.Method {
	case MethodOnVolumeChanged, MethodOnMute:
	default:
		return Notification{}, fmt.Errorf("snapcast: %q: %w", msg.Method, models.ErrUnknownMethod)
	}

	var p notificationParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return Notification{}, fmt.Errorf("snapcast: %s params: %w", msg.Method, err)
	}
	n := Notification{Method: msg.Method, ClientID: p.ID}
	if msg.Method == MethodOnMute {
		n.Muted = p.Mute
		return n, nil
	}
	if p.Volume != nil {
		n.Percent = p.Volume.Percent
		n.Muted = p.Volume.Muted
	}
	return n, nil
}

// Apply returns base with the notification's fields overlaid.
func (n Notification) Apply(base models.VolumeState) models.VolumeState {
	if n.Percent != nil {
		base.Percent = *n.Percent
	}
	if n.Muted != nil {
		base.Muted = *n.Muted
	}
	return base
}

// Empty reports whether the notification carries no volume or mute field.
func (n Notification) Empty() bool {
	return n.Percent == nil && n.Muted == nil
}
