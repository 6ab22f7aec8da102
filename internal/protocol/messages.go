// Package protocol defines the relay WebSocket messages exchanged between a
// host page and its widget.
package protocol

import "encoding/json"

// Message types from peers to the relay.
const (
	TypeHello          = "hello"
	TypeRequestContext = "request_context"
	TypeContextUpdate  = "context_update"
	TypeCloseWidget    = "close_widget"
)

// Message types from the relay to peers.
const (
	TypeHelloAck = "hello_ack"
	TypeError    = "error"
)

// Peer roles.
const (
	RoleHost   = "host"
	RoleWidget = "widget"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage is sent by a peer to join a session.
type HelloMessage struct {
	BaseMessage
	Role string `json:"role"`
}

// HelloAckMessage is sent by the relay after a successful hello.
type HelloAckMessage struct {
	BaseMessage
	ConnectionID string `json:"connection_id"`
	Role         string `json:"role"`
}

// RelayMessage is a tagged message forwarded between peers.
type RelayMessage struct {
	BaseMessage
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorMessage is sent by the relay when a message is rejected.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeUnknownType     = "unknown_type"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeWrongRole       = "wrong_role"
)

// Route is the direction a relayed message travels.
type Route struct {
	From string
	To   string
}

var routes = map[string]Route{
	TypeRequestContext: {From: RoleWidget, To: RoleHost},
	TypeCloseWidget:    {From: RoleWidget, To: RoleHost},
	TypeContextUpdate:  {From: RoleHost, To: RoleWidget},
}

// RouteFor returns the route of a relayed message type.
func RouteFor(msgType string) (Route, bool) {
	r, ok := routes[msgType]
	return r, ok
}

// ValidRole reports whether role names a peer role.
func ValidRole(role string) bool {
	return role == RoleHost || role == RoleWidget
}
