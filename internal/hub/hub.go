// Package hub tracks relay connections and fans messages out by session and
// role.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Connection represents a single WebSocket connection.
type Connection struct {
	ID        string
	SessionID string
	Role      string
	Conn      *websocket.Conn
	Send      chan []byte
	mu        sync.Mutex

	sendMu sync.Mutex
	closed bool
}

// Hub manages all relay connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to set of connection IDs
	sessions map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *SessionMessage
	done       chan struct{}

	// OnCountChange is called with +1 or -1 when a connection is
	// registered or unregistered. Set before Run.
	OnCountChange func(delta int)

	mu sync.RWMutex
}

// SessionMessage is a message for the peers of one role in a session.
type SessionMessage struct {
	SessionID string
	Role      string
	ExcludeID string
	Data      []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *SessionMessage, 256),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if conn.SessionID != "" {
				h.addToSessionLocked(conn)
			}
			h.mu.Unlock()
			h.countChanged(1)
			log.Debug().Str("conn_id", conn.ID).Msg("relay connection registered")

		case conn := <-h.unregister:
			h.mu.Lock()
			_, ok := h.connections[conn.ID]
			if ok {
				delete(h.connections, conn.ID)
				h.removeFromSessionLocked(conn)
				conn.closeSend()
			}
			h.mu.Unlock()
			if ok {
				h.countChanged(-1)
				log.Debug().Str("conn_id", conn.ID).Msg("relay connection unregistered")
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.sessions[msg.SessionID] {
				conn, exists := h.connections[connID]
				if !exists || connID == msg.ExcludeID || (msg.Role != "" && conn.Role != msg.Role) {
					continue
				}
				if err := conn.trySend(msg.Data); err == ErrBufferFull {
					log.Warn().Str("conn_id", connID).Msg("relay buffer full, closing")
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a new, unregistered connection.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BindSession binds a connection to a session under a role.
func (h *Hub) BindSession(conn *Connection, sessionID, role string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromSessionLocked(conn)
	conn.SessionID = sessionID
	conn.Role = role
	h.addToSessionLocked(conn)
}

// Broadcast queues data for every connection of role in a session except
// excludeID. An empty role matches all peers.
func (h *Hub) Broadcast(sessionID, role, excludeID string, data []byte) {
	select {
	case h.broadcast <- &SessionMessage{SessionID: sessionID, Role: role, ExcludeID: excludeID, Data: data}:
	case <-h.done:
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(sessionID, role, excludeID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(sessionID, role, excludeID, data)
	return nil
}

// SendToConnection sends a message to a specific connection. It returns
// ErrConnectionClosed once the hub has dropped the connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	return conn.trySend(data)
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// PeerCount returns how many connections of role are bound to a session.
func (h *Hub) PeerCount(sessionID, role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for connID := range h.sessions[sessionID] {
		if conn, ok := h.connections[connID]; ok && conn.Role == role {
			n++
		}
	}
	return n
}

func (h *Hub) addToSessionLocked(conn *Connection) {
	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[string]bool)
	}
	h.sessions[conn.SessionID][conn.ID] = true
}

func (h *Hub) removeFromSessionLocked(conn *Connection) {
	if conn.SessionID == "" || h.sessions[conn.SessionID] == nil {
		return
	}
	delete(h.sessions[conn.SessionID], conn.ID)
	if len(h.sessions[conn.SessionID]) == 0 {
		delete(h.sessions, conn.SessionID)
	}
}

func (h *Hub) countChanged(delta int) {
	if h.OnCountChange != nil {
		h.OnCountChange(delta)
	}
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// trySend queues data unless the connection is closed or its buffer is full.
func (c *Connection) trySend(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// closeSend closes Send once. Later sends fail with ErrConnectionClosed.
func (c *Connection) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrConnectionClosed is returned when sending to an unregistered connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
