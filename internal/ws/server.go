// Package ws serves the context relay WebSocket.
package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/config"
	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/hub"
	"github.com/xiaot623/voicewidget/internal/metrics"
	"github.com/xiaot623/voicewidget/internal/policy"
	"github.com/xiaot623/voicewidget/internal/protocol"
)

// Server handles relay WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	policy   *policy.Engine
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

// NewServer creates a new relay server.
func NewServer(cfg *config.Config, h *hub.Hub, engine *policy.Engine, m *metrics.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		hub:     h,
		policy:  engine,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is checked against the policy before upgrading.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the relay endpoint.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/relay", s.HandleWebSocket)
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (s *Server) HandleWebSocket(c echo.Context) error {
	origin := c.Request().Header.Get("Origin")
	if !s.policy.AllowOrigin(c.Request().Context(), origin) {
		log.Warn().Str("origin", origin).Msg("relay origin rejected")
		return c.JSON(http.StatusForbidden, map[string]string{"error": "origin not allowed"})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("failed to upgrade relay connection")
		return nil
	}

	conn := s.hub.NewConnection(ws)
	s.hub.Register(conn)

	ws.SetReadLimit(s.cfg.RelayMaxMessageSize)

	go s.writePump(conn)
	go s.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.RelayReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.RelayReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("conn_id", conn.ID).Msg("relay read error")
			}
			break
		}

		s.handleMessage(conn, message)
	}
}

// writePump writes messages to the WebSocket connection.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.RelayPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.RelayWriteTimeout))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("conn_id", conn.ID).Msg("relay write failed")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.RelayWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var baseMsg protocol.BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	if baseMsg.Type == protocol.TypeHello {
		s.handleHello(conn, data)
		return
	}

	route, ok := protocol.RouteFor(baseMsg.Type)
	if !ok {
		s.sendError(conn, protocol.ErrorCodeUnknownType, "unknown message type: "+baseMsg.Type)
		return
	}
	s.handleRelay(conn, baseMsg.Type, route, data)
}

// handleHello binds the connection to a session under a role.
func (s *Server) handleHello(conn *hub.Connection, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}
	if !protocol.ValidRole(msg.Role) {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "role must be host or widget")
		return
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = "sess_" + uuid.New().String()[:8]
	}
	s.hub.BindSession(conn, sessionID, msg.Role)

	ack := protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		ConnectionID: conn.ID,
		Role:         msg.Role,
	}
	if err := s.hub.SendJSONToConnection(conn, ack); err != nil {
		log.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to send hello_ack")
	}
	s.metrics.ObserveRelayMessage(protocol.TypeHello)

	log.Info().Str("session_id", sessionID).Str("role", msg.Role).Msg("relay peer joined")
}

// handleRelay forwards a tagged message to the session's peers of the
// opposite role.
func (s *Server) handleRelay(conn *hub.Connection, msgType string, route protocol.Route, data []byte) {
	if conn.SessionID == "" {
		s.sendError(conn, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}
	if conn.Role != route.From {
		s.sendError(conn, protocol.ErrorCodeWrongRole, msgType+" must come from a "+route.From)
		return
	}

	var msg protocol.RelayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid "+msgType+" message")
		return
	}

	if msgType == protocol.TypeContextUpdate {
		payload, err := normalizeContext(msg.Payload)
		if err != nil {
			s.sendError(conn, protocol.ErrorCodeInvalidMessage, "invalid page context")
			return
		}
		msg.Payload = payload
	}

	msg.SessionID = conn.SessionID
	msg.Ts = time.Now().UnixMilli()
	if err := s.hub.BroadcastJSON(conn.SessionID, route.To, conn.ID, msg); err != nil {
		log.Error().Err(err).Str("type", msgType).Msg("failed to relay message")
		return
	}
	s.metrics.ObserveRelayMessage(msgType)
}

// normalizeContext decodes a page context and re-encodes it with the list
// caps applied.
func normalizeContext(raw json.RawMessage) (json.RawMessage, error) {
	pc := domain.EmptyPageContext()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pc); err != nil {
			return nil, err
		}
	}
	return json.Marshal(pc.Capped())
}

// sendError sends an error message to a connection.
func (s *Server) sendError(conn *hub.Connection, code, message string) {
	errMsg := protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			SessionID: conn.SessionID,
		},
		Code:    code,
		Message: message,
	}
	if err := s.hub.SendJSONToConnection(conn, errMsg); err != nil {
		log.Warn().Err(err).Str("conn_id", conn.ID).Msg("failed to send relay error")
	}
}
