package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/protocol"
)

// RelayClient joins a relay session as its host or widget peer.
type RelayClient struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewRelayClient connects to the relay at addr. origin is sent as the Origin
// header so the relay's origin policy applies.
func NewRelayClient(addr, origin string) (*RelayClient, error) {
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(addr, header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &RelayClient{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// SessionID returns the session joined by Hello.
func (c *RelayClient) SessionID() string {
	return c.sessionID
}

// Close closes the client connection.
func (c *RelayClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// Hello joins sessionID under role and waits for hello_ack. An empty
// sessionID lets the relay assign one.
func (c *RelayClient) Hello(sessionID, role string) error {
	msg := protocol.HelloMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHello,
			Ts:        time.Now().UnixMilli(),
			SessionID: sessionID,
		},
		Role: role,
	}
	if err := c.writeJSON(msg); err != nil {
		return fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read hello_ack: %w", err)
	}

	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		_ = json.Unmarshal(data, &errMsg)
		return fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != protocol.TypeHelloAck {
		return fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	c.sessionID = base.SessionID
	return nil
}

// RequestContext asks the host page for a fresh page context.
func (c *RelayClient) RequestContext() error {
	return c.send(protocol.TypeRequestContext)
}

// CloseWidget asks the host page to close the widget.
func (c *RelayClient) CloseWidget() error {
	return c.send(protocol.TypeCloseWidget)
}

// SendContext pushes a page context to the session's widgets.
func (c *RelayClient) SendContext(pc domain.PageContext) error {
	payload, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshal page context: %w", err)
	}
	return c.writeJSON(protocol.RelayMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeContextUpdate,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
		Payload: payload,
	})
}

func (c *RelayClient) send(msgType string) error {
	return c.writeJSON(protocol.RelayMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      msgType,
			Ts:        time.Now().UnixMilli(),
			SessionID: c.sessionID,
		},
	})
}

func (c *RelayClient) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// RelayHandlers receive relayed messages. A nil handler ignores its type.
type RelayHandlers struct {
	OnContext        func(domain.PageContext)
	OnRequestContext func()
	OnCloseWidget    func()
}

// Read dispatches relay messages to h until the connection closes.
func (c *RelayClient) Read(h RelayHandlers) {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("relay read error")
				}
			}
			return
		}

		var msg protocol.RelayMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed relay message")
			continue
		}

		switch msg.Type {
		case protocol.TypeContextUpdate:
			if h.OnContext == nil {
				continue
			}
			pc := domain.EmptyPageContext()
			if err := json.Unmarshal(msg.Payload, &pc); err != nil {
				log.Debug().Err(err).Msg("ignoring malformed page context")
				continue
			}
			h.OnContext(pc)
		case protocol.TypeRequestContext:
			if h.OnRequestContext != nil {
				h.OnRequestContext()
			}
		case protocol.TypeCloseWidget:
			if h.OnCloseWidget != nil {
				h.OnCloseWidget()
			}
		case protocol.TypeError:
			var errMsg protocol.ErrorMessage
			_ = json.Unmarshal(data, &errMsg)
			log.Warn().Str("code", errMsg.Code).Msg(errMsg.Message)
		}
	}
}
