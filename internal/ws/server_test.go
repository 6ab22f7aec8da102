package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/voicewidget/internal/config"
	"github.com/xiaot623/voicewidget/internal/hub"
	"github.com/xiaot623/voicewidget/internal/policy"
	"github.com/xiaot623/voicewidget/internal/protocol"
)

func setupRelay(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub()
	go h.Run(ctx)

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, []string{"https://widget.example.com"})
	require.NoError(t, err)

	cfg := &config.Config{
		RelayPingInterval:   time.Minute,
		RelayReadTimeout:    time.Minute,
		RelayWriteTimeout:   10 * time.Second,
		RelayMaxMessageSize: 65536,
	}
	e := echo.New()
	NewServer(cfg, h, engine, nil).RegisterRoutes(e)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay"
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func hello(t *testing.T, conn *websocket.Conn, sessionID, role string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":       protocol.TypeHello,
		"session_id": sessionID,
		"role":       role,
	}))
	ack := readMsg(t, conn)
	require.Equal(t, protocol.TypeHelloAck, ack["type"])
	require.Equal(t, sessionID, ack["session_id"])
	require.Equal(t, role, ack["role"])
	require.NotEmpty(t, ack["connection_id"])
}

func TestRelay_RejectsOrigin(t *testing.T) {
	url := setupRelay(t)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRelay_AllowsListedOrigin(t *testing.T) {
	url := setupRelay(t)
	conn := dial(t, url, http.Header{"Origin": []string{"https://widget.example.com"}})
	hello(t, conn, "s1", protocol.RoleWidget)
}

func TestRelay_FanOutByRole(t *testing.T) {
	url := setupRelay(t)
	host := dial(t, url, nil)
	widget := dial(t, url, nil)
	hello(t, host, "s1", protocol.RoleHost)
	hello(t, widget, "s1", protocol.RoleWidget)

	require.NoError(t, widget.WriteJSON(map[string]string{"type": protocol.TypeRequestContext}))
	msg := readMsg(t, host)
	assert.Equal(t, protocol.TypeRequestContext, msg["type"])
	assert.Equal(t, "s1", msg["session_id"])

	var products []string
	for i := 0; i < 12; i++ {
		products = append(products, fmt.Sprintf(`{"title":"Item %d","price":%d}`, i, i+1))
	}
	update := fmt.Sprintf(`{"type":"context_update","payload":{"currentPath":"/collections/all","platform":"shopify","products":[%s],"collections":["A","A","B"],"cart":{"itemCount":2}}}`,
		strings.Join(products, ","))
	require.NoError(t, host.WriteMessage(websocket.TextMessage, []byte(update)))

	msg = readMsg(t, widget)
	assert.Equal(t, protocol.TypeContextUpdate, msg["type"])
	payload, ok := msg["payload"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "/collections/all", payload["currentPath"])
	assert.Len(t, payload["products"], 10)
	assert.Equal(t, []interface{}{"A", "B"}, payload["collections"])

	require.NoError(t, widget.WriteJSON(map[string]string{"type": protocol.TypeCloseWidget}))
	msg = readMsg(t, host)
	assert.Equal(t, protocol.TypeCloseWidget, msg["type"])
}

func TestRelay_SessionsAreIsolated(t *testing.T) {
	url := setupRelay(t)
	host1 := dial(t, url, nil)
	host2 := dial(t, url, nil)
	widget := dial(t, url, nil)
	hello(t, host1, "s1", protocol.RoleHost)
	hello(t, host2, "s2", protocol.RoleHost)
	hello(t, widget, "s1", protocol.RoleWidget)

	require.NoError(t, widget.WriteJSON(map[string]string{"type": protocol.TypeRequestContext}))
	assert.Equal(t, protocol.TypeRequestContext, readMsg(t, host1)["type"])

	require.NoError(t, host2.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := host2.ReadMessage()
	assert.Error(t, err)
}

func TestRelay_Errors(t *testing.T) {
	url := setupRelay(t)

	tests := []struct {
		name     string
		role     string
		send     string
		wantCode string
	}{
		{"before hello", "", `{"type":"request_context"}`, protocol.ErrorCodeSessionRequired},
		{"unknown type", protocol.RoleWidget, `{"type":"REQUEST_CONTEXT"}`, protocol.ErrorCodeUnknownType},
		{"wrong role", protocol.RoleHost, `{"type":"close_widget"}`, protocol.ErrorCodeWrongRole},
		{"bad context", protocol.RoleHost, `{"type":"context_update","payload":"nope"}`, protocol.ErrorCodeInvalidMessage},
		{"bad json", protocol.RoleHost, `{`, protocol.ErrorCodeInvalidMessage},
		{"bad role", "", `{"type":"hello","role":"admin"}`, protocol.ErrorCodeInvalidMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dial(t, url, nil)
			if tt.role != "" {
				hello(t, conn, "s-"+tt.role, tt.role)
			}
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.send)))

			msg := readMsg(t, conn)
			assert.Equal(t, protocol.TypeError, msg["type"])
			assert.Equal(t, tt.wantCode, msg["code"])
		})
	}
}

func TestNormalizeContext(t *testing.T) {
	out, err := normalizeContext(nil)
	require.NoError(t, err)

	var pc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &pc))
	assert.Equal(t, []interface{}{}, pc["products"])
	assert.Equal(t, []interface{}{}, pc["collections"])
}
