package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/voicewidget/internal/adapter/llm"
	"github.com/xiaot623/voicewidget/internal/config"
	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/embed"
	"github.com/xiaot623/voicewidget/internal/hub"
	"github.com/xiaot623/voicewidget/internal/policy"
	"github.com/xiaot623/voicewidget/internal/protocol"
	"github.com/xiaot623/voicewidget/internal/service"
	transporthttp "github.com/xiaot623/voicewidget/internal/transport/http"
	"github.com/xiaot623/voicewidget/internal/widget"
	"github.com/xiaot623/voicewidget/internal/ws"
)

func newTestBackend(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub()
	go h.Run(ctx)
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, nil)
	require.NoError(t, err)

	cfg := &config.Config{
		RelayPingInterval:   time.Minute,
		RelayReadTimeout:    time.Minute,
		RelayWriteTimeout:   10 * time.Second,
		RelayMaxMessageSize: 65536,
	}
	e := transporthttp.NewServer(transporthttp.Deps{
		Service:  service.New(llm.NewRegistry(llm.NewMockProvider("gemini")), nil),
		Renderer: embed.MustNewRenderer(),
		Relay:    ws.NewServer(cfg, h, engine, nil),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func TestLineCapture(t *testing.T) {
	c := &LineCapture{}
	var results []widget.Transcript
	var errs []string
	c.OnResult(func(tr widget.Transcript) { results = append(results, tr) })
	c.OnError(func(code string) { errs = append(errs, code) })

	assert.False(t, c.Emit("ignored"))

	require.NoError(t, c.Start())
	assert.True(t, c.Emit("show me jackets"))
	assert.Equal(t, []widget.Transcript{{Text: "show me jackets", Final: true}}, results)

	assert.True(t, c.Emit("   "))
	assert.Equal(t, []string{widget.CaptureNoSpeech}, errs)
	assert.False(t, c.Emit("after no speech"))
}

func TestPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewPrinter(&out, "Ada")

	p.Render(widget.Snapshot{Messages: []domain.Message{
		{Role: domain.RoleUser, Text: "hi"},
		{Role: domain.RoleAssistant, Text: "Hello!", Suggestions: []string{"View Cart"}},
	}})
	p.Render(widget.Snapshot{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Text: "hi"},
			{Role: domain.RoleAssistant, Text: "Hello!", Suggestions: []string{"View Cart"}},
		},
		Error: widget.ProcessFailedMessage,
	})

	assert.Equal(t, "Ada: Hello!\n  [1] View Cart\n! "+widget.ProcessFailedMessage+"\n", out.String())
}

func TestRunChat(t *testing.T) {
	srv := newTestBackend(t)

	var out bytes.Buffer
	err := runChat(context.Background(), &chatOptions{api: srv.URL, name: "Ada"},
		strings.NewReader("hello\n/1\n/9\n/quit\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Ada is listening")
	assert.Contains(t, text, `Ada: [MOCK] Received your message: "hello"`)
	assert.Contains(t, text, "  [1] Browse Products")
	assert.Contains(t, text, `Ada: [MOCK] Received your message: "Browse Products"`)
	assert.Contains(t, text, "! no suggestion 9")
}

func TestRelayClientReceivesContext(t *testing.T) {
	srv := newTestBackend(t)
	relayURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay"

	host, _, err := websocket.DefaultDialer.Dial(relayURL, nil)
	require.NoError(t, err)
	defer host.Close()
	require.NoError(t, host.WriteJSON(map[string]string{"type": protocol.TypeHello, "session_id": "s1", "role": protocol.RoleHost}))
	require.NoError(t, host.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ack map[string]interface{}
	require.NoError(t, host.ReadJSON(&ack))
	require.Equal(t, protocol.TypeHelloAck, ack["type"])

	client, err := NewRelayClient(relayURL, "")
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Hello("s1", protocol.RoleWidget))
	assert.Equal(t, "s1", client.SessionID())

	received := make(chan domain.PageContext, 1)
	go client.Read(RelayHandlers{OnContext: func(pc domain.PageContext) { received <- pc }})

	require.NoError(t, client.RequestContext())
	var req map[string]interface{}
	require.NoError(t, host.ReadJSON(&req))
	assert.Equal(t, protocol.TypeRequestContext, req["type"])

	products := make([]domain.Product, 12)
	for i := range products {
		products[i] = domain.Product{Title: "Tee"}
	}
	payload, err := json.Marshal(domain.PageContext{Platform: "shopify", Products: products})
	require.NoError(t, err)
	require.NoError(t, host.WriteJSON(map[string]interface{}{
		"type":    protocol.TypeContextUpdate,
		"payload": json.RawMessage(payload),
	}))

	select {
	case pc := <-received:
		assert.Equal(t, "shopify", pc.Platform)
		assert.Len(t, pc.Products, domain.MaxProducts)
	case <-time.After(2 * time.Second):
		t.Fatal("context_update not received")
	}
}

func TestSnippetCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"snippet", "--api", "https://widget.example.com", "--id", "store-1"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t,
		`<script src="https://widget.example.com/widget-embed?color=%233b82f6&id=store-1&name=AI+Shopping+Assistant&position=bottom-right" async></script>`+"\n",
		out.String())
}

func TestExtractCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(`<html><body class="woocommerce"></body></html>`))
	cmd.SetArgs([]string{"extract", "--url", "https://shop.example.com/cart"})
	require.NoError(t, cmd.Execute())

	var pc domain.PageContext
	require.NoError(t, json.Unmarshal(out.Bytes(), &pc))
	assert.Equal(t, "woocommerce", pc.Platform)
	assert.Equal(t, "/cart", pc.CurrentPath)
}

func TestHostServesContextToWidget(t *testing.T) {
	srv := newTestBackend(t)
	relayURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay"

	page := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><head><title>Tees</title></head><body>
<nav><a href="/collections/shirts">Shirts</a></nav>
<div class="product" data-product-id="p1"><h2 class="product-title">Linen Shirt</h2><span class="price">$49.99</span></div>
</body></html>`), 0o644))
	source, err := pageSource(page, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	hostDone := make(chan error, 1)
	go func() {
		hostDone <- runHost(ctx, &hostOptions{relay: relayURL, session: "shop-1", pageURL: "https://tees.example.com/collections/shirts"}, source, io.Discard)
	}()

	widgetClient, err := NewRelayClient(relayURL, "")
	require.NoError(t, err)
	defer widgetClient.Close()
	require.NoError(t, widgetClient.Hello("shop-1", protocol.RoleWidget))

	received := make(chan domain.PageContext, 8)
	go widgetClient.Read(RelayHandlers{OnContext: func(pc domain.PageContext) { received <- pc }})

	// The host may join after the widget; keep asking until it answers.
	var pc domain.PageContext
	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case pc = <-received:
			break wait
		case <-ticker.C:
			require.NoError(t, widgetClient.RequestContext())
		case <-deadline:
			t.Fatal("no context from host")
		}
	}

	assert.Equal(t, "/collections/shirts", pc.CurrentPath)
	require.Len(t, pc.Products, 1)
	assert.Equal(t, "Linen Shirt", pc.Products[0].Title)
	assert.Equal(t, []string{"Shirts"}, pc.Collections)

	cancel()
	select {
	case err := <-hostDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("host did not stop")
	}
}
