package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveChat(t *testing.T) {
	m := New("test")
	m.ObserveChat("/chat", "gemini", OutcomeOK)
	m.ObserveChat("/chat", "gemini", OutcomeOK)
	m.ObserveChat("/chat", "groq", OutcomeUnconfigured)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("/chat", "gemini", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatRequests.WithLabelValues("/chat", "groq", OutcomeUnconfigured)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveChat("/chat", "gemini", OutcomeOK)
	m.ObserveProvider("gemini", time.Second)
	m.ObserveEmbed("generic")
	m.RelayConnected(1)
	m.ObserveRelayMessage("hello")
}

func TestHandler(t *testing.T) {
	m := New("test")
	m.ObserveEmbed("shopify")
	m.RelayConnected(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `test_embed_scripts_total{variant="shopify"} 1`)
	assert.Contains(t, string(body), `test_relay_connections 2`)
}
