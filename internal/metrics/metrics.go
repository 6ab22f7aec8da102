// Package metrics holds the Prometheus collectors for the widget service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeUnconfigured = "unconfigured"
	OutcomeProviderErr  = "provider_error"
	OutcomeInvalid      = "invalid"
)

// ProviderUnknown labels requests naming a provider that is not registered.
const ProviderUnknown = "unknown"

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests     *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	EmbedScripts     *prometheus.CounterVec
	RelayConnections prometheus.Gauge
	RelayMessages    *prometheus.CounterVec
}

// New creates a Metrics instance on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voicewidget"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ChatRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_requests_total",
				Help:      "Chat bridge requests by route, provider and outcome",
			},
			[]string{"route", "provider", "outcome"},
		),
		ProviderLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "LLM provider call latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		),
		EmbedScripts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "embed_scripts_total",
				Help:      "Embed scripts served by variant",
			},
			[]string{"variant"},
		),
		RelayConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "relay_connections",
				Help:      "Open context relay connections",
			},
		),
		RelayMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_messages_total",
				Help:      "Context relay messages received by type",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		m.ChatRequests,
		m.ProviderLatency,
		m.EmbedScripts,
		m.RelayConnections,
		m.RelayMessages,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveChat records one chat bridge request.
func (m *Metrics) ObserveChat(route, provider, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(route, provider, outcome).Inc()
}

// ObserveProvider records the latency of a provider call.
func (m *Metrics) ObserveProvider(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveEmbed records a served embed script.
func (m *Metrics) ObserveEmbed(variant string) {
	if m == nil {
		return
	}
	m.EmbedScripts.WithLabelValues(variant).Inc()
}

// RelayConnected adjusts the open relay connection gauge by delta.
func (m *Metrics) RelayConnected(delta int) {
	if m == nil {
		return
	}
	m.RelayConnections.Add(float64(delta))
}

// ObserveRelayMessage counts a relay message by type.
func (m *Metrics) ObserveRelayMessage(msgType string) {
	if m == nil {
		return
	}
	m.RelayMessages.WithLabelValues(msgType).Inc()
}
