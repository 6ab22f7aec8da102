// Package service implements the chat bridge between the widget and the
// hosted LLM providers.
package service

import (
	"github.com/xiaot623/voicewidget/internal/adapter/llm"
	"github.com/xiaot623/voicewidget/internal/metrics"
)

// Service forwards single utterances to a provider. It keeps no state
// between calls.
type Service struct {
	providers *llm.Registry
	metrics   *metrics.Metrics
}

// New creates a chat bridge over the given providers. m may be nil.
func New(providers *llm.Registry, m *metrics.Metrics) *Service {
	return &Service{
		providers: providers,
		metrics:   m,
	}
}

// Providers exposes the registry for health reporting.
func (s *Service) Providers() *llm.Registry {
	return s.providers
}
