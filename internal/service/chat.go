package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/adapter/llm"
	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/intent"
	"github.com/xiaot623/voicewidget/internal/metrics"
)

// Degradation reasons reported alongside a fallback reply.
const (
	ReasonUnconfigured  = "unconfigured"
	ReasonProviderError = "provider_error"
)

// ChatRequest is one utterance plus optional page context.
type ChatRequest struct {
	Message  string
	Context  *domain.PageContext
	Config   *domain.WidgetConfig
	Provider string // empty selects the default provider
	Route    string // metrics label
}

// ChatResult always carries a non-empty Response. Degraded replies are
// successes from the caller's point of view.
type ChatResult struct {
	Response string
	Provider string
	Degraded bool
	Reason   string
}

// ShopChatResult adds intent and quick replies to a ChatResult.
type ShopChatResult struct {
	ChatResult
	Intent      domain.Intent
	Suggestions []string
}

// Chat generates a reply for req.Message. The only error it returns wraps
// domain.ErrInvalidRequest; provider problems collapse into a fallback reply.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	provider, ok := s.providers.Get(req.Provider)
	name := metrics.ProviderUnknown
	if ok {
		name = provider.Name()
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		s.metrics.ObserveChat(req.Route, name, metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidRequest)
	}
	if !ok {
		s.metrics.ObserveChat(req.Route, name, metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, req.Provider)
	}

	if !provider.Configured() {
		log.Warn().
			Str("provider", name).
			Str("credential", provider.CredentialEnv()).
			Msg("provider credential missing, replying with fallback")
		s.metrics.ObserveChat(req.Route, name, metrics.OutcomeUnconfigured)
		return &ChatResult{
			Response: unconfiguredReply(message, provider),
			Provider: name,
			Degraded: true,
			Reason:   ReasonUnconfigured,
		}, nil
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, &llm.GenerateRequest{
		System: BuildSystemPrompt(req.Context, req.Config),
		Prompt: message,
	})
	s.metrics.ObserveProvider(name, time.Since(start))
	if err == nil && strings.TrimSpace(resp.Text) == "" {
		err = errors.New("empty reply")
	}
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", domain.ErrProviderUnavailable, name, err)
		log.Error().Err(err).Str("provider", name).Dur("latency", time.Since(start)).Msg("provider call failed, replying with fallback")
		s.metrics.ObserveChat(req.Route, name, metrics.OutcomeProviderErr)
		return &ChatResult{
			Response: providerErrorReply(provider),
			Provider: name,
			Degraded: true,
			Reason:   ReasonProviderError,
		}, nil
	}

	s.metrics.ObserveChat(req.Route, name, metrics.OutcomeOK)
	log.Debug().Str("provider", name).Str("model", resp.Model).Dur("latency", time.Since(start)).Msg("chat reply generated")
	return &ChatResult{
		Response: resp.Text,
		Provider: name,
	}, nil
}

// ShopChat runs Chat and classifies the utterance. Intent and suggestions are
// attached to fallback replies too.
func (s *Service) ShopChat(ctx context.Context, req *ChatRequest) (*ShopChatResult, error) {
	result, err := s.Chat(ctx, req)
	if err != nil {
		return nil, err
	}
	i := intent.Classify(req.Message)
	return &ShopChatResult{
		ChatResult:  *result,
		Intent:      i,
		Suggestions: intent.Suggestions(i),
	}, nil
}

func unconfiguredReply(message string, p llm.Provider) string {
	return fmt.Sprintf(
		"I received your message: %q. %s is not configured with a valid API key, so I'm replying with a fallback message. "+
			"Add %s to your environment variables for full AI answers.",
		message, displayName(p.Name()), p.CredentialEnv(),
	)
}

func providerErrorReply(p llm.Provider) string {
	return fmt.Sprintf(
		"I couldn't reach %s right now, possibly because of an invalid key or a quota limit. "+
			"I'm still here to help, so please try again in a moment.",
		displayName(p.Name()),
	)
}

func displayName(provider string) string {
	switch provider {
	case "gemini":
		return "Gemini"
	case "groq":
		return "Groq"
	case "openai":
		return "OpenAI"
	}
	return provider
}
