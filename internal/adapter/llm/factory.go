package llm

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/config"
)

// Registry holds the configured providers by name.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates a registry from providers; the first one is the default
// unless SetDefault is called.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewRegistryFromConfig builds gemini, groq and openai providers. With
// VOICE_MODE=MOCK every name is served by a MockProvider.
func NewRegistryFromConfig(cfg *config.Config) *Registry {
	if cfg.Mode == config.ModeMock {
		log.Info().Msg("VOICE_MODE=MOCK detected, using mock LLM providers")
		r := NewRegistry(
			NewMockProvider("gemini"),
			NewMockProvider("groq"),
			NewMockProvider("openai"),
		)
		r.SetDefault(cfg.DefaultProvider)
		return r
	}

	var openaiOpts []Option
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, WithBaseURL(cfg.OpenAIBaseURL))
	}
	var geminiOpts []GeminiOption
	if cfg.GeminiBaseURL != "" {
		geminiOpts = append(geminiOpts, WithGeminiBaseURL(cfg.GeminiBaseURL))
	}
	r := NewRegistry(
		NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.LLMTimeout, geminiOpts...),
		NewGroq(cfg.GroqAPIKey, cfg.GroqModel, cfg.LLMTimeout),
		NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout, openaiOpts...),
	)
	r.SetDefault(cfg.DefaultProvider)
	return r
}

// Register adds or replaces a provider.
func (r *Registry) Register(p Provider) {
	name := strings.ToLower(p.Name())
	r.providers[name] = p
	if r.defaultName == "" {
		r.defaultName = name
	}
}

// SetDefault selects the default provider. Unknown names are ignored.
func (r *Registry) SetDefault(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.providers[name]; ok {
		r.defaultName = name
		return
	}
	if name != "" {
		log.Warn().Str("provider", name).Str("default", r.defaultName).Msg("unknown default provider, keeping current default")
	}
}

// Get returns the named provider; an empty name selects the default.
func (r *Registry) Get(name string) (Provider, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	return p, ok
}

// Default returns the default provider name.
func (r *Registry) Default() string {
	return r.defaultName
}

// Names lists registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
