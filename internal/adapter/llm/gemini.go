package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

const (
	// DefaultGeminiModel is used when GEMINI_MODEL is unset.
	DefaultGeminiModel = "gemini-1.5-flash"
	// EnvGeminiKey holds the Google Generative AI credential.
	EnvGeminiKey = "GOOGLE_GENERATIVE_AI_API_KEY"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// GeminiOption configures a Gemini provider.
type GeminiOption func(*Gemini)

// WithGeminiBaseURL points the SDK at another endpoint, such as a proxy.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(g *Gemini) {
		g.baseURL = url
	}
}

// NewGemini creates a Gemini provider. The SDK client is built on first use.
func NewGemini(apiKey, model string, timeout time.Duration, opts ...GeminiOption) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &Gemini{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the provider identifier.
func (g *Gemini) Name() string {
	return "gemini"
}

// Configured reports whether a usable API key is set.
func (g *Gemini) Configured() bool {
	return LooksValidKey(g.apiKey)
}

// CredentialEnv names the variable that carries the API key.
func (g *Gemini) CredentialEnv() string {
	return EnvGeminiKey
}

func (g *Gemini) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

// Generate sends the prompt with the system instruction attached.
func (g *Gemini) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return nil, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens != nil {
		cfg.MaxOutputTokens = int32(*req.MaxTokens)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &GenerateResponse{
		Text:  strings.TrimSpace(resp.Text()),
		Model: "gemini/" + g.model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = &Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Ensure Gemini implements Provider interface.
var _ Provider = (*Gemini)(nil)
