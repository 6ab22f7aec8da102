// Package llm provides the hosted LLM providers behind the chat bridge.
package llm

import (
	"context"
	"strings"
)

// Provider defines a hosted completion service.
type Provider interface {
	// Name returns the provider identifier used in routes and metrics.
	Name() string

	// Configured reports whether a usable credential is present.
	Configured() bool

	// CredentialEnv names the environment variable holding the credential.
	CredentialEnv() string

	// Generate produces a single reply for a system instruction and prompt.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-turn completion request.
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   *int
	Temperature *float64
}

// GenerateResponse is the provider reply.
type GenerateResponse struct {
	Text  string
	Model string
	Usage *Usage
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LooksValidKey rejects empty keys and obvious placeholders such as
// "your_api_key" or "example-key".
func LooksValidKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	if strings.HasPrefix(key, "your_") {
		return false
	}
	return !strings.Contains(strings.ToLower(key), "example")
}
