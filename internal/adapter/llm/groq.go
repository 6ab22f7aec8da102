package llm

import "time"

const (
	// DefaultGroqBaseURL is the Groq OpenAI-compatible endpoint.
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	// DefaultGroqModel is used when GROQ_MODEL is unset.
	DefaultGroqModel = "llama-3.1-70b-versatile"
	// EnvGroqKey holds the Groq credential.
	EnvGroqKey = "GROQ_API_KEY"
)

// NewGroq creates a Groq provider. Groq speaks the OpenAI wire format, so this
// is an OpenAIClient with a different base URL and name.
func NewGroq(apiKey, model string, timeout time.Duration, opts ...Option) *OpenAIClient {
	if model == "" {
		model = DefaultGroqModel
	}
	base := []Option{
		WithBaseURL(DefaultGroqBaseURL),
		WithName("groq", EnvGroqKey),
	}
	return NewOpenAIClient(apiKey, model, timeout, append(base, opts...)...)
}
