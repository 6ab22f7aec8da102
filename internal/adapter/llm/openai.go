package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenAIBaseURL is the OpenAI API endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// EnvOpenAIKey holds the OpenAI credential.
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	name          string
	credentialEnv string
	baseURL       string
	apiKey        string
	model         string
	httpClient    *http.Client
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithBaseURL sets a custom base URL (for testing or proxying).
func WithBaseURL(url string) Option {
	return func(c *OpenAIClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *OpenAIClient) {
		c.httpClient = client
	}
}

// WithName overrides the provider name and credential variable.
func WithName(name, credentialEnv string) Option {
	return func(c *OpenAIClient) {
		c.name = name
		c.credentialEnv = credentialEnv
	}
}

// NewOpenAIClient creates a new OpenAI-compatible client. A zero timeout
// leaves the HTTP client default in place.
func NewOpenAIClient(apiKey, model string, timeout time.Duration, opts ...Option) *OpenAIClient {
	c := &OpenAIClient{
		name:          "openai",
		credentialEnv: EnvOpenAIKey,
		baseURL:       DefaultOpenAIBaseURL,
		apiKey:        apiKey,
		model:         model,
		httpClient:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatCompletionRequest represents the OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

// ChatMessage represents a chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse represents the OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError represents the error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Configured reports whether a usable API key is set.
func (c *OpenAIClient) Configured() bool {
	return LooksValidKey(c.apiKey)
}

// CredentialEnv names the variable that carries the API key.
func (c *OpenAIClient) CredentialEnv() string {
	return c.credentialEnv
}

// Generate sends the system instruction and prompt as a two-message chat.
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	messages := make([]ChatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: req.Prompt})

	resp, err := c.CreateChatCompletion(ctx, &ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return nil, fmt.Errorf("%s: response has no choices", c.name)
	}

	return &GenerateResponse{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: c.name + "/" + resp.Model,
		Usage: resp.Usage,
	}, nil
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("%s API error [%d]: %s (type: %s)", c.name, resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("%s API error [%d]: %s", c.name, resp.StatusCode, string(respBody))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// Ensure OpenAIClient implements Provider interface.
var _ Provider = (*OpenAIClient)(nil)
