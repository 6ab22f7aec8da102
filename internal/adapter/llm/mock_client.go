package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a canned Provider for local runs and tests. It records
// every request it receives.
type MockProvider struct {
	name string
	err  error

	mu       sync.Mutex
	requests []GenerateRequest
	reply    string
}

// NewMockProvider creates a new mock provider.
func NewMockProvider(name string) *MockProvider {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{name: name}
}

// Ensure MockProvider implements Provider interface.
var _ Provider = (*MockProvider)(nil)

// WithReply fixes the reply text.
func (m *MockProvider) WithReply(reply string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = reply
	return m
}

// WithError makes every Generate call fail with err.
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Name returns the provider identifier.
func (m *MockProvider) Name() string {
	return m.name
}

// Configured is always true.
func (m *MockProvider) Configured() bool {
	return true
}

// CredentialEnv is empty; the mock needs no credential.
func (m *MockProvider) CredentialEnv() string {
	return ""
}

// Generate returns a mock response based on the prompt.
func (m *MockProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, *req)
	reply, err := m.reply, m.err
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if reply == "" {
		reply = fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(req.Prompt, 100))
	}

	return &GenerateResponse{
		Text:  reply,
		Model: m.name + "/mock",
		Usage: &Usage{
			PromptTokens:     (len(req.System) + len(req.Prompt)) / 4,
			CompletionTokens: len(reply) / 4,
			TotalTokens:      (len(req.System)+len(req.Prompt))/4 + len(reply)/4,
		},
	}, nil
}

// Requests returns a copy of the recorded requests.
func (m *MockProvider) Requests() []GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateRequest(nil), m.requests...)
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
