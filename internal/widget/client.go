package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/voicewidget/internal/domain"
)

// ChatClient sends a user utterance to the chat bridge.
type ChatClient interface {
	ShopChat(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

// ChatRequest is the body of POST /ecommerce-chat.
type ChatRequest struct {
	Message string               `json:"message"`
	Context *domain.PageContext  `json:"context,omitempty"`
	Config  *domain.WidgetConfig `json:"websiteConfig,omitempty"`
}

// ChatReply is the response of POST /ecommerce-chat.
type ChatReply struct {
	Response    string        `json:"response"`
	Intent      domain.Intent `json:"intent"`
	Suggestions []string      `json:"suggestions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPChatClient talks to the chat bridge over HTTP.
type HTTPChatClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPChatClient creates a client for the service at baseURL.
func NewHTTPChatClient(baseURL string) *HTTPChatClient {
	return &HTTPChatClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ShopChat calls POST /ecommerce-chat.
func (c *HTTPChatClient) ShopChat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ecommerce-chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach chat bridge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("chat bridge error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("chat bridge returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var reply ChatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	return &reply, nil
}
