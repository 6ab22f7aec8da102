package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/service"
)

// ChatRequest is the body accepted by the chat endpoints.
type ChatRequest struct {
	Message       string               `json:"message"`
	Context       *domain.PageContext  `json:"context,omitempty"`
	WebsiteConfig *domain.WidgetConfig `json:"websiteConfig,omitempty"`
	Provider      string               `json:"provider,omitempty"`
}

// ChatResponse is returned by /chat and /chat/groq.
type ChatResponse struct {
	Response string `json:"response"`
}

// EcommerceChatResponse is returned by /ecommerce-chat.
type EcommerceChatResponse struct {
	Response    string        `json:"response"`
	Intent      domain.Intent `json:"intent"`
	Suggestions []string      `json:"suggestions"`
}

// Chat answers with the default provider, or the one named in the body.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.Chat(c.Request().Context(), &service.ChatRequest{
		Message:  req.Message,
		Context:  req.Context,
		Config:   req.WebsiteConfig,
		Provider: req.Provider,
		Route:    "/chat",
	})
	if err != nil {
		return chatError(c, &req, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Response: result.Response})
}

// ChatGroq answers with the Groq provider.
// POST /chat/groq
func (h *Handler) ChatGroq(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.Chat(c.Request().Context(), &service.ChatRequest{
		Message:  req.Message,
		Context:  req.Context,
		Config:   req.WebsiteConfig,
		Provider: "groq",
		Route:    "/chat/groq",
	})
	if err != nil {
		return chatError(c, &req, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Response: result.Response})
}

// EcommerceChat answers with the shopping persona and attaches the intent
// and suggestions.
// POST /ecommerce-chat
func (h *Handler) EcommerceChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.ShopChat(c.Request().Context(), &service.ChatRequest{
		Message:  req.Message,
		Context:  req.Context,
		Config:   req.WebsiteConfig,
		Provider: req.Provider,
		Route:    "/ecommerce-chat",
	})
	if err != nil {
		return chatError(c, &req, err)
	}
	return c.JSON(http.StatusOK, EcommerceChatResponse{
		Response:    result.Response,
		Intent:      result.Intent,
		Suggestions: result.Suggestions,
	})
}

func chatError(c echo.Context, req *ChatRequest, err error) error {
	if errors.Is(err, domain.ErrInvalidRequest) {
		msg := "Message is required"
		if strings.TrimSpace(req.Message) != "" {
			msg = err.Error()
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process chat request"})
}
