// Package api provides the JSON endpoints of the voice widget service.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/voicewidget/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the API routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat bridge
	e.POST("/chat", h.Chat)
	e.POST("/chat/groq", h.ChatGroq)
	e.POST("/ecommerce-chat", h.EcommerceChat)

	e.POST("/context/extract", h.ExtractContext)
	e.POST("/speech", h.Speech)

	e.GET("/health", h.Health)
}

// Health returns health status and which providers have credentials.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	registry := h.service.Providers()
	providers := make(map[string]bool)
	for _, name := range registry.Names() {
		if p, ok := registry.Get(name); ok {
			providers[name] = p.Configured()
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"version":          "0.1.0",
		"default_provider": registry.Default(),
		"providers":        providers,
	})
}
