// Package assets serves the embed scripts and widget pages.
package assets

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/domain"
	"github.com/xiaot623/voicewidget/internal/embed"
	"github.com/xiaot623/voicewidget/internal/metrics"
)

const (
	contentTypeJS   = "application/javascript; charset=utf-8"
	embedCacheValue = "public, max-age=3600"
)

// Handler serves rendered browser assets.
type Handler struct {
	renderer     *embed.Renderer
	publicAPIURL string
	metrics      *metrics.Metrics
}

// NewHandler creates a new assets handler. publicAPIURL may be empty, in
// which case the base URL is taken from the request.
func NewHandler(renderer *embed.Renderer, publicAPIURL string, m *metrics.Metrics) *Handler {
	return &Handler{
		renderer:     renderer,
		publicAPIURL: publicAPIURL,
		metrics:      m,
	}
}

// RegisterRoutes registers asset routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/widget-embed", h.WidgetEmbed)
	e.GET("/shopify-embed", h.ShopifyEmbed)
	e.GET("/widget-iframe", h.WidgetIframe)
	e.GET("/integration", h.Integration)
}

// WidgetEmbed returns the generic host script.
// GET /widget-embed?id=&color=&position=&name=
func (h *Handler) WidgetEmbed(c echo.Context) error {
	return h.hostScript(c, embed.VariantGeneric)
}

// ShopifyEmbed returns the Shopify host script.
// GET /shopify-embed?domain=&color=&position=&name=
func (h *Handler) ShopifyEmbed(c echo.Context) error {
	return h.hostScript(c, embed.VariantShopify)
}

func (h *Handler) hostScript(c echo.Context, v embed.Variant) error {
	cfg := domain.WidgetConfigFromQuery(c.QueryParams(), h.baseURL(c))

	var buf bytes.Buffer
	if err := h.renderer.HostScript(&buf, cfg, v); err != nil {
		log.Error().Err(err).Str("variant", string(v)).Msg("failed to render host script")
		return c.String(http.StatusInternalServerError, "// widget unavailable\n")
	}
	h.metrics.ObserveEmbed(string(v))

	c.Response().Header().Set("Cache-Control", embedCacheValue)
	return c.Blob(http.StatusOK, contentTypeJS, buf.Bytes())
}

// WidgetIframe returns the widget UI page. A missing or malformed config
// parameter falls back to defaults.
// GET /widget-iframe?config=
func (h *Handler) WidgetIframe(c echo.Context) error {
	var cfg domain.WidgetConfig
	if raw := c.QueryParam("config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			log.Debug().Err(err).Msg("ignoring malformed widget config")
			cfg = domain.WidgetConfig{}
		}
	}
	cfg.APIBaseURL = h.baseURL(c)

	var buf bytes.Buffer
	if err := h.renderer.IframePage(&buf, cfg); err != nil {
		log.Error().Err(err).Msg("failed to render widget page")
		return c.String(http.StatusInternalServerError, "widget unavailable")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

// Integration returns the setup page with embed snippets.
// GET /integration?id=&color=&position=&name=
func (h *Handler) Integration(c echo.Context) error {
	cfg := domain.WidgetConfigFromQuery(c.QueryParams(), h.baseURL(c))
	websiteID := c.QueryParam("id")
	if websiteID == "" {
		websiteID = "demo-store-123"
	}

	var buf bytes.Buffer
	if err := h.renderer.IntegrationPage(&buf, cfg, websiteID); err != nil {
		log.Error().Err(err).Msg("failed to render integration page")
		return c.String(http.StatusInternalServerError, "integration page unavailable")
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) baseURL(c echo.Context) string {
	if h.publicAPIURL != "" {
		return h.publicAPIURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
