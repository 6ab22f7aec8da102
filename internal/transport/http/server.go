// Package http provides the HTTP server implementation for the voice widget
// service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/embed"
	"github.com/xiaot623/voicewidget/internal/metrics"
	"github.com/xiaot623/voicewidget/internal/service"
	"github.com/xiaot623/voicewidget/internal/transport/http/api"
	"github.com/xiaot623/voicewidget/internal/transport/http/assets"
	"github.com/xiaot623/voicewidget/internal/ws"
)

// Deps are the components the server routes to.
type Deps struct {
	Service      *service.Service
	Renderer     *embed.Renderer
	Relay        *ws.Server
	Metrics      *metrics.Metrics
	PublicAPIURL string
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	apiHandler := api.NewHandler(deps.Service)
	assetsHandler := assets.NewHandler(deps.Renderer, deps.PublicAPIURL, deps.Metrics)

	// Register Routes
	apiHandler.RegisterRoutes(e)
	assetsHandler.RegisterRoutes(e)
	if deps.Relay != nil {
		deps.Relay.RegisterRoutes(e)
	}
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	return e
}
