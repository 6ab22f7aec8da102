// Command voicewidget serves the voice shopping widget: the chat bridge, the
// embed scripts and widget pages, and the context relay.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xiaot623/voicewidget/internal/adapter/llm"
	"github.com/xiaot623/voicewidget/internal/config"
	"github.com/xiaot623/voicewidget/internal/embed"
	"github.com/xiaot623/voicewidget/internal/hub"
	"github.com/xiaot623/voicewidget/internal/metrics"
	"github.com/xiaot623/voicewidget/internal/policy"
	"github.com/xiaot623/voicewidget/internal/service"
	transporthttp "github.com/xiaot623/voicewidget/internal/transport/http"
	"github.com/xiaot623/voicewidget/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogging(cfg)

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Str("public_api_url", cfg.PublicAPIURL).
		Str("default_provider", cfg.DefaultProvider).
		Str("mode", cfg.Mode).
		Msg("starting voice widget service")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.New("voicewidget")

	// Initialize chat service
	registry := llm.NewRegistryFromConfig(cfg)
	svc := service.New(registry, m)

	// Initialize relay
	connectionHub := hub.NewHub()
	connectionHub.OnCountChange = m.RelayConnected
	go connectionHub.Run(ctx)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, cfg.OriginAllowList())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize origin policy")
	}
	relay := ws.NewServer(cfg, connectionHub, policyEngine, m)

	server := transporthttp.NewServer(transporthttp.Deps{
		Service:      svc,
		Renderer:     embed.MustNewRenderer(),
		Relay:        relay,
		Metrics:      m,
		PublicAPIURL: cfg.PublicAPIURL,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start HTTP server")
		}
	}()

	log.Info().Int("port", cfg.HTTPPort).Strs("providers", registry.Names()).Msg("HTTP server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down voice widget service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown HTTP server gracefully")
	}
	stop()

	log.Info().Msg("voice widget service stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
