// Command assistant-mcp serves the extraction and model tools over MCP stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"ai-offline-assistant/internal/app"
	"ai-offline-assistant/internal/config"
	"ai-offline-assistant/internal/mcptools"
	"ai-offline-assistant/internal/observability/logging"
)

var version = "dev"

func main() {
	cfg := config.Load()

	// stdout carries the protocol.
	logging.InitWithWriter(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	}, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build application")
	}
	defer application.Shutdown()

	srv := mcp.NewServer(&mcp.Implementation{Name: "ai-offline-assistant", Version: version}, nil)
	mcptools.New(application.Sessions, application.Assistant, application.Model).Register(srv)

	log.Info().Str("version", version).Msg("Serving MCP over stdio")
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("MCP server stopped")
	}
}
