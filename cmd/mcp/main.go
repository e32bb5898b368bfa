package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/kirillkom/clinical-qa/internal/adapters/mcp"
	"github.com/kirillkom/clinical-qa/internal/bootstrap"
	"github.com/kirillkom/clinical-qa/internal/config"
	"github.com/kirillkom/clinical-qa/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// MCP owns stdout for the protocol; logs go to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.NewServer(app.AnswerUC, logger)
	logger.Info("mcp_serving_stdio", "version", version)
	if err := server.ServeStdio(version); err != nil {
		logger.Error("mcp_server_error", "error", err)
		os.Exit(1)
	}
}
