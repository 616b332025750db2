// Package main serves the engine's MCP tools over stdio using the full
// configuration file, so the tools share storage with the HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/health-intelligence-engine/internal/app"
	"github.com/health-intelligence-engine/internal/config"
	mcpserver "github.com/health-intelligence-engine/internal/mcp"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := app.NewLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize engine")
	}
	defer engine.Close()

	server := mcpserver.NewServer(engine.Health, logger, nil)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithField("tools", server.ToolNames()).Info("Starting Health Intelligence MCP Server")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.WithError(err).Error("MCP server failed")
		engine.Close()
		os.Exit(1)
	}

	logger.Info("MCP server stopped")
}
