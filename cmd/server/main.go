package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/health-intelligence-engine/internal/api"
	"github.com/health-intelligence-engine/internal/app"
	"github.com/health-intelligence-engine/internal/config"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := app.NewLogger(cfg.Logging)
	logger.WithField("environment", cfg.Environment).Infof("Starting Health Intelligence Engine on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize engine")
	}
	defer engine.Close()

	server := api.NewServer(cfg.Server, engine.Health, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		engine.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
