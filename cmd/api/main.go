package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"

	"dev/bravebird/ui-verify/pkg/api"
	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/logging"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
)

func main() {
	cfg := config.ServiceFromEnv()
	logger := logging.NewJSON(os.Stderr, cfg.Verbose, cfg.Password)
	slog.SetDefault(logger)

	logger.Info("Starting UI Verification API Server")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Custom scenarios are optional
	var custom []models.Scenario
	if cfg.ScenarioFile != "" {
		var err error
		custom, err = scenario.Load(cfg.ScenarioFile)
		if err != nil {
			logger.Error("Failed to load scenarios", "file", cfg.ScenarioFile, "error", err)
			os.Exit(1)
		}
		logger.Info("Loaded custom scenarios", "file", cfg.ScenarioFile, "count", len(custom))
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   log.NewStructuredLogger(logger),
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	// Create API handlers
	handlers := api.NewHandlers(temporalClient, api.Options{
		ScreenshotDir: cfg.OutputDir,
		Driver:        cfg.Driver,
		Headless:      cfg.Headless,
		Custom:        custom,
		Overrides: scenario.Overrides{
			BaseURL:  cfg.BaseURL,
			Email:    cfg.Email,
			Password: cfg.Password,
		},
		Logger: logger,
	})

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(handlers.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("API server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
