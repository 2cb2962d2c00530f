package main

import (
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/logging"
	"dev/bravebird/ui-verify/pkg/temporal/activities"
	"dev/bravebird/ui-verify/pkg/temporal/workflows"
	"dev/bravebird/ui-verify/pkg/verify"
)

func main() {
	cfg := config.ServiceFromEnv()
	logger := logging.NewJSON(os.Stderr, cfg.Verbose, cfg.Password)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
		Logger:   log.NewStructuredLogger(logger),
	})
	if err != nil {
		logger.Error("Failed to create Temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	// Create activities
	acts := activities.NewActivities(verify.SettingsFromConfig(cfg), logger)
	defer func() {
		if err := acts.Pool.CloseAll(); err != nil {
			logger.Warn("Failed to close browser sessions", "error", err)
		}
	}()

	// One browser per session, so keep session concurrency low
	w := worker.New(c, config.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
		EnableSessionWorker:                    true,
		MaxConcurrentSessionExecutionSize:      5,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.VerificationWorkflow)

	// Register activities
	w.RegisterActivity(acts.StartSessionActivity)
	w.RegisterActivity(acts.AuthenticateActivity)
	w.RegisterActivity(acts.ObservePageActivity)
	w.RegisterActivity(acts.CloseSessionActivity)

	logger.Info("Starting Temporal worker",
		"taskQueue", config.TaskQueue,
		"temporalHost", cfg.TemporalHost,
		"driver", cfg.Driver,
		"screenshotDir", cfg.OutputDir,
	)

	// Start worker
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}
}
