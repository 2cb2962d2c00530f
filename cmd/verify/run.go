package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/logging"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/report"
	"dev/bravebird/ui-verify/pkg/scenario"
	"dev/bravebird/ui-verify/pkg/verify"
)

const defaultScenario = "smoke"

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run a verification scenario",
		Long: `Run logs in, visits every page of the scenario, prints the values read
from the page and saves one screenshot per page.

Examples:
  # Dashboard and table pages on the default dev server
  verify run smoke

  # Meal banner layout against another host
  verify run centered --base-url http://staging.local:5174

  # Custom scenario from a YAML file, warnings fail the run
  verify run --file scenarios.yaml --strict staging

  # Keep a markdown report next to the screenshots
  verify run fallback --output-dir shots --report shots/report.md

Environment:
  VERIFY_DRIVER, VERIFY_HEADLESS, CHROME_BIN, SCREENSHOT_DIR,
  VERIFY_SETTLE_DELAY, VERIFY_BASE_URL, VERIFY_EMAIL, VERIFY_PASSWORD`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerifyCmd,
	}

	// Scenario flags
	cmd.Flags().StringP("file", "f", "",
		"YAML file with custom scenarios")
	cmd.Flags().String("base-url", "",
		"Override the scenario base URL (e.g., http://localhost:5173)")

	// Browser flags
	cmd.Flags().String("driver", config.DefaultDriver,
		"Browser driver: rod or playwright")
	cmd.Flags().Bool("headless", true,
		"Run the browser without a window")
	cmd.Flags().Duration("settle-delay", config.DefaultSettleDelay,
		"Extra wait after network idle before reading a page")

	// Output flags
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for screenshots")
	cmd.Flags().StringP("report", "r", "",
		"Write a markdown report to the given path")
	cmd.Flags().Bool("strict", false,
		"Exit non-zero when the run finished with warnings")

	return cmd
}

// runVerifyCmd executes the run command.
func runVerifyCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Verbose, cfg.Password)
	slog.SetDefault(logger)

	name := defaultScenario
	if len(args) > 0 {
		name = args[0]
	}
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	sc, err := resolveScenario(name, file, overridesFromConfig(cfg))
	if err != nil {
		return err
	}

	launcher, err := browser.NewLauncher(cfg.Driver)
	if err != nil {
		return err
	}

	reportPath, err := cmd.Flags().GetString("report")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runVerification(ctx, cmd.OutOrStdout(), cfg, launcher, sc, reportPath, logger)
}

// buildConfig starts from the environment and applies the flags the user set.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromEnv()
	flags := cmd.Flags()
	var err error

	if flags.Changed("driver") {
		if cfg.Driver, err = flags.GetString("driver"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("headless") {
		if cfg.Headless, err = flags.GetBool("headless"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("settle-delay") {
		if cfg.SettleDelay, err = flags.GetDuration("settle-delay"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("strict") {
		if cfg.Strict, err = flags.GetBool("strict"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

func overridesFromConfig(cfg *config.Config) scenario.Overrides {
	return scenario.Overrides{
		BaseURL:  cfg.BaseURL,
		Email:    cfg.Email,
		Password: cfg.Password,
	}
}

// resolveScenario looks name up in file (when given) and the built-ins,
// then applies the overrides.
func resolveScenario(name, file string, overrides scenario.Overrides) (models.Scenario, error) {
	var custom []models.Scenario
	if file != "" {
		var err error
		custom, err = scenario.Load(file)
		if err != nil {
			return models.Scenario{}, err
		}
	}

	sc, err := scenario.Resolve(name, custom)
	if err != nil {
		return models.Scenario{}, err
	}
	sc = overrides.Apply(sc)
	if err := scenario.Validate(sc); err != nil {
		return models.Scenario{}, err
	}
	return sc, nil
}

// runVerification runs sc, prints progress to out and writes the optional
// report. The report is written for failed runs too.
func runVerification(ctx context.Context, out io.Writer, cfg *config.Config, launcher browser.Launcher, sc models.Scenario, reportPath string, logger *slog.Logger) error {
	runner := verify.NewRunner(launcher, verify.SettingsFromConfig(cfg), report.NewConsole(out), logger)

	result, runErr := runner.Run(ctx, sc)

	if reportPath != "" {
		if err := writeReport(reportPath, result); err != nil {
			if runErr != nil {
				logger.Error("Failed to write report", "path", reportPath, "error", err)
				return runErr
			}
			return err
		}
		logger.Info("Report written", "path", reportPath)
	}

	if runErr != nil {
		return runErr
	}
	if cfg.Strict && len(result.Warnings) > 0 {
		return fmt.Errorf("%w: %d warning(s)", verify.ErrWarnings, len(result.Warnings))
	}
	return nil
}

func writeReport(path string, result *models.RunResult) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := report.NewMarkdownWriter(f).Write(result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
