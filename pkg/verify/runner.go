// Package verify implements the verification runner: start a browser, log
// in, visit each page of a scenario, read the probes, screenshot, report.
// Soft mismatches become warnings, hard assertions and browser failures end
// the run. The browser is always closed.
package verify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/models"
)

// DefaultAssertTimeout bounds visible/hidden assertions and visibility
// preconditions.
const DefaultAssertTimeout = 5 * time.Second

// Reporter receives the human-facing progress lines of a run
type Reporter interface {
	Step(format string, args ...interface{})
	Value(label string, value interface{})
	Warning(format string, args ...interface{})
}

// Discard is a Reporter that drops everything
var Discard Reporter = nopReporter{}

type nopReporter struct{}

func (nopReporter) Step(string, ...interface{})    {}
func (nopReporter) Value(string, interface{})      {}
func (nopReporter) Warning(string, ...interface{}) {}

// Settings tune waits and output of a run
type Settings struct {
	OutputDir          string
	SettleDelay        time.Duration
	NetworkIdleTimeout time.Duration
	AssertTimeout      time.Duration
	Browser            browser.Options
}

// SettingsFromConfig derives runner settings from the runtime config
func SettingsFromConfig(c *config.Config) Settings {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	opts.ChromeBin = c.ChromeBin
	opts.ActionTimeout = c.ActionTimeout

	return Settings{
		OutputDir:          c.OutputDir,
		SettleDelay:        c.SettleDelay,
		NetworkIdleTimeout: c.NetworkIdleTimeout,
		AssertTimeout:      DefaultAssertTimeout,
		Browser:            opts,
	}
}

// Runner drives verification scenarios
type Runner struct {
	launcher browser.Launcher
	settings Settings
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner creates a runner
func NewRunner(launcher browser.Launcher, settings Settings, reporter Reporter, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = Discard
	}
	if settings.AssertTimeout <= 0 {
		settings.AssertTimeout = DefaultAssertTimeout
	}
	if settings.NetworkIdleTimeout <= 0 {
		settings.NetworkIdleTimeout = config.DefaultNetworkIdleTimeout
	}
	if settings.OutputDir == "" {
		settings.OutputDir = config.DefaultOutputDir
	}
	return &Runner{
		launcher: launcher,
		settings: settings,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Start launches the browser and opens one page. Failure is fatal.
func (r *Runner) Start(ctx context.Context) (*Session, error) {
	r.logger.Info("Launching browser", "headless", r.settings.Browser.Headless)

	bs, err := r.launcher.Launch(ctx, r.settings.Browser)
	if err != nil {
		return nil, err
	}
	s := NewSession(bs, r.settings, r.reporter, r.logger)
	s.now = r.now
	return s, nil
}

// Run executes the whole scenario. The returned result is never nil; err
// is the fatal error that ended the run, if any.
func (r *Runner) Run(ctx context.Context, sc models.Scenario) (*models.RunResult, error) {
	result := &models.RunResult{
		RunID:     uuid.New().String(),
		Scenario:  sc.Name,
		Status:    models.StatusRunning,
		StartedAt: r.now(),
	}
	logger := r.logger.With("scenario", sc.Name, "runID", result.RunID)
	logger.Info("Starting verification run", "baseURL", sc.BaseURL, "pages", len(sc.Pages))

	err := r.run(ctx, sc, result)

	result.TotalDuration = r.now().Sub(result.StartedAt).Milliseconds()
	result.Finish(err)

	if err != nil {
		logger.Error("Verification run failed", "error", err)
	} else {
		logger.Info("Verification run completed", "status", result.Status, "warnings", len(result.Warnings), "duration", result.TotalDuration)
	}
	return result, err
}

func (r *Runner) run(ctx context.Context, sc models.Scenario, result *models.RunResult) error {
	s, err := r.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			r.logger.Warn("Failed to close browser", "error", cerr)
		}
	}()

	assumed, err := s.Authenticate(ctx, sc)
	if err != nil {
		return err
	}
	result.LoggedIn = !assumed
	result.LoginAssumed = assumed

	for _, page := range sc.Pages {
		pr, err := s.Observe(ctx, sc, page)
		result.AddPage(pr)
		if err != nil {
			return err
		}
	}

	r.reporter.Step("Verification of %q finished with %d warning(s).", sc.Name, len(result.Warnings))
	return nil
}
