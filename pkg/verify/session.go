package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
)

const hiddenPollInterval = 100 * time.Millisecond

// Session is a started browser bound to the runner's settings. It is not
// safe for concurrent use.
type Session struct {
	browser  browser.Session
	settings Settings
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time
}

// NewSession wraps an already launched browser session
func NewSession(bs browser.Session, settings Settings, reporter Reporter, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if reporter == nil {
		reporter = Discard
	}
	if settings.AssertTimeout <= 0 {
		settings.AssertTimeout = DefaultAssertTimeout
	}
	return &Session{browser: bs, settings: settings, reporter: reporter, logger: logger, now: time.Now}
}

// WithReporter returns a copy of s that shares its browser but reports to r
func (s *Session) WithReporter(r Reporter) *Session {
	c := *s
	c.reporter = r
	return &c
}

// Authenticate opens the login page, submits the credentials and waits for
// the success URL. assumed is true when the wait timed out and the
// scenario's policy accepts that as already logged in.
func (s *Session) Authenticate(ctx context.Context, sc models.Scenario) (assumed bool, err error) {
	login := sc.Login

	s.reporter.Step("Navigating to login...")
	if err := s.browser.Navigate(ctx, scenario.URL(sc, login.Path)); err != nil {
		return false, err
	}

	err = s.submitLogin(ctx, login)
	switch {
	case err == nil:
	case errors.Is(err, browser.ErrTimeout) && login.OnTimeout == models.LoginAssumeLoggedIn:
		s.reporter.Step("Already logged in or redirected.")
		s.logger.Warn("Login did not complete, assuming an existing session", "error", err)
		return true, nil
	case errors.Is(err, browser.ErrTimeout):
		return false, fmt.Errorf("%w: %w", ErrLoginTimeout, err)
	default:
		return false, err
	}

	if err := s.browser.WaitNetworkIdle(ctx, s.settings.NetworkIdleTimeout); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Session) submitLogin(ctx context.Context, login models.LoginSpec) error {
	if login.FormTimeout > 0 {
		if err := s.browser.WaitVisible(ctx, login.Email, login.FormTimeout); err != nil {
			return err
		}
	}

	s.reporter.Step("Logging in...")
	if err := s.browser.Fill(ctx, login.Email, login.Credentials.Email); err != nil {
		return err
	}
	if err := s.browser.Fill(ctx, login.Password, login.Credentials.Password); err != nil {
		return err
	}
	if err := s.browser.Click(ctx, login.Submit); err != nil {
		return err
	}

	s.reporter.Step("Waiting for navigation...")
	return s.browser.WaitURL(ctx, login.SuccessURL, login.Timeout)
}

// Settle waits for network idle, then for the fixed settle delay
func (s *Session) Settle(ctx context.Context) error {
	if err := s.browser.WaitNetworkIdle(ctx, s.settings.NetworkIdleTimeout); err != nil {
		return err
	}
	if s.settings.SettleDelay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.settings.SettleDelay):
		return nil
	}
}

// Observe visits one page, runs its probes and saves its screenshot. On a
// fatal error the partial result is returned with it and a failure
// screenshot is attempted.
func (s *Session) Observe(ctx context.Context, sc models.Scenario, page models.PageTarget) (models.PageResult, error) {
	start := s.now()
	result := models.PageResult{
		Name:         page.Name,
		URL:          scenario.URL(sc, page.Path),
		Observations: []models.Observation{},
	}

	err := s.observe(ctx, sc, page, &result)
	if err != nil {
		s.captureFailure(ctx, page)
	}
	result.Duration = s.now().Sub(start).Milliseconds()
	return result, err
}

func (s *Session) observe(ctx context.Context, sc models.Scenario, page models.PageTarget, result *models.PageResult) error {
	s.reporter.Step("Navigating to %s...", page.Name)
	if err := s.browser.Navigate(ctx, result.URL); err != nil {
		return err
	}
	if page.ShouldSettle() {
		if err := s.Settle(ctx); err != nil {
			return err
		}
	}

	for _, probe := range page.Probes {
		obs, err := s.probe(ctx, sc, probe)
		if err != nil {
			return err
		}
		result.Observations = append(result.Observations, obs)
		if obs.Warning != "" {
			result.Warnings = append(result.Warnings, obs.Warning)
		}
	}

	data, err := s.browser.Screenshot(ctx)
	if err != nil {
		return err
	}
	path, err := writeScreenshot(s.settings.OutputDir, page.Screenshot, data)
	if err != nil {
		return err
	}
	result.ScreenshotPath = path
	s.reporter.Step("Screenshot saved to %s", path)
	return nil
}

func (s *Session) probe(ctx context.Context, sc models.Scenario, p models.Probe) (models.Observation, error) {
	obs := models.Observation{Label: p.Label, Kind: p.Kind}

	if p.WaitVisible && p.Kind != models.ProbeVisible && p.Kind != models.ProbeHidden {
		if err := s.assertVisible(ctx, p); err != nil {
			return obs, err
		}
	}

	switch p.Kind {
	case models.ProbeTexts:
		values, err := s.browser.TextContents(ctx, p.Selector)
		if err != nil {
			return obs, err
		}
		obs.Values = values
		obs.Count = len(values)
		s.reporter.Value(p.Label, values)

	case models.ProbeCount:
		n, err := s.browser.Count(ctx, p.Selector)
		if err != nil {
			return obs, err
		}
		obs.Count = n
		s.reporter.Value(p.Label, n)

	case models.ProbeText:
		v, err := s.browser.InnerText(ctx, p.Selector)
		if err != nil {
			return obs, err
		}
		obs.Value = v
		s.reporter.Value(p.Label, v)

	case models.ProbeAttribute:
		v, err := s.browser.Attribute(ctx, p.Selector, p.Attribute)
		if err != nil {
			return obs, err
		}
		obs.Value = v
		s.reporter.Value(p.Label, v)

	case models.ProbeVisible:
		if err := s.assertVisible(ctx, p); err != nil {
			return obs, err
		}
		obs.Value = "visible"
		s.reporter.Step("%s is visible.", p.Label)

	case models.ProbeHidden:
		if err := s.assertHidden(ctx, p); err != nil {
			return obs, err
		}
		obs.Value = "hidden"
		s.reporter.Step("%s is hidden.", p.Label)

	default:
		return obs, fmt.Errorf("%w: unknown probe kind %q", scenario.ErrInvalidScenario, p.Kind)
	}

	if len(p.Contains) > 0 {
		obs.Warning = s.compare(sc, p, obs)
	}
	return obs, nil
}

// compare checks the expected substrings and returns a warning for the
// first one that is missing
func (s *Session) compare(sc models.Scenario, p models.Probe, obs models.Observation) string {
	actual := obs.Value
	if p.Kind == models.ProbeTexts {
		actual = strings.Join(obs.Values, "\n")
	}

	now := s.now()
	for _, raw := range p.Contains {
		expected := scenario.Expand(raw, now, sc.DateLayout)
		if strings.Contains(actual, expected) {
			continue
		}
		warning := fmt.Sprintf("%s mismatch: expected %q in %q", p.Label, expected, actual)
		s.reporter.Warning("%s", warning)
		return warning
	}

	s.reporter.Step("%s verified.", p.Label)
	return ""
}

func (s *Session) assertVisible(ctx context.Context, p models.Probe) error {
	err := s.browser.WaitVisible(ctx, models.Locator{CSS: p.Selector}, s.settings.AssertTimeout)
	if errors.Is(err, browser.ErrTimeout) {
		return fmt.Errorf("%w: %s (%s) is not visible", ErrAssertion, p.Label, p.Selector)
	}
	return err
}

func (s *Session) assertHidden(ctx context.Context, p models.Probe) error {
	deadline := time.Now().Add(s.settings.AssertTimeout)
	for {
		visible, err := s.browser.IsVisible(ctx, p.Selector)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s (%s) is visible", ErrAssertion, p.Label, p.Selector)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(hiddenPollInterval):
		}
	}
}

func (s *Session) captureFailure(ctx context.Context, page models.PageTarget) {
	if ctx.Err() != nil {
		return
	}
	data, err := s.browser.Screenshot(ctx)
	if err != nil {
		s.logger.Debug("Failed to take failure screenshot", "page", page.Name, "error", err)
		return
	}
	path, err := writeScreenshot(s.settings.OutputDir, failureName(page.Screenshot), data)
	if err != nil {
		s.logger.Debug("Failed to save failure screenshot", "page", page.Name, "error", err)
		return
	}
	s.logger.Info("Failure screenshot saved", "page", page.Name, "path", path)
}

// Close tears down the browser
func (s *Session) Close() error {
	return s.browser.Close()
}
