package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"

	"dev/bravebird/ui-verify/pkg/models"
)

// PlaywrightLauncher launches Chromium through playwright-go
type PlaywrightLauncher struct{}

// NewPlaywrightLauncher creates a playwright launcher
func NewPlaywrightLauncher() *PlaywrightLauncher {
	return &PlaywrightLauncher{}
}

// Launch installs the driver unless PLAYWRIGHT_PREINSTALLED=1, starts
// Chromium and opens one page in a fresh context.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--no-sandbox", "--disable-gpu", "--disable-dev-shm-usage"},
	}
	if opts.ChromeBin != "" {
		launchOpts.ExecutablePath = playwright.String(opts.ChromeBin)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		contextOpts.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultOptions().ActionTimeout
	}
	page.SetDefaultTimeout(millis(opts.ActionTimeout))

	return &PlaywrightSession{pw: pw, browser: browser, page: page, opts: opts}, nil
}

// PlaywrightSession is a Session backed by a playwright page. playwright-go
// calls take no context, so ctx is checked before each call.
type PlaywrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options
}

// Navigate opens url and waits for the load event
func (s *PlaywrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Goto(url); err != nil {
		return wrapPlaywright(err, "navigate to "+url)
	}
	return nil
}

// URL returns the current page URL
func (s *PlaywrightSession) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

// WaitURL waits until the page URL matches the glob pattern
func (s *PlaywrightSession) WaitURL(ctx context.Context, pattern string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.WaitForURL(pattern, playwright.PageWaitForURLOptions{Timeout: playwright.Float(millis(timeout))})
	if err != nil {
		return wrapPlaywright(err, fmt.Sprintf("url %q never matched %q", s.page.URL(), pattern))
	}
	return nil
}

// WaitNetworkIdle waits for the networkidle load state
func (s *PlaywrightSession) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return wrapPlaywright(err, "network idle")
	}
	return nil
}

// WaitVisible waits until the located element is visible
func (s *PlaywrightSession) WaitVisible(ctx context.Context, loc models.Locator, timeout time.Duration) error {
	l, err := s.locate(ctx, loc)
	if err != nil {
		return err
	}
	err = l.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(timeout)),
	})
	if err != nil {
		return wrapPlaywright(err, "wait visible "+loc.String())
	}
	return nil
}

// Fill replaces the value of an input
func (s *PlaywrightSession) Fill(ctx context.Context, loc models.Locator, value string) error {
	l, err := s.locate(ctx, loc)
	if err != nil {
		return err
	}
	if err := l.Fill(value); err != nil {
		return wrapPlaywright(err, "fill "+loc.String())
	}
	return nil
}

// Click clicks the located element
func (s *PlaywrightSession) Click(ctx context.Context, loc models.Locator) error {
	l, err := s.locate(ctx, loc)
	if err != nil {
		return err
	}
	if err := l.Click(); err != nil {
		return wrapPlaywright(err, "click "+loc.String())
	}
	return nil
}

// TextContents returns textContent of every match
func (s *PlaywrightSession) TextContents(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts, err := s.page.Locator(selector).AllTextContents()
	if err != nil {
		return nil, wrapPlaywright(err, "text contents of "+selector)
	}
	return texts, nil
}

// Count returns the number of matches
func (s *PlaywrightSession) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := s.page.Locator(selector).Count()
	if err != nil {
		return 0, wrapPlaywright(err, "count "+selector)
	}
	return n, nil
}

// InnerText returns the rendered text of the first match
func (s *PlaywrightSession) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := s.page.Locator(selector).First().InnerText()
	if err != nil {
		return "", wrapPlaywright(err, "inner text of "+selector)
	}
	return text, nil
}

// Attribute returns an attribute of the first match, empty when absent
func (s *PlaywrightSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := s.page.Locator(selector).First().GetAttribute(name)
	if err != nil {
		return "", wrapPlaywright(err, fmt.Sprintf("attribute %s of %s", name, selector))
	}
	return v, nil
}

// IsVisible reports whether the first match is visible, false when absent
func (s *PlaywrightSession) IsVisible(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := s.page.Locator(selector).First().IsVisible()
	if err != nil {
		return false, wrapPlaywright(err, "visibility of "+selector)
	}
	return visible, nil
}

// Screenshot captures the page as PNG
func (s *PlaywrightSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(s.opts.FullPageScreenshots),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// Close closes the browser and stops the driver
func (s *PlaywrightSession) Close() error {
	errBrowser := s.browser.Close()
	errDriver := s.pw.Stop()
	return errors.Join(errBrowser, errDriver)
}

func (s *PlaywrightSession) locate(ctx context.Context, loc models.Locator) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case loc.CSS != "":
		return s.page.Locator(loc.CSS).First(), nil
	case loc.Placeholder != "":
		return s.page.GetByPlaceholder(loc.Placeholder).First(), nil
	case loc.Role != "" && loc.Name != "":
		return s.page.GetByRole(playwright.AriaRole(loc.Role), playwright.PageGetByRoleOptions{Name: loc.Name}).First(), nil
	case loc.Role != "":
		return s.page.GetByRole(playwright.AriaRole(loc.Role)).First(), nil
	default:
		return nil, fmt.Errorf("empty locator")
	}
}

func wrapPlaywright(err error, what string) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
