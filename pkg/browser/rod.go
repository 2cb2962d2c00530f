package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"dev/bravebird/ui-verify/pkg/models"
)

const (
	// requestIdleWindow is how long the page must issue no requests to count as idle
	requestIdleWindow = 500 * time.Millisecond
	urlPollInterval   = 100 * time.Millisecond
)

// RodLauncher launches Chrome through go-rod
type RodLauncher struct{}

// NewRodLauncher creates a rod launcher
func NewRodLauncher() *RodLauncher {
	return &RodLauncher{}
}

// Launch starts a browser and opens a blank page. The browser is not bound
// to ctx: it lives until Close so a session can span several activities.
func (l *RodLauncher) Launch(ctx context.Context, opts Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ln := launcher.New()

	// Use CHROME_BIN if set (Docker environment)
	if opts.ChromeBin != "" {
		ln = ln.Bin(opts.ChromeBin)
	} else if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		ln = ln.Bin(chromeBin)
	}

	ln = ln.Headless(opts.Headless)

	// Additional Chrome flags for Docker compatibility
	ln = ln.Set("no-sandbox")
	ln = ln.Set("disable-gpu")
	ln = ln.Set("disable-dev-shm-usage")

	url, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultOptions().ActionTimeout
	}

	return &RodSession{browser: browser, page: page, opts: opts}, nil
}

// RodSession is a Session backed by a rod page
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
}

// bounded returns the page bound to ctx with the action timeout applied
func (s *RodSession) bounded(ctx context.Context) *rod.Page {
	return s.page.Context(ctx).Timeout(s.opts.ActionTimeout)
}

// Navigate opens url and waits for the load event
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.bounded(ctx)
	if err := p.Navigate(url); err != nil {
		return wrapTimeout(err, "navigate to "+url)
	}
	if err := p.WaitLoad(); err != nil {
		return wrapTimeout(err, "load "+url)
	}
	return nil
}

// URL returns the current page URL
func (s *RodSession) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

// WaitURL polls the page URL until it matches the glob pattern
func (s *RodSession) WaitURL(ctx context.Context, pattern string, timeout time.Duration) error {
	re, err := GlobToRegexp(pattern)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(urlPollInterval)
	defer ticker.Stop()

	last := ""
	for {
		if url, err := s.URL(ctx); err == nil {
			last = url
			if re.MatchString(url) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: url %q never matched %q", ErrTimeout, last, pattern)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitNetworkIdle waits for the load event and then for a window without
// network requests
func (s *RodSession) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(tctx)
	if err := p.WaitLoad(); err != nil {
		return wrapTimeout(err, "network idle")
	}
	p.WaitRequestIdle(requestIdleWindow, nil, nil, nil)()

	if err := ctx.Err(); err != nil {
		return err
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: network idle after %s", ErrTimeout, timeout)
	}
	return nil
}

// WaitVisible waits until the located element exists and is visible
func (s *RodSession) WaitVisible(ctx context.Context, loc models.Locator, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := s.find(s.page.Context(tctx), loc)
	if err != nil {
		return wrapTimeout(err, "wait visible "+loc.String())
	}
	if err := el.WaitVisible(); err != nil {
		return wrapTimeout(err, "wait visible "+loc.String())
	}
	return nil
}

// Fill replaces the value of an input
func (s *RodSession) Fill(ctx context.Context, loc models.Locator, value string) error {
	el, err := s.find(s.bounded(ctx), loc)
	if err != nil {
		return wrapTimeout(err, "element not found: "+loc.String())
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select %s: %w", loc, err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to fill %s: %w", loc, err)
	}
	return nil
}

// Click clicks the located element with the left button
func (s *RodSession) Click(ctx context.Context, loc models.Locator) error {
	el, err := s.find(s.bounded(ctx), loc)
	if err != nil {
		return wrapTimeout(err, "element not found: "+loc.String())
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("failed to click %s: %w", loc, err)
	}
	return nil
}

// TextContents returns textContent of every match without waiting
func (s *RodSession) TextContents(ctx context.Context, selector string) ([]string, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}

	texts := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Property("textContent")
		if err != nil {
			return nil, fmt.Errorf("failed to read text of %s: %w", selector, err)
		}
		texts = append(texts, v.Str())
	}
	return texts, nil
}

// Count returns the number of matches without waiting
func (s *RodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return len(els), nil
}

// InnerText returns the rendered text of the first match
func (s *RodSession) InnerText(ctx context.Context, selector string) (string, error) {
	el, err := s.bounded(ctx).Element(selector)
	if err != nil {
		return "", wrapTimeout(err, "element not found: "+selector)
	}
	return el.Text()
}

// Attribute returns an attribute of the first match, empty when absent
func (s *RodSession) Attribute(ctx context.Context, selector, name string) (string, error) {
	el, err := s.bounded(ctx).Element(selector)
	if err != nil {
		return "", wrapTimeout(err, "element not found: "+selector)
	}
	attr, err := el.Attribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s of %s: %w", name, selector, err)
	}
	if attr == nil {
		return "", nil
	}
	return *attr, nil
}

// IsVisible reports whether the first match exists and is visible
func (s *RodSession) IsVisible(ctx context.Context, selector string) (bool, error) {
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	if !has {
		return false, nil
	}
	return el.Visible()
}

// Screenshot captures the page as PNG
func (s *RodSession) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(s.opts.FullPageScreenshots, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

// Close closes the browser
func (s *RodSession) Close() error {
	return s.browser.Close()
}

// find resolves a locator on p, waiting until the element appears
func (s *RodSession) find(p *rod.Page, loc models.Locator) (*rod.Element, error) {
	switch {
	case loc.CSS != "":
		return p.Element(loc.CSS)
	case loc.Placeholder != "":
		return p.Element(placeholderSelector(loc.Placeholder))
	case loc.Role != "" && loc.Name != "":
		return p.ElementR(roleSelector(loc.Role), `^\s*`+regexp.QuoteMeta(loc.Name)+`\s*$`)
	case loc.Role != "":
		return p.Element(roleSelector(loc.Role))
	default:
		return nil, fmt.Errorf("empty locator")
	}
}

func wrapTimeout(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrTimeout, what)
	}
	return fmt.Errorf("%s: %w", what, err)
}
