// Package browser abstracts the browser automation library behind a small
// session API: navigate, wait, locate, read and screenshot. Two drivers
// implement it, go-rod (default) and playwright-go.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/models"
)

// ErrTimeout is returned by the bounded waits when their deadline expires.
var ErrTimeout = errors.New("timed out")

// Options configures a browser launch
type Options struct {
	Headless            bool
	ChromeBin           string
	ActionTimeout       time.Duration
	ViewportWidth       int
	ViewportHeight      int
	FullPageScreenshots bool
}

// DefaultOptions returns headless options with a 1280x720 viewport
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		ActionTimeout:  config.DefaultActionTimeout,
		ViewportWidth:  1280,
		ViewportHeight: 720,
	}
}

// Launcher starts a browser and opens a single page
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Session, error)
}

// Session is one browser with one open page. Every call blocks until it
// completes or its timeout expires.
type Session interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	WaitURL(ctx context.Context, pattern string, timeout time.Duration) error
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error
	WaitVisible(ctx context.Context, loc models.Locator, timeout time.Duration) error
	Fill(ctx context.Context, loc models.Locator, value string) error
	Click(ctx context.Context, loc models.Locator) error
	TextContents(ctx context.Context, selector string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	InnerText(ctx context.Context, selector string) (string, error)
	Attribute(ctx context.Context, selector, name string) (string, error)
	IsVisible(ctx context.Context, selector string) (bool, error)
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// NewLauncher returns the launcher for the named driver
func NewLauncher(driver string) (Launcher, error) {
	switch driver {
	case "", config.DriverRod:
		return NewRodLauncher(), nil
	case config.DriverPlaywright:
		return NewPlaywrightLauncher(), nil
	default:
		return nil, fmt.Errorf("%w: %s", config.ErrUnknownDriver, driver)
	}
}

// roleSelector maps an ARIA role to the CSS that covers its implicit and
// explicit forms. Used by drivers without native role queries.
func roleSelector(role string) string {
	switch role {
	case "button":
		return `button, [role="button"], input[type="submit"], input[type="button"]`
	case "link":
		return `a[href], [role="link"]`
	case "textbox":
		return `input:not([type]), input[type="text"], input[type="email"], input[type="password"], textarea, [role="textbox"]`
	case "heading":
		return `h1, h2, h3, h4, h5, h6, [role="heading"]`
	default:
		return fmt.Sprintf(`[role=%q]`, role)
	}
}

// placeholderSelector builds the attribute selector for a placeholder
func placeholderSelector(placeholder string) string {
	return fmt.Sprintf(`[placeholder=%q]`, placeholder)
}
