// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/models"
)

// Element is a fake DOM node. Texts backs TextContents and Count.
type Element struct {
	Texts   []string
	Text    string
	Attrs   map[string]string
	Visible bool
}

// Browser is a scripted browser.Session. Elements are keyed by selector,
// login locators by their String form. Clicking navigates to RedirectTo
// when it is set.
type Browser struct {
	mu         sync.Mutex
	CurrentURL string
	RedirectTo string
	Elements   map[string]Element
	Shot       []byte
	NavErr     error
	Calls      []string
	Closed     bool
}

var _ browser.Session = (*Browser)(nil)

func (b *Browser) record(format string, args ...interface{}) {
	b.Calls = append(b.Calls, fmt.Sprintf(format, args...))
}

func (b *Browser) element(key string) Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Elements[key]
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("navigate %s", url)
	if b.NavErr != nil {
		return b.NavErr
	}
	b.CurrentURL = url
	return nil
}

func (b *Browser) URL(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.CurrentURL, nil
}

func (b *Browser) WaitURL(ctx context.Context, pattern string, timeout time.Duration) error {
	url, _ := b.URL(ctx)
	if browser.MatchURL(pattern, url) {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", pattern, browser.ErrTimeout)
}

func (b *Browser) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("idle")
	return nil
}

func (b *Browser) WaitVisible(ctx context.Context, loc models.Locator, timeout time.Duration) error {
	if b.element(loc.String()).Visible {
		return nil
	}
	return fmt.Errorf("waiting for %s: %w", loc, browser.ErrTimeout)
}

func (b *Browser) Fill(ctx context.Context, loc models.Locator, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("fill %s", loc)
	return nil
}

func (b *Browser) Click(ctx context.Context, loc models.Locator) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("click %s", loc)
	if b.RedirectTo != "" {
		b.CurrentURL = b.RedirectTo
	}
	return nil
}

func (b *Browser) TextContents(ctx context.Context, selector string) ([]string, error) {
	return b.element(selector).Texts, nil
}

func (b *Browser) Count(ctx context.Context, selector string) (int, error) {
	return len(b.element(selector).Texts), nil
}

func (b *Browser) InnerText(ctx context.Context, selector string) (string, error) {
	return b.element(selector).Text, nil
}

func (b *Browser) Attribute(ctx context.Context, selector, name string) (string, error) {
	return b.element(selector).Attrs[name], nil
}

func (b *Browser) IsVisible(ctx context.Context, selector string) (bool, error) {
	return b.element(selector).Visible, nil
}

func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Shot, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Closed = true
	return nil
}

// HasCall reports whether call was recorded
func (b *Browser) HasCall(call string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.Calls {
		if c == call {
			return true
		}
	}
	return false
}

// IsClosed reports whether Close was called
func (b *Browser) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Closed
}

// Launcher hands out Browser, or fails with Err
type Launcher struct {
	Browser *Browser
	Err     error
}

func (l *Launcher) Launch(ctx context.Context, opts browser.Options) (browser.Session, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Browser, nil
}

// PNG encodes a blank w x h image
func PNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SmokeApp fakes the four-page admin app of the smoke scenario
func SmokeApp() *Browser {
	return &Browser{
		RedirectTo: "http://localhost:5173/dashboard",
		Shot:       PNG(4, 3),
		Elements: map[string]Element{
			"input[type='email']":  {Visible: true},
			".stat-value":          {Texts: []string{"12", "3", "98%"}},
			".data-table tbody tr": {Texts: []string{"a", "b", "c"}},
		},
	}
}

// FeedingApp fakes the feeding page checked by the centered and fallback
// scenarios
func FeedingApp(style string, imageVisible bool, meta, mealName string) *Browser {
	return &Browser{
		RedirectTo: "http://localhost:5174/dashboard",
		Shot:       PNG(4, 3),
		Elements: map[string]Element{
			".meal-right":  {Visible: imageVisible},
			".meal-left":   {Visible: true, Attrs: map[string]string{"style": style}},
			"h3.meal-name": {Visible: true, Text: mealName},
			".meal-meta":   {Visible: true, Text: meta},
		},
	}
}
