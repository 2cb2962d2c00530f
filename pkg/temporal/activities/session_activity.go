package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/temporal/workflows"
	"dev/bravebird/ui-verify/pkg/verify"
)

// ErrSessionNotFound is returned for an unknown or already closed session
var ErrSessionNotFound = errors.New("browser session not found")

// SessionPool holds the browser sessions of running workflows. A session
// lives on the worker that started it.
type SessionPool struct {
	sessions map[string]*pooledSession
	mu       sync.RWMutex
}

type pooledSession struct {
	session   *verify.Session
	createdAt time.Time
}

// NewSessionPool creates an empty pool
func NewSessionPool() *SessionPool {
	return &SessionPool{sessions: make(map[string]*pooledSession)}
}

// Add stores s and returns its new ID
func (p *SessionPool) Add(s *verify.Session) string {
	id := uuid.New().String()
	p.mu.Lock()
	p.sessions[id] = &pooledSession{session: s, createdAt: time.Now()}
	p.mu.Unlock()
	return id
}

// Get returns the session with id
func (p *SessionPool) Get(id string) (*verify.Session, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ps, ok := p.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ps.session, nil
}

// Remove deletes and returns the session with id
func (p *SessionPool) Remove(id string) (*verify.Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ps, ok := p.sessions[id]
	if !ok {
		return nil, false
	}
	delete(p.sessions, id)
	return ps.session, true
}

// Len returns the number of open sessions
func (p *SessionPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// CloseAll closes every session, used on worker shutdown
func (p *SessionPool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for id, ps := range p.sessions {
		if err := ps.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
		delete(p.sessions, id)
	}
	return errors.Join(errs...)
}

// Activities holds activity implementations
type Activities struct {
	Settings    verify.Settings
	Pool        *SessionPool
	Logger      *slog.Logger
	NewLauncher func(driver string) (browser.Launcher, error)
}

// NewActivities creates new activities
func NewActivities(settings verify.Settings, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		Settings:    settings,
		Pool:        NewSessionPool(),
		Logger:      logger,
		NewLauncher: browser.NewLauncher,
	}
}

// StartSessionActivity launches a browser and stores it in the pool
func (a *Activities) StartSessionActivity(ctx context.Context, input workflows.StartSessionInput) (workflows.SessionInfo, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Initializing browser session", "headless", input.Headless, "driver", input.Driver)

	launcher, err := a.NewLauncher(input.Driver)
	if err != nil {
		return workflows.SessionInfo{}, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidDriver", err)
	}

	settings := a.Settings
	settings.Browser.Headless = input.Headless
	if input.OutputDir != "" {
		settings.OutputDir = input.OutputDir
	}

	runner := verify.NewRunner(launcher, settings, nil, a.Logger)
	session, err := runner.Start(ctx)
	if err != nil {
		return workflows.SessionInfo{}, fmt.Errorf("failed to launch browser: %w", err)
	}

	sessionID := a.Pool.Add(session)
	logger.Info("Browser session created", "sessionID", sessionID)

	return workflows.SessionInfo{SessionID: sessionID}, nil
}

// AuthenticateActivity runs the login step of a scenario
func (a *Activities) AuthenticateActivity(ctx context.Context, input workflows.AuthenticateInput) (workflows.LoginOutcome, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Logging in", "scenario", input.Scenario.Name, "sessionID", input.SessionID)

	session, err := a.Pool.Get(input.SessionID)
	if err != nil {
		return workflows.LoginOutcome{}, classify(err)
	}

	assumed, err := session.WithReporter(newReporter(ctx)).Authenticate(ctx, input.Scenario)
	if err != nil {
		return workflows.LoginOutcome{}, classify(err)
	}
	return workflows.LoginOutcome{Assumed: assumed}, nil
}

// ObservePageActivity visits one page, reads its probes and saves its screenshot
func (a *Activities) ObservePageActivity(ctx context.Context, input workflows.ObserveInput) (models.PageResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Observing page", "page", input.Page.Name, "sessionID", input.SessionID)

	session, err := a.Pool.Get(input.SessionID)
	if err != nil {
		return models.PageResult{}, classify(err)
	}

	result, err := session.WithReporter(newReporter(ctx)).Observe(ctx, input.Scenario, input.Page)
	if err != nil {
		return result, classify(err)
	}

	logger.Info("Page observed", "page", input.Page.Name, "warnings", len(result.Warnings), "duration", result.Duration)
	return result, nil
}

// CloseSessionActivity closes a browser session
func (a *Activities) CloseSessionActivity(ctx context.Context, sessionID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Closing browser session", "sessionID", sessionID)

	session, ok := a.Pool.Remove(sessionID)
	if !ok {
		return nil // Already closed
	}
	return session.Close()
}

// classify tags verification errors so the workflow history shows what
// kind of failure ended the run
func classify(err error) error {
	var errType string
	switch {
	case errors.Is(err, verify.ErrLoginTimeout):
		errType = "LoginTimeout"
	case errors.Is(err, verify.ErrAssertion):
		errType = "AssertionFailed"
	case errors.Is(err, verify.ErrInvalidScreenshot):
		errType = "InvalidScreenshot"
	case errors.Is(err, ErrSessionNotFound):
		errType = "SessionNotFound"
	case errors.Is(err, context.Canceled):
		return err
	default:
		errType = "BrowserError"
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), errType, err)
}

// activityReporter sends progress lines to the activity logger and heartbeat
type activityReporter struct {
	ctx    context.Context
	logger log.Logger
}

func newReporter(ctx context.Context) verify.Reporter {
	return &activityReporter{ctx: ctx, logger: activity.GetLogger(ctx)}
}

func (r *activityReporter) Step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Info(msg)
	activity.RecordHeartbeat(r.ctx, msg)
}

func (r *activityReporter) Value(label string, value interface{}) {
	r.logger.Info("Observed value", "label", label, "value", value)
}

func (r *activityReporter) Warning(format string, args ...interface{}) {
	r.logger.Warn(fmt.Sprintf(format, args...))
}
