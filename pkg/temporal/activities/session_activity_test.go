package activities

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"dev/bravebird/ui-verify/pkg/browser"
	"dev/bravebird/ui-verify/pkg/browser/browsertest"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
	"dev/bravebird/ui-verify/pkg/temporal/workflows"
	"dev/bravebird/ui-verify/pkg/verify"
)

func newTestActivities(t *testing.T, fb *browsertest.Browser) (*Activities, *testsuite.TestActivityEnvironment, string) {
	t.Helper()
	dir := t.TempDir()

	acts := NewActivities(verify.Settings{OutputDir: dir, AssertTimeout: 50 * time.Millisecond}, nil)
	acts.NewLauncher = func(driver string) (browser.Launcher, error) {
		if driver == "firefox" {
			return nil, errors.New("unknown driver: firefox")
		}
		return &browsertest.Launcher{Browser: fb}, nil
	}

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(acts)
	return acts, env, dir
}

func startSession(t *testing.T, env *testsuite.TestActivityEnvironment, acts *Activities) string {
	t.Helper()
	val, err := env.ExecuteActivity(acts.StartSessionActivity, workflows.StartSessionInput{Headless: true})
	require.NoError(t, err)

	var info workflows.SessionInfo
	require.NoError(t, val.Get(&info))
	require.NotEmpty(t, info.SessionID)
	return info.SessionID
}

func appErrorType(t *testing.T, err error) string {
	t.Helper()
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr), "expected an application error, got %v", err)
	return appErr.Type()
}

func TestSessionLifecycle(t *testing.T) {
	fb := browsertest.FeedingApp("text-align: center; width: 100%;", false, "", scenario.FallbackMealText)
	acts, env, dir := newTestActivities(t, fb)
	sc := scenario.Centered()

	sessionID := startSession(t, env, acts)
	assert.Equal(t, 1, acts.Pool.Len())

	val, err := env.ExecuteActivity(acts.AuthenticateActivity, workflows.AuthenticateInput{SessionID: sessionID, Scenario: sc})
	require.NoError(t, err)
	var login workflows.LoginOutcome
	require.NoError(t, val.Get(&login))
	assert.False(t, login.Assumed)

	val, err = env.ExecuteActivity(acts.ObservePageActivity, workflows.ObserveInput{SessionID: sessionID, Scenario: sc, Page: sc.Pages[0]})
	require.NoError(t, err)
	var page models.PageResult
	require.NoError(t, val.Get(&page))
	assert.Equal(t, "Feeding & Nutrition", page.Name)
	assert.Empty(t, page.Warnings)
	assert.Equal(t, filepath.Join(dir, "verification_centered.png"), page.ScreenshotPath)
	assert.NoError(t, verify.CheckScreenshotFile(page.ScreenshotPath))

	_, err = env.ExecuteActivity(acts.CloseSessionActivity, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, acts.Pool.Len())
	assert.True(t, fb.IsClosed())

	// Closing twice is a no-op
	_, err = env.ExecuteActivity(acts.CloseSessionActivity, sessionID)
	assert.NoError(t, err)
}

func TestActivityErrors(t *testing.T) {
	t.Run("login timeout", func(t *testing.T) {
		fb := browsertest.FeedingApp("", false, "", "")
		fb.RedirectTo = ""
		acts, env, _ := newTestActivities(t, fb)
		sessionID := startSession(t, env, acts)

		_, err := env.ExecuteActivity(acts.AuthenticateActivity, workflows.AuthenticateInput{SessionID: sessionID, Scenario: scenario.Centered()})
		require.Error(t, err)
		assert.Equal(t, "LoginTimeout", appErrorType(t, err))
	})

	t.Run("hard assertion", func(t *testing.T) {
		fb := browsertest.FeedingApp("text-align: center; width: 100%;", true, "", scenario.FallbackMealText)
		acts, env, _ := newTestActivities(t, fb)
		sessionID := startSession(t, env, acts)
		sc := scenario.Centered()

		_, err := env.ExecuteActivity(acts.ObservePageActivity, workflows.ObserveInput{SessionID: sessionID, Scenario: sc, Page: sc.Pages[0]})
		require.Error(t, err)
		assert.Equal(t, "AssertionFailed", appErrorType(t, err))
	})

	t.Run("unknown session", func(t *testing.T) {
		acts, env, _ := newTestActivities(t, browsertest.SmokeApp())

		_, err := env.ExecuteActivity(acts.AuthenticateActivity, workflows.AuthenticateInput{SessionID: "missing", Scenario: scenario.Smoke()})
		require.Error(t, err)
		assert.Equal(t, "SessionNotFound", appErrorType(t, err))
	})

	t.Run("unknown driver", func(t *testing.T) {
		acts, env, _ := newTestActivities(t, browsertest.SmokeApp())

		_, err := env.ExecuteActivity(acts.StartSessionActivity, workflows.StartSessionInput{Driver: "firefox"})
		require.Error(t, err)
		assert.Equal(t, "InvalidDriver", appErrorType(t, err))
		assert.Equal(t, 0, acts.Pool.Len())
	})
}

func TestSessionPool(t *testing.T) {
	pool := NewSessionPool()
	fb := browsertest.SmokeApp()
	s := verify.NewSession(fb, verify.Settings{}, nil, nil)

	id := pool.Add(s)
	got, err := pool.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = pool.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, pool.CloseAll())
	assert.Equal(t, 0, pool.Len())
	assert.True(t, fb.IsClosed())
}
