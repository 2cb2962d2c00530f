package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
)

// ErrSessionLost means the worker holding the browser stopped heartbeating
var ErrSessionLost = errors.New("browser worker lost the session")

// ProgressQuery returns the current models.RunResult of a running workflow
const ProgressQuery = "getProgress"

// Activity names registered by the worker
const (
	StartSessionActivity = "StartSessionActivity"
	AuthenticateActivity = "AuthenticateActivity"
	ObservePageActivity  = "ObservePageActivity"
	CloseSessionActivity = "CloseSessionActivity"
)

// DefaultActivityTimeout bounds a single activity (launch, login or one page)
const DefaultActivityTimeout = 5 * time.Minute

// Session timeouts: waiting for a worker with a free session slot, and the
// lifetime of a whole run on that worker.
const (
	SessionCreationTimeout  = time.Minute
	SessionExecutionTimeout = time.Hour
)

// VerificationWorkflow runs one scenario: start a browser session, log in,
// observe every page in order, close the session.
func VerificationWorkflow(ctx workflow.Context, input models.RunInput) (models.RunResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting verification workflow", "runID", input.RunID, "scenario", input.Scenario.Name)

	result := models.RunResult{
		RunID:     input.RunID,
		Scenario:  input.Scenario.Name,
		Status:    models.StatusRunning,
		Pages:     make([]models.PageResult, 0, len(input.Scenario.Pages)),
		StartedAt: workflow.Now(ctx),
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (models.RunResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	// A failed probe is not retried: the page would be observed twice
	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: DefaultActivityTimeout,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// The browser lives in one worker process: every activity of the run
	// goes through a Temporal session pinned to that worker.
	sessionCtx, err := workflow.CreateSession(ctx, &workflow.SessionOptions{
		CreationTimeout:  SessionCreationTimeout,
		ExecutionTimeout: SessionExecutionTimeout,
		HeartbeatTimeout: time.Minute,
	})
	if err != nil {
		finish(ctx, &result, err)
		return result, nil
	}
	defer workflow.CompleteSession(sessionCtx)

	var session SessionInfo
	err = workflow.ExecuteActivity(sessionCtx, StartSessionActivity, StartSessionInput{
		Headless:  input.Headless,
		Driver:    input.Driver,
		OutputDir: input.OutputDir,
	}).Get(sessionCtx, &session)
	if err != nil {
		finish(ctx, &result, sessionError(sessionCtx, err))
		return result, nil
	}

	defer func() {
		// Closing must run even when the workflow was canceled
		closeCtx, _ := workflow.NewDisconnectedContext(sessionCtx)
		if err := workflow.ExecuteActivity(closeCtx, CloseSessionActivity, session.SessionID).Get(closeCtx, nil); err != nil {
			logger.Warn("Failed to close browser session", "sessionID", session.SessionID, "error", err)
		}
	}()

	var login LoginOutcome
	err = workflow.ExecuteActivity(sessionCtx, AuthenticateActivity, AuthenticateInput{
		SessionID: session.SessionID,
		Scenario:  input.Scenario,
	}).Get(sessionCtx, &login)
	if err != nil {
		finish(ctx, &result, sessionError(sessionCtx, err))
		return result, nil
	}
	result.LoggedIn = !login.Assumed
	result.LoginAssumed = login.Assumed

	for _, page := range input.Scenario.Pages {
		logger.Info("Observing page", "page", page.Name, "path", page.Path)

		var pageResult models.PageResult
		err := workflow.ExecuteActivity(sessionCtx, ObservePageActivity, ObserveInput{
			SessionID: session.SessionID,
			Scenario:  input.Scenario,
			Page:      page,
		}).Get(sessionCtx, &pageResult)
		if err != nil {
			result.AddPage(models.PageResult{
				Name:         page.Name,
				URL:          scenario.URL(input.Scenario, page.Path),
				Observations: []models.Observation{},
			})
			finish(ctx, &result, sessionError(sessionCtx, err))
			return result, nil
		}
		result.AddPage(pageResult)
	}

	finish(ctx, &result, nil)
	logger.Info("Workflow completed", "status", result.Status, "warnings", len(result.Warnings), "duration", result.TotalDuration)
	return result, nil
}

// sessionError replaces the cancellation caused by a lost session worker
// with ErrSessionLost so the run is not reported as canceled
func sessionError(sessionCtx workflow.Context, err error) error {
	if info := workflow.GetSessionInfo(sessionCtx); info != nil && info.SessionState == workflow.SessionStateFailed {
		return ErrSessionLost
	}
	return err
}

// finish sets the duration and terminal status of result
func finish(ctx workflow.Context, result *models.RunResult, err error) {
	result.TotalDuration = workflow.Now(ctx).Sub(result.StartedAt).Milliseconds()

	if err != nil && temporal.IsCanceledError(err) {
		result.Status = models.StatusCanceled
		result.ErrorMessage = "run canceled"
		return
	}
	result.Finish(unwrapActivityError(err))
}

// unwrapActivityError drops the activity envelope so the stored message is
// the one the activity returned
func unwrapActivityError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr
	}
	return err
}

// SessionInfo identifies a browser session held by a worker
type SessionInfo struct {
	SessionID string `json:"session_id"`
}

// StartSessionInput is the input for starting a browser session
type StartSessionInput struct {
	Headless  bool   `json:"headless"`
	Driver    string `json:"driver,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

// AuthenticateInput is the input for the login step
type AuthenticateInput struct {
	SessionID string          `json:"session_id"`
	Scenario  models.Scenario `json:"scenario"`
}

// LoginOutcome reports how the login step ended
type LoginOutcome struct {
	Assumed bool `json:"assumed"`
}

// ObserveInput is the input for observing one page
type ObserveInput struct {
	SessionID string            `json:"session_id"`
	Scenario  models.Scenario   `json:"scenario"`
	Page      models.PageTarget `json:"page"`
}
