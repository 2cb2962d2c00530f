package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"dev/bravebird/ui-verify/pkg/browser/browsertest"
	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
	"dev/bravebird/ui-verify/pkg/temporal/workflows"
)

// encodedValue stands in for a Temporal query response
type encodedValue struct {
	value interface{}
}

func (e encodedValue) HasValue() bool { return e.value != nil }

func (e encodedValue) Get(ptr interface{}) error {
	data, err := json.Marshal(e.value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, ptr)
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *mocks.Client) {
	t.Helper()
	tc := &mocks.Client{}
	t.Cleanup(func() { tc.AssertExpectations(t) })

	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = t.TempDir()
	}
	srv := httptest.NewServer(NewHandlers(tc, opts).Router())
	t.Cleanup(srv.Close)
	return srv, tc
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestListScenarios(t *testing.T) {
	custom := scenario.Smoke()
	custom.Name = "staging"
	srv, _ := newTestServer(t, Options{Custom: []models.Scenario{custom}})

	resp, err := http.Get(srv.URL + "/api/scenarios")
	require.NoError(t, err)
	defer resp.Body.Close()

	var summaries []ScenarioSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 4)

	assert.Equal(t, "staging", summaries[0].Name)
	assert.False(t, summaries[0].Builtin)
	assert.Equal(t, []string{"centered", "fallback", "smoke"}, []string{summaries[1].Name, summaries[2].Name, summaries[3].Name})
	assert.Equal(t, []string{"Dashboard", "Management", "Feeding", "Reports"}, summaries[3].Pages)
}

func TestStartRun(t *testing.T) {
	screenshotDir := t.TempDir()
	srv, tc := newTestServer(t, Options{
		ScreenshotDir: screenshotDir,
		Driver:        config.DriverRod,
		Headless:      true,
		Overrides:     scenario.Overrides{Password: "from-env"},
	})

	var outputDir string
	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("ui-verification-x")
	run.On("GetRunID").Return("temporal-run")

	tc.On("ExecuteWorkflow",
		mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.TaskQueue == config.TaskQueue && strings.HasPrefix(o.ID, "ui-verification-")
		}),
		mock.Anything,
		mock.MatchedBy(func(in models.RunInput) bool {
			return in.Scenario.Name == "centered" &&
				in.Scenario.BaseURL == "http://127.0.0.1:9000" &&
				in.Scenario.Login.Credentials.Password == "from-env" &&
				!in.Headless &&
				in.Driver == config.DriverRod &&
				in.RunID != "" &&
				in.OutputDir == filepath.Join(screenshotDir, in.RunID)
		}),
	).Run(func(args mock.Arguments) {
		outputDir = args.Get(3).(models.RunInput).OutputDir
	}).Return(run, nil).Once()

	body := `{"scenario":"centered","base_url":"http://127.0.0.1:9000","headless":false}`
	resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "centered", out["scenario"])
	assert.Equal(t, "running", out["status"])
	assert.Equal(t, "temporal-run", out["temporal_run_id"])
	require.NotEmpty(t, out["run_id"])
	assert.Equal(t, filepath.Join(screenshotDir, out["run_id"].(string)), outputDir)
}

func TestStartRunSeparatesScreenshotDirs(t *testing.T) {
	screenshotDir := t.TempDir()
	srv, tc := newTestServer(t, Options{ScreenshotDir: screenshotDir})

	run := &mocks.WorkflowRun{}
	run.On("GetID").Return("ui-verification-x")
	run.On("GetRunID").Return("temporal-run")

	var dirs []string
	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			dirs = append(dirs, args.Get(3).(models.RunInput).OutputDir)
		}).Return(run, nil).Twice()

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(`{"scenario":"smoke"}`))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
	}

	require.Len(t, dirs, 2)
	assert.NotEqual(t, dirs[0], dirs[1])
	for _, d := range dirs {
		assert.Equal(t, screenshotDir, filepath.Dir(d))
	}
}

func TestDefaultScreenshotDir(t *testing.T) {
	h := NewHandlers(&mocks.Client{}, Options{})
	assert.Equal(t, config.DefaultServiceOutputDir, h.opts.ScreenshotDir)
}

func TestStartRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		startErr error
		wantCode int
	}{
		{"bad json", `{`, nil, http.StatusBadRequest},
		{"unknown scenario", `{"scenario":"nope"}`, nil, http.StatusNotFound},
		{"bad base url", `{"scenario":"smoke","base_url":"localhost"}`, nil, http.StatusBadRequest},
		{"temporal down", `{"scenario":"smoke"}`, errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, tc := newTestServer(t, Options{})
			if tt.startErr != nil {
				tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, tt.startErr).Once()
			}

			resp, err := http.Post(srv.URL+"/api/runs", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestGetRun(t *testing.T) {
	srv, tc := newTestServer(t, Options{})

	tc.On("QueryWorkflow", mock.Anything, WorkflowID("r1"), "", workflows.ProgressQuery).
		Return(encodedValue{models.RunResult{RunID: "r1", Scenario: "smoke", Status: models.StatusWarning}}, nil).Once()
	tc.On("QueryWorkflow", mock.Anything, WorkflowID("gone"), "", workflows.ProgressQuery).
		Return(nil, serviceerror.NewNotFound("workflow not found")).Once()

	resp, err := http.Get(srv.URL + "/api/runs/r1")
	require.NoError(t, err)
	var result models.RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	assert.Equal(t, models.StatusWarning, result.Status)

	resp, err = http.Get(srv.URL + "/api/runs/gone")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelRun(t *testing.T) {
	srv, tc := newTestServer(t, Options{})
	tc.On("CancelWorkflow", mock.Anything, WorkflowID("r1"), "").Return(nil).Once()

	resp, err := http.Post(srv.URL+"/api/runs/r1/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "canceled", out["status"])
}

func TestStreamRunUpdates(t *testing.T) {
	srv, tc := newTestServer(t, Options{PollInterval: 10 * time.Millisecond})

	running := models.RunResult{RunID: "r1", Status: models.StatusRunning}
	done := models.RunResult{RunID: "r1", Status: models.StatusSuccess, Pages: []models.PageResult{{Name: "Dashboard"}}}
	tc.On("QueryWorkflow", mock.Anything, WorkflowID("r1"), "", workflows.ProgressQuery).
		Return(encodedValue{running}, nil).Once()
	tc.On("QueryWorkflow", mock.Anything, WorkflowID("r1"), "", workflows.ProgressQuery).
		Return(encodedValue{done}, nil)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/runs/r1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var statuses []models.RunStatus
	for {
		var msg struct {
			Type    string           `json:"type"`
			Payload models.RunResult `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		assert.Equal(t, "run_update", msg.Type)
		statuses = append(statuses, msg.Payload.Status)
	}

	assert.Equal(t, []models.RunStatus{models.StatusRunning, models.StatusSuccess}, statuses)
}

func TestServeScreenshot(t *testing.T) {
	dir := t.TempDir()
	runID := uuid.New().String()
	runDir := filepath.Join(dir, runID)
	require.NoError(t, os.MkdirAll(runDir, 0755))

	png := browsertest.PNG(2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "verification_dashboard.png"), png, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "handlers.go"), []byte("package api\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "fake.png"), []byte("not an image"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "root.png"), png, 0644))

	srv, _ := newTestServer(t, Options{ScreenshotDir: dir})

	resp, err := http.Get(srv.URL + "/api/runs/" + runID + "/screenshots/verification_dashboard.png")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, buf.Bytes())

	tests := []struct {
		name string
		path string
	}{
		{"missing file", "/api/runs/" + runID + "/screenshots/missing.png"},
		{"not a png name", "/api/runs/" + runID + "/screenshots/handlers.go"},
		{"png name without png content", "/api/runs/" + runID + "/screenshots/fake.png"},
		{"unknown run", "/api/runs/" + uuid.New().String() + "/screenshots/verification_dashboard.png"},
		{"run id not a uuid", "/api/runs/latest/screenshots/verification_dashboard.png"},
		{"old flat route", "/api/screenshots/root.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		})
	}
}
