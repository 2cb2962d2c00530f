package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/models"
	"dev/bravebird/ui-verify/pkg/scenario"
	"dev/bravebird/ui-verify/pkg/temporal/workflows"
	"dev/bravebird/ui-verify/pkg/verify"
)

const defaultPollInterval = 500 * time.Millisecond

// Options configures the API handlers
type Options struct {
	ScreenshotDir string
	Driver        string
	Headless      bool
	Custom        []models.Scenario
	Overrides     scenario.Overrides
	PollInterval  time.Duration
	Logger        *slog.Logger
}

// Handlers contains API handlers
type Handlers struct {
	temporalClient client.Client
	opts           Options
	logger         *slog.Logger
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers
func NewHandlers(temporalClient client.Client, opts Options) *Handlers {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = config.DefaultServiceOutputDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		temporalClient: temporalClient,
		opts:           opts,
		logger:         logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router registers every route on a new router
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	apiRouter := router.PathPrefix("/api").Subrouter()

	// Scenarios
	apiRouter.HandleFunc("/scenarios", h.ListScenarios).Methods("GET")

	// Runs
	apiRouter.HandleFunc("/runs", h.StartRun).Methods("POST")
	apiRouter.HandleFunc("/runs/{id}", h.GetRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/cancel", h.CancelRun).Methods("POST")

	// WebSocket for real-time updates
	apiRouter.HandleFunc("/runs/{id}/stream", h.StreamRunUpdates).Methods("GET")

	// Screenshots
	apiRouter.HandleFunc("/runs/{id}/screenshots/{filename}", h.ServeScreenshot).Methods("GET")

	return router
}

// WorkflowID maps a run ID to its Temporal workflow ID
func WorkflowID(runID string) string {
	return "ui-verification-" + runID
}

// RunDir is the screenshot directory of one run. Screenshot names are fixed
// per scenario, so concurrent runs need separate directories.
func RunDir(screenshotDir, runID string) string {
	return filepath.Join(screenshotDir, runID)
}

// ==================== Scenario Handlers ====================

// ScenarioSummary describes a runnable scenario
type ScenarioSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	BaseURL     string   `json:"base_url"`
	Pages       []string `json:"pages"`
	Builtin     bool     `json:"builtin"`
}

// ListScenarios lists the built-in and custom scenarios
func (h *Handlers) ListScenarios(w http.ResponseWriter, r *http.Request) {
	summaries := make([]ScenarioSummary, 0, len(scenario.Names())+len(h.opts.Custom))

	for _, s := range h.opts.Custom {
		summaries = append(summaries, summarize(s, false))
	}
	for _, name := range scenario.Names() {
		s, _ := scenario.Builtin(name)
		summaries = append(summaries, summarize(s, true))
	}

	respondJSON(w, http.StatusOK, summaries)
}

func summarize(s models.Scenario, builtin bool) ScenarioSummary {
	pages := make([]string, len(s.Pages))
	for i, p := range s.Pages {
		pages[i] = p.Name
	}
	return ScenarioSummary{
		Name:        s.Name,
		Description: s.Description,
		BaseURL:     s.BaseURL,
		Pages:       pages,
		Builtin:     builtin,
	}
}

// ==================== Run Handlers ====================

// StartRun starts a verification workflow
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sc, err := scenario.Resolve(req.Scenario, h.opts.Custom)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	sc = h.opts.Overrides.Apply(sc)
	sc = scenario.Overrides{BaseURL: req.BaseURL}.Apply(sc)
	if err := scenario.Validate(sc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	headless := h.opts.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}
	driver := h.opts.Driver
	if req.Driver != "" {
		driver = req.Driver
	}

	runID := uuid.New().String()
	input := models.RunInput{
		RunID:     runID,
		Scenario:  sc,
		Headless:  headless,
		Driver:    driver,
		OutputDir: RunDir(h.opts.ScreenshotDir, runID),
	}

	workflowOptions := client.StartWorkflowOptions{
		ID:        WorkflowID(runID),
		TaskQueue: config.TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.VerificationWorkflow, input)
	if err != nil {
		h.logger.Error("Failed to start workflow", "runID", runID, "error", err)
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Verification run started", "runID", runID, "scenario", sc.Name, "workflowID", we.GetID())
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id":               runID,
		"scenario":             sc.Name,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               models.StatusRunning,
	})
}

// GetRun returns the current result of a run
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	result, err := h.queryProgress(r, runID)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to query run: "+err.Error(), http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// CancelRun cancels a running workflow
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if err := h.temporalClient.CancelWorkflow(r.Context(), WorkflowID(runID), ""); err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Verification run canceled", "runID", runID)
	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCanceled)})
}

// StreamRunUpdates streams run updates via WebSocket
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	var lastStatus models.RunStatus
	lastPageCount := -1

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := h.queryProgress(r, runID)
			if err != nil {
				h.logger.Debug("Progress query failed", "runID", runID, "error", err)
				continue
			}

			// Send update if status or pages changed
			if result.Status == lastStatus && len(result.Pages) == lastPageCount {
				continue
			}
			msg := models.WSMessage{Type: "run_update", Payload: result}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
			lastStatus = result.Status
			lastPageCount = len(result.Pages)

			if result.Status.Done() {
				return
			}
		}
	}
}

func (h *Handlers) queryProgress(r *http.Request, runID string) (models.RunResult, error) {
	var result models.RunResult
	resp, err := h.temporalClient.QueryWorkflow(r.Context(), WorkflowID(runID), "", workflows.ProgressQuery)
	if err != nil {
		return result, err
	}
	err = resp.Get(&result)
	return result, err
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a PNG screenshot of a run
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	runID := vars["id"]
	filename := vars["filename"]

	// Run IDs are UUIDs and screenshots are PNG files directly in the run directory
	if id, err := uuid.Parse(runID); err != nil || id.String() != runID {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}
	if filepath.Base(filename) != filename || !strings.EqualFold(filepath.Ext(filename), ".png") {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	filePath := filepath.Join(RunDir(h.opts.ScreenshotDir, runID), filename)
	if err := verify.CheckScreenshotFile(filePath); err != nil {
		h.logger.Debug("Refusing to serve screenshot", "path", filePath, "error", err)
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
