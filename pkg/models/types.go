package models

import (
	"time"
)

// ==================== Locator Types ====================

// Locator addresses a single element on a page. Exactly one addressing mode
// is used, in priority order: CSS, Placeholder, Role (+ Name).
type Locator struct {
	CSS         string `json:"css,omitempty" yaml:"css,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Role        string `json:"role,omitempty" yaml:"role,omitempty"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"` // Accessible name used with Role
}

// IsZero reports whether no addressing mode is set
func (l Locator) IsZero() bool {
	return l.CSS == "" && l.Placeholder == "" && l.Role == ""
}

// String returns a human readable form used in logs and errors
func (l Locator) String() string {
	switch {
	case l.CSS != "":
		return l.CSS
	case l.Placeholder != "":
		return "placeholder=" + l.Placeholder
	case l.Role != "" && l.Name != "":
		return "role=" + l.Role + "[name=" + l.Name + "]"
	case l.Role != "":
		return "role=" + l.Role
	}
	return "<empty>"
}

// ==================== Probe Types ====================

// ProbeKind is the kind of value a probe extracts from a page
type ProbeKind string

const (
	ProbeTexts     ProbeKind = "texts"     // Text contents of every match
	ProbeCount     ProbeKind = "count"     // Number of matches
	ProbeText      ProbeKind = "text"      // Inner text of the first match
	ProbeAttribute ProbeKind = "attribute" // Attribute of the first match
	ProbeVisible   ProbeKind = "visible"   // Hard assertion: element visible
	ProbeHidden    ProbeKind = "hidden"    // Hard assertion: element absent or hidden
)

// Valid reports whether k is a known probe kind
func (k ProbeKind) Valid() bool {
	switch k {
	case ProbeTexts, ProbeCount, ProbeText, ProbeAttribute, ProbeVisible, ProbeHidden:
		return true
	}
	return false
}

// Probe describes one value to read from a rendered page
type Probe struct {
	Label       string    `json:"label" yaml:"label"`
	Kind        ProbeKind `json:"kind" yaml:"kind"`
	Selector    string    `json:"selector" yaml:"selector"`
	Attribute   string    `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Contains    []string  `json:"contains,omitempty" yaml:"contains,omitempty"` // Expected substrings, mismatches are warnings
	WaitVisible bool      `json:"wait_visible,omitempty" yaml:"wait_visible,omitempty"`
}

// PageTarget is a page to visit and the probes to run on it
type PageTarget struct {
	Name       string  `json:"name" yaml:"name"`
	Path       string  `json:"path" yaml:"path"`
	Screenshot string  `json:"screenshot" yaml:"screenshot"`
	Settle     *bool   `json:"settle,omitempty" yaml:"settle,omitempty"` // Defaults to true
	Probes     []Probe `json:"probes,omitempty" yaml:"probes,omitempty"`
}

// ShouldSettle reports whether the page waits for network idle plus the fixed delay
func (p PageTarget) ShouldSettle() bool {
	return p.Settle == nil || *p.Settle
}

// ==================== Login Types ====================

// LoginFailurePolicy decides what happens when the post-login redirect never arrives
type LoginFailurePolicy string

const (
	LoginFail           LoginFailurePolicy = "fail"
	LoginAssumeLoggedIn LoginFailurePolicy = "assume-logged-in"
)

// Credentials are the literal values typed into the login form
type Credentials struct {
	Email    string `json:"email" yaml:"email"`
	Password string `json:"password" yaml:"password"`
}

// LoginSpec describes the login sequence of a scenario
type LoginSpec struct {
	Path        string             `json:"path" yaml:"path"`
	Email       Locator            `json:"email" yaml:"email"`
	Password    Locator            `json:"password" yaml:"password"`
	Submit      Locator            `json:"submit" yaml:"submit"`
	Credentials Credentials        `json:"credentials" yaml:"credentials"`
	FormTimeout time.Duration      `json:"form_timeout,omitempty" yaml:"form_timeout,omitempty"`
	SuccessURL  string             `json:"success_url" yaml:"success_url"`
	Timeout     time.Duration      `json:"timeout" yaml:"timeout"`
	OnTimeout   LoginFailurePolicy `json:"on_timeout,omitempty" yaml:"on_timeout,omitempty"`
}

// ==================== Scenario Types ====================

// Scenario is one complete verification: login plus a list of pages
type Scenario struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL     string       `json:"base_url" yaml:"base_url"`
	DateLayout  string       `json:"date_layout,omitempty" yaml:"date_layout,omitempty"`
	Login       LoginSpec    `json:"login" yaml:"login"`
	Pages       []PageTarget `json:"pages" yaml:"pages"`
}

// ==================== Result Types ====================

// RunStatus represents the status of a verification run
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusWarning  RunStatus = "warning" // Completed with soft mismatches
	StatusFailed   RunStatus = "failed"
	StatusCanceled RunStatus = "canceled"
)

// Done reports whether the status is terminal
func (s RunStatus) Done() bool {
	return s == StatusSuccess || s == StatusWarning || s == StatusFailed || s == StatusCanceled
}

// Observation is one value read from a page
type Observation struct {
	Label   string    `json:"label"`
	Kind    ProbeKind `json:"kind"`
	Value   string    `json:"value,omitempty"`
	Values  []string  `json:"values,omitempty"`
	Count   int       `json:"count"`
	Warning string    `json:"warning,omitempty"`
}

// PageResult holds everything observed on one page visit
type PageResult struct {
	Name           string        `json:"name"`
	URL            string        `json:"url"`
	ScreenshotPath string        `json:"screenshot_path,omitempty"`
	Observations   []Observation `json:"observations"`
	Warnings       []string      `json:"warnings,omitempty"`
	Duration       int64         `json:"duration_ms"`
}

// RunResult represents the result of a verification run
type RunResult struct {
	RunID         string       `json:"run_id"`
	Scenario      string       `json:"scenario"`
	Status        RunStatus    `json:"status"`
	LoggedIn      bool         `json:"logged_in"`
	LoginAssumed  bool         `json:"login_assumed,omitempty"`
	Pages         []PageResult `json:"pages"`
	Warnings      []string     `json:"warnings,omitempty"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	StartedAt     time.Time    `json:"started_at"`
	TotalDuration int64        `json:"total_duration_ms"`
}

// AddPage appends a page result and collects its warnings
func (r *RunResult) AddPage(page PageResult) {
	r.Pages = append(r.Pages, page)
	r.Warnings = append(r.Warnings, page.Warnings...)
}

// Finish sets the terminal status from the collected warnings and error
func (r *RunResult) Finish(err error) {
	switch {
	case err != nil:
		r.Status = StatusFailed
		r.ErrorMessage = err.Error()
	case len(r.Warnings) > 0:
		r.Status = StatusWarning
	default:
		r.Status = StatusSuccess
	}
}

// ==================== API Request/Response Types ====================

// RunInput represents input for executing a verification workflow
type RunInput struct {
	RunID     string   `json:"run_id"`
	Scenario  Scenario `json:"scenario"`
	Headless  bool     `json:"headless"`
	Driver    string   `json:"driver,omitempty"`
	OutputDir string   `json:"output_dir,omitempty"`
}

// RunRequest represents a request to start a verification run
type RunRequest struct {
	Scenario string `json:"scenario"`
	BaseURL  string `json:"base_url,omitempty"`
	Headless *bool  `json:"headless,omitempty"`
	Driver   string `json:"driver,omitempty"`
}

// ==================== WebSocket Message Types ====================

// WSMessage represents a WebSocket message for real-time updates
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
