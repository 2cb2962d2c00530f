// Package scenario provides the built-in verification scenarios and loads
// custom ones from YAML files.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dev/bravebird/ui-verify/pkg/models"
)

// TodayToken in an expected value is replaced by today's date.
const TodayToken = "{{today}}"

// MinTimeout is the smallest accepted login wait. YAML integers without a
// unit decode as nanoseconds and land below it.
const MinTimeout = time.Millisecond

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrInvalidScenario = errors.New("invalid scenario")
)

// File is the YAML document holding custom scenarios
type File struct {
	Scenarios []models.Scenario `yaml:"scenarios"`
}

// Load reads and validates every scenario in a YAML file
func Load(path string) ([]models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates scenarios from YAML
func Parse(data []byte) ([]models.Scenario, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	seen := make(map[string]bool, len(f.Scenarios))
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		applyDefaults(s)
		if err := Validate(*s); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = true
	}
	return f.Scenarios, nil
}

// Resolve finds a scenario by name among the custom ones first, then the
// built-ins.
func Resolve(name string, custom []models.Scenario) (models.Scenario, error) {
	for _, s := range custom {
		if s.Name == name {
			return s, nil
		}
	}
	if s, ok := Builtin(name); ok {
		return s, nil
	}
	return models.Scenario{}, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
}

// Overrides replaces scenario values from the command line or environment
type Overrides struct {
	BaseURL  string
	Email    string
	Password string
}

// Apply returns a copy of s with non-empty overrides applied
func (o Overrides) Apply(s models.Scenario) models.Scenario {
	if o.BaseURL != "" {
		s.BaseURL = o.BaseURL
	}
	if o.Email != "" {
		s.Login.Credentials.Email = o.Email
	}
	if o.Password != "" {
		s.Login.Credentials.Password = o.Password
	}
	return s
}

// Validate checks that a scenario can be run
func Validate(s models.Scenario) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidScenario, s.Name, fmt.Sprintf(format, args...))
	}

	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	if !strings.HasPrefix(s.BaseURL, "http://") && !strings.HasPrefix(s.BaseURL, "https://") {
		return invalid("base_url must be an http(s) URL, got %q", s.BaseURL)
	}
	if s.Login.Email.IsZero() || s.Login.Password.IsZero() || s.Login.Submit.IsZero() {
		return invalid("login needs email, password and submit locators")
	}
	if s.Login.SuccessURL == "" {
		return invalid("login needs a success_url pattern")
	}
	if s.Login.Timeout < MinTimeout {
		return invalid("login timeout %s is below %s, durations need a unit (e.g. 10s)", s.Login.Timeout, MinTimeout)
	}
	if s.Login.FormTimeout != 0 && s.Login.FormTimeout < MinTimeout {
		return invalid("login form_timeout %s is below %s, durations need a unit (e.g. 5s)", s.Login.FormTimeout, MinTimeout)
	}
	switch s.Login.OnTimeout {
	case models.LoginFail, models.LoginAssumeLoggedIn:
	default:
		return invalid("unknown on_timeout policy %q", s.Login.OnTimeout)
	}
	if len(s.Pages) == 0 {
		return invalid("at least one page is required")
	}

	for _, p := range s.Pages {
		if p.Name == "" || p.Path == "" {
			return invalid("every page needs a name and a path")
		}
		if p.Screenshot == "" {
			return invalid("page %q needs a screenshot filename", p.Name)
		}
		for _, probe := range p.Probes {
			if !probe.Kind.Valid() {
				return invalid("page %q: unknown probe kind %q", p.Name, probe.Kind)
			}
			if probe.Selector == "" {
				return invalid("page %q: probe %q has no selector", p.Name, probe.Label)
			}
			if probe.Kind == models.ProbeAttribute && probe.Attribute == "" {
				return invalid("page %q: attribute probe %q has no attribute", p.Name, probe.Label)
			}
		}
	}
	return nil
}

func applyDefaults(s *models.Scenario) {
	if s.DateLayout == "" {
		s.DateLayout = DefaultDateLayout
	}
	if s.Login.Path == "" {
		s.Login.Path = "/"
	}
	if s.Login.OnTimeout == "" {
		s.Login.OnTimeout = models.LoginFail
	}
	for i := range s.Pages {
		for j := range s.Pages[i].Probes {
			if s.Pages[i].Probes[j].Label == "" {
				s.Pages[i].Probes[j].Label = s.Pages[i].Probes[j].Selector
			}
		}
	}
}

// FormatDate renders t with layout, falling back to DefaultDateLayout
func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateLayout
	}
	return t.Format(layout)
}

// Expand replaces template tokens in an expected value
func Expand(expected string, now time.Time, layout string) string {
	if !strings.Contains(expected, TodayToken) {
		return expected
	}
	return strings.ReplaceAll(expected, TodayToken, FormatDate(now, layout))
}

// URL joins the scenario base URL with a page path
func URL(s models.Scenario, path string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
