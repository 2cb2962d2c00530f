package scenario

import (
	"sort"
	"time"

	"dev/bravebird/ui-verify/pkg/models"
)

const (
	// FallbackMealText is rendered when no meal is scheduled for today.
	FallbackMealText = "No meal assigned for today."

	// DefaultDateLayout renders "<Weekday> • <Month> <Day>, <Year>".
	DefaultDateLayout = "Monday • January 2, 2006"
)

var builtins = map[string]func() models.Scenario{
	"smoke":    Smoke,
	"centered": Centered,
	"fallback": Fallback,
}

// Names returns the built-in scenario names in sorted order
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in scenario
func Builtin(name string) (models.Scenario, bool) {
	fn, ok := builtins[name]
	if !ok {
		return models.Scenario{}, false
	}
	return fn(), true
}

// Smoke visits the four main pages, prints the dashboard stats and the
// table row counts of the other pages.
func Smoke() models.Scenario {
	return models.Scenario{
		Name:        "smoke",
		Description: "Dashboard stats and table row counts on every page",
		BaseURL:     "http://localhost:5173",
		DateLayout:  DefaultDateLayout,
		Login: models.LoginSpec{
			Path:        "/",
			Email:       models.Locator{CSS: "input[type='email']"},
			Password:    models.Locator{CSS: "input[type='password']"},
			Submit:      models.Locator{CSS: "button"},
			Credentials: models.Credentials{Email: "admin@school.edu", Password: "password123"},
			FormTimeout: 5 * time.Second,
			SuccessURL:  "**/dashboard",
			Timeout:     10 * time.Second,
			OnTimeout:   models.LoginFail,
		},
		Pages: []models.PageTarget{
			{
				Name:       "Dashboard",
				Path:       "/dashboard",
				Screenshot: "verification_dashboard.png",
				Probes: []models.Probe{
					{Label: "Dashboard Stats", Kind: models.ProbeTexts, Selector: ".stat-value"},
				},
			},
			rowsPage("Management", "/management", "verification_management.png"),
			rowsPage("Feeding", "/feeding", "verification_feeding.png"),
			rowsPage("Reports", "/reports", "verification_reports.png"),
		},
	}
}

// Centered checks the no-meal layout of the feeding page: the image column
// is gone and the text column is centered over the full width.
func Centered() models.Scenario {
	noSettle := false
	return models.Scenario{
		Name:        "centered",
		Description: "Feeding page fallback layout is centered without the image column",
		BaseURL:     "http://localhost:5174",
		DateLayout:  DefaultDateLayout,
		Login:       adminLogin(),
		Pages: []models.PageTarget{
			{
				Name:       "Feeding & Nutrition",
				Path:       "/feeding",
				Screenshot: "verification_centered.png",
				Settle:     &noSettle,
				Probes: []models.Probe{
					{Label: "Image container", Kind: models.ProbeHidden, Selector: ".meal-right"},
					{Label: "Meal text column", Kind: models.ProbeVisible, Selector: ".meal-left"},
					{
						Label:     "Style attribute",
						Kind:      models.ProbeAttribute,
						Selector:  ".meal-left",
						Attribute: "style",
						Contains:  []string{"text-align: center", "width: 100%"},
					},
					{
						Label:       "Meal Name",
						Kind:        models.ProbeText,
						Selector:    "h3.meal-name",
						Contains:    []string{FallbackMealText},
						WaitVisible: true,
					},
				},
			},
		},
	}
}

// Fallback checks the dated meta line and the fallback meal name.
func Fallback() models.Scenario {
	noSettle := false
	return models.Scenario{
		Name:        "fallback",
		Description: "Feeding page shows today's date and the no-meal fallback text",
		BaseURL:     "http://localhost:5174",
		DateLayout:  DefaultDateLayout,
		Login:       adminLogin(),
		Pages: []models.PageTarget{
			{
				Name:       "Feeding & Nutrition",
				Path:       "/feeding",
				Screenshot: "verification_fallback.png",
				Settle:     &noSettle,
				Probes: []models.Probe{
					{
						Label:       "Date check",
						Kind:        models.ProbeText,
						Selector:    ".meal-meta",
						Contains:    []string{TodayToken},
						WaitVisible: true,
					},
					{
						Label:       "Meal Name check",
						Kind:        models.ProbeText,
						Selector:    "h3.meal-name",
						Contains:    []string{FallbackMealText},
						WaitVisible: true,
					},
				},
			},
		},
	}
}

func adminLogin() models.LoginSpec {
	return models.LoginSpec{
		Path:        "/",
		Email:       models.Locator{Placeholder: "E-mail"},
		Password:    models.Locator{Placeholder: "Password"},
		Submit:      models.Locator{Role: "button", Name: "Login"},
		Credentials: models.Credentials{Email: "admin@example.com", Password: "password"},
		SuccessURL:  "**/dashboard",
		Timeout:     10 * time.Second,
		OnTimeout:   models.LoginFail,
	}
}

func rowsPage(name, path, screenshot string) models.PageTarget {
	return models.PageTarget{
		Name:       name,
		Path:       path,
		Screenshot: screenshot,
		Probes: []models.Probe{
			{Label: name + " Rows", Kind: models.ProbeCount, Selector: ".data-table tbody tr"},
		},
	}
}
