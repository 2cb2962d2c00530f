// Package config holds the runtime settings shared by the verify CLI, the
// Temporal worker and the API server.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	// DefaultDriver is the browser automation backend.
	DefaultDriver = DriverRod

	// DefaultSettleDelay is the fixed sleep after network idle that lets the
	// client-side framework finish re-rendering.
	DefaultSettleDelay = 2 * time.Second

	// DefaultNetworkIdleTimeout bounds the network idle wait.
	DefaultNetworkIdleTimeout = 30 * time.Second

	// DefaultActionTimeout bounds single element lookups and interactions.
	DefaultActionTimeout = 30 * time.Second

	// DefaultOutputDir is where screenshots are written. Screenshot names are
	// fixed relative filenames, so the working directory is the default.
	DefaultOutputDir = "."

	// DefaultServiceOutputDir is the screenshot root of the worker and the
	// API server. Each run writes into its own subdirectory.
	DefaultServiceOutputDir = "/tmp/screenshots"

	// DefaultTemporalHost is the Temporal frontend address.
	DefaultTemporalHost = "localhost:7233"

	// DefaultPort is the API server port.
	DefaultPort = "8080"

	// DefaultFixtureAddr is the listen address of the fixture app.
	DefaultFixtureAddr = "localhost:5173"

	// TaskQueue is the Temporal task queue shared by worker and API.
	TaskQueue = "ui-verification"
)

// Supported drivers.
const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

var (
	ErrUnknownDriver      = errors.New("unknown browser driver")
	ErrInvalidSettleDelay = errors.New("settle delay must not be negative")
	ErrInvalidTimeout     = errors.New("timeouts must be positive")
	ErrEmptyOutputDir     = errors.New("output directory must not be empty")
)

// Config holds runtime settings. Scenario-specific values (URLs, selectors,
// credentials) live in the scenario, the fields here only override them.
type Config struct {
	Driver             string
	Headless           bool
	ChromeBin          string
	OutputDir          string
	SettleDelay        time.Duration
	NetworkIdleTimeout time.Duration
	ActionTimeout      time.Duration
	Strict             bool
	Verbose            bool

	// Scenario overrides, empty means keep the scenario value.
	BaseURL  string
	Email    string
	Password string

	// ScenarioFile is an optional YAML file with custom scenarios.
	ScenarioFile string

	TemporalHost string
	Port         string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Driver:             DefaultDriver,
		Headless:           true,
		OutputDir:          DefaultOutputDir,
		SettleDelay:        DefaultSettleDelay,
		NetworkIdleTimeout: DefaultNetworkIdleTimeout,
		ActionTimeout:      DefaultActionTimeout,
		TemporalHost:       DefaultTemporalHost,
		Port:               DefaultPort,
	}
}

// FromEnv creates a Config from defaults overridden by environment variables.
func FromEnv() *Config {
	c := NewConfig()
	c.Driver = getEnvOrDefault("VERIFY_DRIVER", c.Driver)
	c.Headless = getEnvBool("VERIFY_HEADLESS", c.Headless)
	c.ChromeBin = os.Getenv("CHROME_BIN")
	c.OutputDir = getEnvOrDefault("SCREENSHOT_DIR", c.OutputDir)
	c.SettleDelay = getEnvDuration("VERIFY_SETTLE_DELAY", c.SettleDelay)
	c.NetworkIdleTimeout = getEnvDuration("VERIFY_IDLE_TIMEOUT", c.NetworkIdleTimeout)
	c.ActionTimeout = getEnvDuration("VERIFY_ACTION_TIMEOUT", c.ActionTimeout)
	c.Strict = getEnvBool("VERIFY_STRICT", c.Strict)
	c.BaseURL = os.Getenv("VERIFY_BASE_URL")
	c.Email = os.Getenv("VERIFY_EMAIL")
	c.Password = os.Getenv("VERIFY_PASSWORD")
	c.ScenarioFile = os.Getenv("SCENARIO_FILE")
	c.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", c.TemporalHost)
	c.Port = getEnvOrDefault("PORT", c.Port)
	return c
}

// ServiceFromEnv is FromEnv for the long running services: without
// SCREENSHOT_DIR they write under DefaultServiceOutputDir instead of the
// working directory.
func ServiceFromEnv() *Config {
	c := FromEnv()
	if os.Getenv("SCREENSHOT_DIR") == "" {
		c.OutputDir = DefaultServiceOutputDir
	}
	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Driver != DriverRod && c.Driver != DriverPlaywright {
		return ErrUnknownDriver
	}
	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}
	if c.NetworkIdleTimeout <= 0 || c.ActionTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return d
}
