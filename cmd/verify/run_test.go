package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/ui-verify/pkg/browser/browsertest"
	"dev/bravebird/ui-verify/pkg/config"
	"dev/bravebird/ui-verify/pkg/scenario"
	"dev/bravebird/ui-verify/pkg/verify"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VERIFY_DRIVER", "VERIFY_HEADLESS", "CHROME_BIN", "SCREENSHOT_DIR",
		"VERIFY_SETTLE_DELAY", "VERIFY_STRICT", "VERIFY_BASE_URL", "VERIFY_EMAIL", "VERIFY_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func TestBuildConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERIFY_BASE_URL", "http://env.local:5173")
	t.Setenv("VERIFY_DRIVER", "playwright")

	t.Run("environment only", func(t *testing.T) {
		cmd := NewRunCmd()
		require.NoError(t, cmd.ParseFlags(nil))

		cfg, err := buildConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, config.DriverPlaywright, cfg.Driver)
		assert.Equal(t, "http://env.local:5173", cfg.BaseURL)
		assert.True(t, cfg.Headless)
		assert.False(t, cfg.Strict)
	})

	t.Run("flags win", func(t *testing.T) {
		cmd := NewRunCmd()
		require.NoError(t, cmd.ParseFlags([]string{
			"--driver", "rod",
			"--base-url", "http://flag.local:5174",
			"--headless=false",
			"--settle-delay", "500ms",
			"-o", "shots",
			"--strict",
		}))

		cfg, err := buildConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, config.DriverRod, cfg.Driver)
		assert.Equal(t, "http://flag.local:5174", cfg.BaseURL)
		assert.False(t, cfg.Headless)
		assert.Equal(t, 500*time.Millisecond, cfg.SettleDelay)
		assert.Equal(t, "shots", cfg.OutputDir)
		assert.True(t, cfg.Strict)
	})
}

func TestResolveScenario(t *testing.T) {
	sc, err := resolveScenario("centered", "", scenario.Overrides{BaseURL: "http://127.0.0.1:9000", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", sc.BaseURL)
	assert.Equal(t, "pw", sc.Login.Credentials.Password)
	assert.Equal(t, "admin@example.com", sc.Login.Credentials.Email)

	_, err = resolveScenario("nope", "", scenario.Overrides{})
	assert.ErrorIs(t, err, scenario.ErrUnknownScenario)

	_, err = resolveScenario("smoke", "", scenario.Overrides{BaseURL: "localhost:5173"})
	assert.ErrorIs(t, err, scenario.ErrInvalidScenario)
}

func testConfig(t *testing.T, strict bool) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.OutputDir = t.TempDir()
	cfg.SettleDelay = 0
	cfg.Strict = strict
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunVerification(t *testing.T) {
	tests := []struct {
		name     string
		strict   bool
		style    string
		wantErr  error
		wantWarn bool
	}{
		{"clean run", false, "text-align: center; width: 100%;", nil, false},
		{"warnings pass", false, "text-align: left;", nil, true},
		{"warnings fail in strict mode", true, "text-align: left;", verify.ErrWarnings, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, tt.strict)
			fb := browsertest.FeedingApp(tt.style, false, "", scenario.FallbackMealText)
			reportPath := filepath.Join(t.TempDir(), "reports", "run.md")

			var out bytes.Buffer
			err := runVerification(context.Background(), &out, cfg, &browsertest.Launcher{Browser: fb},
				scenario.Centered(), reportPath, discardLogger())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantWarn, bytes.Contains(out.Bytes(), []byte("WARNING: ")))
			assert.NoError(t, verify.CheckScreenshotFile(filepath.Join(cfg.OutputDir, "verification_centered.png")))

			data, err := os.ReadFile(reportPath)
			require.NoError(t, err)
			assert.Contains(t, string(data), "UI Verification: centered")
		})
	}
}

func TestRunVerificationFatal(t *testing.T) {
	cfg := testConfig(t, false)
	reportPath := filepath.Join(t.TempDir(), "run.md")
	launcher := &browsertest.Launcher{Err: errors.New("chrome not found")}

	err := runVerification(context.Background(), io.Discard, cfg, launcher, scenario.Smoke(), reportPath, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")

	// The report still records the failed run
	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chrome not found")
}
