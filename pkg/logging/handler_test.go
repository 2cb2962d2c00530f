package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactHandler(t *testing.T) {
	tests := []struct {
		name    string
		log     func(l *slog.Logger)
		absent  string
		present string
	}{
		{
			name:    "sensitive key",
			log:     func(l *slog.Logger) { l.Info("login", "password", "hunter2") },
			absent:  "hunter2",
			present: "password=***",
		},
		{
			name:    "key containing keyword",
			log:     func(l *slog.Logger) { l.Info("login", "session_cookie", "abc") },
			absent:  "abc",
			present: "session_cookie=***",
		},
		{
			name:    "registered secret inside value",
			log:     func(l *slog.Logger) { l.Info("filled", "value", "typed s3cret!") },
			absent:  "s3cret!",
			present: "value=\"typed ***\"",
		},
		{
			name:    "registered secret inside message",
			log:     func(l *slog.Logger) { l.Info("typed s3cret! into field") },
			absent:  "s3cret!",
			present: "typed *** into field",
		},
		{
			name:    "group attributes",
			log:     func(l *slog.Logger) { l.Info("creds", slog.Group("login", "email", "a@b.c", "password", "x")) },
			absent:  "password=x",
			present: "login.email=a@b.c",
		},
		{
			name:    "plain values untouched",
			log:     func(l *slog.Logger) { l.Info("navigate", "url", "http://localhost:5173/dashboard") },
			present: "url=http://localhost:5173/dashboard",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(New(&buf, false, "s3cret!", ""))

			out := buf.String()
			if tt.absent != "" {
				assert.NotContains(t, out, tt.absent)
			}
			assert.Contains(t, out, tt.present)
		})
	}
}

func TestWithAttrsRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, false).With("token", "abc123")
	logger.Info("request")

	assert.Contains(t, buf.String(), "token=***")
	assert.NotContains(t, buf.String(), "abc123")
}

func TestLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
