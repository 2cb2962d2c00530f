// Package logging builds the slog loggers used by the CLI, the worker and the
// API server. Every logger masks credentials before records reach the
// underlying handler, so login values never end up in log files.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Mask replaces redacted values.
const Mask = "***"

var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "cookie", "authorization", "credential",
}

// RedactHandler wraps an slog.Handler and masks attributes whose key looks
// sensitive or whose value contains one of the registered secrets.
type RedactHandler struct {
	handler slog.Handler
	secrets []string
}

// NewRedactHandler wraps handler. Empty secrets are ignored.
func NewRedactHandler(handler slog.Handler, secrets ...string) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &RedactHandler{handler: handler}
	for _, s := range secrets {
		if s != "" {
			h.secrets = append(h.secrets, s)
		}
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle rebuilds the record with masked attributes.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactString(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs masks attrs before handing them to the wrapped handler.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redact(a)
	}
	return &RedactHandler{handler: h.handler.WithAttrs(masked), secrets: h.secrets}
}

// WithGroup implements slog.Handler.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return &RedactHandler{handler: h.handler.WithGroup(name), secrets: h.secrets}
}

func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, ga := range group {
			masked[i] = h.redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, Mask)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, h.redactString(a.Value.String()))
	}
	return a
}

func (h *RedactHandler) redactString(s string) string {
	for _, secret := range h.secrets {
		s = strings.ReplaceAll(s, secret, Mask)
	}
	return s
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// New returns a text logger writing to w. verbose enables debug records,
// otherwise the level is info.
func New(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewRedactHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)}), secrets...))
}

// NewJSON is New with JSON output, used by the long running services.
func NewJSON(w io.Writer, verbose bool, secrets ...string) *slog.Logger {
	return slog.New(NewRedactHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)}), secrets...))
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
