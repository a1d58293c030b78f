// Package debug provides context-scoped debug mode and the slog setup used
// by the request pipeline.
package debug

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

type contextKey struct{}

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, contextKey{}, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(contextKey{}).(bool); ok {
		return v
	}
	return false
}

// SetupLogger installs a stderr text handler: debug level when enabled,
// warn level otherwise.
func SetupLogger(debugEnabled bool) {
	SetupLoggerTo(os.Stderr, debugEnabled)
}

// SetupLoggerTo is SetupLogger with an explicit destination.
func SetupLoggerTo(w io.Writer, debugEnabled bool) {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

var sensitiveHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// RedactHeaders flattens headers for logging with credentials masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		value := strings.Join(v, ", ")
		if sensitiveHeaders[http.CanonicalHeaderKey(k)] && value != "" {
			if scheme, _, ok := strings.Cut(value, " "); ok {
				value = scheme + " ***"
			} else {
				value = "***"
			}
		}
		out[k] = value
	}
	return out
}
