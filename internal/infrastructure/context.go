package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateTraceID creates a new unique trace ID using UUID v4
func GenerateTraceID() string {
	return uuid.New().String()
}

// EnsureTraceID ensures the context has a trace ID, generating one if needed
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		return WithTraceID(ctx, GenerateTraceID())
	}
	return ctx
}

// StartRun returns a context carrying a fresh run ID. The run ID doubles as
// the trace ID when the caller has none.
func StartRun(ctx context.Context) (context.Context, string) {
	runID := uuid.New().String()
	ctx = WithRunID(ctx, runID)
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, runID)
	}
	return ctx, runID
}

// WithComponent creates a logger with a component field. A nil logger falls
// back to the global one.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With(slog.String("component", component))
}
