package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext returns a copy of ctx carrying logger.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// WithRunID tags every record logged through the context's logger with a run id,
// so the records of one CLI invocation or one cron job can be grouped.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(FieldRunID, runID))
}
