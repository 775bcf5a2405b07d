package logger

import (
	"context"
	"log/slog"
)

type contextKey string

// Business context keys carried through request contexts.
const (
	SubjectIDKey   contextKey = "subject_id"
	RequestIDKey   contextKey = "request_id"
	FingerprintKey contextKey = "auth.token.fingerprint"
	RoleSourceKey  contextKey = "auth.role.source"
	StageKey       contextKey = "auth.stage"
)

// GlobalContext is the process-wide context logger, set by Init.
var GlobalContext *ContextLogger

// ContextLogger enriches log records with business identifiers pulled
// from the request context.
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithSubjectID tags a context with the provider subject id.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, SubjectIDKey, subjectID)
}

// WithRequestID tags a context with the inbound request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithFingerprint tags a context with a token fingerprint.
func WithFingerprint(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, FingerprintKey, fingerprint)
}

// WithRoleSource tags a context with the role resolution source.
func WithRoleSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, RoleSourceKey, source)
}

// WithStage tags a context with the current processing stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithContext returns a logger carrying every business key present in
// the context.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger
	for _, key := range []contextKey{SubjectIDKey, RequestIDKey, FingerprintKey, RoleSourceKey, StageKey} {
		if value, ok := ctx.Value(key).(string); ok && value != "" {
			logger = logger.With(string(key), value)
		}
	}
	return logger
}

// LogDuration records an operation timing with business context.
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, ms int64) {
	cl.WithContext(ctx).InfoContext(ctx, "operation completed",
		"operation", operation,
		"duration_ms", ms)
}

// LogError records an operation failure with business context.
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).ErrorContext(ctx, "operation failed",
		"operation", operation,
		"error", err)
}
