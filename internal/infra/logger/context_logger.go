package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// Business context keys for orchestrator observability.
	SessionIDKey contextKey = "shorui.session.id"
	ProjectIDKey contextKey = "shorui.project.id"
	JobIDKey     contextKey = "shorui.job.id"
)

// WithSessionID attaches the session id to the context for logging.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// WithProjectID attaches the project id to the context for logging.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// WithJobID attaches the analysis job id to the context for logging.
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// FromContext returns the logger decorated with any business context values
// present on ctx.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	var fields []any
	if v := ctx.Value(SessionIDKey); v != nil {
		fields = append(fields, string(SessionIDKey), v)
	}
	if v := ctx.Value(ProjectIDKey); v != nil {
		fields = append(fields, string(ProjectIDKey), v)
	}
	if v := ctx.Value(JobIDKey); v != nil {
		fields = append(fields, string(JobIDKey), v)
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}
