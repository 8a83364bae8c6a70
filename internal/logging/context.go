package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJob is the job class running (crawl, queue, notify, ...).
	FieldJob = "job"
	// FieldRunID identifies a single job run; it matches batch_logs.run_id.
	FieldRunID = "run_id"
	// FieldShop is the source key a log line concerns.
	FieldShop = "shop"
	// FieldPage is the catalog page number being processed.
	FieldPage = "page"
	// FieldKeyword is the search keyword being processed.
	FieldKeyword = "keyword"
	// FieldCardID is the canonical card identifier.
	FieldCardID = "card_id"
	// FieldEventType classifies warnings for later filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a warning.
	FieldErrorHint = "error_hint"
)

type contextKey int

const (
	jobKey contextKey = iota
	runIDKey
)

// WithRun tags ctx with the job class and run identifier.
func WithRun(ctx context.Context, job, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, jobKey, job)
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run identifier stored by WithRun.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if job, ok := ctx.Value(jobKey).(string); ok && job != "" {
		fields = append(fields, slog.String(FieldJob, job))
	}
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
