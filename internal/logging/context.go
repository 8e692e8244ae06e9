package logging

import (
	"context"
	"log/slog"
)

const (
	FieldComponent      = "component"
	FieldEventType      = "event_type"
	FieldErrorHint      = "error_hint"
	FieldImpact         = "impact"
	FieldDecisionType   = "decision_type"
	FieldDecisionResult = "decision_result"
	FieldDecisionReason = "decision_reason"
	// FieldRunID correlates every record emitted by one identification run.
	FieldRunID     = "run_id"
	FieldProvider  = "provider"
	FieldStrategy  = "strategy"
	FieldCandidate = "candidate"
)

type runIDKey struct{}

// WithRunID stores the identification run identifier on ctx.
func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func runIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// WithContext returns logger tagged with the run ID carried by ctx, if any.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id := runIDFrom(ctx); id != "" {
		return logger.With(String(FieldRunID, id))
	}
	return logger
}
