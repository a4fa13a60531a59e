package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	stageKey      contextKey = "stage"
	entryIndexKey contextKey = "entry_index"
	groupKey      contextKey = "group"
	requestIDKey  contextKey = "request_id"
)

// WithRunID annotates context with the identifier of the current pipeline run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithEntryIndex annotates context with the 1-based subtitle entry index.
func WithEntryIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, entryIndexKey, index)
}

// EntryIndexFromContext extracts the subtitle entry index if present.
func EntryIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(entryIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithGroup annotates context with the 1-based translation group number.
func WithGroup(ctx context.Context, group int) context.Context {
	return context.WithValue(ctx, groupKey, group)
}

// GroupFromContext returns the translation group number if present.
func GroupFromContext(ctx context.Context) (int, bool) {
	if v, ok := ctx.Value(groupKey).(int); ok {
		return v, true
	}
	return 0, false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
