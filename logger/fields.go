package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across tagtical.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldCycleID   = "cycle_id"
	FieldError     = "error"
	FieldCount     = "count"
	FieldAttempt   = "attempt"

	// Tagging
	FieldEntity  = "entity"
	FieldKind    = "kind"
	FieldContext = "context"
	FieldTagType = "tag_type"
	FieldValue   = "value"
	FieldTagger  = "tagger"
)

type contextKey string

const (
	cycleIDKey   contextKey = "logger_cycle_id"
	componentKey contextKey = "logger_component"
)

// WithCycleID tags the context with a save-cycle correlation id.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if cycleID, ok := ctx.Value(cycleIDKey).(string); ok && cycleID != "" {
		fields = append(fields, FieldCycleID, cycleID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base (or the global Logger when base is nil) enriched
// with the fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named child of the global logger.
//
// Example:
//
//	type Synchronizer struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewSynchronizer() *Synchronizer {
//	    return &Synchronizer{logger: logger.ComponentLogger("tagging.sync")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
