package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldAssetID = "asset_id"
	FieldBatchID = "batch_id"

	// Components
	FieldComponent = "component"

	// Publishing
	FieldStrategy    = "strategy"
	FieldSource      = "source"
	FieldTarget      = "target"
	FieldStagingArea = "staging_area"
	FieldLockFile    = "lock_file"
	FieldState       = "state"
	FieldActions     = "actions"
	FieldEncoding    = "encoding"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount       = "count"
	FieldParallelism = "parallelism"

	// Files and network
	FieldFile = "file"
	FieldURL  = "url"
)

// Context keys for propagating logging context
type contextKey string

const (
	batchIDKey   contextKey = "logger_batch_id"
	assetIDKey   contextKey = "logger_asset_id"
	componentKey contextKey = "logger_component"
)

// WithBatchID adds a batch ID to the context for logging
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, batchIDKey, batchID)
}

// WithAssetID adds an asset ID to the context for logging
func WithAssetID(ctx context.Context, assetID string) context.Context {
	return context.WithValue(ctx, assetIDKey, assetID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if batchID, ok := ctx.Value(batchIDKey).(string); ok && batchID != "" {
		fields = append(fields, FieldBatchID, batchID)
	}
	if assetID, ok := ctx.Value(assetIDKey).(string); ok && assetID != "" {
		fields = append(fields, FieldAssetID, assetID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns base enriched with fields extracted from context.
// A nil base falls back to the global Logger.
func LoggerFromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Publisher struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewPublisher() *Publisher {
//	    return &Publisher{
//	        logger: logger.ComponentLogger("stage.publisher"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	assetLogger := logger.ChildLogger(baseLogger, logger.FieldAssetID, id)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
