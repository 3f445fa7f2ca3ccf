package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// RequestIDKey carries the HTTP request ID
	RequestIDKey contextKey = "request_id"
	// SyncSourceKey carries what triggered a sync: webhook, api, manual_pull or scheduler
	SyncSourceKey contextKey = "sync_source"
	// JobIDKey carries the ID of the pull job a sync runs under
	JobIDKey contextKey = "job_id"
)

// scopeKeys lists the context values Scoped copies onto a logger, in field order
var scopeKeys = []contextKey{RequestIDKey, SyncSourceKey, JobIDKey}

func withValue(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	return context.WithValue(ctx, key, value), logger.With(zap.String(string(key), value))
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithRequestID stores the request ID in ctx and returns logger tagged with it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withValue(ctx, logger, RequestIDKey, requestID)
}

// WithSyncSource stores the sync trigger in ctx and returns logger tagged with it
func WithSyncSource(ctx context.Context, logger *zap.Logger, source string) (context.Context, *zap.Logger) {
	return withValue(ctx, logger, SyncSourceKey, source)
}

// WithJobID stores the pull job ID in ctx and returns logger tagged with it
func WithJobID(ctx context.Context, logger *zap.Logger, jobID string) (context.Context, *zap.Logger) {
	return withValue(ctx, logger, JobIDKey, jobID)
}

// GetRequestID returns the request ID stored in ctx, or ""
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetSyncSource returns the sync trigger stored in ctx, or ""
func GetSyncSource(ctx context.Context) string {
	return stringValue(ctx, SyncSourceKey)
}

// GetJobID returns the pull job ID stored in ctx, or ""
func GetJobID(ctx context.Context) string {
	return stringValue(ctx, JobIDKey)
}

// GetTraceID returns the trace ID of the active span, or "" without a valid span
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// WithTraceContext tags logger with the active span's trace_id and span_id.
// Without a valid span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// Scoped returns base tagged with the trace and every scope value found in
// ctx. Components that own a logger use it so their lines carry the request,
// sync source and pull job they ran under. A nil base yields a nop logger.
func Scoped(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	l := WithTraceContext(ctx, base)
	fields := make([]zap.Field, 0, len(scopeKeys))
	for _, key := range scopeKeys {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, zap.String(string(key), v))
		}
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
