package logging

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

var defaultLogger = slog.Default()

// FromContext extracts the logger from context.
// Returns the default logger if no logger is found or ctx is nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return defaultLogger
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return defaultLogger
}

// Lookup returns the logger stored in ctx, if any.
func Lookup(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	logger, ok := ctx.Value(ctxKey{}).(*slog.Logger)

	return logger, ok
}

// WithContext stores a logger in the context.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithAttrs enriches the logger in context with attrs.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return WithContext(ctx, FromContext(ctx).With(args...))
}

// ids are the identifiers the posts client propagates upstream.
type ids struct {
	request     string
	correlation string
}

type idsKey struct{}

func idsFrom(ctx context.Context) ids {
	if ctx == nil {
		return ids{}
	}

	v, _ := ctx.Value(idsKey{}).(ids)

	return v
}

// WithRequestID records the request ID for outbound calls and adds it to the
// logger in context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	v := idsFrom(ctx)
	v.request = requestID

	return WithAttrs(context.WithValue(ctx, idsKey{}, v), slog.String("request_id", requestID))
}

// RequestID returns the request ID recorded by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	return idsFrom(ctx).request
}

// WithTraceID adds a trace ID to the logger in context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return WithAttrs(ctx, slog.String("trace_id", traceID))
}

// WithCorrelationID records the correlation ID for outbound calls and adds it
// to the logger in context. Syncs without one use their run ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	v := idsFrom(ctx)
	v.correlation = correlationID

	return WithAttrs(context.WithValue(ctx, idsKey{}, v), slog.String("correlation_id", correlationID))
}

// CorrelationID returns the correlation ID recorded by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	return idsFrom(ctx).correlation
}

// WithSyncRun tags every log line of one synchronizer run.
func WithSyncRun(ctx context.Context, runID, trigger string) context.Context {
	return WithAttrs(ctx, slog.String("sync_run_id", runID), slog.String("sync_trigger", trigger))
}

// SetDefault sets the default logger used when no logger is in context.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
