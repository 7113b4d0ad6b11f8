package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds task-scoped logging context
type LogContext struct {
	TraceID      string    // OpenTelemetry trace ID
	SpanID       string    // OpenTelemetry span ID
	Task         string    // Task name (accept-loop, conn)
	TaskID       string    // Executor task identifier
	ConnectionID string    // Connection identifier, empty outside connection tasks
	ClientAddr   string    // Remote peer address
	StartTime    time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the named task
func NewLogContext(task, taskID string) *LogContext {
	return &LogContext{
		Task:      task,
		TaskID:    taskID,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithConnection returns a copy bound to a connection
func (lc *LogContext) WithConnection(id, clientAddr string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ConnectionID = id
		clone.ClientAddr = clientAddr
	}
	return clone
}

// WithTrace returns a copy with trace and span IDs set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// Elapsed returns milliseconds since the context was created
func (lc *LogContext) Elapsed() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
