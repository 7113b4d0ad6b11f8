package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently so log lines from the executor, the accept
// loop and the connection tasks can be correlated.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID
	KeySpanID  = "span_id"  // OpenTelemetry span ID

	// ========================================================================
	// Module & Executor
	// ========================================================================
	KeyModule   = "module"    // Module instance name
	KeyState    = "state"     // Module lifecycle state
	KeyQueue    = "workqueue" // Work queue backing the executor
	KeyTask     = "task"      // Task name (accept-loop, conn, ...)
	KeyTaskID   = "task_id"   // Unique task identifier
	KeyOutcome  = "outcome"   // Task outcome: ok, error, panic, cancelled
	KeyRunning  = "running"   // Tasks still running
	KeySpawned  = "spawned"   // Tasks spawned so far
	KeyWaitedMs = "waited_ms" // Time spent draining

	// ========================================================================
	// Listener & Connections
	// ========================================================================
	KeyAddress      = "address"       // Bound listen address
	KeyClientAddr   = "client_addr"   // Remote peer address (ip:port)
	KeyConnectionID = "connection_id" // Connection identifier
	KeyActive       = "active"        // Active connections
	KeyBytesRead    = "bytes_read"    // Bytes consumed by the single read
	KeyBufferSize   = "buffer_size"   // Read buffer capacity

	// ========================================================================
	// Errors & Retry
	// ========================================================================
	KeyError      = "error"      // Error message
	KeyAttempt    = "attempt"    // Consecutive failure count
	KeyBackoff    = "backoff"    // Delay before the next retry
	KeySuppressed = "suppressed" // Errors not logged since the last report
	KeyDurationMs = "duration_ms"
)

// ============================================================================
// Field constructors
// ============================================================================

// Module returns a slog.Attr for the module name
func Module(name string) slog.Attr {
	return slog.String(KeyModule, name)
}

// ClientAddr returns a slog.Attr for a remote peer address
func ClientAddr(addr string) slog.Attr {
	return slog.String(KeyClientAddr, addr)
}

// ConnectionID returns a slog.Attr for a connection identifier
func ConnectionID(id string) slog.Attr {
	return slog.String(KeyConnectionID, id)
}

// BytesRead returns a slog.Attr for bytes consumed from a stream
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// Attempt returns a slog.Attr for a retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error. A nil error yields an empty value.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
