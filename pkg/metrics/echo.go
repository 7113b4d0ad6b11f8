package metrics

// EchoMetrics provides observability for the echo listener, its accept loop
// and the connection tasks.
//
// This interface is optional: pass nil to disable metrics collection with
// zero overhead.
//
// Example usage:
//
//	metrics.InitRegistry()
//	m := metrics.NewEchoMetrics() // nil unless a backend is registered
//	addr, err := echo.StartListener(ex, cfg, echo.WithMetrics(m))
type EchoMetrics interface {
	// RecordConnectionAccepted increments the accepted connections counter
	// and the live connection gauge.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter and
	// decrements the live connection gauge. Every accepted connection is
	// closed exactly once, so the gauge returns to zero when all are done.
	RecordConnectionClosed()

	// RecordAcceptError counts a failed Accept call.
	RecordAcceptError()

	// RecordBytesRead records the size of a connection's single read.
	// A read that returned no data is recorded with bytes == 0.
	RecordBytesRead(bytes int)

	// RecordTaskExit counts a finished executor task by name and outcome
	// ("ok", "error", "panic", "cancelled").
	RecordTaskExit(task string, outcome string)
}

// NewEchoMetrics returns the registered EchoMetrics implementation, or nil
// if metrics are disabled or no backend has been linked in.
func NewEchoMetrics() EchoMetrics {
	if !IsEnabled() {
		return nil
	}

	mu.RLock()
	ctor := newEchoMetrics
	mu.RUnlock()
	if ctor == nil {
		return nil
	}
	return ctor()
}

// newEchoMetrics is set by pkg/metrics/prometheus during package init.
// The indirection keeps this package free of backend imports.
var newEchoMetrics func() EchoMetrics

// RegisterEchoMetricsConstructor registers the backend constructor used by
// NewEchoMetrics.
func RegisterEchoMetricsConstructor(ctor func() EchoMetrics) {
	mu.Lock()
	newEchoMetrics = ctor
	mu.Unlock()
}
