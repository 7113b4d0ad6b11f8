package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/ecuserver/pkg/metrics"
)

func init() {
	metrics.RegisterEchoMetricsConstructor(NewEchoMetrics)
}

// echoMetrics is the Prometheus implementation of metrics.EchoMetrics.
type echoMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
	activeConnections   prometheus.Gauge
	acceptErrors        prometheus.Counter
	bytesRead           prometheus.Histogram
	emptyReads          prometheus.Counter
	taskExits           *prometheus.CounterVec
}

// NewEchoMetrics creates a new Prometheus-backed EchoMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// Collectors already present in the registry (from an earlier module in the
// same process) are reused instead of registered twice.
func NewEchoMetrics() metrics.EchoMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	// promauto.With(nil) builds collectors without registering them.
	f := promauto.With(nil)

	m := &echoMetrics{
		connectionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "ecuserver_connections_accepted_total",
			Help: "Total number of accepted TCP connections",
		}),
		connectionsClosed: f.NewCounter(prometheus.CounterOpts{
			Name: "ecuserver_connections_closed_total",
			Help: "Total number of closed TCP connections",
		}),
		activeConnections: f.NewGauge(prometheus.GaugeOpts{
			Name: "ecuserver_connections_active",
			Help: "Number of connections currently owned by a connection task",
		}),
		acceptErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "ecuserver_accept_errors_total",
			Help: "Total number of failed accept calls",
		}),
		bytesRead: f.NewHistogram(prometheus.HistogramOpts{
			Name: "ecuserver_read_bytes",
			Help: "Bytes consumed by the single read of each connection",
			Buckets: []float64{
				1,
				2,
				4,
				8, // default read buffer
				16,
				64,
				512,
				4096,
			},
		}),
		emptyReads: f.NewCounter(prometheus.CounterOpts{
			Name: "ecuserver_empty_reads_total",
			Help: "Connections closed by the peer before sending any byte",
		}),
		taskExits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecuserver_task_exits_total",
				Help: "Executor task exits by task name and outcome",
			},
			[]string{"task", "outcome"},
		),
	}

	m.connectionsAccepted = register(reg, m.connectionsAccepted)
	m.connectionsClosed = register(reg, m.connectionsClosed)
	m.activeConnections = register(reg, m.activeConnections)
	m.acceptErrors = register(reg, m.acceptErrors)
	m.bytesRead = register(reg, m.bytesRead)
	m.emptyReads = register(reg, m.emptyReads)
	m.taskExits = register(reg, m.taskExits)

	return m
}

// register adds c to reg, returning the collector already registered under
// the same descriptor when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// The active gauge only moves by Inc/Dec: concurrent closes must not
// overwrite each other with stale snapshots.
func (m *echoMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
	m.activeConnections.Inc()
}

func (m *echoMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
	m.activeConnections.Dec()
}

func (m *echoMetrics) RecordAcceptError() {
	m.acceptErrors.Inc()
}

func (m *echoMetrics) RecordBytesRead(bytes int) {
	if bytes == 0 {
		m.emptyReads.Inc()
		return
	}
	m.bytesRead.Observe(float64(bytes))
}

func (m *echoMetrics) RecordTaskExit(task string, outcome string) {
	m.taskExits.WithLabelValues(task, outcome).Inc()
}
