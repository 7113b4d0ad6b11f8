// Package echo implements the TCP echo listener: a bootstrap that binds the
// socket, an accept loop running as an executor task, and one connection
// task per accepted stream that performs a single bounded read.
//
// Ownership follows the task tree. The accept loop owns the listener and
// closes it when it returns. Each connection task owns its stream and closes
// it when it returns. Both are unblocked at executor stop by closing the
// resource they wait on.
package echo

import (
	"fmt"
	"net"
	"sync/atomic"

	"github.com/marmos91/ecuserver/internal/logger"
	"github.com/marmos91/ecuserver/pkg/bufpool"
	"github.com/marmos91/ecuserver/pkg/executor"
	"github.com/marmos91/ecuserver/pkg/metrics"
)

// Task names used when spawning onto the executor.
const (
	TaskAcceptLoop = "accept-loop"
	TaskConnection = "conn"
)

// Option configures StartListener.
type Option func(*options)

type options struct {
	network Network
	metrics metrics.EchoMetrics
	tracker *Tracker
}

// WithNetwork replaces the host network, mainly for tests.
func WithNetwork(n Network) Option {
	return func(o *options) { o.network = n }
}

// WithMetrics sets the metrics sink. nil disables metrics.
func WithMetrics(m metrics.EchoMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracker shares live connection accounting with the caller.
func WithTracker(t *Tracker) Option {
	return func(o *options) { o.tracker = t }
}

// Tracker exposes live counts of the connections a listener is serving.
type Tracker struct {
	active   atomic.Int32
	accepted atomic.Int64
}

// Active returns the number of connections currently owned by a task.
func (t *Tracker) Active() int32 { return t.active.Load() }

// Accepted returns the total number of accepted connections.
func (t *Tracker) Accepted() int64 { return t.accepted.Load() }

// server is the state shared by the accept loop and its connection tasks.
type server struct {
	ex      *executor.Executor
	ln      net.Listener
	cfg     Config
	metrics metrics.EchoMetrics
	tracker *Tracker

	// sem bounds concurrent connections when MaxConnections > 0.
	sem chan struct{}

	buffers *bufpool.Pool

	acceptErrors *errorReporter
}

// StartListener binds cfg.Address() through the configured Network and
// spawns the accept loop onto ex. It returns the bound address.
//
// Bind failures are returned as *BindError. If the accept loop cannot be
// spawned the listener is closed and the spawn error returned.
func StartListener(ex *executor.Executor, cfg Config, opts ...Option) (net.Addr, error) {
	if ex == nil {
		return nil, ErrNilExecutor
	}

	o := options{network: HostNetwork()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracker == nil {
		o.tracker = &Tracker{}
	}

	cfg = cfg.withDefaults()
	addr := cfg.Address()

	ln, err := o.network.Listen(ex.Context(), "tcp", addr)
	if err != nil {
		return nil, &BindError{Address: addr, Err: err}
	}

	s := &server{
		ex:           ex,
		ln:           ln,
		cfg:          cfg,
		metrics:      o.metrics,
		tracker:      o.tracker,
		buffers:      bufpool.New(cfg.ReadBufferSize),
		acceptErrors: newErrorReporter("Error accepting connection", cfg.ErrorLogInterval),
	}
	if cfg.MaxConnections > 0 {
		s.sem = make(chan struct{}, cfg.MaxConnections)
	}

	if _, err := ex.Spawn(TaskAcceptLoop, s.acceptLoop); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("echo: start accept loop: %w", err)
	}

	logger.Info("Echo server listening",
		logger.KeyAddress, ln.Addr().String(),
		logger.KeyBufferSize, cfg.ReadBufferSize,
		"max_connections", cfg.MaxConnections)

	return ln.Addr(), nil
}
