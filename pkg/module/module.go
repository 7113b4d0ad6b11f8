// Package module ties the executor and the echo listener into one loadable
// unit. Init builds the executor and starts the listener on it; Unload
// stops the executor, which cancels the accept loop and every connection
// task and waits for them to return.
//
// The executor is owned by the Module and passed explicitly to the listener.
// Nothing in this package is global, so several modules may coexist in one
// process (tests do this).
package module

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/ecuserver/internal/logger"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/marmos91/ecuserver/pkg/echo"
	"github.com/marmos91/ecuserver/pkg/executor"
	"github.com/marmos91/ecuserver/pkg/metrics"
)

// DefaultName is used when Init is called with an empty name.
const DefaultName = "echo_server"

// ErrNilConfig is returned by Init when no configuration is given.
var ErrNilConfig = errors.New("module: config is nil")

// Option configures Init.
type Option func(*options)

type options struct {
	workQueue executor.WorkQueue
	network   echo.Network
	metrics   metrics.EchoMetrics
}

// WithWorkQueue runs tasks on wq instead of the system work queue. It takes
// precedence over server.workers; the caller keeps ownership of wq.
func WithWorkQueue(wq executor.WorkQueue) Option {
	return func(o *options) { o.workQueue = wq }
}

// WithNetwork binds the listener through n instead of the host network.
func WithNetwork(n echo.Network) Option {
	return func(o *options) { o.network = n }
}

// WithMetrics records listener and task metrics to m. nil disables metrics.
func WithMetrics(m metrics.EchoMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// Module is a running echo server and the executor that owns its tasks.
type Module struct {
	name    string
	handle  *executor.Handle
	addr    net.Addr
	tracker *echo.Tracker
	started time.Time

	// pool is the work queue built from server.workers, nil otherwise.
	pool *executor.PoolWorkQueue

	state      atomic.Int32
	unloadOnce sync.Once
}

// Init creates the executor and starts the echo listener on it.
//
// On any failure the partially built executor is stopped before the error
// is returned, so a failed Init leaves nothing running.
func Init(name string, cfg *config.Config, opts ...Option) (*Module, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if name == "" {
		name = DefaultName
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Module{
		name:    name,
		tracker: &echo.Tracker{},
	}
	m.setState(StateInitializing)

	if o.workQueue == nil {
		if cfg.Server.Workers > 0 {
			m.pool = executor.NewPoolWorkQueue(cfg.Server.Workers)
			o.workQueue = m.pool
		} else {
			o.workQueue = executor.SystemWorkQueue()
		}
	}

	logger.Debug("Module initializing", logger.KeyModule, name)

	exOpts := []executor.Option{
		executor.WithName(name),
		executor.WithDrainWarningInterval(cfg.ShutdownTimeout),
	}
	if o.metrics != nil {
		exOpts = append(exOpts, executor.WithTaskObserver(taskExitRecorder(o.metrics)))
	}

	handle, err := executor.New(o.workQueue, exOpts...)
	if err != nil {
		m.closePool()
		m.setState(StateUnloaded)
		return nil, fmt.Errorf("module %s: create executor: %w", name, err)
	}

	listenOpts := []echo.Option{
		echo.WithMetrics(o.metrics),
		echo.WithTracker(m.tracker),
	}
	if o.network != nil {
		listenOpts = append(listenOpts, echo.WithNetwork(o.network))
	}

	addr, err := echo.StartListener(handle.Executor(), cfg.Server.EchoConfig(), listenOpts...)
	if err != nil {
		handle.Stop()
		m.closePool()
		m.setState(StateUnloaded)
		return nil, fmt.Errorf("module %s: %w", name, err)
	}

	m.handle = handle
	m.addr = addr
	m.started = time.Now()
	m.setState(StateRunning)

	logger.Info("Module initialized",
		logger.Module(name),
		logger.KeyAddress, addr.String())

	return m, nil
}

func taskExitRecorder(m metrics.EchoMetrics) executor.TaskObserver {
	return func(exit executor.TaskExit) {
		m.RecordTaskExit(exit.Task.Name(), string(exit.Outcome))
	}
}

// Unload stops the executor, cancelling the accept loop and every live
// connection task, and returns once all of them have returned. The listener
// is closed by then. Unload is idempotent and safe for concurrent use.
func (m *Module) Unload() {
	m.unloadOnce.Do(func() {
		m.setState(StateUnloading)
		logger.Info("Module unloading",
			logger.Module(m.name),
			logger.KeyActive, m.tracker.Active())

		start := time.Now()
		m.handle.Stop()
		m.closePool()

		m.setState(StateUnloaded)
		logger.Info("Module unloaded",
			logger.Module(m.name),
			logger.KeyDurationMs, time.Since(start).Milliseconds())
	})
	// Concurrent callers arrive here only after the first finished draining.
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Addr returns the address the listener is bound to.
func (m *Module) Addr() net.Addr { return m.addr }

// State returns the current lifecycle state.
func (m *Module) State() State { return State(m.state.Load()) }

// Executor returns the module's executor. Tasks spawned on it are drained
// by Unload.
func (m *Module) Executor() *executor.Executor { return m.handle.Executor() }

// closePool stops the module-owned worker pool once no task can be queued.
func (m *Module) closePool() {
	if m.pool != nil {
		m.pool.Close()
	}
}

func (m *Module) setState(s State) {
	prev := State(m.state.Swap(int32(s)))
	logger.Debug("Module state changed",
		logger.Module(m.name),
		logger.KeyState, s.String(),
		"previous", prev.String())
}
