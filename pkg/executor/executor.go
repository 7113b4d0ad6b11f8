// Package executor runs named tasks on a host work queue and ties their
// lifetime to an owning Handle.
//
// A Handle owns exactly one Executor. The Executor is the spawning
// capability handed to components (and to tasks, so they can spawn further
// tasks). Stopping the Handle cancels the executor context, refuses new
// spawns, and blocks until every task already spawned has returned: no task
// outlives its executor.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/ecuserver/internal/logger"
)

// DefaultDrainWarningInterval is how long Stop waits before logging that
// tasks are still running. The warning repeats at this interval.
const DefaultDrainWarningInterval = 30 * time.Second

// Stats is a point-in-time snapshot of executor counters.
type Stats struct {
	Spawned   int64 `json:"spawned" yaml:"spawned"`
	Running   int64 `json:"running" yaml:"running"`
	Completed int64 `json:"completed" yaml:"completed"`
	Failed    int64 `json:"failed" yaml:"failed"`
	Panicked  int64 `json:"panicked" yaml:"panicked"`
	Cancelled int64 `json:"cancelled" yaml:"cancelled"`
}

// Executor spawns tasks onto a WorkQueue. It is safe for concurrent use.
type Executor struct {
	name     string
	wq       WorkQueue
	observer TaskObserver

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Spawn against Stop: a task is either registered with tasks
	// before stopping is set, or rejected.
	mu       sync.Mutex
	stopping bool
	tasks    sync.WaitGroup

	spawned   atomic.Int64
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
	cancelled atomic.Int64
}

// Option configures a Handle.
type Option func(*options)

type options struct {
	name         string
	observer     TaskObserver
	drainWarning time.Duration
}

// WithName sets the executor name used in logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTaskObserver installs a hook called after each task exits.
func WithTaskObserver(fn TaskObserver) Option {
	return func(o *options) { o.observer = fn }
}

// WithDrainWarningInterval sets how often Stop logs while tasks drain.
// Non-positive values keep the default.
func WithDrainWarningInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.drainWarning = d
		}
	}
}

// New creates an executor bound to wq and returns the Handle owning it.
// The work queue is probed once so an unusable queue fails here rather than
// on first spawn.
func New(wq WorkQueue, opts ...Option) (*Handle, error) {
	if wq == nil {
		return nil, ErrNoWorkQueue
	}

	o := options{name: "executor", drainWarning: DefaultDrainWarningInterval}
	for _, opt := range opts {
		opt(&o)
	}

	if err := wq.Queue(func() {}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWorkQueueUnavailable, wq.Name(), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ex := &Executor{
		name:     o.name,
		wq:       wq,
		observer: o.observer,
		ctx:      ctx,
		cancel:   cancel,
	}

	logger.Debug("Executor created",
		logger.KeyModule, o.name,
		logger.KeyQueue, wq.Name())

	return &Handle{ex: ex, drainWarning: o.drainWarning}, nil
}

// Context returns the executor root context. It is cancelled when Stop begins.
func (e *Executor) Context() context.Context {
	return e.ctx
}

// Name returns the executor name.
func (e *Executor) Name() string {
	return e.name
}

// Stats returns a snapshot of the task counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Spawned:   e.spawned.Load(),
		Running:   e.running.Load(),
		Completed: e.completed.Load(),
		Failed:    e.failed.Load(),
		Panicked:  e.panicked.Load(),
		Cancelled: e.cancelled.Load(),
	}
}

// Spawn registers fn as a task and queues it. The caller never waits for
// the task; its result is reported to the observer and the log. Spawn fails
// with ErrExecutorStopped once Stop has begun.
func (e *Executor) Spawn(name string, fn TaskFunc) (*Task, error) {
	if fn == nil {
		return nil, fmt.Errorf("executor: spawn %s: nil task", name)
	}

	e.mu.Lock()
	if e.stopping {
		e.mu.Unlock()
		return nil, ErrExecutorStopped
	}
	e.tasks.Add(1)
	e.running.Add(1)
	e.mu.Unlock()

	t := &Task{
		id:   uuid.NewString(),
		name: name,
		done: make(chan struct{}),
	}

	if err := e.wq.Queue(func() { e.run(t, fn) }); err != nil {
		e.running.Add(-1)
		e.tasks.Done()
		return nil, fmt.Errorf("executor: spawn %s: %w", name, err)
	}

	e.spawned.Add(1)
	return t, nil
}

// run executes one task on the work queue and accounts for its exit.
func (e *Executor) run(t *Task, fn TaskFunc) {
	t.started = time.Now()
	ctx := logger.WithContext(e.ctx, logger.NewLogContext(t.name, t.id))

	defer e.tasks.Done()
	defer close(t.done)

	t.err = e.call(ctx, t.name, fn)
	e.running.Add(-1)

	exit := TaskExit{
		Task:     t,
		Outcome:  e.classify(t.err),
		Err:      t.err,
		Duration: time.Since(t.started),
	}

	switch exit.Outcome {
	case OutcomeOK:
		e.completed.Add(1)
		logger.DebugCtx(ctx, "Task finished",
			logger.KeyOutcome, exit.Outcome,
			logger.DurationMs(logger.Duration(t.started)))
	case OutcomeCancelled:
		e.cancelled.Add(1)
		logger.DebugCtx(ctx, "Task cancelled",
			logger.KeyOutcome, exit.Outcome,
			logger.DurationMs(logger.Duration(t.started)))
	case OutcomePanic:
		e.panicked.Add(1)
		var pe *PanicError
		errors.As(t.err, &pe)
		logger.ErrorCtx(ctx, "Task panicked",
			logger.KeyOutcome, exit.Outcome,
			logger.Err(t.err),
			"stack", string(pe.Stack))
	default:
		e.failed.Add(1)
		logger.DebugCtx(ctx, "Task failed",
			logger.KeyOutcome, exit.Outcome,
			logger.Err(t.err))
	}

	if e.observer != nil {
		e.observer(exit)
	}
}

// call runs fn, converting a panic into a *PanicError.
func (e *Executor) call(ctx context.Context, name string, fn TaskFunc) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Task: name, Value: v, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}

func (e *Executor) classify(err error) Outcome {
	var pe *PanicError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &pe):
		return OutcomePanic
	case errors.Is(err, context.Canceled) && e.ctx.Err() != nil:
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

// beginStop forbids new spawns and cancels the root context.
func (e *Executor) beginStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopping = true
	e.cancel()
}
