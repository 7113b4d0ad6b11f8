package executor

import (
	"context"
	"time"
)

// TaskFunc is a unit of work run by the executor. The context is cancelled
// when the executor stops; blocking I/O should be tied to it, typically with
// context.AfterFunc closing the underlying resource.
type TaskFunc func(ctx context.Context) error

// Outcome classifies how a task ended.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeError     Outcome = "error"
	OutcomePanic     Outcome = "panic"
	OutcomeCancelled Outcome = "cancelled"
)

// Task is the handle returned by Spawn.
type Task struct {
	id      string
	name    string
	started time.Time
	done    chan struct{}
	err     error
}

// ID returns the unique task identifier.
func (t *Task) ID() string { return t.id }

// Name returns the name given at spawn time.
func (t *Task) Name() string { return t.name }

// Done is closed once the task has returned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task result. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task returns or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TaskExit describes a finished task. It is delivered to the TaskObserver.
type TaskExit struct {
	Task     *Task
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// TaskObserver is notified after every task exit. It runs on the task's
// goroutine and must not block.
type TaskObserver func(TaskExit)
