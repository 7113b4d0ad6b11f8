package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoWorkQueue is returned by New when no work queue is supplied.
	ErrNoWorkQueue = errors.New("executor: no work queue")

	// ErrWorkQueueUnavailable is returned by New when the work queue refuses work.
	ErrWorkQueueUnavailable = errors.New("executor: work queue unavailable")

	// ErrExecutorStopped is returned by Spawn once Stop has begun.
	ErrExecutorStopped = errors.New("executor: stopped")
)

// PanicError is the result of a task that panicked. The executor recovers
// the panic and reports it like any other task error.
type PanicError struct {
	Task  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.Task, e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
