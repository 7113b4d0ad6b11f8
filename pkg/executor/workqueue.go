package executor

import "errors"

// WorkQueue is the host scheduling primitive an executor is bound to.
// Queue arranges for work to run at some later point and must not block
// on the work itself.
type WorkQueue interface {
	Queue(work func()) error
	Name() string
}

type systemWorkQueue struct{}

// SystemWorkQueue returns the default work queue. Every queued item runs on
// its own goroutine, so tasks that wait on network I/O are parked by the
// runtime poller instead of holding an OS thread.
func SystemWorkQueue() WorkQueue {
	return systemWorkQueue{}
}

func (systemWorkQueue) Queue(work func()) error {
	if work == nil {
		return errors.New("executor: nil work item")
	}
	go work()
	return nil
}

func (systemWorkQueue) Name() string { return "system" }

// WorkQueueFunc adapts a function to the WorkQueue interface.
type WorkQueueFunc func(work func()) error

// Queue calls f(work).
func (f WorkQueueFunc) Queue(work func()) error { return f(work) }

// Name implements WorkQueue.
func (f WorkQueueFunc) Name() string { return "func" }
