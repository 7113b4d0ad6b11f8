package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eapache/queue"
)

// ErrWorkQueueClosed is returned by PoolWorkQueue.Queue after Close.
var ErrWorkQueueClosed = errors.New("executor: work queue closed")

// MinPoolWorkers is the smallest usable pool: the accept loop occupies one
// worker for its whole lifetime.
const MinPoolWorkers = 2

// PoolWorkQueue runs queued work on a fixed set of worker goroutines,
// taking items in FIFO order. Queue never blocks: items wait in an
// unbounded ring buffer until a worker is free.
//
// A task that blocks holds its worker, so long reads delay the tasks queued
// behind them. The pool must outlive every executor bound to it; close it
// after Handle.Stop returns.
type PoolWorkQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *queue.Queue
	closed bool

	workers int
	wg      sync.WaitGroup
}

// NewPoolWorkQueue starts a pool with the given number of workers. Values
// below MinPoolWorkers are raised to it.
func NewPoolWorkQueue(workers int) *PoolWorkQueue {
	if workers < MinPoolWorkers {
		workers = MinPoolWorkers
	}
	p := &PoolWorkQueue{
		items:   queue.New(),
		workers: workers,
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Queue appends work to the FIFO.
func (p *PoolWorkQueue) Queue(work func()) error {
	if work == nil {
		return errors.New("executor: nil work item")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrWorkQueueClosed
	}
	p.items.Add(work)
	p.cond.Signal()
	return nil
}

// Name implements WorkQueue.
func (p *PoolWorkQueue) Name() string { return fmt.Sprintf("pool/%d", p.workers) }

// Workers returns the number of worker goroutines.
func (p *PoolWorkQueue) Workers() int { return p.workers }

// Pending returns the number of items waiting for a worker.
func (p *PoolWorkQueue) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.items.Length()
}

// Close refuses new work, lets the workers finish what is already queued
// and waits for them to exit. It is safe to call more than once.
func (p *PoolWorkQueue) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PoolWorkQueue) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.items.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.items.Length() == 0 {
			p.mu.Unlock()
			return
		}
		work := p.items.Remove().(func())
		p.mu.Unlock()

		work()
	}
}
