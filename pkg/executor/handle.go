package executor

import (
	"sync"
	"time"

	"github.com/marmos91/ecuserver/internal/logger"
)

// Handle owns an Executor. Releasing it with Stop cancels every task and
// waits for them to drain.
type Handle struct {
	ex           *Executor
	drainWarning time.Duration

	stopOnce sync.Once
}

// Executor returns the spawning capability. Ownership stays with the Handle.
func (h *Handle) Executor() *Executor {
	return h.ex
}

// Stop forbids new spawns, cancels the executor context and blocks until
// every spawned task has returned. It is idempotent, and concurrent callers
// all return only once the executor is drained.
//
// Stop must not be called from inside a task of the same executor.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		start := time.Now()
		h.ex.beginStop()

		logger.Debug("Executor stopping",
			logger.KeyModule, h.ex.name,
			logger.KeyRunning, h.ex.running.Load())

		drained := make(chan struct{})
		go func() {
			h.ex.tasks.Wait()
			close(drained)
		}()

		ticker := time.NewTicker(h.drainWarning)
		defer ticker.Stop()

		for {
			select {
			case <-drained:
				logger.Debug("Executor stopped",
					logger.KeyModule, h.ex.name,
					logger.KeySpawned, h.ex.spawned.Load(),
					logger.KeyWaitedMs, time.Since(start).Milliseconds())
				return
			case <-ticker.C:
				logger.Warn("Executor still draining tasks",
					logger.KeyModule, h.ex.name,
					logger.KeyRunning, h.ex.running.Load(),
					logger.KeyWaitedMs, time.Since(start).Milliseconds())
			}
		}
	})
}

// Stopped reports whether Stop has begun.
func (h *Handle) Stopped() bool {
	return h.ex.ctx.Err() != nil
}
