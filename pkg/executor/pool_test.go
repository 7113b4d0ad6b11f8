package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolWorkQueue(t *testing.T) {
	t.Run("RaisesWorkerCount", func(t *testing.T) {
		p := NewPoolWorkQueue(0)
		defer p.Close()
		assert.Equal(t, MinPoolWorkers, p.Workers())
		assert.Equal(t, "pool/2", p.Name())
	})

	t.Run("RunsInFIFOOrder", func(t *testing.T) {
		p := NewPoolWorkQueue(MinPoolWorkers)
		defer p.Close()

		// Occupy one worker so the rest of the items run on a single worker.
		release := make(chan struct{})
		require.NoError(t, p.Queue(func() { <-release }))

		var mu sync.Mutex
		var order []int
		gate := make(chan struct{})
		require.NoError(t, p.Queue(func() { <-gate }))
		for i := 0; i < 5; i++ {
			require.NoError(t, p.Queue(func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
			}))
		}
		require.Eventually(t, func() bool { return p.Pending() == 5 },
			2*time.Second, time.Millisecond)

		close(gate)
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(order) == 5
		}, 2*time.Second, time.Millisecond)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
		close(release)
	})

	t.Run("BoundsConcurrency", func(t *testing.T) {
		const workers = 3
		p := NewPoolWorkQueue(workers)
		defer p.Close()

		var running, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 12; i++ {
			wg.Add(1)
			require.NoError(t, p.Queue(func() {
				defer wg.Done()
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
			}))
		}
		wg.Wait()
		assert.LessOrEqual(t, peak.Load(), int32(workers))
	})

	t.Run("CloseDrainsQueuedWork", func(t *testing.T) {
		p := NewPoolWorkQueue(MinPoolWorkers)

		var ran atomic.Int32
		for i := 0; i < 10; i++ {
			require.NoError(t, p.Queue(func() { ran.Add(1) }))
		}
		p.Close()
		assert.Equal(t, int32(10), ran.Load())

		assert.ErrorIs(t, p.Queue(func() {}), ErrWorkQueueClosed)
		p.Close()
	})

	t.Run("NilWork", func(t *testing.T) {
		p := NewPoolWorkQueue(MinPoolWorkers)
		defer p.Close()
		assert.Error(t, p.Queue(nil))
	})
}

func TestExecutorOnPoolWorkQueue(t *testing.T) {
	p := NewPoolWorkQueue(MinPoolWorkers)
	h, err := New(p, WithName("pooled"))
	require.NoError(t, err)

	// A long-running task holds one worker; short tasks share the other.
	blocker, err := h.Executor().Spawn("blocker", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	var done atomic.Int32
	for i := 0; i < 8; i++ {
		_, err := h.Executor().Spawn("short", func(ctx context.Context) error {
			done.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return done.Load() == 8 },
		2*time.Second, time.Millisecond)

	h.Stop()
	<-blocker.Done()
	p.Close()

	assert.Zero(t, h.Executor().Stats().Running)
	_, err = h.Executor().Spawn("late", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
