package module

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/marmos91/ecuserver/pkg/echo"
	"github.com/marmos91/ecuserver/pkg/executor"
)

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Server.BindAddress = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func initModule(t *testing.T, opts ...Option) *Module {
	t.Helper()
	m, err := Init("test", testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(m.Unload)
	return m
}

// taskMetrics counts task exits by "name/outcome".
type taskMetrics struct {
	mu    sync.Mutex
	exits map[string]int
}

func (m *taskMetrics) RecordConnectionAccepted() {}
func (m *taskMetrics) RecordConnectionClosed()   {}
func (m *taskMetrics) RecordAcceptError()        {}
func (m *taskMetrics) RecordBytesRead(bytes int) {}
func (m *taskMetrics) RecordTaskExit(task, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exits == nil {
		m.exits = make(map[string]int)
	}
	m.exits[task+"/"+outcome]++
}

func (m *taskMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exits[key]
}

// failingQueue refuses every item.
type failingQueue struct{}

func (failingQueue) Queue(func()) error { return errors.New("queue offline") }
func (failingQueue) Name() string       { return "offline" }

// countingQueue runs items on goroutines and counts them.
type countingQueue struct{ queued atomic.Int64 }

func (q *countingQueue) Queue(work func()) error {
	q.queued.Add(1)
	go work()
	return nil
}
func (q *countingQueue) Name() string { return "counting" }

func TestStateString(t *testing.T) {
	assert.Equal(t, "unloaded", StateUnloaded.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "unloading", StateUnloading.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestInit(t *testing.T) {
	t.Run("StartsListener", func(t *testing.T) {
		m := initModule(t)

		assert.Equal(t, "test", m.Name())
		assert.Equal(t, StateRunning, m.State())
		require.NotNil(t, m.Addr())
		assert.NotZero(t, m.Addr().(*net.TCPAddr).Port)
		assert.Equal(t, int64(1), m.Executor().Stats().Running)
	})

	t.Run("DefaultName", func(t *testing.T) {
		m, err := Init("", testConfig())
		require.NoError(t, err)
		defer m.Unload()
		assert.Equal(t, DefaultName, m.Name())
	})

	t.Run("NilConfig", func(t *testing.T) {
		_, err := Init("test", nil)
		assert.ErrorIs(t, err, ErrNilConfig)
	})

	t.Run("WorkQueueUnavailable", func(t *testing.T) {
		_, err := Init("test", testConfig(), WithWorkQueue(failingQueue{}))
		assert.ErrorIs(t, err, executor.ErrWorkQueueUnavailable)
	})

	t.Run("CustomWorkQueue", func(t *testing.T) {
		q := &countingQueue{}
		initModule(t, WithWorkQueue(q))
		// Probe plus accept loop.
		assert.Equal(t, int64(2), q.queued.Load())
	})

	t.Run("WorkerPool", func(t *testing.T) {
		cfg := testConfig()
		cfg.Server.Workers = 3

		m, err := Init("test", cfg)
		require.NoError(t, err)
		require.NotNil(t, m.pool)
		assert.Equal(t, 3, m.pool.Workers())

		for i := 0; i < 5; i++ {
			c, err := net.DialTimeout("tcp", m.Addr().String(), 2*time.Second)
			require.NoError(t, err)
			_, err = c.Write([]byte("ping"))
			require.NoError(t, err)
			_ = c.Close()
		}
		require.Eventually(t, func() bool {
			return m.Executor().Stats().Completed >= 5
		}, 5*time.Second, 5*time.Millisecond)

		m.Unload()
		assert.Equal(t, StateUnloaded, m.State())
		assert.ErrorIs(t, m.pool.Queue(func() {}), executor.ErrWorkQueueClosed)
	})

	t.Run("BindFailureLeavesNothingRunning", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer taken.Close()

		cfg := testConfig()
		cfg.Server.Port = taken.Addr().(*net.TCPAddr).Port

		m, err := Init("test", cfg)
		assert.Nil(t, m)
		var be *echo.BindError
		require.ErrorAs(t, err, &be)
		assert.Contains(t, err.Error(), "module test")
	})

	t.Run("CustomNetwork", func(t *testing.T) {
		var calls atomic.Int32
		n := echo.NetworkFunc(func(ctx context.Context, network, address string) (net.Listener, error) {
			calls.Add(1)
			return echo.HostNetwork().Listen(ctx, network, address)
		})
		initModule(t, WithNetwork(n))
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestUnloadDrainsConnections(t *testing.T) {
	m, err := Init("test", testConfig())
	require.NoError(t, err)

	const clients = 5
	conns := make([]net.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		c, err := net.DialTimeout("tcp", m.Addr().String(), 2*time.Second)
		require.NoError(t, err)
		defer c.Close()
		conns = append(conns, c)
	}

	require.Eventually(t, func() bool {
		return m.Status().ActiveConnections == clients
	}, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		m.Unload()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Unload did not return")
	}

	assert.Equal(t, StateUnloaded, m.State())
	stats := m.Executor().Stats()
	assert.Zero(t, stats.Running)
	assert.Equal(t, int64(clients), stats.Cancelled)

	// The listener is gone once Unload returns.
	_, err = net.DialTimeout("tcp", m.Addr().String(), 500*time.Millisecond)
	assert.Error(t, err)

	for _, c := range conns {
		_ = c.SetReadDeadline(time.Now().Add(time.Second))
		_, err := c.Read(make([]byte, 1))
		assert.Error(t, err)
	}
}

func TestUnloadIsIdempotent(t *testing.T) {
	m, err := Init("test", testConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Unload()
		}()
	}
	wg.Wait()
	m.Unload()

	assert.Equal(t, StateUnloaded, m.State())
}

func TestTaskExitsAreRecorded(t *testing.T) {
	tm := &taskMetrics{}
	m, err := Init("test", testConfig(), WithMetrics(tm))
	require.NoError(t, err)

	c, err := net.DialTimeout("tcp", m.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	_, err = c.Write([]byte("ping"))
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		return tm.count(echo.TaskConnection+"/ok") == 1
	}, 2*time.Second, 5*time.Millisecond)

	m.Unload()
	assert.Equal(t, 1, tm.count(echo.TaskAcceptLoop+"/ok"))
}

func TestStatus(t *testing.T) {
	m := initModule(t)

	c, err := net.DialTimeout("tcp", m.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		return m.Status().AcceptedConnections == 1
	}, 2*time.Second, 5*time.Millisecond)

	st := m.Status()
	assert.Equal(t, "test", st.Name)
	assert.Equal(t, "running", st.State)
	assert.True(t, st.Running())
	assert.Equal(t, m.Addr().String(), st.Address)
	assert.False(t, st.StartedAt.IsZero())
	assert.GreaterOrEqual(t, st.Tasks.Spawned, int64(2))
}
