package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ecuserver/internal/cli/health"
	"github.com/marmos91/ecuserver/pkg/api"
	"github.com/marmos91/ecuserver/pkg/config"
	"github.com/marmos91/ecuserver/pkg/module"
)

func TestStatePaths(t *testing.T) {
	if os.Getenv("LOCALAPPDATA") != "" {
		t.Skip("windows layout")
	}
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "ecuserver"), GetDefaultStateDir())
	assert.Equal(t, filepath.Join(dir, "ecuserver", "ecuserver.pid"), GetDefaultPidFile())
	assert.Equal(t, filepath.Join(dir, "ecuserver", "ecuserver.log"), GetDefaultLogFile())
}

func TestAPIConfigFromMetrics(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Metrics.Port = 9191

	apiCfg := apiConfig(cfg)
	assert.False(t, apiCfg.IsEnabled())
	assert.Equal(t, 9191, apiCfg.Port)
	assert.Equal(t, cfg.Metrics.IdleTimeout, apiCfg.IdleTimeout)

	cfg.Metrics.Enabled = true
	enabledCfg := apiConfig(cfg)
	assert.True(t, enabledCfg.IsEnabled())
}

func TestTelemetryConfigs(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRate = 0.5

	tc := telemetryConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "ecuserver", tc.ServiceName)
	assert.Equal(t, 0.5, tc.SampleRate)

	pc := profilingConfig(cfg)
	assert.False(t, pc.Enabled)
	assert.Equal(t, cfg.Telemetry.Profiling.ProfileTypes, pc.ProfileTypes)
}

func TestPidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ecuserver.pid")

	require.NoError(t, writePidFile(path))
	pid, err := readPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	running, ok := isProcessRunning(path)
	assert.True(t, ok)
	assert.Equal(t, os.Getpid(), running)

	t.Run("Missing", func(t *testing.T) {
		_, err := readPidFile(filepath.Join(dir, "missing.pid"))
		assert.True(t, os.IsNotExist(err))
		_, ok := isProcessRunning(filepath.Join(dir, "missing.pid"))
		assert.False(t, ok)
	})

	t.Run("Garbage", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.pid")
		require.NoError(t, os.WriteFile(bad, []byte("notanumber\n"), 0644))
		_, err := readPidFile(bad)
		assert.ErrorContains(t, err, "invalid PID")
	})
}

func TestExtractTimestamp(t *testing.T) {
	text := "[2026-01-15 10:30:45.123] [INFO] Echo server listening address=0.0.0.0:8080"
	got := extractTimestamp(text)
	want := time.Date(2026, 1, 15, 10, 30, 45, 123_000_000, time.Local)
	assert.True(t, want.Equal(got), "got %v", got)

	js := `{"time":"2026-01-15T10:30:45.123456Z","level":"INFO","msg":"Client connected"}`
	got = extractTimestamp(js)
	assert.True(t, time.Date(2026, 1, 15, 10, 30, 45, 123_456_000, time.UTC).Equal(got))

	assert.True(t, extractTimestamp("no timestamp here").IsZero())
	assert.True(t, extractTimestamp("[short]").IsZero())
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecuserver.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestShowLogs(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-01-15T10:00:00Z","msg":"one"}`,
		`{"time":"2026-01-15T11:00:00Z","msg":"two"}`,
		`{"time":"2026-01-15T12:00:00Z","msg":"three"}`,
		`continuation without timestamp`,
	)

	t.Run("Tail", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, showLogs(&buf, path, 2, time.Time{}))
		assert.Equal(t, "{\"time\":\"2026-01-15T12:00:00Z\",\"msg\":\"three\"}\ncontinuation without timestamp\n", buf.String())
	})

	t.Run("Since", func(t *testing.T) {
		var buf bytes.Buffer
		since := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
		require.NoError(t, showLogs(&buf, path, 100, since))
		assert.NotContains(t, buf.String(), `"one"`)
		assert.Contains(t, buf.String(), `"two"`)
		assert.Contains(t, buf.String(), "continuation")
	})

	t.Run("Missing", func(t *testing.T) {
		err := showLogs(&bytes.Buffer{}, filepath.Join(t.TempDir(), "nope.log"), 10, time.Time{})
		assert.ErrorContains(t, err, "failed to open log file")
	})
}

func TestFollowLogsStopsOnCancel(t *testing.T) {
	path := writeLog(t, "first")
	ctx, cancel := context.WithCancel(context.Background())

	var buf bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- followLogs(ctx, &buf, path, 10, time.Time{}) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("followLogs did not return after cancel")
	}
	assert.True(t, strings.HasPrefix(buf.String(), "first\n"))
}

func TestResolveLogFile(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	assert.Equal(t, "/var/log/ecuserver.log", resolveLogFile("/var/log/ecuserver.log"))
	assert.Equal(t, GetDefaultLogFile(), resolveLogFile("stdout"))
	assert.Equal(t, GetDefaultLogFile(), resolveLogFile("STDERR"))
}

type fixedStatus module.Status

func (s fixedStatus) Status() module.Status { return module.Status(s) }

func TestCollectStatus(t *testing.T) {
	missingPid := filepath.Join(t.TempDir(), "ecuserver.pid")

	t.Run("Stopped", func(t *testing.T) {
		srv := httptest.NewServer(api.NewRouter(nil))
		url := srv.URL
		srv.Close()

		st := collectStatus(context.Background(), missingPid, health.NewClient(url))
		assert.False(t, st.Running)
		assert.False(t, st.Healthy)
		assert.Equal(t, "Server is not running", st.Message)
	})

	t.Run("Ready", func(t *testing.T) {
		srv := httptest.NewServer(api.NewRouter(fixedStatus{
			Name:                module.DefaultName,
			State:               module.StateRunning.String(),
			Address:             "0.0.0.0:8080",
			StartedAt:           time.Now().Add(-time.Minute),
			AcceptedConnections: 3,
		}))
		defer srv.Close()

		st := collectStatus(context.Background(), missingPid, health.NewClient(srv.URL))
		assert.True(t, st.Running)
		assert.True(t, st.Healthy)
		require.NotNil(t, st.Module)
		assert.Equal(t, int64(3), st.Module.AcceptedConnections)

		var buf bytes.Buffer
		require.NoError(t, printStatusTable(&buf, st))
		out := buf.String()
		assert.Contains(t, out, "0.0.0.0:8080")
		assert.Contains(t, out, "echo_server (running)")
		assert.Contains(t, out, "Server is running and healthy")
	})

	t.Run("Unloading", func(t *testing.T) {
		srv := httptest.NewServer(api.NewRouter(fixedStatus{
			Name:  module.DefaultName,
			State: module.StateUnloading.String(),
		}))
		defer srv.Close()

		st := collectStatus(context.Background(), missingPid, health.NewClient(srv.URL))
		assert.True(t, st.Running)
		assert.False(t, st.Healthy)
		assert.Contains(t, st.Message, "not ready")
	})

	t.Run("PidOnly", func(t *testing.T) {
		pidPath := filepath.Join(t.TempDir(), "ecuserver.pid")
		require.NoError(t, os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644))

		srv := httptest.NewServer(api.NewRouter(nil))
		url := srv.URL
		srv.Close()

		st := collectStatus(context.Background(), pidPath, health.NewClient(url))
		assert.True(t, st.Running)
		assert.Equal(t, os.Getpid(), st.PID)
		assert.Contains(t, st.Message, "health check failed")
	})
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	root := GetRootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"version", "--short=false", "--output", "json"})
	require.NoError(t, root.Execute())

	var info VersionInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)

	buf.Reset()
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	assert.Equal(t, Version+"\n", buf.String())
}

func TestAwaitShutdown(t *testing.T) {
	t.Run("SignalWaitsForAPIStop", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var stopped atomic.Bool
		apiDone := make(chan error, 1)
		go func() {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			stopped.Store(true)
			apiDone <- nil
		}()

		sigChan := make(chan os.Signal, 1)
		sigChan <- syscall.SIGTERM

		require.NoError(t, awaitShutdown(sigChan, apiDone, cancel))
		assert.True(t, stopped.Load(), "API server must finish stopping first")
		assert.Error(t, ctx.Err())
	})

	t.Run("SignalWithoutAPI", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		sigChan <- syscall.SIGINT

		require.NoError(t, awaitShutdown(sigChan, nil, cancel))
		assert.Error(t, ctx.Err())
	})

	t.Run("APIFailure", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		boom := errors.New("address in use")
		apiDone := make(chan error, 1)
		apiDone <- boom

		err := awaitShutdown(make(chan os.Signal), apiDone, cancel)
		assert.ErrorIs(t, err, boom)
		assert.Error(t, ctx.Err())
	})
}
