package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function restoring output, format and level.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	originalFormat := format
	output = buf
	useColor = false
	format = "text"
	mu.Unlock()
	originalLevel := levelVar.Level()

	reconfigure()

	return buf, func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		format = originalFormat
		mu.Unlock()
		levelVar.Set(originalLevel)
		reconfigure()
	}
}

func TestLevelFiltering(t *testing.T) {
	emitAll := func() {
		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")
	}

	t.Run("DebugLevelShowsAllMessages", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("DEBUG"))
		emitAll()

		out := buf.String()
		for _, want := range []string{"[DEBUG]", "[INFO]", "[WARN]", "[ERROR]", "debug message", "error message"} {
			assert.Contains(t, out, want)
		}
	})

	t.Run("InfoLevelFiltersDebug", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("INFO"))
		emitAll()

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "error message")
	})

	t.Run("ErrorLevelShowsOnlyErrors", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("ERROR"))
		emitAll()

		out := buf.String()
		assert.NotContains(t, out, "info message")
		assert.NotContains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("warn"))
		assert.False(t, Enabled(slog.LevelInfo))
		assert.True(t, Enabled(slog.LevelWarn))
	})

	t.Run("RejectsInvalidValues", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("INFO"))
		assert.Error(t, SetLevel("VERBOSE"))
		assert.True(t, Enabled(slog.LevelInfo), "level must be unchanged after a rejected value")
		assert.False(t, Enabled(slog.LevelDebug))
	})

	t.Run("ParseLevelAcceptsWarningAlias", func(t *testing.T) {
		l, err := ParseLevel(" warning ")
		require.NoError(t, err)
		assert.Equal(t, slog.LevelWarn, l)
	})
}

func TestTextHandler(t *testing.T) {
	t.Run("FormatsTimestampLevelAndFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("connection accepted", KeyClientAddr, "10.0.0.1:5123", KeyBytesRead, 8)

		line := strings.TrimSpace(buf.String())
		assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\] \[INFO\] connection accepted`, line)
		assert.Contains(t, line, "client_addr=10.0.0.1:5123")
		assert.Contains(t, line, "bytes_read=8")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("read failed", KeyError, "connection reset by peer")
		assert.Contains(t, buf.String(), `error="connection reset by peer"`)
	})

	t.Run("FlattensGroups", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		With("module", "echo").WithGroup("listener").Info("bound", "port", 8080)

		out := buf.String()
		assert.Contains(t, out, "module=echo")
		assert.Contains(t, out, "listener.port=8080")
	})

	t.Run("NoColorCodesWhenDisabled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Warn("plain")
		assert.NotContains(t, buf.String(), "\033[")
	})

	t.Run("ColorCodesWhenEnabled", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewColorTextHandler(&buf, nil, true)
		slog.New(h).Error("boom", "k", "v")

		out := buf.String()
		assert.Contains(t, out, colorRed+"ERROR"+colorReset)
		assert.Contains(t, out, colorCyan+"k"+colorReset+"=v")
	})
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	require.NoError(t, SetFormat("json"))
	Info("listener bound", KeyAddress, "0.0.0.0:8080")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "listener bound", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "0.0.0.0:8080", entry[KeyAddress])
	assert.Contains(t, entry, "time")
}

func TestSetFormatRejectsUnknown(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	assert.Error(t, SetFormat("xml"))
	Info("still text")
	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		lc := NewLogContext("conn", "task-1").
			WithConnection("c-42", "192.168.1.5:40000").
			WithTrace("abc123", "def456")
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "no data received", KeyBytesRead, 0)

		out := buf.String()
		assert.Contains(t, out, "trace_id=abc123")
		assert.Contains(t, out, "span_id=def456")
		assert.Contains(t, out, "task=conn")
		assert.Contains(t, out, "task_id=task-1")
		assert.Contains(t, out, "connection_id=c-42")
		assert.Contains(t, out, "client_addr=192.168.1.5:40000")
		assert.Less(t, strings.Index(out, "trace_id"), strings.Index(out, "bytes_read"),
			"context fields come before call-site fields")
	})

	t.Run("ContextWithoutLogContext", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		WarnCtx(context.Background(), "plain warning", "k", 1)
		assert.Contains(t, buf.String(), "plain warning k=1")
	})

	t.Run("DebugCtxRespectsLevel", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		require.NoError(t, SetLevel("INFO"))
		DebugCtx(context.Background(), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContextStampsStartTime", func(t *testing.T) {
		lc := NewLogContext("accept-loop", "id")
		assert.Equal(t, "accept-loop", lc.Task)
		assert.WithinDuration(t, time.Now(), lc.StartTime, time.Second)
	})

	t.Run("WithConnectionDoesNotMutateParent", func(t *testing.T) {
		parent := NewLogContext("conn", "id")
		child := parent.WithConnection("c-1", "1.2.3.4:5")

		assert.Empty(t, parent.ConnectionID)
		assert.Equal(t, "c-1", child.ConnectionID)
		assert.Equal(t, "1.2.3.4:5", child.ClientAddr)
	})

	t.Run("NilReceivers", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithConnection("a", "b"))
		assert.Nil(t, lc.WithTrace("a", "b"))
		assert.Zero(t, lc.Elapsed())
	})

	t.Run("FromContextMissing", func(t *testing.T) {
		assert.Nil(t, FromContext(context.Background()))
	})
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "", Err(nil).Value.String())
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
	assert.Equal(t, int64(8), BytesRead(8).Value.Int64())
	assert.Equal(t, KeyConnectionID, ConnectionID("x").Key)
	assert.Equal(t, KeyClientAddr, ClientAddr("127.0.0.1:1").Key)
	assert.Equal(t, "ecuserver", Module("ecuserver").Value.String())
	assert.Equal(t, int64(3), Attempt(3).Value.Int64())
	assert.Equal(t, 1.5, DurationMs(1.5).Value.Float64())
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Info("tick", "worker", n, "seq", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 16*50)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "["), "interleaved line: %q", l)
	}
}

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		var buf bytes.Buffer
		InitWithWriter(&buf, "DEBUG", "text", false)
		Debug("visible")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("InitWithFileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "ecuserver.log")
		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file", "n", 1)
		require.NoError(t, Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file n=1")
	})

	t.Run("InitRejectsBadLevel", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		err := Init(Config{Level: "LOUD"})
		assert.Error(t, err)
	})

	t.Run("InitFailsOnUnwritablePath", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open log file")
	})
}

func TestDuration(t *testing.T) {
	start := time.Now().Add(-25 * time.Millisecond)
	d := Duration(start)
	assert.GreaterOrEqual(t, d, 25.0, fmt.Sprintf("got %f", d))
}
