package echo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/marmos91/ecuserver/internal/logger"
	"github.com/marmos91/ecuserver/internal/telemetry"
)

// connection is one accepted stream and the task serving it.
type connection struct {
	srv    *server
	conn   net.Conn
	id     string
	remote string
	local  string
}

// serve performs exactly one read of at most ReadBufferSize bytes and
// returns. Received bytes are counted and discarded; nothing is written back
// and any bytes beyond the buffer are left unread. The stream is closed when
// serve returns.
//
// A peer that closes without sending is not an error. A read interrupted by
// executor stop returns the context error so the executor reports it as a
// cancellation. Any other read error is returned, wrapped with the peer
// address.
func (c *connection) serve(ctx context.Context) error {
	defer c.srv.connectionDone()
	defer func() { _ = c.conn.Close() }()

	lc := logger.FromContext(ctx)
	if lc == nil {
		lc = logger.NewLogContext(TaskConnection, "")
	}

	ctx, span := telemetry.StartServeSpan(ctx, c.id, c.remote,
		telemetry.ServerAddr(c.local),
		telemetry.TaskName(lc.Task),
		telemetry.TaskID(lc.TaskID),
		telemetry.BufferSize(c.srv.cfg.ReadBufferSize))
	defer span.End()

	ctx = logger.WithContext(ctx, lc.
		WithConnection(c.id, c.remote).
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.Close()
	})
	defer stop()

	buf := c.srv.buffers.Get()
	n, err := c.conn.Read(buf)
	c.srv.buffers.Put(buf)

	if n > 0 {
		if c.srv.metrics != nil {
			c.srv.metrics.RecordBytesRead(n)
		}
		telemetry.SetAttributes(ctx, telemetry.BytesRead(n))
		logger.DebugCtx(ctx, "Read completed", logger.BytesRead(n))
		return nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		if c.srv.metrics != nil {
			c.srv.metrics.RecordBytesRead(0)
		}
		telemetry.SetAttributes(ctx, telemetry.BytesRead(0), telemetry.NoData(true))
		logger.DebugCtx(ctx, "No data received")
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	err = fmt.Errorf("echo: read from %s: %w", c.remote, err)
	telemetry.RecordError(ctx, err)
	return err
}
