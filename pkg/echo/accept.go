package echo

import (
	"context"
	"errors"
	"net"

	"github.com/google/uuid"

	"github.com/marmos91/ecuserver/internal/logger"
)

// acceptLoop accepts connections until the executor stops, spawning one
// connection task per stream without waiting for it.
//
// Accept failures never end the loop. Each one is counted, logged through
// the rate limited reporter, and followed by an exponential backoff that
// resets on the next successful accept. Failures the reporter suppressed are
// flushed as one line at that point, or when the loop returns. The loop ends when the executor
// context is cancelled (the listener is closed to wake Accept) or when the
// listener was closed by someone else.
func (s *server) acceptLoop(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.ln.Close()
	})
	defer stop()
	defer s.ln.Close()
	defer s.acceptErrors.flush(ctx)

	failures := 0
	for {
		if !s.acquire(ctx) {
			return nil
		}

		conn, err := s.ln.Accept()
		if err != nil {
			s.release()

			if ctx.Err() != nil {
				logger.DebugCtx(ctx, "Accept loop stopping", logger.KeyAddress, s.ln.Addr().String())
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			failures++
			delay := s.cfg.AcceptBackoff.Delay(failures)
			if s.metrics != nil {
				s.metrics.RecordAcceptError()
			}
			s.acceptErrors.report(ctx, err,
				logger.Attempt(failures),
				logger.KeyBackoff, delay)

			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}

		if failures > 0 {
			s.acceptErrors.flush(ctx)
			failures = 0
		}
		s.dispatch(ctx, conn)
	}
}

// acquire takes an admission slot when connections are bounded. It returns
// false if the executor stopped while waiting.
func (s *server) acquire(ctx context.Context) bool {
	if s.sem == nil {
		return true
	}
	select {
	case s.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *server) release() {
	if s.sem != nil {
		<-s.sem
	}
}

// dispatch hands conn to a new connection task. Ownership of conn moves to
// the task; if it cannot be spawned the stream is closed here.
func (s *server) dispatch(ctx context.Context, conn net.Conn) {
	active := s.tracker.active.Add(1)
	s.tracker.accepted.Add(1)
	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
	}

	c := &connection{
		srv:    s,
		conn:   conn,
		id:     uuid.NewString(),
		remote: conn.RemoteAddr().String(),
		local:  conn.LocalAddr().String(),
	}

	logger.DebugCtx(ctx, "Client connected",
		logger.ClientAddr(c.remote),
		logger.ConnectionID(c.id),
		logger.KeyActive, active)

	if _, err := s.ex.Spawn(TaskConnection, c.serve); err != nil {
		logger.DebugCtx(ctx, "Dropping connection, executor refused task",
			logger.KeyClientAddr, c.remote,
			logger.KeyError, err)
		_ = conn.Close()
		s.connectionDone()
	}
}

// connectionDone releases the accounting taken in dispatch.
func (s *server) connectionDone() {
	s.tracker.active.Add(-1)
	s.release()
	if s.metrics != nil {
		s.metrics.RecordConnectionClosed()
	}
}
