package echo

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/ecuserver/internal/logger"
)

// errorReporter logs repeated failures without flooding the log. The first
// failure is logged immediately. Later ones are counted and folded into at
// most one line per interval.
type errorReporter struct {
	msg      string
	interval time.Duration
	now      func() time.Time

	mu         sync.Mutex
	lastLogged time.Time
	suppressed int
}

func newErrorReporter(msg string, interval time.Duration) *errorReporter {
	return &errorReporter{msg: msg, interval: interval, now: time.Now}
}

// report logs err or counts it as suppressed. It returns true when a line
// was written.
func (r *errorReporter) report(ctx context.Context, err error, args ...any) bool {
	r.mu.Lock()
	now := r.now()
	if !r.lastLogged.IsZero() && now.Sub(r.lastLogged) < r.interval {
		r.suppressed++
		r.mu.Unlock()
		return false
	}
	suppressed := r.suppressed
	r.suppressed = 0
	r.lastLogged = now
	r.mu.Unlock()

	args = append(args, logger.KeyError, err)
	if suppressed > 0 {
		args = append(args, logger.KeySuppressed, suppressed)
	}
	logger.WarnCtx(ctx, r.msg, args...)
	return true
}

// flush logs the failures suppressed since the last line, if any. It
// returns true when a line was written.
func (r *errorReporter) flush(ctx context.Context) bool {
	r.mu.Lock()
	suppressed := r.suppressed
	r.suppressed = 0
	r.mu.Unlock()

	if suppressed == 0 {
		return false
	}
	logger.WarnCtx(ctx, r.msg+" (suppressed since last report)",
		logger.KeySuppressed, suppressed)
	return true
}
