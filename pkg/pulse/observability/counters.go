package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// CounterRecorder is an in-memory MetricsRecorder backed by plain
// atomic counters. It serves two roles: the diagnostics surface on
// constrained targets that carry no OTel pipeline, and a deterministic
// recorder for tests that assert exact counts.
type CounterRecorder struct {
	dispatched    atomic.Uint64
	handlerErrors atomic.Uint64
	unhandled     atomic.Uint64
	poolExhausted atomic.Uint64
	queueFull     atomic.Uint64
	timerMissed   atomic.Uint64
}

// Compile-time interface check.
var _ MetricsRecorder = (*CounterRecorder)(nil)

// NewCounterRecorder creates a recorder with all counters at zero.
func NewCounterRecorder() *CounterRecorder {
	return &CounterRecorder{}
}

// RecordDispatch counts the dispatch and, on error, the failure.
func (c *CounterRecorder) RecordDispatch(_ context.Context, _ string, _ uint8, _ time.Duration, err error) {
	c.dispatched.Add(1)
	if err != nil {
		c.handlerErrors.Add(1)
	}
}

// RecordUnhandled counts an event with no registered handler.
func (c *CounterRecorder) RecordUnhandled(_ context.Context, _ string, _ uint8) {
	c.unhandled.Add(1)
}

// RecordPoolExhausted counts a failed acquisition.
func (c *CounterRecorder) RecordPoolExhausted(_ context.Context, _ string) {
	c.poolExhausted.Add(1)
}

// RecordQueueFull counts a refused push.
func (c *CounterRecorder) RecordQueueFull(_ context.Context, _ string) {
	c.queueFull.Add(1)
}

// RecordTimerMiss counts a skipped timer fire.
func (c *CounterRecorder) RecordTimerMiss(_ context.Context, _ string) {
	c.timerMissed.Add(1)
}

// Dispatched returns the number of events handed to handlers.
func (c *CounterRecorder) Dispatched() uint64 { return c.dispatched.Load() }

// HandlerErrors returns the number of handler failures.
func (c *CounterRecorder) HandlerErrors() uint64 { return c.handlerErrors.Load() }

// Unhandled returns the number of events without a handler.
func (c *CounterRecorder) Unhandled() uint64 { return c.unhandled.Load() }

// PoolExhausted returns the number of failed acquisitions.
func (c *CounterRecorder) PoolExhausted() uint64 { return c.poolExhausted.Load() }

// QueueFull returns the number of refused pushes.
func (c *CounterRecorder) QueueFull() uint64 { return c.queueFull.Load() }

// TimerMissed returns the number of skipped timer fires.
func (c *CounterRecorder) TimerMissed() uint64 { return c.timerMissed.Load() }
