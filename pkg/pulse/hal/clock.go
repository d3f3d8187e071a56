package hal

import (
	"sync/atomic"
	"time"
)

// Tick is a monotonic kernel tick. It wraps at the uint32 boundary;
// ordering must go through TickBefore rather than raw comparison.
type Tick uint32

// TickBefore reports whether a precedes b in wrap-aware tick order.
// Valid as long as compared ticks are within half the modulus of each
// other, which holds for any realistic deadline horizon.
func TickBefore(a, b Tick) bool {
	return int32(a-b) < 0
}

// TickAfter reports whether a follows b in wrap-aware tick order.
func TickAfter(a, b Tick) bool {
	return int32(a-b) > 0
}

// TickSource provides the current monotonic tick.
type TickSource interface {
	Now() Tick
}

// SimClock is a manually advanced tick source for deterministic tests
// and host simulation. Advance drives an optional per-tick callback,
// which is how the timer service is stepped.
type SimClock struct {
	now    atomic.Uint32
	onTick func(Tick)
}

// NewSimClock creates a clock at tick zero.
func NewSimClock() *SimClock {
	return &SimClock{}
}

// Now returns the current tick.
func (c *SimClock) Now() Tick {
	return Tick(c.now.Load())
}

// OnTick registers a callback invoked once per elapsed tick during
// Advance, after the tick counter has moved.
func (c *SimClock) OnTick(fn func(Tick)) {
	c.onTick = fn
}

// Advance moves the clock forward n ticks, invoking the tick callback
// at each step.
func (c *SimClock) Advance(n uint32) {
	for i := uint32(0); i < n; i++ {
		now := Tick(c.now.Add(1))
		if c.onTick != nil {
			c.onTick(now)
		}
	}
}

// WallClock derives ticks from wall time at a fixed rate. It backs the
// runnable examples; tests use SimClock.
type WallClock struct {
	start    time.Time
	interval time.Duration
}

// NewWallClock creates a tick source advancing once per interval.
func NewWallClock(interval time.Duration) *WallClock {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &WallClock{start: time.Now(), interval: interval}
}

// Now returns the number of intervals elapsed since construction.
func (c *WallClock) Now() Tick {
	return Tick(time.Since(c.start) / c.interval)
}
