// Package hal declares the small capability surface pulse consumes from
// the underlying kernel and hardware: a critical-section primitive, a
// monotonic tick source, a low-power wait, and a watchdog.
//
// The core never talks to hardware directly. On a real target these
// interfaces are backed by interrupt masking and WFI-style sleeps; the
// implementations in this package are host-side stand-ins with the same
// contracts, which keeps the dispatch core testable off-device.
package hal

import "context"

// Section is a critical section protecting state shared between producer
// contexts and the dispatcher. Enter/Exit pairs must be short, bounded,
// and constant-time; this is the only locking discipline in the system.
type Section interface {
	Enter()
	Exit()
}

// Waker wakes the dispatcher when a producer makes work available.
//
// Signal never blocks and is safe to call from any producer context,
// including concurrently with Wait. Repeated signals before a Wait
// coalesce into a single wakeup.
type Waker interface {
	Signal()
	Wait(ctx context.Context) error
}

// Watchdog is tickled by the dispatcher loop so an external watchdog
// timer does not conclude the process is hung.
type Watchdog interface {
	Tickle()
}

// NopWatchdog satisfies Watchdog without any backing hardware.
type NopWatchdog struct{}

// Tickle does nothing.
func (NopWatchdog) Tickle() {}
