package hal

import "context"

// ChanWaker implements Waker over a 1-buffered channel. A producer's
// Signal either deposits the single wakeup token or finds it already
// present; Wait consumes it or returns when the context is done.
type ChanWaker struct {
	ch chan struct{}
}

// Compile-time interface check.
var _ Waker = (*ChanWaker)(nil)

// NewChanWaker creates a waker with no pending wakeup.
func NewChanWaker() *ChanWaker {
	return &ChanWaker{ch: make(chan struct{}, 1)}
}

// Signal records a pending wakeup. Non-blocking.
func (w *ChanWaker) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a wakeup is pending or ctx is done.
func (w *ChanWaker) Wait(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
