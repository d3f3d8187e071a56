package pulse

import (
	"errors"
	"fmt"

	"github.com/quartzos/pulse/pkg/pulse/core"
)

// Sentinel errors for dispatch.
var (
	// ErrUnhandledKind indicates an event was dispatched whose kind
	// has no registered handler. The event is dropped and returned to
	// the pool; the run loop continues.
	ErrUnhandledKind = errors.New("no handler registered for event kind")
)

// errNilPool guards dispatcher construction.
var errNilPool = errors.New("dispatcher requires a pool")

// HandlerError wraps a failure reported by a handler. Handler failures
// are logged and counted but never propagate to the run loop.
type HandlerError struct {
	// Queue is the queue the event came from.
	Queue string
	// Kind is the event's kind tag.
	Kind core.Kind
	// Err is the error the handler returned.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for kind %d (queue %s): %v", e.Kind, e.Queue, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a handler. The dispatcher
// recovers it and treats it as a handler failure; one bad event must
// never halt the run loop.
type PanicError struct {
	// Kind is the event's kind tag.
	Kind core.Kind
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler for kind %d panicked: %v", e.Kind, e.Value)
}
