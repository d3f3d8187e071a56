package core

import "errors"

// Sentinel errors for the storage layer. Both exhaustion errors are
// expected, recoverable conditions under load: producers must drop or
// coalesce the work, never retry inside the producing context.
var (
	// ErrPoolExhausted indicates no free event slots remain.
	ErrPoolExhausted = errors.New("event pool exhausted")

	// ErrQueueFull indicates a queue is at capacity and the configured
	// policy refused the push.
	ErrQueueFull = errors.New("event queue full")

	// ErrPayloadTooLarge indicates a payload exceeds PayloadSize.
	ErrPayloadTooLarge = errors.New("payload exceeds fixed event size")
)
