// Package trace is a host-side flight recorder for the dispatch core.
// It journals dispatch outcomes and drop diagnostics so a misbehaving
// watch face can be debugged post-mortem from a desk, where storage
// and allocation are cheap. Nothing in this package is used on the
// producer or dispatch fast path of a constrained target.
package trace

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies a recorded dispatch cycle.
const (
	OutcomeHandled      = "handled"
	OutcomeHandlerError = "handler-error"
	OutcomeUnhandled    = "unhandled"
)

// Record is one journaled dispatch cycle.
type Record struct {
	// Session groups records from one dispatcher run.
	Session string

	// Seq orders records within a session.
	Seq uint64

	// At is the wall-clock time of the dispatch.
	At time.Time

	// Queue is the queue the event was popped from.
	Queue string

	// Kind is the event's kind tag.
	Kind uint8

	// Payload is a copy of the event payload.
	Payload []byte

	// Outcome is one of the Outcome constants.
	Outcome string

	// Error holds the handler error text, if any.
	Error string
}

// Store persists dispatch records.
type Store interface {
	// Append adds a record to the journal.
	Append(ctx context.Context, rec Record) error

	// List returns all records for a session in sequence order.
	List(ctx context.Context, session string) ([]Record, error)

	// Sessions returns the distinct session IDs in the store.
	Sessions(ctx context.Context) ([]string, error)

	// Close releases store resources.
	Close() error
}

// Recorder stamps records with a session ID and sequence number and
// forwards them to a Store. Failures to persist are swallowed: the
// flight recorder must never disturb the run loop.
type Recorder struct {
	store   Store
	session string
	seq     atomic.Uint64
}

// NewRecorder creates a recorder writing to store under a fresh
// session ID.
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:   store,
		session: uuid.New().String(),
	}
}

// Session returns the recorder's session ID.
func (r *Recorder) Session() string {
	return r.session
}

// Record journals one dispatch cycle. The payload is copied.
func (r *Recorder) Record(ctx context.Context, queue string, kind uint8, payload []byte, outcome string, err error) {
	rec := Record{
		Session: r.session,
		Seq:     r.seq.Add(1),
		At:      time.Now(),
		Queue:   queue,
		Kind:    kind,
		Payload: append([]byte(nil), payload...),
		Outcome: outcome,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	_ = r.store.Append(ctx, rec)
}
