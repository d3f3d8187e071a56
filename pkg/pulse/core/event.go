package core

import "fmt"

// Kind tags an event with its payload variant and selects the handler
// at dispatch time. The tag set is closed and known at configuration
// time; dispatch is a direct table lookup.
type Kind uint8

// PayloadSize is the fixed payload capacity of every event, in bytes.
// Payloads are stored inline; nothing in an event points at the heap.
const PayloadSize = 32

// Ref identifies a pool slot. Refs are how events are passed between
// producers, queues, and the dispatcher; the Event struct itself never
// leaves the pool's backing array.
type Ref int32

// NoRef is the null slot reference.
const NoRef Ref = -1

// Lifecycle states of a pool slot. An event is in exactly one of these
// at any moment; the pool and queues maintain the transitions.
const (
	stateFree uint8 = iota
	stateCheckedOut
	stateQueued
)

// Event is a single unit of work: a kind tag, an inline payload, and
// the intrusive link used while the event sits in a queue.
type Event struct {
	Kind Kind

	payload [PayloadSize]byte
	length  uint8

	next  Ref
	state uint8
}

// SetPayload copies b into the event's inline payload buffer.
// Payloads larger than PayloadSize are refused rather than truncated.
func (e *Event) SetPayload(b []byte) error {
	if len(b) > PayloadSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(b), PayloadSize)
	}
	copy(e.payload[:], b)
	e.length = uint8(len(b))
	return nil
}

// Payload returns the event's payload bytes. The returned slice aliases
// pool storage and is only valid until the event is released.
func (e *Event) Payload() []byte {
	return e.payload[:e.length]
}

// Template is a prototype event used by producers that fire the same
// event repeatedly, such as timers. Copying a template into an acquired
// slot involves no allocation.
type Template struct {
	Kind Kind
	data [PayloadSize]byte
	len  uint8
}

// NewTemplate builds a template for the given kind and payload.
func NewTemplate(kind Kind, payload []byte) (Template, error) {
	var t Template
	if len(payload) > PayloadSize {
		return t, fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(payload), PayloadSize)
	}
	t.Kind = kind
	copy(t.data[:], payload)
	t.len = uint8(len(payload))
	return t, nil
}

// MustTemplate is NewTemplate for payloads known to fit, typically
// constants. It panics on oversize payloads.
func MustTemplate(kind Kind, payload []byte) Template {
	t, err := NewTemplate(kind, payload)
	if err != nil {
		panic(err)
	}
	return t
}

// Stamp copies the template into an event.
func (t Template) Stamp(e *Event) {
	e.Kind = t.Kind
	e.payload = t.data
	e.length = t.len
}
