package core

import (
	"fmt"
	"sync/atomic"

	"github.com/quartzos/pulse/pkg/pulse/hal"
)

// FullPolicy decides what Push does when a queue is at capacity.
type FullPolicy int

const (
	// Reject refuses the push. The caller keeps ownership of the
	// event and decides whether to release or retry later.
	Reject FullPolicy = iota

	// DropNewest releases the pushed event back to the pool and
	// reports ErrQueueFull. Ownership is resolved by the queue.
	DropNewest

	// DropOldest evicts the queue head to make room, releases the
	// evicted event, and enqueues the new one. Push returns nil.
	DropOldest
)

// String returns the policy name as used in configuration files.
func (p FullPolicy) String() string {
	switch p {
	case Reject:
		return "reject"
	case DropNewest:
		return "drop-newest"
	case DropOldest:
		return "drop-oldest"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseFullPolicy converts a configuration string to a FullPolicy.
func ParseFullPolicy(s string) (FullPolicy, error) {
	switch s {
	case "", "reject":
		return Reject, nil
	case "drop-newest":
		return DropNewest, nil
	case "drop-oldest":
		return DropOldest, nil
	default:
		return Reject, fmt.Errorf("unknown queue full policy %q", s)
	}
}

// QueueConfig configures a bounded event queue.
type QueueConfig struct {
	// Name identifies the queue in logs and metrics.
	Name string

	// Capacity bounds the queue length. Required, must be positive.
	Capacity int

	// Priority is the queue's rank at the dispatcher: 0 is serviced
	// first. Fixed at configuration time.
	Priority int

	// Policy decides behavior on a full queue. Default: Reject.
	Policy FullPolicy

	// Waker, when set, is signalled after every successful push so a
	// suspended dispatcher resumes.
	Waker hal.Waker
}

// Queue is a bounded FIFO of events awaiting dispatch. Events are
// linked intrusively through the pool; the queue itself stores only
// head, tail, and length. Push and Pop are O(1) and safe when one runs
// in a producer context and the other in the dispatcher concurrently.
//
// A queue never reorders internally. Priority between event classes is
// expressed by the dispatcher polling multiple queues in rank order,
// which keeps every operation constant-time and memory fixed.
type Queue struct {
	name     string
	capacity int
	priority int
	policy   FullPolicy

	pool    *Pool
	section hal.Section
	waker   hal.Waker

	head   Ref
	tail   Ref
	length int

	dropped atomic.Uint64
}

// NewQueue creates a queue over the given pool. The queue shares the
// pool's critical section, so a push and a concurrent release cannot
// interleave mid-link.
func NewQueue(pool *Pool, cfg QueueConfig) (*Queue, error) {
	if pool == nil {
		return nil, fmt.Errorf("queue %q: pool is required", cfg.Name)
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("queue %q: capacity must be positive, got %d", cfg.Name, cfg.Capacity)
	}
	if cfg.Capacity > pool.Capacity() {
		return nil, fmt.Errorf("queue %q: capacity %d exceeds pool capacity %d", cfg.Name, cfg.Capacity, pool.Capacity())
	}
	return &Queue{
		name:     cfg.Name,
		capacity: cfg.Capacity,
		priority: cfg.Priority,
		policy:   cfg.Policy,
		pool:     pool,
		section:  pool.section,
		waker:    cfg.Waker,
		head:     NoRef,
		tail:     NoRef,
	}, nil
}

// Push appends a checked-out event to the queue, transferring
// ownership to the queue. On a full queue the configured policy
// applies; see FullPolicy for the resulting ownership.
func (q *Queue) Push(ref Ref) error {
	q.section.Enter()
	if q.length == q.capacity {
		switch q.policy {
		case DropNewest:
			q.pool.releaseLocked(ref)
			q.dropped.Add(1)
			q.section.Exit()
			return ErrQueueFull
		case DropOldest:
			evicted := q.popLocked()
			q.pool.releaseLocked(evicted)
			q.dropped.Add(1)
			// Fall through to the normal link below.
		default:
			q.section.Exit()
			return ErrQueueFull
		}
	}
	e := &q.pool.slots[ref]
	e.next = NoRef
	e.state = stateQueued
	if q.tail == NoRef {
		q.head = ref
	} else {
		q.pool.slots[q.tail].next = ref
	}
	q.tail = ref
	q.length++
	q.section.Exit()

	if q.waker != nil {
		q.waker.Signal()
	}
	return nil
}

// Pop removes and returns the front event, transferring ownership to
// the caller. The second return is false when the queue is empty.
func (q *Queue) Pop() (Ref, bool) {
	q.section.Enter()
	if q.length == 0 {
		q.section.Exit()
		return NoRef, false
	}
	ref := q.popLocked()
	q.section.Exit()
	return ref, true
}

// popLocked requires the caller to hold the section and the queue to
// be non-empty.
func (q *Queue) popLocked() Ref {
	ref := q.head
	e := &q.pool.slots[ref]
	q.head = e.next
	if q.head == NoRef {
		q.tail = NoRef
	}
	e.next = NoRef
	e.state = stateCheckedOut
	q.length--
	return ref
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.section.Enter()
	n := q.length
	q.section.Exit()
	return n
}

// Name returns the queue's configured name.
func (q *Queue) Name() string { return q.name }

// Priority returns the queue's rank; lower is serviced first.
func (q *Queue) Priority() int { return q.priority }

// Capacity returns the fixed queue bound.
func (q *Queue) Capacity() int { return q.capacity }

// Policy returns the queue's configured full policy.
func (q *Queue) Policy() FullPolicy { return q.policy }

// Dropped returns the number of events this queue has discarded under
// its full policy since construction.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
