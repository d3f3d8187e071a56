package core

import (
	"fmt"

	"github.com/quartzos/pulse/pkg/pulse/hal"
)

// PoolConfig configures a fixed-capacity event pool.
type PoolConfig struct {
	// Capacity is the number of event slots. Fixed for the pool's
	// lifetime. Required, must be positive.
	Capacity int

	// Section guards the free list. Shared with every queue built on
	// this pool. Default: hal.NewIRQMask().
	Section hal.Section

	// DebugChecks enables lifecycle assertions (double release,
	// release of a queued event). A violation panics; with checks off
	// it is undefined behavior, matching release builds on target.
	DebugChecks bool
}

// Pool is preallocated storage for events. Acquire and Release are
// O(1), never block, and never allocate after construction.
type Pool struct {
	section hal.Section
	slots   []Event
	free    []Ref
	checks  bool
}

// NewPool creates a pool with cfg.Capacity free slots.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.Section == nil {
		cfg.Section = hal.NewIRQMask()
	}

	p := &Pool{
		section: cfg.Section,
		slots:   make([]Event, cfg.Capacity),
		free:    make([]Ref, 0, cfg.Capacity),
		checks:  cfg.DebugChecks,
	}
	// Stack order makes the most recently released slot the next
	// acquired, which tests rely on to prove slot reuse.
	for i := cfg.Capacity - 1; i >= 0; i-- {
		p.slots[i].next = NoRef
		p.free = append(p.free, Ref(i))
	}
	return p, nil
}

// Acquire claims a free slot for the caller. It fails immediately with
// ErrPoolExhausted when none remain; callers in interrupt contexts
// treat that as expected backpressure and drop the work.
func (p *Pool) Acquire() (Ref, error) {
	p.section.Enter()
	n := len(p.free)
	if n == 0 {
		p.section.Exit()
		return NoRef, ErrPoolExhausted
	}
	ref := p.free[n-1]
	p.free = p.free[:n-1]
	e := &p.slots[ref]
	e.state = stateCheckedOut
	e.next = NoRef
	e.length = 0
	p.section.Exit()
	return ref, nil
}

// Release returns a checked-out slot to the free list. Releasing a slot
// that is free or still queued is a caller bug.
func (p *Pool) Release(ref Ref) {
	p.section.Enter()
	p.releaseLocked(ref)
	p.section.Exit()
}

// releaseLocked requires the caller to hold the section.
func (p *Pool) releaseLocked(ref Ref) {
	e := &p.slots[ref]
	if p.checks && e.state != stateCheckedOut {
		// State corruption; leave the section held and fail loudly.
		panic(fmt.Sprintf("pulse: release of slot %d in state %d", ref, e.state))
	}
	e.state = stateFree
	e.next = NoRef
	p.free = append(p.free, ref)
}

// Event returns the event stored in ref. The pointer is only valid
// while the caller owns the slot (checked out, or popped and not yet
// released).
func (p *Pool) Event(ref Ref) *Event {
	return &p.slots[ref]
}

// FreeCount returns the number of free slots.
func (p *Pool) FreeCount() int {
	p.section.Enter()
	n := len(p.free)
	p.section.Exit()
	return n
}

// Capacity returns the fixed slot count.
func (p *Pool) Capacity() int {
	return len(p.slots)
}
