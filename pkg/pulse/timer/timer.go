// Package timer schedules future event deliveries into event queues,
// driven by a periodic hardware tick. Entries live in a fixed-capacity
// table and are kept in a deadline-sorted intrusive list, so the
// per-tick due check is a single head comparison and nothing grows at
// runtime.
package timer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quartzos/pulse/pkg/pulse/core"
	"github.com/quartzos/pulse/pkg/pulse/hal"
	"github.com/quartzos/pulse/pkg/pulse/observability"
)

// Sentinel errors for the timer service.
var (
	// ErrNotFound indicates a cancel raced a one-shot fire or used a
	// stale ID. Cancellation is best-effort; this is not a fault.
	ErrNotFound = errors.New("timer not found")

	// ErrTableFull indicates the fixed timer table has no free entry.
	ErrTableFull = errors.New("timer table full")
)

// ID identifies a scheduled timer. The high half carries a generation
// counter so an ID that outlives its entry is detected instead of
// cancelling an unrelated reuse of the slot.
type ID uint32

const noEntry = int32(-1)

func makeID(slot int32, gen uint16) ID {
	return ID(uint32(gen)<<16 | uint32(uint16(slot)))
}

func (id ID) slot() int32 { return int32(id & 0xFFFF) }
func (id ID) gen() uint16 { return uint16(id >> 16) }

type entry struct {
	deadline hal.Tick
	period   uint32
	queue    *core.Queue
	template core.Template
	gen      uint16
	active   bool
	next     int32
}

// Config configures the timer service.
type Config struct {
	// Capacity is the fixed number of concurrently scheduled timers.
	// Required, must be positive.
	Capacity int

	// Pool supplies the event objects materialized at fire time.
	// Required.
	Pool *core.Pool

	// Clock provides the current tick for Schedule. Required.
	Clock hal.TickSource

	// Section guards the entry table. Schedule and Cancel may be
	// called from application context while OnTick runs from the tick
	// interrupt. Default: hal.NewIRQMask().
	Section hal.Section

	// Logger for dropped fires. Optional.
	Logger *slog.Logger

	// Metrics is the diagnostics channel for dropped and lagging
	// fires. Default: observability.NoopMetrics{}.
	Metrics observability.MetricsRecorder
}

// Service is the timer producer. On each tick it materializes events
// for due entries from the pool and pushes them at their target
// queues. A saturated pool or queue drops the fire (counted, never
// fatal) and periodic deadlines keep advancing from the original
// schedule, so a stall neither drifts the period nor bursts a backlog
// when pressure clears.
type Service struct {
	section hal.Section
	pool    *core.Pool
	clock   hal.TickSource
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	entries  []entry
	freeHead int32
	dueHead  int32
}

// New creates a timer service with a fixed entry table.
func New(cfg Config) (*Service, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("timer capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.Capacity > 0xFFFF {
		return nil, fmt.Errorf("timer capacity %d exceeds slot addressing limit", cfg.Capacity)
	}
	if cfg.Pool == nil {
		return nil, errors.New("timer service requires a pool")
	}
	if cfg.Clock == nil {
		return nil, errors.New("timer service requires a tick source")
	}
	if cfg.Section == nil {
		cfg.Section = hal.NewIRQMask()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}

	s := &Service{
		section:  cfg.Section,
		pool:     cfg.Pool,
		clock:    cfg.Clock,
		logger:   observability.EnrichLogger(cfg.Logger, "timer"),
		metrics:  cfg.Metrics,
		entries:  make([]entry, cfg.Capacity),
		freeHead: 0,
		dueHead:  noEntry,
	}
	for i := range s.entries {
		s.entries[i].next = int32(i + 1)
		s.entries[i].gen = 1
	}
	s.entries[cfg.Capacity-1].next = noEntry
	return s, nil
}

// Schedule arms a timer that delivers an event stamped from template
// into queue when delay ticks have elapsed. A non-zero period re-arms
// the timer after each fire. Fails with ErrTableFull when no entry is
// free.
func (s *Service) Schedule(delay, period uint32, queue *core.Queue, template core.Template) (ID, error) {
	if queue == nil {
		return 0, errors.New("schedule requires a target queue")
	}
	now := s.clock.Now()

	s.section.Enter()
	slot := s.freeHead
	if slot == noEntry {
		s.section.Exit()
		return 0, ErrTableFull
	}
	e := &s.entries[slot]
	s.freeHead = e.next

	e.deadline = now + hal.Tick(delay)
	e.period = period
	e.queue = queue
	e.template = template
	e.active = true
	s.insertLocked(slot)
	id := makeID(slot, e.gen)
	s.section.Exit()
	return id, nil
}

// Cancel disarms a timer. A one-shot that already fired, or a stale
// ID, reports ErrNotFound; callers treat that as a benign race.
func (s *Service) Cancel(id ID) error {
	slot := id.slot()
	if slot < 0 || int(slot) >= len(s.entries) {
		return ErrNotFound
	}

	s.section.Enter()
	e := &s.entries[slot]
	if !e.active || e.gen != id.gen() {
		s.section.Exit()
		return ErrNotFound
	}
	s.unlinkLocked(slot)
	s.retireLocked(slot)
	s.section.Exit()
	return nil
}

// OnTick fires every entry due at now. It is called from the tick
// context once per tick and returns the number of events delivered.
func (s *Service) OnTick(now hal.Tick) int {
	ctx := context.Background()
	fired := 0

	for {
		s.section.Enter()
		slot := s.dueHead
		if slot == noEntry || hal.TickBefore(now, s.entries[slot].deadline) {
			s.section.Exit()
			return fired
		}
		e := &s.entries[slot]
		s.dueHead = e.next
		queue := e.queue
		template := e.template
		timerID := makeID(slot, e.gen)

		if e.period == 0 {
			s.retireLocked(slot)
		} else {
			// Re-arm from the original deadline so the period never
			// drifts. If the tick source stalled past several
			// periods, skip the missed fires instead of bursting.
			e.deadline += hal.Tick(e.period)
			for !hal.TickBefore(now, e.deadline) {
				e.deadline += hal.Tick(e.period)
				s.metrics.RecordTimerMiss(ctx, "lag")
			}
			s.insertLocked(slot)
		}
		s.section.Exit()

		if s.deliver(ctx, timerID, queue, template) {
			fired++
		}
	}
}

// deliver materializes one event and pushes it. Returns false when the
// fire was dropped.
func (s *Service) deliver(ctx context.Context, id ID, queue *core.Queue, template core.Template) bool {
	ref, err := s.pool.Acquire()
	if err != nil {
		s.metrics.RecordPoolExhausted(ctx, "timer")
		s.metrics.RecordTimerMiss(ctx, "pool-exhausted")
		observability.LogTimerMiss(s.logger, uint32(id), "pool-exhausted")
		return false
	}
	template.Stamp(s.pool.Event(ref))

	if err := queue.Push(ref); err != nil {
		s.metrics.RecordQueueFull(ctx, queue.Name())
		s.metrics.RecordTimerMiss(ctx, "queue-full")
		observability.LogTimerMiss(s.logger, uint32(id), "queue-full")
		if queue.Policy() == core.Reject {
			// Under Reject the event was not consumed by the queue.
			s.pool.Release(ref)
		}
		return false
	}
	return true
}

// NextDeadline returns the earliest pending deadline.
// The second return is false when no timer is armed.
func (s *Service) NextDeadline() (hal.Tick, bool) {
	s.section.Enter()
	defer s.section.Exit()
	if s.dueHead == noEntry {
		return 0, false
	}
	return s.entries[s.dueHead].deadline, true
}

// Active returns the number of armed timers.
func (s *Service) Active() int {
	s.section.Enter()
	defer s.section.Exit()
	n := 0
	for slot := s.dueHead; slot != noEntry; slot = s.entries[slot].next {
		n++
	}
	return n
}

// insertLocked links slot into the due list keeping deadlines
// non-decreasing. Equal deadlines keep insertion order.
func (s *Service) insertLocked(slot int32) {
	e := &s.entries[slot]
	if s.dueHead == noEntry || hal.TickBefore(e.deadline, s.entries[s.dueHead].deadline) {
		e.next = s.dueHead
		s.dueHead = slot
		return
	}
	prev := s.dueHead
	for s.entries[prev].next != noEntry &&
		!hal.TickBefore(e.deadline, s.entries[s.entries[prev].next].deadline) {
		prev = s.entries[prev].next
	}
	e.next = s.entries[prev].next
	s.entries[prev].next = slot
}

// unlinkLocked removes slot from the due list.
func (s *Service) unlinkLocked(slot int32) {
	if s.dueHead == slot {
		s.dueHead = s.entries[slot].next
		return
	}
	for prev := s.dueHead; prev != noEntry; prev = s.entries[prev].next {
		if s.entries[prev].next == slot {
			s.entries[prev].next = s.entries[slot].next
			return
		}
	}
}

// retireLocked returns slot to the free list and bumps its generation
// so outstanding IDs for it go stale.
func (s *Service) retireLocked(slot int32) {
	e := &s.entries[slot]
	e.active = false
	e.queue = nil
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	e.next = s.freeHead
	s.freeHead = slot
}
