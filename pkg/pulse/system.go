package pulse

import (
	"context"
	"fmt"
	"time"

	"github.com/quartzos/pulse/pkg/pulse/config"
	"github.com/quartzos/pulse/pkg/pulse/core"
	"github.com/quartzos/pulse/pkg/pulse/hal"
	"github.com/quartzos/pulse/pkg/pulse/timer"
)

// System is a fully wired dispatch core: one pool, the configured
// queues, the timer service, and the dispatcher, all sharing a single
// critical section and waker. Construct one per logical scheduler;
// tests build independent instances instead of sharing globals.
type System struct {
	Pool       *core.Pool
	Dispatcher *Dispatcher
	Timers     *timer.Service

	queues map[string]*core.Queue
	cfg    dispatcherConfig
}

// NewSystem builds a System from a validated configuration. All
// storage is allocated here; nothing grows afterwards.
func NewSystem(sys config.System, opts ...Option) (*System, error) {
	if err := sys.Validate(); err != nil {
		return nil, fmt.Errorf("system config: %w", err)
	}

	cfg := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = hal.NewWallClock(time.Millisecond)
	}

	section := hal.NewIRQMask()
	pool, err := core.NewPool(core.PoolConfig{
		Capacity:    sys.PoolCapacity,
		Section:     section,
		DebugChecks: sys.DebugChecks,
	})
	if err != nil {
		return nil, err
	}

	queues := make(map[string]*core.Queue, len(sys.Queues))
	ordered := make([]*core.Queue, 0, len(sys.Queues))
	for _, def := range sys.Queues {
		q, err := core.NewQueue(pool, core.QueueConfig{
			Name:     def.Name,
			Capacity: def.Capacity,
			Priority: def.Priority,
			Policy:   def.Policy,
			Waker:    cfg.waker,
		})
		if err != nil {
			return nil, err
		}
		queues[def.Name] = q
		ordered = append(ordered, q)
	}

	timers, err := timer.New(timer.Config{
		Capacity: sys.TimerCapacity,
		Pool:     pool,
		Clock:    cfg.clock,
		Section:  section,
		Logger:   cfg.logger,
		Metrics:  cfg.metrics,
	})
	if err != nil {
		return nil, err
	}

	dispatcher, err := newDispatcher(pool, ordered, cfg)
	if err != nil {
		return nil, err
	}

	return &System{
		Pool:       pool,
		Dispatcher: dispatcher,
		Timers:     timers,
		queues:     queues,
		cfg:        cfg,
	}, nil
}

// Queue returns the named queue.
func (s *System) Queue(name string) (*core.Queue, bool) {
	q, ok := s.queues[name]
	return q, ok
}

// Emit acquires an event, fills it, and pushes it to the named queue.
// It is the producer-side entry point: non-blocking, callable from an
// interrupt-equivalent context, and it reports exhaustion through the
// diagnostics channel as well as the returned error. The caller owns
// nothing on return regardless of outcome.
func (s *System) Emit(queueName string, kind core.Kind, payload []byte) error {
	q, ok := s.queues[queueName]
	if !ok {
		return fmt.Errorf("unknown queue %q", queueName)
	}
	ctx := context.Background()

	ref, err := s.Pool.Acquire()
	if err != nil {
		s.cfg.metrics.RecordPoolExhausted(ctx, queueName)
		return err
	}
	evt := s.Pool.Event(ref)
	evt.Kind = kind
	if err := evt.SetPayload(payload); err != nil {
		s.Pool.Release(ref)
		return err
	}

	if err := q.Push(ref); err != nil {
		s.cfg.metrics.RecordQueueFull(ctx, queueName)
		if q.Policy() == core.Reject {
			s.Pool.Release(ref)
		}
		return err
	}
	return nil
}

// Tick advances the timer service to now. On target this is called
// from the periodic tick interrupt; in tests it hangs off a
// hal.SimClock callback.
func (s *System) Tick(now hal.Tick) int {
	return s.Timers.OnTick(now)
}
