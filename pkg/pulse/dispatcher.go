package pulse

import (
	"context"
	"runtime/debug"
	"sort"
	"time"

	"github.com/quartzos/pulse/pkg/pulse/core"
	"github.com/quartzos/pulse/pkg/pulse/hal"
	"github.com/quartzos/pulse/pkg/pulse/observability"
	"github.com/quartzos/pulse/pkg/pulse/trace"
)

// Handler processes one dispatched event. The event pointer is only
// valid for the duration of the call; the dispatcher returns the slot
// to the pool as soon as Handle returns. Handlers run synchronously
// and to completion — they are bounded in execution time by contract,
// not enforcement.
type Handler interface {
	Handle(ctx context.Context, evt *core.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt *core.Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, evt *core.Event) error {
	return f(ctx, evt)
}

// kindTableSize covers the full closed Kind tag space.
const kindTableSize = 256

// Dispatcher is the single-context run loop. It polls its queues in
// strict priority order, routes each popped event to the handler
// registered for its kind, and returns the event to the pool whatever
// the outcome. Sustained load on a high-priority queue starves lower
// ranks; that trade-off is deliberate and documented, not mitigated.
type Dispatcher struct {
	pool   *core.Pool
	queues []*core.Queue

	// Fixed table indexed by kind tag. Lookup is O(1) with no map or
	// interface indirection on the hot path beyond the handler itself.
	handlers [kindTableSize]Handler

	cfg dispatcherConfig
}

// NewDispatcher creates a dispatcher over the given queues. Queue
// priority ranks are fixed here: the slice is copied and sorted by
// rank, ties keeping their given order.
func NewDispatcher(pool *core.Pool, queues []*core.Queue, opts ...Option) (*Dispatcher, error) {
	cfg := defaultDispatcherConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newDispatcher(pool, queues, cfg)
}

// newDispatcher builds from an already-resolved config. NewSystem uses
// this so the dispatcher shares the exact waker its queues signal;
// re-running the options would mint fresh defaults.
func newDispatcher(pool *core.Pool, queues []*core.Queue, cfg dispatcherConfig) (*Dispatcher, error) {
	if pool == nil {
		return nil, errNilPool
	}

	sorted := append([]*core.Queue(nil), queues...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	return &Dispatcher{
		pool:   pool,
		queues: sorted,
		cfg:    cfg,
	}, nil
}

// Register installs the handler for a kind. Re-registering a kind
// overwrites the previous handler (last write wins). A nil handler
// removes the registration.
func (d *Dispatcher) Register(kind core.Kind, h Handler) {
	d.handlers[kind] = h
}

// Waker returns the waker that resumes a suspended Run loop. Producers
// pushing to hand-built queues signal it via the queue's QueueConfig.
func (d *Dispatcher) Waker() hal.Waker {
	return d.cfg.waker
}

// DispatchOnce performs one selecting/executing cycle: it scans queues
// highest priority first, pops the front event of the first non-empty
// queue, runs its handler, and releases the event. It reports whether
// an event was consumed, which makes it the deterministic, single-step
// unit used by tests. Events whose kind has no handler and events
// whose handler fails still count as consumed — they are dropped,
// diagnosed, and the loop moves on.
func (d *Dispatcher) DispatchOnce(ctx context.Context) bool {
	for _, q := range d.queues {
		ref, ok := q.Pop()
		if !ok {
			continue
		}
		d.execute(ctx, q, ref)
		return true
	}
	return false
}

// execute routes one popped event and returns its slot to the pool.
// No outcome, including a handler panic, leaves the slot checked out.
func (d *Dispatcher) execute(ctx context.Context, q *core.Queue, ref core.Ref) {
	defer d.pool.Release(ref)

	evt := d.pool.Event(ref)
	kind := evt.Kind

	h := d.handlers[kind]
	if h == nil {
		d.cfg.metrics.RecordUnhandled(ctx, q.Name(), uint8(kind))
		observability.LogUnhandledKind(d.cfg.logger, q.Name(), uint8(kind))
		if d.cfg.recorder != nil {
			d.cfg.recorder.Record(ctx, q.Name(), uint8(kind), evt.Payload(),
				trace.OutcomeUnhandled, ErrUnhandledKind)
		}
		return
	}

	spanCtx, span := d.cfg.spans.StartDispatchSpan(ctx, q.Name(), uint8(kind))
	start := time.Now()
	err := d.invoke(spanCtx, h, evt)
	elapsed := time.Since(start)
	d.cfg.spans.EndSpanWithError(span, err)

	d.cfg.metrics.RecordDispatch(ctx, q.Name(), uint8(kind), elapsed, err)
	if err != nil {
		herr := &HandlerError{Queue: q.Name(), Kind: kind, Err: err}
		observability.LogHandlerError(d.cfg.logger, q.Name(), uint8(kind), herr)
		if d.cfg.recorder != nil {
			d.cfg.recorder.Record(ctx, q.Name(), uint8(kind), evt.Payload(),
				trace.OutcomeHandlerError, herr)
		}
		return
	}

	observability.LogDispatch(d.cfg.logger, q.Name(), uint8(kind),
		float64(elapsed.Microseconds())/1000.0)
	if d.cfg.recorder != nil {
		d.cfg.recorder.Record(ctx, q.Name(), uint8(kind), evt.Payload(),
			trace.OutcomeHandled, nil)
	}
}

// invoke runs the handler with panic containment.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, evt *core.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{
				Kind:  evt.Kind,
				Value: r,
				Stack: string(debug.Stack()),
			}
		}
	}()
	return h.Handle(ctx, evt)
}

// Run drains events until ctx is cancelled. While every queue is
// empty it suspends on the waker rather than spinning; a producer's
// push signal resumes it. The watchdog is tickled once per loop
// iteration. Run returns the context error on cancellation and under
// normal operation never returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	observability.LogRunStart(d.cfg.logger, d.QueueNames())

	for {
		if err := ctx.Err(); err != nil {
			observability.LogRunStop(d.cfg.logger, err)
			return err
		}

		d.cfg.watchdog.Tickle()

		if d.DispatchOnce(ctx) {
			continue
		}

		// The waker holds a pending token if anything was pushed
		// since the last Wait, so the empty check above cannot lose a
		// wakeup.
		if err := d.cfg.waker.Wait(ctx); err != nil {
			observability.LogRunStop(d.cfg.logger, err)
			return err
		}
	}
}

// QueueNames returns the dispatcher's queues in service order.
func (d *Dispatcher) QueueNames() []string {
	names := make([]string, len(d.queues))
	for i, q := range d.queues {
		names[i] = q.Name()
	}
	return names
}
