package pulse

import (
	"log/slog"

	"github.com/quartzos/pulse/pkg/pulse/hal"
	"github.com/quartzos/pulse/pkg/pulse/observability"
	"github.com/quartzos/pulse/pkg/pulse/trace"
)

// dispatcherConfig holds dispatcher construction options.
type dispatcherConfig struct {
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	recorder *trace.Recorder
	waker    hal.Waker
	watchdog hal.Watchdog
	clock    hal.TickSource
}

func defaultDispatcherConfig() dispatcherConfig {
	return dispatcherConfig{
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		waker:    hal.NewChanWaker(),
		watchdog: hal.NopWatchdog{},
	}
}

// Option configures a Dispatcher (and, through NewSystem, the rest of
// the wired system).
type Option func(*dispatcherConfig)

// WithLogger enables structured logging through the given slog logger.
// Default: logging disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *dispatcherConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the diagnostics channel. Use
// observability.NewMetricsRecorder() for OTel or
// observability.NewCounterRecorder() for plain counters.
// Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *dispatcherConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSpanManager enables tracing of dispatch cycles.
// Default: no-op.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *dispatcherConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithRecorder attaches a flight recorder journaling every dispatch
// outcome. Default: none.
func WithRecorder(r *trace.Recorder) Option {
	return func(c *dispatcherConfig) {
		c.recorder = r
	}
}

// WithWaker sets the waker producers signal after a push. Queues
// constructed by NewSystem are wired to the same waker automatically;
// hand-built queues must pass it in their QueueConfig.
// Default: a fresh hal.ChanWaker.
func WithWaker(w hal.Waker) Option {
	return func(c *dispatcherConfig) {
		if w != nil {
			c.waker = w
		}
	}
}

// WithWatchdog sets the watchdog tickled by the run loop.
// Default: no-op.
func WithWatchdog(w hal.Watchdog) Option {
	return func(c *dispatcherConfig) {
		if w != nil {
			c.watchdog = w
		}
	}
}

// WithClock sets the tick source used by the timer service built by
// NewSystem. Tests pass a hal.SimClock for deterministic stepping.
// Default: a millisecond hal.WallClock.
func WithClock(clock hal.TickSource) Option {
	return func(c *dispatcherConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}
