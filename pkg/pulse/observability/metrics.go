package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder is the diagnostics channel of the dispatch core.
// Producer-side drops (pool exhausted, queue full) and dispatcher-side
// faults (unhandled kind, handler failure) are counted here; none of
// them are permitted to halt the run loop.
//
// Use NewMetricsRecorder() for OTel metrics, NewCounterRecorder() for
// plain in-memory counters, or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one completed dispatch cycle, including
	// handler duration and error status.
	RecordDispatch(ctx context.Context, queue string, kind uint8, duration time.Duration, err error)

	// RecordUnhandled records an event dropped because its kind has no
	// registered handler.
	RecordUnhandled(ctx context.Context, queue string, kind uint8)

	// RecordPoolExhausted records a failed acquisition. Source names
	// the producer ("timer", "sensor", ...).
	RecordPoolExhausted(ctx context.Context, source string)

	// RecordQueueFull records a push refused or resolved by a queue's
	// full policy.
	RecordQueueFull(ctx context.Context, queue string)

	// RecordTimerMiss records a timer fire skipped because the system
	// was saturated at fire time.
	RecordTimerMiss(ctx context.Context, reason string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatched    metric.Int64Counter
	handlerLat    metric.Float64Histogram
	handlerErrors metric.Int64Counter
	unhandled     metric.Int64Counter
	poolExhausted metric.Int64Counter
	queueFull     metric.Int64Counter
	timerMissed   metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("pulse")

	dispatched, err := meter.Int64Counter("pulse.dispatch.events",
		metric.WithDescription("Number of events dispatched to handlers"),
	)
	if err != nil {
		return nil, err
	}

	handlerLat, err := meter.Float64Histogram("pulse.handler.latency_ms",
		metric.WithDescription("Handler execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("pulse.handler.errors",
		metric.WithDescription("Number of handler failures"),
	)
	if err != nil {
		return nil, err
	}

	unhandled, err := meter.Int64Counter("pulse.dispatch.unhandled",
		metric.WithDescription("Events dropped for lack of a registered handler"),
	)
	if err != nil {
		return nil, err
	}

	poolExhausted, err := meter.Int64Counter("pulse.pool.exhausted",
		metric.WithDescription("Failed event pool acquisitions"),
	)
	if err != nil {
		return nil, err
	}

	queueFull, err := meter.Int64Counter("pulse.queue.full",
		metric.WithDescription("Pushes refused or resolved by a queue full policy"),
	)
	if err != nil {
		return nil, err
	}

	timerMissed, err := meter.Int64Counter("pulse.timer.missed",
		metric.WithDescription("Timer fires dropped under saturation"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatched:    dispatched,
		handlerLat:    handlerLat,
		handlerErrors: handlerErrors,
		unhandled:     unhandled,
		poolExhausted: poolExhausted,
		queueFull:     queueFull,
		timerMissed:   timerMissed,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records one completed dispatch cycle.
func (m *otelMetrics) RecordDispatch(ctx context.Context, queue string, kind uint8, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("queue", queue),
		attribute.Int("kind", int(kind)),
	}
	m.dispatched.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handlerLat.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
	if err != nil {
		m.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordUnhandled records an event with no registered handler.
func (m *otelMetrics) RecordUnhandled(ctx context.Context, queue string, kind uint8) {
	m.unhandled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
		attribute.Int("kind", int(kind)),
	))
}

// RecordPoolExhausted records a failed acquisition.
func (m *otelMetrics) RecordPoolExhausted(ctx context.Context, source string) {
	m.poolExhausted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
	))
}

// RecordQueueFull records a refused push.
func (m *otelMetrics) RecordQueueFull(ctx context.Context, queue string) {
	m.queueFull.Add(ctx, 1, metric.WithAttributes(
		attribute.String("queue", queue),
	))
}

// RecordTimerMiss records a skipped timer fire.
func (m *otelMetrics) RecordTimerMiss(ctx context.Context, reason string) {
	m.timerMissed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
