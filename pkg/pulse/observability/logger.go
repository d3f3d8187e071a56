// Package observability provides structured logging, metrics, and
// tracing for the pulse dispatch core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry, with an in-memory counter recorder
//     for targets without a metrics pipeline
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when
// disabled; nothing here runs on the producer fast path.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds a component field to a logger.
// Returns nil when logger is nil, matching the nil-safe helpers below.
func EnrichLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("component", component))
}

// LogDispatch logs one completed dispatch cycle.
func LogDispatch(logger *slog.Logger, queue string, kind uint8, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("event dispatched",
		slog.String("queue", queue),
		slog.Int("kind", int(kind)),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogHandlerError logs a handler failure. Handler failures never halt
// the run loop, so this is the primary trace of them.
func LogHandlerError(logger *slog.Logger, queue string, kind uint8, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("queue", queue),
		slog.Int("kind", int(kind)),
		slog.String("error", err.Error()),
	)
}

// LogUnhandledKind logs a dispatch-time configuration gap: an event
// arrived whose kind has no registered handler.
func LogUnhandledKind(logger *slog.Logger, queue string, kind uint8) {
	if logger == nil {
		return
	}
	logger.Warn("no handler registered for event kind",
		slog.String("queue", queue),
		slog.Int("kind", int(kind)),
	)
}

// LogTimerMiss logs a timer fire that was dropped because the pool or
// the target queue was exhausted at fire time.
func LogTimerMiss(logger *slog.Logger, timerID uint32, reason string) {
	if logger == nil {
		return
	}
	logger.Warn("timer fire dropped",
		slog.Uint64("timer_id", uint64(timerID)),
		slog.String("reason", reason),
	)
}

// LogRunStart logs dispatcher startup with its queue configuration.
func LogRunStart(logger *slog.Logger, queues []string) {
	if logger == nil {
		return
	}
	logger.Info("dispatcher running",
		slog.Any("queues", queues),
	)
}

// LogRunStop logs dispatcher shutdown.
func LogRunStop(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Info("dispatcher stopped", slog.String("cause", err.Error()))
		return
	}
	logger.Info("dispatcher stopped")
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000.0
	}
}
