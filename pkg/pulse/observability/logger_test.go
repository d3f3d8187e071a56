package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHandler captures log records for testing.
type testHandler struct {
	buf   *bytes.Buffer
	level slog.Level
	attrs []slog.Attr
}

func newTestHandler() *testHandler {
	return &testHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	return json.NewEncoder(h.buf).Encode(data)
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newH := &testHandler{
		buf:   h.buf,
		level: h.level,
		attrs: make([]slog.Attr, len(h.attrs)+len(attrs)),
	}
	copy(newH.attrs, h.attrs)
	copy(newH.attrs[len(h.attrs):], attrs)
	return newH
}

func (h *testHandler) WithGroup(string) slog.Handler { return h }

func (h *testHandler) getLastRecord() map[string]any {
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if len(lines[i]) > 0 {
			var m map[string]any
			if err := json.Unmarshal(lines[i], &m); err == nil {
				return m
			}
		}
	}
	return nil
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds component", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		enriched := EnrichLogger(logger, "dispatcher")
		enriched.Info("test message")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "dispatcher", record["component"])
		assert.Equal(t, "test message", record["msg"])
	})

	t.Run("nil logger returns nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "dispatcher"))
	})
}

func TestLogDispatch(t *testing.T) {
	t.Run("logs at DEBUG level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogDispatch(logger, "input", 3, 1.5)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "DEBUG", record["level"])
		assert.Equal(t, "event dispatched", record["msg"])
		assert.Equal(t, "input", record["queue"])
		assert.Equal(t, float64(3), record["kind"]) // JSON decodes ints as float64
		assert.Equal(t, 1.5, record["duration_ms"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogDispatch(nil, "input", 3, 1.5)
		})
	})
}

func TestLogHandlerError(t *testing.T) {
	t.Run("logs at ERROR level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogHandlerError(logger, "input", 2, errors.New("sensor read failed"))

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "ERROR", record["level"])
		assert.Equal(t, "handler failed", record["msg"])
		assert.Equal(t, "input", record["queue"])
		assert.Equal(t, "sensor read failed", record["error"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogHandlerError(nil, "input", 2, errors.New("err"))
		})
	})
}

func TestLogUnhandledKind(t *testing.T) {
	t.Run("logs at WARN level", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogUnhandledKind(logger, "render", 7)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "WARN", record["level"])
		assert.Equal(t, "no handler registered for event kind", record["msg"])
		assert.Equal(t, "render", record["queue"])
		assert.Equal(t, float64(7), record["kind"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogUnhandledKind(nil, "render", 7)
		})
	})
}

func TestLogTimerMiss(t *testing.T) {
	t.Run("logs timer id and reason", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogTimerMiss(logger, 0x10003, "pool-exhausted")

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "WARN", record["level"])
		assert.Equal(t, "timer fire dropped", record["msg"])
		assert.Equal(t, float64(0x10003), record["timer_id"])
		assert.Equal(t, "pool-exhausted", record["reason"])
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogTimerMiss(nil, 1, "lag")
		})
	})
}

func TestLogRunStartStop(t *testing.T) {
	t.Run("start logs queue names at INFO", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogRunStart(logger, []string{"input", "render"})

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "INFO", record["level"])
		assert.Equal(t, "dispatcher running", record["msg"])
	})

	t.Run("stop logs the cause", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogRunStop(logger, context.Canceled)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.Equal(t, "dispatcher stopped", record["msg"])
		assert.Equal(t, "context canceled", record["cause"])
	})

	t.Run("stop without error omits the cause", func(t *testing.T) {
		h := newTestHandler()
		logger := slog.New(h)

		LogRunStop(logger, nil)

		record := h.getLastRecord()
		require.NotNil(t, record)
		assert.NotContains(t, record, "cause")
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogRunStart(nil, nil)
			LogRunStop(nil, nil)
		})
	})
}

func TestTimedOperation(t *testing.T) {
	t.Run("measures duration", func(t *testing.T) {
		done := TimedOperation()
		time.Sleep(10 * time.Millisecond)
		duration := done()

		assert.GreaterOrEqual(t, duration, 10.0)
		assert.Less(t, duration, 1000.0)
	})

	t.Run("can be called multiple times", func(t *testing.T) {
		done := TimedOperation()
		time.Sleep(5 * time.Millisecond)
		d1 := done()
		time.Sleep(5 * time.Millisecond)
		d2 := done()

		assert.Greater(t, d2, d1)
	})
}
