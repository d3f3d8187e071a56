// Package xfer provides a non-blocking framed transfer service on top
// of the dispatch core, of the kind a display driver needs: callers
// stage a command byte plus data bytes, and a dispatcher handler
// drains completed frames to the hardware port sequentially.
//
// Frame data is copied into fixed-size buffers owned by the writer;
// the event payload carries only the frame index. A bounded in-flight
// throttle refuses new frames with ErrBusy instead of blocking, so
// staging is safe from producer contexts.
package xfer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/quartzos/pulse/pkg/pulse/core"
	"github.com/quartzos/pulse/pkg/pulse/hal"
)

// Sentinel errors for the transfer service.
var (
	// ErrBusy indicates the in-flight frame limit is reached. The
	// caller drops or retries later; staging never blocks.
	ErrBusy = errors.New("transfer service busy")

	// ErrFrameOverflow indicates staged data exceeds the frame
	// buffer.
	ErrFrameOverflow = errors.New("frame buffer overflow")

	// ErrNoCommand indicates data was staged before a command byte.
	ErrNoCommand = errors.New("frame has no command byte")
)

// FrameDataSize is the fixed data capacity of one frame, in bytes.
const FrameDataSize = 512

const noFrame = int32(-1)

// Port is the hardware write interface a drained frame goes to. For a
// display over SPI, WriteCommand drives the DC pin low and WriteData
// drives it high.
type Port interface {
	WriteCommand(cmd byte) error
	WriteData(data []byte) error
}

type frame struct {
	cmd  byte
	data [FrameDataSize]byte
	len  int
	next int32
}

// Config configures a transfer writer.
type Config struct {
	// Frames is the fixed number of frame buffers. It also bounds
	// the frames in flight. Required, must be positive.
	Frames int

	// Pool supplies the trigger events. Required.
	Pool *core.Pool

	// Queue is the event queue the writer's trigger events go to.
	// Required.
	Queue *core.Queue

	// Kind is the event kind the writer's handler is registered
	// under.
	Kind core.Kind

	// Port receives drained frames. Required.
	Port Port

	// Section guards the frame table. Default: hal.NewIRQMask().
	Section hal.Section
}

// Writer stages and flushes frames. Staging accumulates one pending
// frame; Flush copies nothing further — the staged frame is handed to
// the dispatcher by index and written to the port in dispatch order.
type Writer struct {
	section hal.Section
	pool    *core.Pool
	queue   *core.Queue
	kind    core.Kind
	port    Port

	frames   []frame
	freeHead int32

	pendingCmd  byte
	pendingData [FrameDataSize]byte
	pendingLen  int
	hasPending  bool
}

// NewWriter creates a transfer writer with a fixed frame table.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.Frames <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", cfg.Frames)
	}
	if cfg.Pool == nil || cfg.Queue == nil || cfg.Port == nil {
		return nil, errors.New("transfer writer requires pool, queue, and port")
	}
	if cfg.Section == nil {
		cfg.Section = hal.NewIRQMask()
	}

	w := &Writer{
		section: cfg.Section,
		pool:    cfg.Pool,
		queue:   cfg.Queue,
		kind:    cfg.Kind,
		port:    cfg.Port,
		frames:  make([]frame, cfg.Frames),
	}
	for i := range w.frames {
		w.frames[i].next = int32(i + 1)
	}
	w.frames[cfg.Frames-1].next = noFrame
	return w, nil
}

// StageCommand flushes any pending frame and starts a new one with
// the given command byte. If the flush is refused, the previous frame
// stays staged and the error is returned; the new command is not
// staged.
func (w *Writer) StageCommand(cmd byte) error {
	if err := w.Flush(); err != nil {
		return err
	}
	w.pendingCmd = cmd
	w.pendingLen = 0
	w.hasPending = true
	return nil
}

// StageData appends data bytes to the pending frame. A command byte
// must be staged first.
func (w *Writer) StageData(data []byte) error {
	if !w.hasPending {
		return ErrNoCommand
	}
	if w.pendingLen+len(data) > FrameDataSize {
		return fmt.Errorf("%w: %d bytes staged, %d more, max %d",
			ErrFrameOverflow, w.pendingLen, len(data), FrameDataSize)
	}
	copy(w.pendingData[w.pendingLen:], data)
	w.pendingLen += len(data)
	return nil
}

// Flush enqueues the pending frame, if any, as a dispatch event. On
// failure the frame stays staged: a later Flush retries it once a
// buffer frees up, so a refused flush loses nothing.
func (w *Writer) Flush() error {
	if !w.hasPending {
		return nil
	}

	w.section.Enter()
	slot := w.freeHead
	if slot == noFrame {
		w.section.Exit()
		return ErrBusy
	}
	f := &w.frames[slot]
	w.freeHead = f.next
	f.cmd = w.pendingCmd
	copy(f.data[:], w.pendingData[:w.pendingLen])
	f.len = w.pendingLen
	w.section.Exit()

	ref, err := w.pool.Acquire()
	if err != nil {
		w.releaseFrame(slot)
		return err
	}
	evt := w.pool.Event(ref)
	evt.Kind = w.kind
	var payload [2]byte
	binary.LittleEndian.PutUint16(payload[:], uint16(slot))
	if err := evt.SetPayload(payload[:]); err != nil {
		w.pool.Release(ref)
		w.releaseFrame(slot)
		return err
	}

	if err := w.queue.Push(ref); err != nil {
		if w.queue.Policy() == core.Reject {
			w.pool.Release(ref)
		}
		w.releaseFrame(slot)
		return err
	}

	w.hasPending = false
	w.pendingLen = 0
	return nil
}

// Handle drains one frame to the port. Register it with the
// dispatcher under the writer's kind:
//
//	dispatcher.Register(kindDisplayFrame, pulse.HandlerFunc(writer.Handle))
func (w *Writer) Handle(_ context.Context, evt *core.Event) error {
	payload := evt.Payload()
	if len(payload) != 2 {
		return fmt.Errorf("malformed frame event payload: %d bytes", len(payload))
	}
	slot := int32(binary.LittleEndian.Uint16(payload))
	if slot < 0 || int(slot) >= len(w.frames) {
		return fmt.Errorf("frame index %d out of range", slot)
	}
	f := &w.frames[slot]
	defer w.releaseFrame(slot)

	if err := w.port.WriteCommand(f.cmd); err != nil {
		return fmt.Errorf("write command 0x%02x: %w", f.cmd, err)
	}
	if f.len > 0 {
		if err := w.port.WriteData(f.data[:f.len]); err != nil {
			return fmt.Errorf("write %d data bytes: %w", f.len, err)
		}
	}
	return nil
}

// InFlight returns the number of frames staged but not yet drained.
func (w *Writer) InFlight() int {
	w.section.Enter()
	defer w.section.Exit()
	free := 0
	for slot := w.freeHead; slot != noFrame; slot = w.frames[slot].next {
		free++
	}
	return len(w.frames) - free
}

func (w *Writer) releaseFrame(slot int32) {
	w.section.Enter()
	w.frames[slot].next = w.freeHead
	w.freeHead = slot
	w.section.Exit()
}
