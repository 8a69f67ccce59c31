package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cutline-project/cutline-go/pkg/log"
)

// MaxLogFrameDataSize is the maximum frame data size to include in capture
// events. Larger frames are truncated.
const MaxLogFrameDataSize = 4096

// CaptureTag identifies the session a frame belongs to in capture events.
type CaptureTag struct {
	SessionID string
	DriverID  string
	Address   string
}

// CommandWriter writes whole command frames to a port.
// Safe for concurrent use; frames never interleave.
type CommandWriter struct {
	w   io.Writer
	mu  sync.Mutex
	seq uint64

	// Capture support (optional)
	logger log.Logger
	tag    CaptureTag
}

// NewCommandWriter creates a writer on w.
func NewCommandWriter(w io.Writer) *CommandWriter {
	return &CommandWriter{w: w}
}

// SetLogger configures capture for this writer.
// Pass nil to disable capture.
func (cw *CommandWriter) SetLogger(logger log.Logger, tag CaptureTag) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.logger = logger
	cw.tag = tag
}

// WriteCommand writes one frame, retrying short writes until the frame is
// complete or the port fails.
func (cw *CommandWriter) WriteCommand(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	for off := 0; off < len(data); {
		n, err := cw.w.Write(data[off:])
		off += n
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("write frame: %w", io.ErrShortWrite)
		}
	}
	cw.seq++

	if cw.logger != nil {
		cw.logger.Log(makeFrameEvent(cw.tag, data, log.DirectionOut, cw.seq))
	}
	return nil
}

// Written returns the number of frames written so far.
func (cw *CommandWriter) Written() uint64 {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.seq
}

// makeFrameEvent creates a capture event for a frame.
func makeFrameEvent(tag CaptureTag, data []byte, direction log.Direction, seq uint64) log.Event {
	frameData := data
	truncated := false

	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	return log.Event{
		Timestamp: time.Now(),
		SessionID: tag.SessionID,
		Direction: direction,
		Layer:     log.LayerTransport,
		Category:  log.CategoryFrame,
		DriverID:  tag.DriverID,
		Address:   tag.Address,
		Frame: &log.FrameEvent{
			Size:      len(data),
			Data:      frameData,
			Truncated: truncated,
			Seq:       seq,
		},
	}
}
