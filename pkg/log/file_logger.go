package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends capture events to a .clog file. Safe for concurrent
// use; events from different sessions interleave in arrival order.
type FileLogger struct {
	mu      sync.Mutex
	out     io.WriteCloser // nil once closed
	enc     *cbor.Encoder
	dropped int
}

// NewFileLogger opens path for appending. A missing file is created 0644,
// so several runs can share one capture.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", path, err)
	}
	return &FileLogger{out: f, enc: newEncoder(f)}, nil
}

// Log appends event. A record that fails to encode is counted in Dropped
// instead of failing the cut that produced it.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.dropped++
	}
}

// Dropped reports how many records were lost.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the file. Further Log calls and Close calls do nothing.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

var _ Logger = (*FileLogger)(nil)
