// Package mock provides scriptable transport fakes for driver and manager tests.
package mock

import (
	"bytes"
	"sync"

	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Port is an in-memory transport.Port.
//
// Every Write is recorded as one frame. Writes can be scripted to fail or to
// block until released, and Read returns queued responses.
type Port struct {
	mu        sync.Mutex
	frames    [][]byte
	writes    int
	failAt    int
	failErr   error
	gates     map[int]*Gate
	onWrite   func(n int, data []byte)
	responses chan []byte
	closed    bool
	closeCh   chan struct{}
	closeOnce sync.Once
}

// Gate holds a specific write until released.
type Gate struct {
	// Reached is closed when the gated write starts.
	Reached chan struct{}

	release     chan struct{}
	releaseOnce sync.Once
	reachOnce   sync.Once
}

// Release lets the gated write proceed.
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}

// NewPort creates an open port.
func NewPort() *Port {
	return &Port{
		gates:     make(map[int]*Gate),
		responses: make(chan []byte, 64),
		closeCh:   make(chan struct{}),
	}
}

// FailAt makes the n-th write (1-based) fail with err. Later writes succeed.
func (p *Port) FailAt(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAt = n
	p.failErr = err
}

// GateAt blocks the n-th write (1-based) until the returned gate is released
// or the port is closed.
func (p *Port) GateAt(n int) *Gate {
	p.mu.Lock()
	defer p.mu.Unlock()
	g := &Gate{Reached: make(chan struct{}), release: make(chan struct{})}
	p.gates[n] = g
	return g
}

// OnWrite registers a hook called after each successful write with its
// 1-based index. The hook runs on the writing goroutine.
func (p *Port) OnWrite(fn func(n int, data []byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onWrite = fn
}

// Respond queues bytes for the next Read.
func (p *Port) Respond(data []byte) {
	p.responses <- append([]byte(nil), data...)
}

// Read returns the next queued response, blocking until one arrives or the
// port is closed.
func (p *Port) Read(b []byte) (int, error) {
	select {
	case data := <-p.responses:
		return copy(b, data), nil
	case <-p.closeCh:
		return 0, transport.ErrPortClosed
	}
}

// Write records b as one frame.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, transport.ErrPortClosed
	}
	p.writes++
	n := p.writes
	gate := p.gates[n]
	p.mu.Unlock()

	if gate != nil {
		gate.reachOnce.Do(func() { close(gate.Reached) })
		select {
		case <-gate.release:
		case <-p.closeCh:
			return 0, transport.ErrPortClosed
		}
	}

	p.mu.Lock()
	if p.failAt > 0 && n == p.failAt {
		err := p.failErr
		p.mu.Unlock()
		return 0, err
	}
	p.frames = append(p.frames, append([]byte(nil), b...))
	hook := p.onWrite
	p.mu.Unlock()

	if hook != nil {
		hook(n, b)
	}
	return len(b), nil
}

// Close closes the port and releases blocked reads and writes.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.closeCh)
	})
	return nil
}

// Closed reports whether Close was called.
func (p *Port) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Frames returns a copy of every recorded frame in order.
func (p *Port) Frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.frames))
	for i, f := range p.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// FrameStrings returns the recorded frames as strings.
func (p *Port) FrameStrings() []string {
	frames := p.Frames()
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = string(f)
	}
	return out
}

// Bytes returns every recorded frame concatenated.
func (p *Port) Bytes() []byte {
	return bytes.Join(p.Frames(), nil)
}

// FrameCount returns the number of recorded frames.
func (p *Port) FrameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

var _ transport.Port = (*Port)(nil)
