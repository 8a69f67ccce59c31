package transport

import (
	"log/slog"
	"sync"

	"github.com/cutline-project/cutline-go/pkg/log"
)

// DefaultPollBufferSize is the read buffer size of a Poller.
const DefaultPollBufferSize = 512

// Poller reads device responses in the background until the port closes.
//
// Every chunk read is captured as an IN frame and handed to the response
// handler. Reads that time out without data are retried.
type Poller struct {
	r       Port
	bufSize int

	logger  log.Logger
	tag     CaptureTag
	debug   *slog.Logger
	handler func([]byte)

	startOnce sync.Once
	done      chan struct{}
	mu        sync.Mutex
	err       error
	frames    int
}

// NewPoller creates a poller on port.
func NewPoller(port Port) *Poller {
	return &Poller{
		r:       port,
		bufSize: DefaultPollBufferSize,
		done:    make(chan struct{}),
	}
}

// SetLogger configures capture of responses. Must be called before Start.
func (p *Poller) SetLogger(logger log.Logger, tag CaptureTag) {
	p.logger = logger
	p.tag = tag
}

// SetDebugLogger configures operational logging. Must be called before Start.
func (p *Poller) SetDebugLogger(logger *slog.Logger) {
	p.debug = logger
}

// OnResponse sets the handler for response bytes. Must be called before Start.
func (p *Poller) OnResponse(handler func([]byte)) {
	p.handler = handler
}

// Start launches the read loop. Calling Start more than once has no effect.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Done is closed when the read loop exits.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Err returns the error that ended polling, if it has ended.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Frames returns the number of responses read so far.
func (p *Poller) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frames
}

func (p *Poller) run() {
	defer close(p.done)

	buf := make([]byte, p.bufSize)
	for {
		n, err := p.r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])

			p.mu.Lock()
			p.frames++
			p.mu.Unlock()

			if p.logger != nil {
				p.logger.Log(makeFrameEvent(p.tag, data, log.DirectionIn, 0))
			}
			if p.debug != nil {
				p.debug.Debug("Poller: response", "session_id", p.tag.SessionID,
					"size", n, "data", log.Printable(data))
			}
			if p.handler != nil {
				p.handler(data)
			}
		}
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			if p.debug != nil {
				p.debug.Debug("Poller: stopped", "session_id", p.tag.SessionID, "error", err)
			}
			return
		}
	}
}
