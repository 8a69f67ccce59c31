package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// pollerStopTimeout bounds how long Disconnect waits for the response reader.
const pollerStopTimeout = 2 * time.Second

// errLinkClosed ends a job whose link is being closed by Disconnect.
var errLinkClosed = errors.New("link closed")

// Engine implements the connection lifecycle and job streaming shared by
// all drivers. Drivers embed it and supply a Protocol.
type Engine struct {
	id      string
	cfg     Config
	proto   Protocol
	logger  *slog.Logger
	capture log.Logger

	mu       sync.Mutex
	state    State
	desc     transport.DeviceDescriptor
	port     transport.Port
	writer   *transport.CommandWriter
	poller   *transport.Poller
	settings job.CutSettings
	progress Progress
	last     Frame
	hasLast  bool
	done     chan struct{}

	// closeAfterJob hands Disconnect's teardown to the job goroutine when
	// Disconnect was called while that goroutine delivered an event.
	closeAfterJob bool

	busy          atomic.Bool
	cancelled     atomic.Bool
	paused        atomic.Bool
	disconnecting atomic.Bool
	jobEmitting   atomic.Bool
	wake          chan struct{}

	handlersMu sync.RWMutex
	handlers   []EventHandler
}

// NewEngine creates an engine for driver id.
func NewEngine(id string, cfg Config, proto Protocol) *Engine {
	if cfg.Materials == nil {
		cfg.Materials = material.Default()
	}
	if cfg.ProgressInterval < 1 {
		cfg.ProgressInterval = 1
	}
	return &Engine{
		id:      id,
		cfg:     cfg,
		proto:   proto,
		logger:  cfg.Logger,
		capture: log.OrNoop(cfg.Capture),
		wake:    make(chan struct{}, 1),
	}
}

// ID returns the driver id.
func (e *Engine) ID() string {
	return e.id
}

// OnEvent registers a handler for driver events.
func (e *Engine) OnEvent(handler EventHandler) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// Status returns a snapshot of the driver.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		State:      e.state,
		Connected:  e.state.Connected(),
		Busy:       e.busy.Load(),
		Settings:   e.settings,
		Progress:   e.progress,
		Descriptor: e.desc,
	}
}

// Open opens the link to desc, writes the handshake and moves to Idle.
func (e *Engine) Open(ctx context.Context, desc transport.DeviceDescriptor, link Link) error {
	e.mu.Lock()
	if e.state != StateDisconnected {
		e.mu.Unlock()
		return &Error{Code: CodeConnection, Op: "connect", Err: ErrAlreadyConnected}
	}
	e.desc = desc
	e.setStateLocked(StateConnecting, "")
	e.mu.Unlock()

	fail := func(code Code, err error) error {
		e.mu.Lock()
		e.setStateLocked(StateDisconnected, err.Error())
		e.mu.Unlock()
		derr := &Error{Code: code, Op: "connect", Err: err}
		e.debugLog("Connect: failed", "address", desc.Address, "code", code, "error", err)
		e.captureError(derr, "connect")
		return derr
	}

	if e.cfg.Opener == nil {
		return fail(CodeConnection, errors.New("no transport opener configured"))
	}
	port, err := e.cfg.Opener.Open(ctx, desc, link.Options)
	if err != nil {
		code := CodeConnection
		if errors.Is(err, transport.ErrNoEndpoint) {
			code = CodeProtocol
		}
		return fail(code, err)
	}

	tag := transport.CaptureTag{SessionID: e.cfg.SessionID, DriverID: e.id, Address: desc.Address}
	writer := transport.NewCommandWriter(port)
	writer.SetLogger(e.capture, tag)
	for _, frame := range link.Handshake {
		if err := writer.WriteCommand(frame); err != nil {
			port.Close()
			return fail(CodeProtocol, fmt.Errorf("handshake: %w", err))
		}
	}

	var poller *transport.Poller
	if link.Poll {
		poller = transport.NewPoller(port)
		poller.SetLogger(e.capture, tag)
		poller.SetDebugLogger(e.logger)
		if link.OnResponse != nil {
			poller.OnResponse(link.OnResponse)
		}
		poller.Start()
	}

	e.mu.Lock()
	e.port, e.writer, e.poller = port, writer, poller
	e.disconnecting.Store(false)
	e.setStateLocked(StateIdle, "")
	e.mu.Unlock()

	e.debugLog("Connect: connected", "address", desc.Address, "kind", desc.Kind)
	e.emit(Event{Type: EventConnected, State: StateIdle})
	return nil
}

// Disconnect closes the link. A running job is stopped and reported
// Cancelled before Disconnected is emitted.
//
// Called from an event handler while a job runs, Disconnect returns as soon
// as the port is closed; the job goroutine emits Cancelled and Disconnected
// once its handlers return.
func (e *Engine) Disconnect() error {
	e.mu.Lock()
	if e.port == nil || e.disconnecting.Load() {
		e.mu.Unlock()
		return nil
	}
	e.disconnecting.Store(true)
	port, done := e.port, e.done
	addr := e.desc.Address
	deferred := done != nil && e.jobEmitting.Load()
	e.closeAfterJob = deferred
	e.mu.Unlock()
	e.signal()

	closeErr := port.Close()
	if closeErr != nil {
		closeErr = fmt.Errorf("close %s: %w", addr, closeErr)
	}
	if deferred {
		e.debugLog("Disconnect: job goroutine finishes teardown", "address", addr)
		return closeErr
	}
	if done != nil {
		<-done
	}
	e.closeLink()
	return closeErr
}

// closeLink finishes a Disconnect once no job is running.
func (e *Engine) closeLink() {
	e.mu.Lock()
	poller := e.poller
	addr := e.desc.Address
	e.mu.Unlock()
	e.waitPoller(poller)

	const reason = "disconnect requested"
	e.mu.Lock()
	e.port, e.writer, e.poller = nil, nil, nil
	e.setStateLocked(StateDisconnected, reason)
	e.mu.Unlock()

	e.debugLog("Disconnect: closed", "address", addr)
	e.emit(Event{Type: EventDisconnected, State: StateDisconnected, Reason: reason})
}

// Cut validates j, resolves its settings, encodes it with the protocol and
// streams it. It blocks until the job ends.
func (e *Engine) Cut(ctx context.Context, j *job.CutJob) error {
	if err := j.Validate(); err != nil {
		return &Error{Code: CodeValidation, Op: "cut", Err: err}
	}
	if !e.busy.CompareAndSwap(false, true) {
		return &Error{Code: CodeBusy, Op: "cut", Err: ErrJobRunning}
	}

	e.mu.Lock()
	if e.state != StateIdle || e.writer == nil || e.disconnecting.Load() {
		e.mu.Unlock()
		e.busy.Store(false)
		return &Error{Code: CodeConnection, Op: "cut", Err: ErrNotConnected}
	}
	settings := material.Resolve(e.cfg.Materials, j.Settings, e.proto.Defaults())
	plan := e.proto.Plan(j, settings)
	total := plan.Total()

	e.cancelled.Store(false)
	e.paused.Store(false)
	e.drainWake()
	done := make(chan struct{})
	e.done = done
	e.settings = settings
	e.progress = newProgress(0, total, 1)
	e.last, e.hasLast = Frame{}, false
	writer := e.writer
	e.setStateLocked(StateCutting, "")
	e.mu.Unlock()
	defer e.endRun(done)

	e.debugLog("Cut: started",
		"paths", len(j.Paths),
		"commands", total,
		"passes", plan.Passes,
		"material", settings.Material,
		"pressure", settings.Pressure,
		"speed", settings.Speed)
	start := newProgress(0, total, 1)
	e.emitFromJob(Event{Type: EventJobStarted, State: StateCutting, Progress: &start})

	err := e.stream(ctx, writer, plan, total)
	return e.finish(err)
}

// Pause holds the running job. The job goroutine lifts the tool before it
// blocks. Pausing a paused job has no effect.
func (e *Engine) Pause() error {
	e.mu.Lock()
	switch e.state {
	case StatePaused:
		e.mu.Unlock()
		return nil
	case StateCutting:
	default:
		e.mu.Unlock()
		return ErrNotCutting
	}
	e.paused.Store(true)
	e.setStateLocked(StatePaused, "")
	prog := e.progress
	e.mu.Unlock()

	e.debugLog("Pause: job paused", "current", prog.Current, "total", prog.Total)
	e.emit(Event{Type: EventPaused, State: StatePaused, Progress: &prog})
	return nil
}

// Resume continues a paused job.
func (e *Engine) Resume() error {
	e.mu.Lock()
	switch e.state {
	case StatePaused:
	case StateCutting:
		e.mu.Unlock()
		return ErrNotPaused
	default:
		e.mu.Unlock()
		return ErrNotCutting
	}
	e.paused.Store(false)
	e.setStateLocked(StateCutting, "")
	prog := e.progress
	e.mu.Unlock()
	e.signal()

	e.debugLog("Resume: job resumed", "current", prog.Current, "total", prog.Total)
	e.emit(Event{Type: EventResumed, State: StateCutting, Progress: &prog})
	return nil
}

// Cancel stops the running job before its next command.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	active := e.state.Active()
	e.mu.Unlock()
	if !active {
		return ErrNotCutting
	}
	e.cancelled.Store(true)
	e.signal()
	e.debugLog("Cancel: requested")
	return nil
}

func (e *Engine) stream(ctx context.Context, w *transport.CommandWriter, plan Plan, total int) error {
	for _, f := range plan.Setup {
		if err := e.send(ctx, w, f); err != nil {
			return err
		}
	}

	count := 0
	passes := max(plan.Passes, 1)
	for pass := 1; pass <= passes; pass++ {
		for _, f := range plan.Pass {
			if err := e.checkpoint(ctx, w); err != nil {
				return err
			}
			if err := w.WriteCommand(f.Data); err != nil {
				return err
			}
			if f.Counted {
				count++
				e.advance(f, count, total, pass)
			}
			e.pace(ctx)
		}
	}

	for _, f := range plan.Home {
		if err := e.send(ctx, w, f); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) send(ctx context.Context, w *transport.CommandWriter, f Frame) error {
	if err := e.checkpoint(ctx, w); err != nil {
		return err
	}
	if err := w.WriteCommand(f.Data); err != nil {
		return err
	}
	e.pace(ctx)
	return nil
}

// checkpoint runs before every frame. It reports cancellation and blocks
// while paused, lifting the tool on entry and restoring it on exit.
func (e *Engine) checkpoint(ctx context.Context, w *transport.CommandWriter) error {
	lifted := false
	for {
		if e.disconnecting.Load() {
			return errLinkClosed
		}
		if e.cancelled.Load() {
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		if !e.paused.Load() {
			if lifted {
				return e.sendRelative(w, e.proto.ResumeFrame)
			}
			return nil
		}
		if !lifted {
			if err := e.sendRelative(w, e.proto.PauseFrame); err != nil {
				return err
			}
			lifted = true
		}
		select {
		case <-e.wake:
		case <-ctx.Done():
		}
	}
}

// sendRelative writes the frame encode derives from the last movement.
func (e *Engine) sendRelative(w *transport.CommandWriter, encode func(Frame) []byte) error {
	e.mu.Lock()
	last, ok := e.last, e.hasLast
	e.mu.Unlock()
	if !ok {
		return nil
	}
	data := encode(last)
	if data == nil {
		return nil
	}
	return w.WriteCommand(data)
}

func (e *Engine) pace(ctx context.Context) {
	d := e.cfg.PaceDelay
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			return
		case <-ctx.Done():
			return
		case <-e.wake:
			if e.cancelled.Load() || e.disconnecting.Load() {
				return
			}
		}
	}
}

func (e *Engine) advance(f Frame, count, total, pass int) {
	p := newProgress(count, total, pass)

	e.mu.Lock()
	e.last, e.hasLast = f, true
	e.progress = p
	e.mu.Unlock()

	if count%e.cfg.ProgressInterval != 0 && count != total {
		return
	}
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: e.cfg.SessionID,
		Layer:     log.LayerDriver,
		Category:  log.CategoryProgress,
		DriverID:  e.id,
		Progress:  &log.ProgressEvent{Current: p.Current, Total: p.Total, Pass: p.Pass},
	})
	e.emitFromJob(Event{Type: EventProgress, State: StateCutting, Progress: &p})
}

// finish maps the stream result to the job's terminal state.
func (e *Engine) finish(err error) error {
	e.mu.Lock()
	prog := e.progress
	e.mu.Unlock()

	if err == nil {
		e.endJob(StateCompleted, "")
		e.debugLog("Cut: completed", "commands", prog.Current)
		e.emitFromJob(Event{Type: EventCompleted, State: StateCompleted, Progress: &prog})
		return nil
	}

	if e.disconnecting.Load() {
		const reason = "disconnected"
		e.busy.Store(false)
		e.paused.Store(false)
		e.mu.Lock()
		e.setStateLocked(StateCancelled, reason)
		e.mu.Unlock()
		e.debugLog("Cut: stopped by disconnect", "current", prog.Current, "total", prog.Total)
		e.emitFromJob(Event{Type: EventCancelled, State: StateCancelled, Progress: &prog, Reason: reason})
		return ErrCancelled
	}

	if errors.Is(err, ErrCancelled) {
		reason := "cancel requested"
		if !e.cancelled.Load() {
			reason = "context done"
		}
		e.endJob(StateCancelled, reason)
		e.debugLog("Cut: cancelled", "current", prog.Current, "total", prog.Total, "reason", reason)
		e.emitFromJob(Event{Type: EventCancelled, State: StateCancelled, Progress: &prog, Reason: reason})
		return err
	}

	derr := &Error{Code: CodeIO, Op: "cut", Err: err}
	e.captureError(derr, "cut")
	e.debugLog("Cut: failed", "current", prog.Current, "total", prog.Total, "error", err)

	if errors.Is(err, transport.ErrDeviceGone) && e.dropLink("device gone") {
		e.emitFromJob(Event{Type: EventError, State: StateDisconnected, Err: derr})
		e.emitFromJob(Event{Type: EventDisconnected, State: StateDisconnected, Reason: "device gone"})
		return derr
	}
	e.endJob(StateError, err.Error())
	e.emitFromJob(Event{Type: EventError, State: StateError, Err: derr})
	return derr
}

// endRun releases Disconnect callers waiting on the job and completes a
// teardown handed over by a Disconnect from an event handler.
func (e *Engine) endRun(done chan struct{}) {
	e.mu.Lock()
	e.done = nil
	pending := e.closeAfterJob
	e.closeAfterJob = false
	e.mu.Unlock()
	close(done)

	if pending {
		e.closeLink()
	}
}

// endJob clears the job flags and passes through terminal to Idle.
func (e *Engine) endJob(terminal State, reason string) {
	e.busy.Store(false)
	e.paused.Store(false)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setStateLocked(terminal, reason)
	e.setStateLocked(StateIdle, "")
}

// dropLink closes a link lost mid-job. It reports false when Disconnect is
// already closing it.
func (e *Engine) dropLink(reason string) bool {
	e.mu.Lock()
	if e.disconnecting.Load() || e.port == nil {
		e.mu.Unlock()
		return false
	}
	e.disconnecting.Store(true)
	port, poller := e.port, e.poller
	e.port, e.writer, e.poller = nil, nil, nil
	e.busy.Store(false)
	e.paused.Store(false)
	e.setStateLocked(StateDisconnected, reason)
	e.mu.Unlock()

	port.Close()
	e.waitPoller(poller)
	return true
}

func (e *Engine) waitPoller(p *transport.Poller) {
	if p == nil {
		return
	}
	select {
	case <-p.Done():
	case <-time.After(pollerStopTimeout):
		e.debugLog("Disconnect: response reader did not stop")
	}
}

func (e *Engine) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) drainWake() {
	select {
	case <-e.wake:
	default:
	}
}

// setStateLocked changes state and records the transition. Caller holds e.mu.
func (e *Engine) setStateLocked(s State, reason string) {
	old := e.state
	e.state = s
	if old == s {
		return
	}
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: e.cfg.SessionID,
		Layer:     log.LayerDriver,
		Category:  log.CategoryState,
		DriverID:  e.id,
		Address:   e.desc.Address,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityDriver,
			OldState: old.String(),
			NewState: s.String(),
			Reason:   reason,
		},
	})
}

func (e *Engine) captureError(derr *Error, op string) {
	code := int(derr.Code)
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: e.cfg.SessionID,
		Layer:     log.LayerDriver,
		Category:  log.CategoryError,
		DriverID:  e.id,
		Address:   e.desc.Address,
		Error: &log.ErrorEventData{
			Layer:   log.LayerDriver,
			Message: derr.Error(),
			Code:    &code,
			Context: op,
		},
	})
}

// emit sends an event to all registered handlers.
func (e *Engine) emit(ev Event) {
	ev.Time = time.Now()
	ev.SessionID = e.cfg.SessionID
	ev.DriverID = e.id

	e.handlersMu.RLock()
	handlers := append([]EventHandler(nil), e.handlers...)
	e.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// emitFromJob emits on the job goroutine. Disconnect uses the mark to avoid
// waiting for the goroutine it is running on.
func (e *Engine) emitFromJob(ev Event) {
	e.jobEmitting.Store(true)
	defer e.jobEmitting.Store(false)
	e.emit(ev)
}

// debugLog logs a debug message if logging is enabled.
func (e *Engine) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, append([]any{"driver", e.id, "session_id", e.cfg.SessionID}, args...)...)
	}
}
