package manager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/registry"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Session states recorded in the capture log.
const (
	sessionOpen   = "OPEN"
	sessionClosed = "CLOSED"
)

// Manager owns device discovery and driver sessions.
type Manager struct {
	config  Config
	logger  *slog.Logger
	capture log.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	handlersMu sync.RWMutex
	handlers   []driver.EventHandler
}

// New creates a Manager.
func New(config Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Materials == nil {
		config.Materials = material.Default()
	}
	return &Manager{
		config:   config,
		logger:   config.Logger,
		capture:  log.OrNoop(config.Capture),
		sessions: make(map[string]*Session),
	}, nil
}

// OnEvent registers a handler for events from all sessions.
// Handlers run on the goroutine that produced the event and must not block.
func (m *Manager) OnEvent(handler driver.EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// Scan lists attached devices with their identification.
// When one source fails, the devices from the other are still returned
// along with the error.
func (m *Manager) Scan(ctx context.Context) ([]Device, error) {
	descs, err := transport.Descriptors(ctx, m.config.Enumerator)

	devices := make([]Device, 0, len(descs))
	for _, d := range descs {
		devices = append(devices, Device{Descriptor: d, Identification: Identify(d)})
	}

	m.debugLog("Scan: done", "devices", len(devices), "error", err)
	if err != nil {
		return devices, fmt.Errorf("scan: %w", err)
	}
	return devices, nil
}

// Connect creates a driver for desc and connects it. An empty driverID uses
// the Identify guess. It returns the new session id.
//
// On failure no session is registered and an Error event is published.
func (m *Manager) Connect(ctx context.Context, desc transport.DeviceDescriptor, driverID string) (string, error) {
	if driverID == "" {
		ident := Identify(desc)
		if !ident.Supported {
			err := &driver.Error{
				Code: driver.CodeUnsupportedDriver,
				Op:   "connect",
				Err:  fmt.Errorf("%w: %s", ErrNoDriver, desc),
			}
			m.publishFailure("", "", desc, err)
			return "", err
		}
		driverID = ident.DriverID
	}

	sessionID := uuid.NewString()
	d, err := registry.New(driverID, m.driverConfig(driverID, sessionID))
	if err != nil {
		m.publishFailure(sessionID, driverID, desc, err)
		return "", err
	}
	d.OnEvent(func(ev driver.Event) {
		m.handleDriverEvent(sessionID, ev)
	})

	m.debugLog("Connect: connecting", "session_id", sessionID, "driver", driverID, "device", desc.String())
	if err := d.Connect(ctx, desc); err != nil {
		m.publishFailure(sessionID, driverID, desc, err)
		return "", err
	}

	s := &Session{
		ID:          sessionID,
		Descriptor:  desc,
		DriverID:    driverID,
		Driver:      d,
		ConnectedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[sessionID] = s
	m.mu.Unlock()

	// The device may have gone away before the session was visible to
	// handleDriverEvent.
	if !d.Status().State.Connected() {
		m.take(sessionID)
		err := &driver.Error{Code: driver.CodeConnection, Op: "connect", Err: transport.ErrDeviceGone}
		m.publishFailure(sessionID, driverID, desc, err)
		return "", err
	}

	m.captureSession(s, "", sessionOpen, "connected")
	m.debugLog("Connect: session open", "session_id", sessionID, "driver", driverID)
	return sessionID, nil
}

// Disconnect closes a session. The session is gone even if closing the
// link reports an error.
func (m *Manager) Disconnect(sessionID string) error {
	s, ok := m.take(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	err := s.Driver.Disconnect()
	m.captureSession(s, sessionOpen, sessionClosed, "disconnect requested")
	m.debugLog("Disconnect: session closed", "session_id", sessionID, "error", err)
	return err
}

// DisconnectAll closes every session.
func (m *Manager) DisconnectAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	clear(m.sessions)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Driver.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
		m.captureSession(s, sessionOpen, sessionClosed, "disconnect all")
	}
	m.debugLog("DisconnectAll: done", "sessions", len(sessions))
	return errors.Join(errs...)
}

// Submit runs a job on a session and blocks until it ends.
func (m *Manager) Submit(ctx context.Context, sessionID string, j *job.CutJob) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Driver.Cut(ctx, j)
}

// Pause pauses the running job of a session.
func (m *Manager) Pause(sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Driver.Pause()
}

// Resume resumes the paused job of a session.
func (m *Manager) Resume(sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Driver.Resume()
}

// Cancel cancels the running job of a session.
func (m *Manager) Cancel(sessionID string) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return s.Driver.Cancel()
}

// Status returns the driver status of a session.
func (m *Manager) Status(sessionID string) (driver.Status, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return driver.Status{}, err
	}
	return s.Driver.Status(), nil
}

// Session returns a session by id.
func (m *Manager) Session(sessionID string) (Session, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

// Sessions returns all open sessions, oldest first.
func (m *Manager) Sessions() []Session {
	m.mu.RLock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Session) int {
		if c := a.ConnectedAt.Compare(b.ConnectedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (m *Manager) lookup(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// take removes a session from the map and returns it.
func (m *Manager) take(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	return s, ok
}

func (m *Manager) driverConfig(driverID, sessionID string) driver.Config {
	tuning := m.config.Drivers[driverID]
	units := tuning.Units
	if units == driver.UnitsDefault {
		units = m.config.Units
	}
	return driver.Config{
		SessionID:        sessionID,
		Logger:           m.logger,
		Capture:          m.config.Capture,
		Materials:        m.config.Materials,
		Opener:           m.config.Opener,
		BaudRate:         tuning.BaudRate,
		PaceDelay:        tuning.PaceDelay,
		ProgressInterval: tuning.ProgressInterval,
		Units:            units,
	}
}

// handleDriverEvent re-publishes a driver event and drops the session when
// the driver disconnected on its own.
func (m *Manager) handleDriverEvent(sessionID string, ev driver.Event) {
	ev.SessionID = sessionID
	if ev.Type == driver.EventDisconnected {
		if s, ok := m.take(sessionID); ok {
			m.captureSession(s, sessionOpen, sessionClosed, ev.Reason)
			m.debugLog("session dropped by driver", "session_id", sessionID, "reason", ev.Reason)
		}
	}
	m.emit(ev)
}

// publishFailure records a failed connect and emits an Error event.
func (m *Manager) publishFailure(sessionID, driverID string, desc transport.DeviceDescriptor, err error) {
	var derr *driver.Error
	if !errors.As(err, &derr) {
		derr = &driver.Error{Code: driver.CodeConnection, Op: "connect", Err: err}
	}

	code := int(derr.Code)
	m.capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Layer:     log.LayerManager,
		Category:  log.CategoryError,
		DriverID:  driverID,
		Address:   desc.Address,
		Error: &log.ErrorEventData{
			Layer:   log.LayerManager,
			Message: derr.Error(),
			Code:    &code,
			Context: "connect",
		},
	})
	m.debugLog("Connect: failed", "session_id", sessionID, "driver", driverID, "device", desc.String(), "error", err)

	m.emit(driver.Event{
		Type:      driver.EventError,
		Time:      time.Now(),
		SessionID: sessionID,
		DriverID:  driverID,
		State:     driver.StateDisconnected,
		Err:       derr,
	})
}

func (m *Manager) captureSession(s *Session, old, state, reason string) {
	m.capture.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: s.ID,
		Layer:     log.LayerManager,
		Category:  log.CategoryState,
		DriverID:  s.DriverID,
		Address:   s.Descriptor.Address,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}

// emit sends an event to all registered handlers.
func (m *Manager) emit(ev driver.Event) {
	m.handlersMu.RLock()
	handlers := append([]driver.EventHandler(nil), m.handlers...)
	m.handlersMu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// debugLog logs a debug message if logging is enabled.
func (m *Manager) debugLog(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
