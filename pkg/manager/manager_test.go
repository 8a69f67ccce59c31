package manager_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	devmock "github.com/cutline-project/cutline-go/internal/mock"
	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/manager"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/transport/mocks"
)

var (
	cameo   = transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "usb:1:4", VendorID: 0x0b4d, Product: "CAMEO 4"}
	plotter = transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0", VendorID: 0x0403}
)

type recorder struct {
	mu     sync.Mutex
	events []driver.Event
}

func (r *recorder) handle(ev driver.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []driver.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]driver.Event(nil), r.events...)
}

func (r *recorder) types() []driver.EventType {
	var out []driver.EventType
	for _, ev := range r.all() {
		out = append(out, ev.Type)
	}
	return out
}

type captureLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLog) Log(ev log.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureLog) layer(l log.Layer) []log.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []log.Event
	for _, ev := range c.events {
		if ev.Layer == l {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	mgr     *manager.Manager
	opener  *devmock.Opener
	enum    *mocks.MockEnumerator
	events  *recorder
	capture *captureLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		opener:  devmock.NewOpener(),
		enum:    mocks.NewMockEnumerator(t),
		events:  &recorder{},
		capture: &captureLog{},
	}
	mgr, err := manager.New(manager.Config{
		Enumerator: f.enum,
		Opener:     f.opener,
		Capture:    f.capture,
		Drivers: map[string]driver.Config{
			"cutter": {PaceDelay: time.Nanosecond},
			"hpgl":   {PaceDelay: time.Nanosecond},
		},
	})
	require.NoError(t, err)
	mgr.OnEvent(f.events.handle)
	f.mgr = mgr
	t.Cleanup(func() { mgr.DisconnectAll() })
	return f
}

func (f *fixture) attach(desc transport.DeviceDescriptor) *devmock.Port {
	port := devmock.NewPort()
	f.opener.Add(desc.Address, port)
	return port
}

func square() *job.CutJob {
	return &job.CutJob{Paths: []job.Path{{Points: []job.Point{
		job.Up(0, 0), job.Down(1, 0), job.Down(1, 1), job.Down(0, 1), job.Down(0, 0),
	}}}}
}

func TestNewValidates(t *testing.T) {
	_, err := manager.New(manager.Config{Opener: devmock.NewOpener()})
	assert.ErrorIs(t, err, manager.ErrNoEnumerator)

	_, err = manager.New(manager.Config{
		Enumerator: mocks.NewMockEnumerator(t),
		Opener:     devmock.NewOpener(),
		Drivers:    map[string]driver.Config{"hpgl": {BaudRate: -1}},
	})
	assert.ErrorIs(t, err, driver.ErrInvalidBaudRate)
}

func TestScan(t *testing.T) {
	f := newFixture(t)
	f.enum.EXPECT().SerialPorts(context.Background()).Return([]transport.SerialPortInfo{
		{Address: "/dev/ttyUSB0", VendorID: 0x0403, ProductID: 0x6001},
		{Address: "/dev/ttyS0"},
	}, nil)
	f.enum.EXPECT().USBDevices(context.Background()).Return([]transport.USBDeviceInfo{
		{Bus: 1, Address: 4, VendorID: 0x0b4d, ProductID: 0x113a, Manufacturer: "Silhouette", Product: "CAMEO 4"},
	}, nil)

	devices, err := f.mgr.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 3)

	assert.Equal(t, "hpgl", devices[0].DriverID)
	assert.True(t, devices[0].Supported)
	assert.False(t, devices[1].Supported)
	assert.Equal(t, "usb:1:4", devices[2].Descriptor.Address)
	assert.Equal(t, transport.KindUSB, devices[2].Descriptor.Kind)
	assert.Equal(t, "cutter", devices[2].DriverID)
	assert.Equal(t, "Silhouette CAMEO 4", devices[2].Name)
}

func TestScanPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.enum.EXPECT().SerialPorts(context.Background()).Return([]transport.SerialPortInfo{
		{Address: "/dev/ttyUSB0", VendorID: 0x0403},
	}, nil)
	f.enum.EXPECT().USBDevices(context.Background()).Return(nil, errors.New("libusb: access denied"))

	devices, err := f.mgr.Scan(context.Background())
	assert.ErrorContains(t, err, "access denied")
	assert.Len(t, devices, 1)
}

func TestConnectAndSubmit(t *testing.T) {
	f := newFixture(t)
	port := f.attach(cameo)

	id, err := f.mgr.Connect(context.Background(), cameo, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	sessions := f.mgr.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, "cutter", sessions[0].DriverID)

	require.NoError(t, f.mgr.Submit(context.Background(), id, square()))
	st, err := f.mgr.Status(id)
	require.NoError(t, err)
	assert.Equal(t, driver.StateIdle, st.State)
	assert.Equal(t, 5, st.Progress.Current)
	assert.Equal(t, "\x1b\x04", port.FrameStrings()[port.FrameCount()-1])

	for _, ev := range f.events.all() {
		assert.Equal(t, id, ev.SessionID)
		assert.Equal(t, "cutter", ev.DriverID)
	}
	types := f.events.types()
	assert.Equal(t, driver.EventConnected, types[0])
	assert.Equal(t, driver.EventCompleted, types[len(types)-1])

	opened := f.capture.layer(log.LayerManager)
	require.Len(t, opened, 1)
	assert.Equal(t, log.StateEntitySession, opened[0].StateChange.Entity)
	assert.Equal(t, "OPEN", opened[0].StateChange.NewState)
}

func TestConnectExplicitDriver(t *testing.T) {
	f := newFixture(t)
	port := f.attach(plotter)

	id, err := f.mgr.Connect(context.Background(), plotter, "hpgl")
	require.NoError(t, err)
	assert.Equal(t, []string{"IN;", "SP1;"}, port.FrameStrings())

	s, err := f.mgr.Session(id)
	require.NoError(t, err)
	assert.Equal(t, "hpgl", s.Driver.ID())
	assert.Equal(t, plotter, s.Descriptor)
}

func TestConnectFailurePublishesError(t *testing.T) {
	f := newFixture(t)
	f.opener.Fail(plotter.Address, fmt.Errorf("open: %w", errors.New("permission denied")))

	_, err := f.mgr.Connect(context.Background(), plotter, "hpgl")
	assert.ErrorIs(t, err, driver.ErrConnection)
	assert.Empty(t, f.mgr.Sessions())

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, driver.EventError, events[0].Type)
	require.NotNil(t, events[0].Err)
	assert.Equal(t, driver.CodeConnection, events[0].Err.Code)
	assert.Equal(t, "could not connect to the device", events[0].Err.Message())

	errs := f.capture.layer(log.LayerManager)
	require.Len(t, errs, 1)
	assert.Equal(t, log.CategoryError, errs[0].Category)
}

func TestConnectUnknownDriver(t *testing.T) {
	f := newFixture(t)
	f.attach(plotter)

	_, err := f.mgr.Connect(context.Background(), plotter, "laser")
	assert.ErrorIs(t, err, driver.ErrUnsupportedDriver)
	assert.Empty(t, f.mgr.Sessions())
	assert.Empty(t, f.opener.Opened())
	assert.Equal(t, []driver.EventType{driver.EventError}, f.events.types())
}

func TestConnectUnidentifiedDevice(t *testing.T) {
	f := newFixture(t)
	desc := transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyS0"}

	_, err := f.mgr.Connect(context.Background(), desc, "")
	assert.ErrorIs(t, err, driver.ErrUnsupportedDriver)
	assert.ErrorIs(t, err, manager.ErrNoDriver)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.mgr.Submit(context.Background(), "nope", square()), manager.ErrSessionNotFound)
	assert.ErrorIs(t, f.mgr.Pause("nope"), manager.ErrSessionNotFound)
	assert.ErrorIs(t, f.mgr.Resume("nope"), manager.ErrSessionNotFound)
	assert.ErrorIs(t, f.mgr.Cancel("nope"), manager.ErrSessionNotFound)
	assert.ErrorIs(t, f.mgr.Disconnect("nope"), manager.ErrSessionNotFound)
	_, err := f.mgr.Status("nope")
	assert.ErrorIs(t, err, manager.ErrSessionNotFound)
}

func TestDisconnect(t *testing.T) {
	f := newFixture(t)
	port := f.attach(cameo)
	id, err := f.mgr.Connect(context.Background(), cameo, "")
	require.NoError(t, err)

	require.NoError(t, f.mgr.Disconnect(id))
	assert.True(t, port.Closed())
	assert.Empty(t, f.mgr.Sessions())
	assert.ErrorIs(t, f.mgr.Disconnect(id), manager.ErrSessionNotFound)

	types := f.events.types()
	assert.Equal(t, driver.EventDisconnected, types[len(types)-1])
}

func TestDisconnectAll(t *testing.T) {
	f := newFixture(t)
	p1 := f.attach(cameo)
	p2 := f.attach(plotter)

	_, err := f.mgr.Connect(context.Background(), cameo, "")
	require.NoError(t, err)
	_, err = f.mgr.Connect(context.Background(), plotter, "")
	require.NoError(t, err)
	require.Len(t, f.mgr.Sessions(), 2)

	require.NoError(t, f.mgr.DisconnectAll())
	assert.Empty(t, f.mgr.Sessions())
	assert.True(t, p1.Closed())
	assert.True(t, p2.Closed())
}

func TestDeviceGoneDropsSession(t *testing.T) {
	f := newFixture(t)
	port := f.attach(plotter)
	id, err := f.mgr.Connect(context.Background(), plotter, "hpgl")
	require.NoError(t, err)

	port.FailAt(5, fmt.Errorf("%w: EIO", transport.ErrDeviceGone))
	err = f.mgr.Submit(context.Background(), id, square())
	assert.ErrorIs(t, err, driver.ErrIO)

	assert.Empty(t, f.mgr.Sessions())
	types := f.events.types()
	assert.Equal(t, []driver.EventType{driver.EventError, driver.EventDisconnected}, types[len(types)-2:])

	states := f.capture.layer(log.LayerManager)
	require.Len(t, states, 2)
	assert.Equal(t, "CLOSED", states[1].StateChange.NewState)
	assert.Equal(t, "device gone", states[1].StateChange.Reason)
}

func TestPauseResumeCancelThroughManager(t *testing.T) {
	f := newFixture(t)
	port := f.attach(cameo)
	id, err := f.mgr.Connect(context.Background(), cameo, "")
	require.NoError(t, err)

	// handshake, status query, speed, pressure, then the first move
	moved := port.GateAt(5)
	// lift, re-sent move, then the first cut
	cutting := port.GateAt(8)
	done := make(chan error, 1)
	go func() { done <- f.mgr.Submit(context.Background(), id, square()) }()
	<-moved.Reached

	require.NoError(t, f.mgr.Pause(id))
	st, err := f.mgr.Status(id)
	require.NoError(t, err)
	assert.Equal(t, driver.StatePaused, st.State)
	moved.Release()
	require.Eventually(t, func() bool { return port.FrameCount() == 6 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.mgr.Resume(id))
	<-cutting.Reached
	require.NoError(t, f.mgr.Cancel(id))
	cutting.Release()
	assert.ErrorIs(t, <-done, driver.ErrCancelled)

	st, err = f.mgr.Status(id)
	require.NoError(t, err)
	assert.False(t, st.Busy)
	assert.Contains(t, f.events.types(), driver.EventCancelled)
}

func TestDisconnectFromEventHandler(t *testing.T) {
	f := newFixture(t)
	port := f.attach(plotter)
	id, err := f.mgr.Connect(context.Background(), plotter, "hpgl")
	require.NoError(t, err)

	var once sync.Once
	f.mgr.OnEvent(func(ev driver.Event) {
		if ev.Type == driver.EventProgress {
			once.Do(func() { assert.NoError(t, f.mgr.Disconnect(ev.SessionID)) })
		}
	})

	done := make(chan error, 1)
	go func() { done <- f.mgr.Submit(context.Background(), id, square()) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, driver.ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Submit did not return after Disconnect from an event handler")
	}

	assert.True(t, port.Closed())
	assert.Empty(t, f.mgr.Sessions())
	types := f.events.types()
	assert.Equal(t, []driver.EventType{driver.EventCancelled, driver.EventDisconnected}, types[len(types)-2:])

	states := f.capture.layer(log.LayerManager)
	require.Len(t, states, 2)
	assert.Equal(t, "CLOSED", states[1].StateChange.NewState)
	assert.Equal(t, "disconnect requested", states[1].StateChange.Reason)
}

func TestDriverUnitsOverride(t *testing.T) {
	port := devmock.NewPort()
	mgr, err := manager.New(manager.Config{
		Enumerator: mocks.NewMockEnumerator(t),
		Opener:     devmock.NewOpener().Add(plotter.Address, port),
		Units:      driver.UnitsMillimeter,
		Drivers: map[string]driver.Config{
			"hpgl": {PaceDelay: time.Nanosecond, Units: driver.UnitsInch},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.DisconnectAll() })

	id, err := mgr.Connect(context.Background(), plotter, "hpgl")
	require.NoError(t, err)
	require.NoError(t, mgr.Submit(context.Background(), id, square()))
	assert.Contains(t, port.FrameStrings(), "PD1016,0;")
}

func TestManagerUnitsApplyWithoutOverride(t *testing.T) {
	port := devmock.NewPort()
	mgr, err := manager.New(manager.Config{
		Enumerator: mocks.NewMockEnumerator(t),
		Opener:     devmock.NewOpener().Add(plotter.Address, port),
		Units:      driver.UnitsMillimeter,
		Drivers:    map[string]driver.Config{"hpgl": {PaceDelay: time.Nanosecond}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.DisconnectAll() })

	id, err := mgr.Connect(context.Background(), plotter, "hpgl")
	require.NoError(t, err)
	require.NoError(t, mgr.Submit(context.Background(), id, square()))
	assert.Contains(t, port.FrameStrings(), "PD40,0;")
}
