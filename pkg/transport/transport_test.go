package transport_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	devmock "github.com/cutline-project/cutline-go/internal/mock"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/transport/mocks"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *captureRecorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *captureRecorder) Events() []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]log.Event(nil), r.events...)
}

func TestCommandWriterCapturesFrames(t *testing.T) {
	port := devmock.NewPort()
	rec := &captureRecorder{}
	w := transport.NewCommandWriter(port)
	w.SetLogger(rec, transport.CaptureTag{SessionID: "s1", DriverID: "cutter", Address: "usb:1:2"})

	require.NoError(t, w.WriteCommand([]byte("M00000,00000\x03")))
	require.NoError(t, w.WriteCommand([]byte("D00508,00000\x03")))

	assert.Equal(t, uint64(2), w.Written())
	assert.Equal(t, []string{"M00000,00000\x03", "D00508,00000\x03"}, port.FrameStrings())

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "s1", events[0].SessionID)
	assert.Equal(t, log.DirectionOut, events[0].Direction)
	assert.Equal(t, log.LayerTransport, events[0].Layer)
	assert.Equal(t, log.CategoryFrame, events[0].Category)
	assert.Equal(t, "usb:1:2", events[1].Address)
	assert.Equal(t, uint64(2), events[1].Frame.Seq)
}

func TestCommandWriterTruncatesLargeFrames(t *testing.T) {
	port := devmock.NewPort()
	rec := &captureRecorder{}
	w := transport.NewCommandWriter(port)
	w.SetLogger(rec, transport.CaptureTag{})

	big := make([]byte, transport.MaxLogFrameDataSize+10)
	require.NoError(t, w.WriteCommand(big))

	ev := rec.Events()[0]
	assert.True(t, ev.Frame.Truncated)
	assert.Len(t, ev.Frame.Data, transport.MaxLogFrameDataSize)
	assert.Equal(t, len(big), ev.Frame.Size)
}

func TestCommandWriterPropagatesErrors(t *testing.T) {
	port := devmock.NewPort()
	port.FailAt(1, transport.ErrDeviceGone)
	rec := &captureRecorder{}
	w := transport.NewCommandWriter(port)
	w.SetLogger(rec, transport.CaptureTag{})

	err := w.WriteCommand([]byte("IN;"))
	assert.ErrorIs(t, err, transport.ErrDeviceGone)
	assert.Equal(t, uint64(0), w.Written())
	assert.Empty(t, rec.Events())
}

// shortWriter accepts at most two bytes per call.
type shortWriter struct{ got []byte }

func (s *shortWriter) Write(b []byte) (int, error) {
	if len(b) > 2 {
		b = b[:2]
	}
	s.got = append(s.got, b...)
	return len(b), nil
}

func TestCommandWriterCompletesShortWrites(t *testing.T) {
	sw := &shortWriter{}
	w := transport.NewCommandWriter(sw)
	require.NoError(t, w.WriteCommand([]byte("PA0,0;")))
	assert.Equal(t, "PA0,0;", string(sw.got))
}

func TestPollerCapturesResponses(t *testing.T) {
	port := devmock.NewPort()
	rec := &captureRecorder{}

	var mu sync.Mutex
	var got []string
	p := transport.NewPoller(port)
	p.SetLogger(rec, transport.CaptureTag{SessionID: "s2"})
	p.OnResponse(func(b []byte) {
		mu.Lock()
		got = append(got, string(b))
		mu.Unlock()
	})
	p.Start()
	p.Start()

	port.Respond([]byte("0\x03"))
	port.Respond([]byte("1\x03"))
	require.Eventually(t, func() bool { return p.Frames() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, port.Close())
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after close")
	}
	assert.ErrorIs(t, p.Err(), transport.ErrPortClosed)

	mu.Lock()
	assert.Equal(t, []string{"0\x03", "1\x03"}, got)
	mu.Unlock()

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, log.DirectionIn, events[0].Direction)
	assert.Equal(t, "s2", events[0].SessionID)
}

func TestSystemOpenerDispatch(t *testing.T) {
	serialOpener := mocks.NewMockOpener(t)
	usbOpener := mocks.NewMockOpener(t)
	port := devmock.NewPort()

	serialDesc := transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0"}
	usbDesc := transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "usb:1:5"}
	opts := transport.OpenOptions{BaudRate: 115200}

	serialOpener.EXPECT().Open(mock.Anything, serialDesc, opts).Return(port, nil).Once()
	usbOpener.EXPECT().Open(mock.Anything, usbDesc, opts).Return(nil, transport.ErrNoEndpoint).Once()

	o := &transport.SystemOpener{Serial: serialOpener, USB: usbOpener}

	got, err := o.Open(context.Background(), serialDesc, opts)
	require.NoError(t, err)
	assert.Same(t, port, got)

	_, err = o.Open(context.Background(), usbDesc, opts)
	assert.ErrorIs(t, err, transport.ErrNoEndpoint)

	_, err = o.Open(context.Background(), transport.DeviceDescriptor{Kind: transport.Kind(9)}, opts)
	assert.ErrorIs(t, err, transport.ErrUnsupportedTransport)
}

func TestOpenersRejectWrongKind(t *testing.T) {
	ctx := context.Background()

	_, err := transport.SerialOpener{}.Open(ctx, transport.DeviceDescriptor{Kind: transport.KindUSB}, transport.OpenOptions{BaudRate: 9600})
	assert.ErrorIs(t, err, transport.ErrUnsupportedTransport)

	_, err = (&transport.USBOpener{}).Open(ctx, transport.DeviceDescriptor{Kind: transport.KindSerial}, transport.OpenOptions{})
	assert.ErrorIs(t, err, transport.ErrUnsupportedTransport)

	_, err = (&transport.USBOpener{}).Open(ctx, transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "bogus"}, transport.OpenOptions{})
	assert.ErrorIs(t, err, transport.ErrInvalidAddress)
}

func TestDescriptorsMergesSources(t *testing.T) {
	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().SerialPorts(mock.Anything).Return([]transport.SerialPortInfo{
		{Address: "/dev/ttyUSB0", VendorID: 0x0403, ProductID: 0x6001, Product: "FT232R"},
	}, nil).Once()
	enum.EXPECT().USBDevices(mock.Anything).Return([]transport.USBDeviceInfo{
		{Bus: 1, Address: 9, VendorID: 0x0b4d, ProductID: 0x1123, Manufacturer: "Silhouette"},
	}, nil).Once()

	descs, err := transport.Descriptors(context.Background(), enum)
	require.NoError(t, err)
	require.Len(t, descs, 2)

	assert.Equal(t, transport.KindSerial, descs[0].Kind)
	assert.Equal(t, "/dev/ttyUSB0", descs[0].Address)
	assert.Equal(t, uint16(0x0403), descs[0].VendorID)

	assert.Equal(t, transport.KindUSB, descs[1].Kind)
	assert.Equal(t, "usb:1:9", descs[1].Address)
	assert.Equal(t, "Silhouette", descs[1].Manufacturer)
}

func TestDescriptorsPartialFailure(t *testing.T) {
	usbErr := errors.New("libusb unavailable")
	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().SerialPorts(mock.Anything).Return([]transport.SerialPortInfo{{Address: "COM3"}}, nil).Once()
	enum.EXPECT().USBDevices(mock.Anything).Return(nil, usbErr).Once()

	descs, err := transport.Descriptors(context.Background(), enum)
	assert.ErrorIs(t, err, usbErr)
	require.Len(t, descs, 1)
	assert.Equal(t, "COM3", descs[0].Address)
}
