package cutline_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	devmock "github.com/cutline-project/cutline-go/internal/mock"
	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/manager"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/transport/mocks"
)

const labelJob = `
settings:
  material: Vinyl
paths:
  - points:
      - {x: 0, y: 0, pen: up}
      - {x: 2, y: 0}
      - {x: 2, y: 1}
      - {x: 0, y: 1}
      - {x: 0, y: 0}
`

// TestE2E_ScanConnectCut drives a cutter and a plotter through the manager
// and checks the capture file afterwards.
func TestE2E_ScanConnectCut(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	capturePath := filepath.Join(t.TempDir(), "e2e.clog")
	capture, err := log.NewFileLogger(capturePath)
	require.NoError(t, err)

	enum := mocks.NewMockEnumerator(t)
	enum.EXPECT().SerialPorts(mock.Anything).Return([]transport.SerialPortInfo{
		{Address: "/dev/ttyUSB0", VendorID: 0x0403, ProductID: 0x6001},
	}, nil)
	enum.EXPECT().USBDevices(mock.Anything).Return([]transport.USBDeviceInfo{
		{Bus: 1, Address: 4, VendorID: 0x0b4d, ProductID: 0x113a, Manufacturer: "Silhouette", Product: "CAMEO 4"},
	}, nil)

	cutterPort := devmock.NewPort()
	plotterPort := devmock.NewPort()
	opener := devmock.NewOpener().
		Add("usb:1:4", cutterPort).
		Add("/dev/ttyUSB0", plotterPort)

	mgr, err := manager.New(manager.Config{
		Enumerator: enum,
		Opener:     opener,
		Capture:    capture,
		Drivers: map[string]driver.Config{
			"cutter": {PaceDelay: time.Nanosecond},
			"hpgl":   {PaceDelay: time.Nanosecond},
		},
	})
	require.NoError(t, err)

	var completed []string
	mgr.OnEvent(func(ev driver.Event) {
		if ev.Type == driver.EventCompleted {
			completed = append(completed, ev.DriverID)
		}
	})

	// Scan and identify
	devices, err := mgr.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 2)

	byDriver := make(map[string]transport.DeviceDescriptor)
	for _, d := range devices {
		require.True(t, d.Supported, "device %s not identified", d.Descriptor.Address)
		byDriver[d.DriverID] = d.Descriptor
	}
	require.Contains(t, byDriver, "cutter")
	require.Contains(t, byDriver, "hpgl")

	// Connect both and cut the same job
	j, err := job.Parse([]byte(labelJob))
	require.NoError(t, err)

	ids := make(map[string]string)
	for _, driverID := range []string{"cutter", "hpgl"} {
		id, err := mgr.Connect(ctx, byDriver[driverID], "")
		require.NoError(t, err)
		ids[driverID] = id
	}
	require.Len(t, mgr.Sessions(), 2)

	for _, driverID := range []string{"cutter", "hpgl"} {
		require.NoError(t, mgr.Submit(ctx, ids[driverID], j))
		st, err := mgr.Status(ids[driverID])
		require.NoError(t, err)
		assert.Equal(t, driver.StateIdle, st.State)
		assert.Equal(t, st.Progress.Total, st.Progress.Current)
	}
	assert.Equal(t, []string{"cutter", "hpgl"}, completed)

	assert.Contains(t, cutterPort.FrameStrings(), "D01016,00000\x03")
	assert.Contains(t, plotterPort.FrameStrings(), "PD2032,0;")

	require.NoError(t, mgr.DisconnectAll())
	assert.True(t, cutterPort.Closed())
	assert.True(t, plotterPort.Closed())
	require.NoError(t, capture.Close())

	// Read the capture back
	reader, err := log.NewReader(capturePath)
	require.NoError(t, err)
	defer reader.Close()

	framesOut := make(map[string]int)
	var sessionStates []string
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		switch {
		case ev.Frame != nil && ev.Direction == log.DirectionOut:
			framesOut[ev.SessionID]++
		case ev.StateChange != nil && ev.StateChange.Entity == log.StateEntitySession:
			sessionStates = append(sessionStates, ev.DriverID+":"+ev.StateChange.NewState)
		}
	}

	assert.Equal(t, cutterPort.FrameCount(), framesOut[ids["cutter"]])
	assert.Equal(t, plotterPort.FrameCount(), framesOut[ids["hpgl"]])

	joined := strings.Join(sessionStates, " ")
	for _, want := range []string{"cutter:OPEN", "hpgl:OPEN", "cutter:CLOSED", "hpgl:CLOSED"} {
		assert.Contains(t, joined, want)
	}
}

// TestE2E_DeviceGone checks that unplugging a device mid-job ends the
// session and leaves the other one running.
func TestE2E_DeviceGone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	cameo := transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "usb:1:4", VendorID: 0x0b4d}
	plotter := transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0", VendorID: 0x0403}

	cutterPort := devmock.NewPort()
	plotterPort := devmock.NewPort()
	mgr, err := manager.New(manager.Config{
		Enumerator: mocks.NewMockEnumerator(t),
		Opener:     devmock.NewOpener().Add(cameo.Address, cutterPort).Add(plotter.Address, plotterPort),
		Drivers: map[string]driver.Config{
			"cutter": {PaceDelay: time.Nanosecond},
			"hpgl":   {PaceDelay: time.Nanosecond},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.DisconnectAll() })

	cutterID, err := mgr.Connect(ctx, cameo, "")
	require.NoError(t, err)
	plotterID, err := mgr.Connect(ctx, plotter, "")
	require.NoError(t, err)

	j, err := job.Parse([]byte(labelJob))
	require.NoError(t, err)

	cutterPort.FailAt(cutterPort.FrameCount()+3, transport.ErrDeviceGone)
	err = mgr.Submit(ctx, cutterID, j)
	assert.ErrorIs(t, err, driver.ErrIO)

	_, err = mgr.Session(cutterID)
	assert.ErrorIs(t, err, manager.ErrSessionNotFound)

	require.NoError(t, mgr.Submit(ctx, plotterID, j))
	assert.Len(t, mgr.Sessions(), 1)
}
