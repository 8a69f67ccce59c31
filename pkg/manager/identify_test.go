package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cutline-project/cutline-go/pkg/transport"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name      string
		desc      transport.DeviceDescriptor
		wantName  string
		wantID    string
		supported bool
	}{
		{
			name:      "graphtec vendor id",
			desc:      transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "usb:1:4", VendorID: 0x0b4d, ProductID: 0x113a},
			wantName:  "usb device 0b4d:113a",
			wantID:    "cutter",
			supported: true,
		},
		{
			name:      "silhouette product string",
			desc:      transport.DeviceDescriptor{Kind: transport.KindUSB, Manufacturer: "Silhouette", Product: "CAMEO 4"},
			wantName:  "Silhouette CAMEO 4",
			wantID:    "cutter",
			supported: true,
		},
		{
			name:      "cricut on serial",
			desc:      transport.DeviceDescriptor{Kind: transport.KindSerial, Product: "Cricut Explore"},
			wantName:  "Cricut Explore",
			wantID:    "cutter",
			supported: true,
		},
		{
			name:      "roland plotter",
			desc:      transport.DeviceDescriptor{Kind: transport.KindSerial, Manufacturer: "Roland DG", Product: "CAMM-1"},
			wantName:  "Roland DG CAMM-1",
			wantID:    "hpgl",
			supported: true,
		},
		{
			name:      "vinyl cutter keyword",
			desc:      transport.DeviceDescriptor{Kind: transport.KindUSB, Product: "USB Vinyl Cutter"},
			wantName:  "USB Vinyl Cutter",
			wantID:    "hpgl",
			supported: true,
		},
		{
			name:      "ftdi bridge on serial",
			desc:      transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB0", VendorID: 0x0403, ProductID: 0x6001},
			wantName:  "FTDI serial adapter",
			wantID:    "hpgl",
			supported: true,
		},
		{
			name:      "ch340 bridge on serial",
			desc:      transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyUSB1", VendorID: 0x1a86},
			wantName:  "CH340 serial adapter",
			wantID:    "hpgl",
			supported: true,
		},
		{
			name:     "bridge seen as raw usb",
			desc:     transport.DeviceDescriptor{Kind: transport.KindUSB, Address: "usb:1:9", VendorID: 0x10c4},
			wantName: "CP210x serial adapter",
		},
		{
			name:     "unknown keyboard",
			desc:     transport.DeviceDescriptor{Kind: transport.KindUSB, Manufacturer: "Logitech", Product: "Keyboard", VendorID: 0x046d},
			wantName: "Logitech Keyboard",
		},
		{
			name:     "bare serial port",
			desc:     transport.DeviceDescriptor{Kind: transport.KindSerial, Address: "/dev/ttyS0"},
			wantName: "/dev/ttyS0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Identify(tt.desc)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantID, got.DriverID)
			assert.Equal(t, tt.supported, got.Supported)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Enumerator = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoEnumerator)

	cfg = DefaultConfig()
	cfg.Opener = nil
	assert.ErrorIs(t, cfg.Validate(), ErrNoOpener)
}
