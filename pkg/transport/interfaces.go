package transport

import (
	"context"
	"io"
	"time"
)

// Port is an open byte link to a device.
//
// Read returns device responses. A Read that times out returns 0, nil.
// Close unblocks pending reads and makes later writes fail.
type Port interface {
	io.ReadWriteCloser
}

// OpenOptions configures how a port is opened.
type OpenOptions struct {
	// BaudRate for serial links (8 data bits, no parity, one stop bit).
	BaudRate int

	// ReadTimeout bounds a single Read on serial links. Zero blocks.
	ReadTimeout time.Duration
}

// Opener opens a port for a descriptor.
// Implemented by SerialOpener, USBOpener and SystemOpener.
type Opener interface {
	Open(ctx context.Context, desc DeviceDescriptor, opts OpenOptions) (Port, error)
}

// SerialPortInfo describes a serial port found by enumeration.
type SerialPortInfo struct {
	Address      string
	Manufacturer string
	Product      string
	SerialNumber string
	VendorID     uint16
	ProductID    uint16
}

// USBDeviceInfo describes a USB device found by enumeration.
type USBDeviceInfo struct {
	Bus          int
	Address      int
	VendorID     uint16
	ProductID    uint16
	Manufacturer string
	Product      string
	SerialNumber string
}

// Enumerator lists the devices attached to the host.
// Implemented by SystemEnumerator.
type Enumerator interface {
	// SerialPorts lists serial ports.
	SerialPorts(ctx context.Context) ([]SerialPortInfo, error)

	// USBDevices lists USB devices.
	USBDevices(ctx context.Context) ([]USBDeviceInfo, error)
}

// Compile-time interface satisfaction checks.
var (
	_ Opener     = SerialOpener{}
	_ Opener     = (*USBOpener)(nil)
	_ Opener     = (*SystemOpener)(nil)
	_ Enumerator = (*SystemEnumerator)(nil)
)
