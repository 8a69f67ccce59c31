package transport

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.bug.st/serial"
)

// SerialOpener opens serial ports with go.bug.st/serial.
type SerialOpener struct{}

// Open opens desc.Address at opts.BaudRate, 8 data bits, no parity, one stop bit.
func (SerialOpener) Open(ctx context.Context, desc DeviceDescriptor, opts OpenOptions) (Port, error) {
	if desc.Kind != KindSerial {
		return nil, fmt.Errorf("%w: serial opener cannot open %s", ErrUnsupportedTransport, desc.Kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(desc.Address, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", desc.Address, err)
	}
	if opts.ReadTimeout > 0 {
		if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
			p.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", desc.Address, err)
		}
	}
	return &serialPort{port: p}, nil
}

// serialPort adapts serial.Port and classifies link loss as ErrDeviceGone.
type serialPort struct {
	port serial.Port
}

func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	return n, classifySerialError(err)
}

func (p *serialPort) Write(b []byte) (int, error) {
	n, err := p.port.Write(b)
	return n, classifySerialError(err)
}

func (p *serialPort) Close() error {
	return p.port.Close()
}

func classifySerialError(err error) error {
	if err == nil {
		return nil
	}
	var perr *serial.PortError
	if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %w", ErrDeviceGone, err)
	}
	if errors.Is(err, syscall.EIO) || errors.Is(err, syscall.ENXIO) || errors.Is(err, syscall.ENODEV) {
		return fmt.Errorf("%w: %w", ErrDeviceGone, err)
	}
	return err
}
