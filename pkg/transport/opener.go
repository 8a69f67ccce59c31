package transport

import (
	"context"
	"fmt"
)

// SystemOpener dispatches to the serial or USB opener by descriptor kind.
type SystemOpener struct {
	Serial Opener
	USB    Opener
}

// NewSystemOpener returns an opener backed by the host's serial ports and
// libusb.
func NewSystemOpener() *SystemOpener {
	return &SystemOpener{
		Serial: SerialOpener{},
		USB:    &USBOpener{},
	}
}

// Open opens desc with the opener registered for its kind.
func (o *SystemOpener) Open(ctx context.Context, desc DeviceDescriptor, opts OpenOptions) (Port, error) {
	var next Opener
	switch desc.Kind {
	case KindSerial:
		next = o.Serial
	case KindUSB:
		next = o.USB
	}
	if next == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTransport, desc.Kind)
	}
	return next.Open(ctx, desc, opts)
}
