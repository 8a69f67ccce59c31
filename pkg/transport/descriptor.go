package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the type of byte link.
type Kind uint8

const (
	// KindSerial is a serial port (including USB-serial bridges).
	KindSerial Kind = iota
	// KindUSB is a USB device reached through bulk endpoints.
	KindUSB
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindUSB:
		return "usb"
	default:
		return "unknown"
	}
}

// DeviceDescriptor identifies a device found by a scan.
type DeviceDescriptor struct {
	Kind         Kind
	Address      string
	Manufacturer string
	Product      string
	SerialNumber string
	VendorID     uint16
	ProductID    uint16
}

// String returns a short human readable form.
func (d DeviceDescriptor) String() string {
	name := strings.TrimSpace(d.Manufacturer + " " + d.Product)
	if name == "" {
		name = "unknown device"
	}
	return fmt.Sprintf("%s [%s %s %04x:%04x]", name, d.Kind, d.Address, d.VendorID, d.ProductID)
}

const usbAddressPrefix = "usb:"

// FormatUSBAddress encodes a USB bus and device address.
func FormatUSBAddress(bus, address int) string {
	return fmt.Sprintf("%s%d:%d", usbAddressPrefix, bus, address)
}

// ParseUSBAddress decodes an address produced by FormatUSBAddress.
func ParseUSBAddress(s string) (bus, address int, err error) {
	rest, ok := strings.CutPrefix(s, usbAddressPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	busStr, addrStr, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	bus, err = strconv.Atoi(busStr)
	if err != nil || bus < 0 {
		return 0, 0, fmt.Errorf("%w: bad bus in %q", ErrInvalidAddress, s)
	}
	address, err = strconv.Atoi(addrStr)
	if err != nil || address < 0 {
		return 0, 0, fmt.Errorf("%w: bad device address in %q", ErrInvalidAddress, s)
	}
	return bus, address, nil
}
