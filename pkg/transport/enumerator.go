package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/gousb"
	"go.bug.st/serial/enumerator"
)

// SystemEnumerator lists serial ports through the OS and USB devices
// through libusb.
type SystemEnumerator struct {
	logger *slog.Logger
}

// NewSystemEnumerator creates a SystemEnumerator. A nil logger disables
// debug output.
func NewSystemEnumerator(logger *slog.Logger) *SystemEnumerator {
	return &SystemEnumerator{logger: logger}
}

func (e *SystemEnumerator) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

// SerialPorts lists serial ports with their USB identity when the OS
// reports one.
func (e *SystemEnumerator) SerialPorts(ctx context.Context) ([]SerialPortInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}

	out := make([]SerialPortInfo, 0, len(ports))
	for _, p := range ports {
		info := SerialPortInfo{
			Address:      p.Name,
			Product:      p.Product,
			SerialNumber: p.SerialNumber,
		}
		if p.IsUSB {
			info.VendorID = parseHexID(p.VID)
			info.ProductID = parseHexID(p.PID)
		}
		out = append(out, info)
	}
	e.debugLog("SerialPorts: enumerated", "count", len(out))
	return out, nil
}

// USBDevices lists USB devices. String descriptors are read on a best
// effort basis since opening a device may need permissions the process
// lacks.
func (e *SystemEnumerator) USBDevices(ctx context.Context) ([]USBDeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var out []USBDeviceInfo
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		out = append(out, USBDeviceInfo{
			Bus:       desc.Bus,
			Address:   desc.Address,
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
		})
		return true
	})
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()
	if err != nil && len(devs) == 0 && len(out) == 0 {
		return nil, fmt.Errorf("list usb devices: %w", err)
	}
	if err != nil {
		e.debugLog("USBDevices: some devices could not be opened", "error", err)
	}

	for _, d := range devs {
		i := indexUSB(out, d.Desc.Bus, d.Desc.Address)
		if i < 0 {
			continue
		}
		out[i].Manufacturer, _ = d.Manufacturer()
		out[i].Product, _ = d.Product()
		out[i].SerialNumber, _ = d.SerialNumber()
	}
	e.debugLog("USBDevices: enumerated", "count", len(out))
	return out, nil
}

func indexUSB(list []USBDeviceInfo, bus, addr int) int {
	for i, d := range list {
		if d.Bus == bus && d.Address == addr {
			return i
		}
	}
	return -1
}

func parseHexID(s string) uint16 {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}

// Descriptors enumerates serial ports and USB devices into descriptors.
// When one source fails the other's results are still returned together
// with the error.
func Descriptors(ctx context.Context, e Enumerator) ([]DeviceDescriptor, error) {
	var descs []DeviceDescriptor
	var errs []error

	ports, err := e.SerialPorts(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, p := range ports {
		descs = append(descs, DeviceDescriptor{
			Kind:         KindSerial,
			Address:      p.Address,
			Manufacturer: p.Manufacturer,
			Product:      p.Product,
			SerialNumber: p.SerialNumber,
			VendorID:     p.VendorID,
			ProductID:    p.ProductID,
		})
	}

	devs, err := e.USBDevices(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	for _, d := range devs {
		descs = append(descs, DeviceDescriptor{
			Kind:         KindUSB,
			Address:      FormatUSBAddress(d.Bus, d.Address),
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
		})
	}
	return descs, errors.Join(errs...)
}
