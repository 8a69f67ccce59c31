package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/gousb"
)

// USBOpener opens USB devices with gousb and claims one interface.
type USBOpener struct {
	// Interface is the interface number to claim.
	Interface int
}

// Open finds the device at desc.Address, detaches any kernel driver bound
// to it, claims the interface and locates its bulk IN and OUT endpoints.
// A missing endpoint yields ErrNoEndpoint.
func (o *USBOpener) Open(ctx context.Context, desc DeviceDescriptor, opts OpenOptions) (Port, error) {
	if desc.Kind != KindUSB {
		return nil, fmt.Errorf("%w: usb opener cannot open %s", ErrUnsupportedTransport, desc.Kind)
	}
	bus, addr, err := ParseUSBAddress(desc.Address)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	usbCtx := gousb.NewContext()
	devs, err := usbCtx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		return d.Bus == bus && d.Address == addr
	})
	if err != nil && len(devs) == 0 {
		usbCtx.Close()
		return nil, fmt.Errorf("open %s: %w", desc.Address, err)
	}
	if len(devs) == 0 {
		usbCtx.Close()
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, desc.Address)
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}

	p := &usbPort{ctx: usbCtx, dev: devs[0]}
	if err := p.claim(o.Interface); err != nil {
		p.Close()
		return nil, fmt.Errorf("claim %s: %w", desc.Address, err)
	}
	p.readCtx, p.cancel = context.WithCancel(context.Background())
	return p, nil
}

// usbPort is a claimed interface with one bulk endpoint in each direction.
type usbPort struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint

	readCtx context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func (p *usbPort) claim(intfNum int) error {
	if err := p.dev.SetAutoDetach(true); err != nil {
		return fmt.Errorf("auto-detach: %w", err)
	}
	cfgNum, err := p.dev.ActiveConfigNum()
	if err != nil || cfgNum <= 0 {
		cfgNum = 1
	}
	p.cfg, err = p.dev.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("config %d: %w", cfgNum, err)
	}
	p.intf, err = p.cfg.Interface(intfNum, 0)
	if err != nil {
		return fmt.Errorf("interface %d: %w", intfNum, err)
	}

	inNum, outNum := -1, -1
	for _, ep := range p.intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}
		if ep.Direction == gousb.EndpointDirectionIn && inNum < 0 {
			inNum = ep.Number
		}
		if ep.Direction == gousb.EndpointDirectionOut && outNum < 0 {
			outNum = ep.Number
		}
	}
	if inNum < 0 {
		return fmt.Errorf("%w: bulk IN", ErrNoEndpoint)
	}
	if outNum < 0 {
		return fmt.Errorf("%w: bulk OUT", ErrNoEndpoint)
	}

	if p.in, err = p.intf.InEndpoint(inNum); err != nil {
		return fmt.Errorf("IN endpoint %d: %w", inNum, err)
	}
	if p.out, err = p.intf.OutEndpoint(outNum); err != nil {
		return fmt.Errorf("OUT endpoint %d: %w", outNum, err)
	}
	return nil
}

func (p *usbPort) Read(b []byte) (int, error) {
	n, err := p.in.ReadContext(p.readCtx, b)
	if err != nil && p.readCtx.Err() != nil {
		return n, ErrPortClosed
	}
	return n, classifyUSBError(err)
}

func (p *usbPort) Write(b []byte) (int, error) {
	if p.readCtx.Err() != nil {
		return 0, ErrPortClosed
	}
	n, err := p.out.Write(b)
	return n, classifyUSBError(err)
}

// Close releases the interface, config, device and libusb context.
func (p *usbPort) Close() error {
	p.closeOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		if p.intf != nil {
			p.intf.Close()
		}
		if p.cfg != nil {
			if err := p.cfg.Close(); err != nil {
				p.closeErr = err
			}
		}
		if p.dev != nil {
			if err := p.dev.Close(); err != nil && p.closeErr == nil {
				p.closeErr = err
			}
		}
		if p.ctx != nil {
			if err := p.ctx.Close(); err != nil && p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}

func classifyUSBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gousb.ErrorNoDevice) || errors.Is(err, gousb.TransferNoDevice) {
		return fmt.Errorf("%w: %w", ErrDeviceGone, err)
	}
	return err
}
