package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Opener hands out Ports by descriptor address.
type Opener struct {
	mu      sync.Mutex
	ports   map[string]*Port
	errs    map[string]error
	opened  []transport.DeviceDescriptor
	options []transport.OpenOptions
}

// NewOpener creates an opener with no ports.
func NewOpener() *Opener {
	return &Opener{
		ports: make(map[string]*Port),
		errs:  make(map[string]error),
	}
}

// Add registers port under address.
func (o *Opener) Add(address string, port *Port) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ports[address] = port
	return o
}

// Fail makes opening address fail with err.
func (o *Opener) Fail(address string, err error) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[address] = err
	return o
}

// Open returns the port registered for desc.Address.
func (o *Opener) Open(ctx context.Context, desc transport.DeviceDescriptor, opts transport.OpenOptions) (transport.Port, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.opened = append(o.opened, desc)
	o.options = append(o.options, opts)

	if err := o.errs[desc.Address]; err != nil {
		return nil, err
	}
	port, ok := o.ports[desc.Address]
	if !ok {
		return nil, fmt.Errorf("%w: %s", transport.ErrDeviceNotFound, desc.Address)
	}
	return port, nil
}

// Opened returns the descriptors passed to Open.
func (o *Opener) Opened() []transport.DeviceDescriptor {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transport.DeviceDescriptor(nil), o.opened...)
}

// Options returns the options passed to Open.
func (o *Opener) Options() []transport.OpenOptions {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]transport.OpenOptions(nil), o.options...)
}

var _ transport.Opener = (*Opener)(nil)
