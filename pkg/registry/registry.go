// Package registry maps driver identifiers to driver constructors.
//
// The set of drivers is fixed at compile time. Adding a device family means
// adding a package under pkg/driver and one entry to the table below.
package registry

import (
	"fmt"
	"slices"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/driver/cutter"
	"github.com/cutline-project/cutline-go/pkg/driver/hpgl"
)

// Factory creates an unconnected driver.
type Factory func(cfg driver.Config) driver.Driver

type entry struct {
	name    string
	factory Factory
}

var drivers = map[string]entry{
	cutter.ID: {
		name:    "Proprietary cutter (508 units/in)",
		factory: func(cfg driver.Config) driver.Driver { return cutter.New(cfg) },
	},
	hpgl.ID: {
		name:    "Generic HPGL plotter",
		factory: func(cfg driver.Config) driver.Driver { return hpgl.New(cfg) },
	},
}

// New creates the driver registered under id.
// Unknown ids return an error matching driver.ErrUnsupportedDriver.
func New(id string, cfg driver.Config) (driver.Driver, error) {
	e, ok := drivers[id]
	if !ok {
		return nil, unsupported(id)
	}
	return e.factory(cfg), nil
}

// Has reports whether id is registered.
func Has(id string) bool {
	_, ok := drivers[id]
	return ok
}

// IDs returns the registered driver ids in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(drivers))
	for id := range drivers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Describe returns the display name for id.
func Describe(id string) (string, error) {
	e, ok := drivers[id]
	if !ok {
		return "", unsupported(id)
	}
	return e.name, nil
}

func unsupported(id string) error {
	return &driver.Error{
		Code: driver.CodeUnsupportedDriver,
		Op:   "registry",
		Err:  fmt.Errorf("no driver registered for %q", id),
	}
}
