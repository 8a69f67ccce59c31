package manager

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Manager errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoEnumerator    = errors.New("enumerator is required")
	ErrNoOpener        = errors.New("opener is required")
	ErrNoDriver        = errors.New("no driver matches the device")
)

// Config configures a Manager.
type Config struct {
	// Enumerator lists attached devices.
	Enumerator transport.Enumerator

	// Opener opens device links for drivers.
	Opener transport.Opener

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Capture receives manager and driver capture records. Nil disables capture.
	Capture log.Logger

	// Materials is shared by all drivers. Nil uses the built-in table.
	Materials *material.Table

	// Units is the coordinate mode for drivers that support both.
	// UnitsDefault keeps each driver's own default.
	Units driver.Units

	// Drivers holds per-driver overrides keyed by driver id. Only the
	// tuning fields (BaudRate, PaceDelay, ProgressInterval) and Units are
	// used; a driver's Units other than UnitsDefault wins over Units above.
	Drivers map[string]driver.Config
}

// DefaultConfig returns a configuration using the system enumerator and opener.
func DefaultConfig() Config {
	return Config{
		Enumerator: transport.NewSystemEnumerator(nil),
		Opener:     transport.NewSystemOpener(),
		Materials:  material.Default(),
		Units:      driver.UnitsInch,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Enumerator == nil {
		return ErrNoEnumerator
	}
	if c.Opener == nil {
		return ErrNoOpener
	}
	for id, dc := range c.Drivers {
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("driver %s: %w", id, err)
		}
	}
	if c.Units > driver.UnitsMillimeter {
		return driver.ErrInvalidUnits
	}
	return nil
}

// Identification is the driver guess for a device.
type Identification struct {
	// Name is a human-readable device name.
	Name string

	// DriverID is the suggested driver, empty when Supported is false.
	DriverID string

	Supported bool
}

// Device is a scanned device with its identification.
type Device struct {
	Descriptor transport.DeviceDescriptor
	Identification
}

// Session is a connected driver.
type Session struct {
	ID          string
	Descriptor  transport.DeviceDescriptor
	DriverID    string
	Driver      driver.Driver
	ConnectedAt time.Time
}
