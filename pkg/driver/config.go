package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cutline-project/cutline-go/pkg/log"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Configuration errors.
var (
	ErrInvalidBaudRate         = errors.New("baud rate must be positive")
	ErrInvalidPaceDelay        = errors.New("pace delay must not be negative")
	ErrInvalidProgressInterval = errors.New("progress interval must be positive")
	ErrInvalidUnits            = errors.New("unknown unit mode")
)

// Units selects how job coordinates are interpreted.
type Units uint8

const (
	// UnitsDefault leaves the choice to the driver or manager defaults.
	UnitsDefault Units = iota
	// UnitsInch reads coordinates as inches.
	UnitsInch
	// UnitsMillimeter reads coordinates as millimeters.
	UnitsMillimeter
)

// String returns the unit name.
func (u Units) String() string {
	switch u {
	case UnitsDefault:
		return "default"
	case UnitsInch:
		return "in"
	case UnitsMillimeter:
		return "mm"
	default:
		return "unknown"
	}
}

// ParseUnits parses "in"/"inch" or "mm"/"millimeter".
func ParseUnits(s string) (Units, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "in", "inch", "inches":
		return UnitsInch, nil
	case "mm", "millimeter", "millimeters":
		return UnitsMillimeter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnits, s)
	}
}

// Config configures a driver instance.
// Zero values are replaced by the driver's defaults.
type Config struct {
	// SessionID tags events and capture records.
	SessionID string

	// Logger is the operational logger. Nil disables logging.
	Logger *slog.Logger

	// Capture receives frame, state and progress records. Nil disables capture.
	Capture log.Logger

	// Materials is the preset table used to resolve job settings.
	Materials *material.Table

	// Opener opens the device link.
	Opener transport.Opener

	// BaudRate for serial links.
	BaudRate int

	// PaceDelay is the pause after each command written during a job.
	PaceDelay time.Duration

	// ProgressInterval is the number of movement commands between progress events.
	ProgressInterval int

	// Units selects inch or millimeter coordinates (plotter only).
	Units Units
}

// WithDefaults returns c with zero fields taken from d.
func (c Config) WithDefaults(d Config) Config {
	if c.Logger == nil {
		c.Logger = d.Logger
	}
	if c.Capture == nil {
		c.Capture = d.Capture
	}
	if c.Materials == nil {
		c.Materials = d.Materials
	}
	if c.Materials == nil {
		c.Materials = material.Default()
	}
	if c.Opener == nil {
		c.Opener = d.Opener
	}
	if c.BaudRate == 0 {
		c.BaudRate = d.BaudRate
	}
	if c.PaceDelay == 0 {
		c.PaceDelay = d.PaceDelay
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = d.ProgressInterval
	}
	if c.Units == UnitsDefault {
		c.Units = d.Units
	}
	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaudRate < 0 {
		return ErrInvalidBaudRate
	}
	if c.PaceDelay < 0 {
		return ErrInvalidPaceDelay
	}
	if c.ProgressInterval < 0 {
		return ErrInvalidProgressInterval
	}
	if c.Units > UnitsMillimeter {
		return ErrInvalidUnits
	}
	return nil
}
