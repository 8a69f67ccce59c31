// Package hpgl drives generic HPGL-compatible plotters and vinyl cutters
// over a serial link.
//
// Coordinates are plotter units: 1016 per inch, or 40 per millimeter when
// the driver runs in millimeter mode. Commands are ASCII, each terminated
// by a semicolon. There is no flow control beyond the per-command pacing
// delay, so keep PaceDelay conservative for plotters with small buffers.
package hpgl

import (
	"context"
	"fmt"
	"time"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/translate"
)

// ID is the registry identifier.
const ID = "hpgl"

// Protocol constants.
const (
	UnitsPerInch = 1016
	UnitsPerMM   = 40

	// DefaultBaudRate for serial links.
	DefaultBaudRate = 9600

	// DefaultPaceDelay between commands.
	DefaultPaceDelay = 20 * time.Millisecond

	// DefaultProgressInterval in movement commands.
	DefaultProgressInterval = 50
)

// Fixed commands.
var (
	Initialize   = []byte("IN;")
	SelectPen    = []byte("SP1;")
	PenUp        = []byte("PU;")
	AbsoluteHome = []byte("PA0,0;")
)

// Defaults are used when neither the job nor its material sets a value.
var Defaults = material.Preset{Pressure: 10, Speed: 10, MultiCutPasses: 1}

// DefaultConfig returns the driver defaults.
func DefaultConfig() driver.Config {
	return driver.Config{
		BaudRate:         DefaultBaudRate,
		PaceDelay:        DefaultPaceDelay,
		ProgressInterval: DefaultProgressInterval,
		Units:            driver.UnitsInch,
	}
}

// Scale returns plotter units per job unit.
func Scale(u driver.Units) float64 {
	if u == driver.UnitsMillimeter {
		return UnitsPerMM
	}
	return UnitsPerInch
}

// EncodePenUp encodes a move with the tool lifted.
func EncodePenUp(x, y int) []byte {
	return fmt.Appendf(nil, "PU%d,%d;", x, y)
}

// EncodePenDown encodes a move with the tool engaged.
func EncodePenDown(x, y int) []byte {
	return fmt.Appendf(nil, "PD%d,%d;", x, y)
}

// EncodeCommand encodes a translated command.
func EncodeCommand(c translate.Command) []byte {
	if c.Kind == translate.Cut {
		return EncodePenDown(c.X, c.Y)
	}
	return EncodePenUp(c.X, c.Y)
}

// EncodeSpeed encodes the velocity setting.
func EncodeSpeed(n int) []byte {
	return fmt.Appendf(nil, "VS%d;", n)
}

// EncodeForce encodes the force (pressure) setting.
func EncodeForce(n int) []byte {
	return fmt.Appendf(nil, "FS%d;", n)
}

type protocol struct {
	scale float64
}

func (protocol) Defaults() material.Preset {
	return Defaults
}

// Plan ends every path with a bare PU; which does not count as a movement.
func (p protocol) Plan(j *job.CutJob, s job.CutSettings) driver.Plan {
	plan := driver.Plan{
		Setup: []driver.Frame{
			{Data: EncodeSpeed(s.Speed)},
			{Data: EncodeForce(s.Pressure)},
		},
		Home: []driver.Frame{
			{Data: PenUp},
			{Data: AbsoluteHome},
		},
		Passes: s.MultiCutPasses,
	}
	for _, cmds := range translate.Job(j, p.scale) {
		for _, c := range cmds {
			plan.Pass = append(plan.Pass, driver.Frame{Data: EncodeCommand(c), Counted: true, Cmd: c})
		}
		plan.Pass = append(plan.Pass, driver.Frame{Data: PenUp})
	}
	return plan
}

func (protocol) PauseFrame(driver.Frame) []byte {
	return PenUp
}

func (protocol) ResumeFrame(last driver.Frame) []byte {
	return last.Data
}

// Driver is the HPGL plotter driver.
type Driver struct {
	*driver.Engine
	cfg driver.Config
}

// New creates a driver. Zero config fields take DefaultConfig values.
func New(cfg driver.Config) *Driver {
	cfg = cfg.WithDefaults(DefaultConfig())
	return &Driver{
		Engine: driver.NewEngine(ID, cfg, protocol{scale: Scale(cfg.Units)}),
		cfg:    cfg,
	}
}

// Units returns the coordinate mode the driver was created with.
func (d *Driver) Units() driver.Units {
	return d.cfg.Units
}

// Connect opens the serial port and initializes the plotter.
// Plotters are only reachable over serial; USB descriptors are rejected.
func (d *Driver) Connect(ctx context.Context, desc transport.DeviceDescriptor) error {
	if desc.Kind != transport.KindSerial {
		return &driver.Error{
			Code: driver.CodeConnection,
			Op:   "connect",
			Err:  fmt.Errorf("%w: %s", transport.ErrUnsupportedTransport, desc.Kind),
		}
	}
	return d.Open(ctx, desc, driver.Link{
		Options:   transport.OpenOptions{BaudRate: d.cfg.BaudRate},
		Handshake: [][]byte{Initialize, SelectPen},
	})
}

var _ driver.Driver = (*Driver)(nil)
