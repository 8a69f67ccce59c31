// Package cutter drives desktop cutters speaking the vendor ASCII command
// set (Graphtec/Silhouette family) over serial or USB bulk transport.
//
// Coordinates are 508 units per inch. Movement commands are a letter, two
// five-digit zero-padded coordinates and an ETX (0x03) terminator:
//
//	M00000,00000\x03   move with the blade up
//	D00508,00000\x03   cut to (1in, 0)
//
// The handshake ESC EOT initializes the device and doubles as the home
// command.
package cutter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cutline-project/cutline-go/pkg/driver"
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/material"
	"github.com/cutline-project/cutline-go/pkg/transport"
	"github.com/cutline-project/cutline-go/pkg/translate"
)

// ID is the registry identifier.
const ID = "cutter"

// Protocol constants.
const (
	// UnitsPerInch is the device resolution.
	UnitsPerInch = 508

	// MaxCoordinate is the largest value the five-digit fields hold.
	MaxCoordinate = 99999

	// Terminator ends every command.
	Terminator byte = 0x03

	// DefaultBaudRate for serial links.
	DefaultBaudRate = 115200

	// DefaultPaceDelay between commands.
	DefaultPaceDelay = 10 * time.Millisecond

	// DefaultProgressInterval in movement commands.
	DefaultProgressInterval = 50
)

var (
	// Handshake initializes the device after connect (ESC EOT). It is also
	// sent to return home after a job.
	Handshake = []byte{0x1b, 0x04}

	// StatusQuery asks the device for its state (ESC ENQ).
	StatusQuery = []byte{0x1b, 0x05}
)

// Defaults are used when neither the job nor its material sets a value.
var Defaults = material.Preset{Pressure: 10, Speed: 5, MultiCutPasses: 1}

// DefaultConfig returns the driver defaults.
func DefaultConfig() driver.Config {
	return driver.Config{
		BaudRate:         DefaultBaudRate,
		PaceDelay:        DefaultPaceDelay,
		ProgressInterval: DefaultProgressInterval,
	}
}

// EncodeMove encodes a blade-up move.
func EncodeMove(x, y int) []byte {
	return encode('M', x, y)
}

// EncodeCut encodes a blade-down cut.
func EncodeCut(x, y int) []byte {
	return encode('D', x, y)
}

// EncodeCommand encodes a translated command.
func EncodeCommand(c translate.Command) []byte {
	if c.Kind == translate.Cut {
		return EncodeCut(c.X, c.Y)
	}
	return EncodeMove(c.X, c.Y)
}

// EncodeSpeed encodes the speed setting.
func EncodeSpeed(n int) []byte {
	return fmt.Appendf(nil, "!%d%c", n, Terminator)
}

// EncodePressure encodes the blade force setting.
func EncodePressure(n int) []byte {
	return fmt.Appendf(nil, "FX%d%c", n, Terminator)
}

func encode(op byte, x, y int) []byte {
	return fmt.Appendf(nil, "%c%05d,%05d%c", op, clamp(x), clamp(y), Terminator)
}

// clamp keeps coordinates inside the fixed-width fields.
func clamp(v int) int {
	return min(max(v, 0), MaxCoordinate)
}

type protocol struct{}

func (protocol) Defaults() material.Preset {
	return Defaults
}

func (protocol) Plan(j *job.CutJob, s job.CutSettings) driver.Plan {
	plan := driver.Plan{
		Setup: []driver.Frame{
			{Data: EncodeSpeed(s.Speed)},
			{Data: EncodePressure(s.Pressure)},
		},
		Home:   []driver.Frame{{Data: Handshake}},
		Passes: s.MultiCutPasses,
	}
	for _, cmds := range translate.Job(j, UnitsPerInch) {
		for _, c := range cmds {
			plan.Pass = append(plan.Pass, driver.Frame{Data: EncodeCommand(c), Counted: true, Cmd: c})
		}
	}
	return plan
}

// PauseFrame raises the blade where it stands.
func (protocol) PauseFrame(last driver.Frame) []byte {
	return EncodeMove(last.Cmd.X, last.Cmd.Y)
}

// ResumeFrame repeats the interrupted command.
func (protocol) ResumeFrame(last driver.Frame) []byte {
	return last.Data
}

// Driver is the cutter driver.
type Driver struct {
	*driver.Engine
	cfg driver.Config

	mu           sync.Mutex
	lastResponse []byte
}

// New creates a driver. Zero config fields take DefaultConfig values.
func New(cfg driver.Config) *Driver {
	cfg = cfg.WithDefaults(DefaultConfig())
	return &Driver{
		Engine: driver.NewEngine(ID, cfg, protocol{}),
		cfg:    cfg,
	}
}

// Connect opens desc and sends the handshake. Over USB the status query
// follows so the response reader has something to pick up.
func (d *Driver) Connect(ctx context.Context, desc transport.DeviceDescriptor) error {
	link := driver.Link{
		Options:    transport.OpenOptions{BaudRate: d.cfg.BaudRate},
		Handshake:  [][]byte{Handshake},
		Poll:       true,
		OnResponse: d.onResponse,
	}
	if desc.Kind == transport.KindUSB {
		link.Handshake = append(link.Handshake, StatusQuery)
	}
	return d.Open(ctx, desc, link)
}

// LastResponse returns the most recent bytes read from the device.
func (d *Driver) LastResponse() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.lastResponse...)
}

func (d *Driver) onResponse(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastResponse = append(d.lastResponse[:0], b...)
}

var _ driver.Driver = (*Driver)(nil)
