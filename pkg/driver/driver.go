package driver

import (
	"context"

	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// Driver is a protocol implementation for one device family.
// Implemented by cutter.Driver and hpgl.Driver.
type Driver interface {
	// ID returns the registry identifier of the driver.
	ID() string

	// Connect opens the link to desc and sends the initialization handshake.
	Connect(ctx context.Context, desc transport.DeviceDescriptor) error

	// Disconnect closes the link from any state. A running job ends Cancelled.
	Disconnect() error

	// Cut streams a job and blocks until it completes, is cancelled or fails.
	Cut(ctx context.Context, j *job.CutJob) error

	// Pause holds the running job before its next command and lifts the tool.
	Pause() error

	// Resume continues a paused job.
	Resume() error

	// Cancel stops the running job before its next command.
	Cancel() error

	// Status returns a snapshot of the driver.
	Status() Status

	// OnEvent registers a handler for driver events.
	OnEvent(handler EventHandler)
}
