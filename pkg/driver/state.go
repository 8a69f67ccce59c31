package driver

import (
	"github.com/cutline-project/cutline-go/pkg/job"
	"github.com/cutline-project/cutline-go/pkg/transport"
)

// State is the driver state.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateCutting
	StatePaused
	StateCompleted
	StateCancelled
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateIdle:
		return "IDLE"
	case StateCutting:
		return "CUTTING"
	case StatePaused:
		return "PAUSED"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Connected reports whether the link is open in this state.
func (s State) Connected() bool {
	return s != StateDisconnected && s != StateConnecting
}

// Active reports whether a job is running in this state.
func (s State) Active() bool {
	return s == StateCutting || s == StatePaused
}

// Status is a snapshot of a driver.
type Status struct {
	State      State
	Connected  bool
	Busy       bool
	Settings   job.CutSettings
	Progress   Progress
	Descriptor transport.DeviceDescriptor
}
