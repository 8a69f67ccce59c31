package log

import "time"

// Event is a capture record from any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the device session (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction is OUT for host-to-device, IN for device-to-host.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// DriverID is the driver that produced the event.
	DriverID string `cbor:"6,keyasint,omitempty"`

	// Address is the transport address of the device.
	Address string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Progress    *ProgressEvent    `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of traffic.
type Direction uint8

const (
	// DirectionIn is device-to-host.
	DirectionIn Direction = 0
	// DirectionOut is host-to-device.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is raw bytes on the serial or USB link.
	LayerTransport Layer = 0
	// LayerDriver is the job engine of a driver.
	LayerDriver Layer = 1
	// LayerManager is the device manager.
	LayerManager Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerDriver:
		return "DRIVER"
	case LayerManager:
		return "MANAGER"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame is a command frame or device response.
	CategoryFrame Category = 0
	// CategoryState is a state change.
	CategoryState Category = 1
	// CategoryProgress is a job progress checkpoint.
	CategoryProgress Category = 2
	// CategoryError is an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryProgress:
		return "PROGRESS"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures the bytes of one command or response.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Seq is the frame's position in the session's outgoing stream (OUT only).
	Seq uint64 `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures a driver or session transition.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityDriver is the driver state machine.
	StateEntityDriver StateEntity = 0
	// StateEntitySession is a manager session.
	StateEntitySession StateEntity = 1
	// StateEntityJob is a cut job.
	StateEntityJob StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityDriver:
		return "DRIVER"
	case StateEntitySession:
		return "SESSION"
	case StateEntityJob:
		return "JOB"
	default:
		return "UNKNOWN"
	}
}

// ProgressEvent captures a progress checkpoint of a running job.
type ProgressEvent struct {
	Current int `cbor:"1,keyasint"`
	Total   int `cbor:"2,keyasint"`
	Pass    int `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error taxonomy code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
