package driver

import (
	"errors"
	"fmt"
)

// Code classifies driver failures.
type Code uint8

const (
	// CodeConnection means the transport could not be opened or is not open.
	CodeConnection Code = iota + 1
	// CodeProtocol means endpoints or the handshake were missing.
	CodeProtocol
	// CodeBusy means a job is already running.
	CodeBusy
	// CodeValidation means the job is empty or malformed.
	CodeValidation
	// CodeIO means a write failed during a job.
	CodeIO
	// CodeUnsupportedDriver means no driver is registered for an id.
	CodeUnsupportedDriver
)

// String returns the code name.
func (c Code) String() string {
	switch c {
	case CodeConnection:
		return "CONNECTION_ERROR"
	case CodeProtocol:
		return "PROTOCOL_ERROR"
	case CodeBusy:
		return "BUSY_ERROR"
	case CodeValidation:
		return "VALIDATION_ERROR"
	case CodeIO:
		return "IO_ERROR"
	case CodeUnsupportedDriver:
		return "UNSUPPORTED_DRIVER_ERROR"
	default:
		return fmt.Sprintf("CODE_%d", uint8(c))
	}
}

// Error is a classified driver failure.
type Error struct {
	Code Code
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the code sentinels (ErrConnection, ErrBusy, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Op != "" {
		return false
	}
	return t.Code == e.Code
}

// Message returns text safe to show to an operator. Transport details stay
// in the logs.
func (e *Error) Message() string {
	switch e.Code {
	case CodeConnection:
		return "could not connect to the device"
	case CodeProtocol:
		return "the device did not respond as a supported cutter"
	case CodeBusy:
		return "a job is already running on this device"
	case CodeValidation:
		if e.Err != nil {
			return "invalid job: " + e.Err.Error()
		}
		return "invalid job"
	case CodeIO:
		return "communication with the device failed during the job"
	case CodeUnsupportedDriver:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "unsupported driver"
	default:
		return "driver error"
	}
}

// Code sentinels for errors.Is.
var (
	ErrConnection        = &Error{Code: CodeConnection}
	ErrProtocol          = &Error{Code: CodeProtocol}
	ErrBusy              = &Error{Code: CodeBusy}
	ErrValidation        = &Error{Code: CodeValidation}
	ErrIO                = &Error{Code: CodeIO}
	ErrUnsupportedDriver = &Error{Code: CodeUnsupportedDriver}
)

// Driver errors.
var (
	// ErrNotConnected indicates an operation that needs an open link.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected indicates Connect on a driver that is not disconnected.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrNotCutting indicates Pause, Resume or Cancel without a running job.
	ErrNotCutting = errors.New("no job running")

	// ErrNotPaused indicates Resume on a job that is not paused.
	ErrNotPaused = errors.New("job not paused")

	// ErrJobRunning is the cause carried by busy errors.
	ErrJobRunning = errors.New("job already running")

	// ErrCancelled is returned by Cut when the job was cancelled or the
	// driver was disconnected mid-job.
	ErrCancelled = errors.New("job cancelled")
)

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return 0
}
