package transport

import "errors"

// Transport errors.
var (
	// ErrDeviceGone indicates the device was unplugged or the port closed
	// underneath an active session.
	ErrDeviceGone = errors.New("device gone")

	// ErrNoEndpoint indicates a USB interface lacks a bulk IN or OUT endpoint.
	ErrNoEndpoint = errors.New("required bulk endpoint missing")

	// ErrUnsupportedTransport indicates an opener cannot handle the descriptor kind.
	ErrUnsupportedTransport = errors.New("unsupported transport")

	// ErrDeviceNotFound indicates no device matches the descriptor address.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInvalidAddress indicates a malformed descriptor address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrPortClosed indicates a write on a port that was closed locally.
	ErrPortClosed = errors.New("port closed")
)
