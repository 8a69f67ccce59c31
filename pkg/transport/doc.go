// Package transport provides the byte links used to reach cutting devices.
//
// A device is reached either through a serial port or through the bulk
// endpoints of a USB interface. Both are exposed as a Port, opened from a
// DeviceDescriptor by an Opener.
//
// # Stack
//
//	┌────────────────────────────────┐
//	│   Driver command frames        │
//	├────────────────────────────────┤
//	│   CommandWriter / Poller       │
//	├───────────────┬────────────────┤
//	│ serial (8N1)  │ USB bulk OUT/IN│
//	└───────────────┴────────────────┘
//
// # Addresses
//
// Serial descriptors carry the OS port name ("/dev/ttyUSB0", "COM3").
// USB descriptors carry "usb:<bus>:<address>" as reported by libusb.
// Descriptors are produced fresh by every scan and are not stable handles:
// the same machine may get a different USB address after a replug.
//
// # Flow control
//
// There is no hardware handshake. Drivers pace their writes by time; the
// transport only guarantees that a frame is written whole and that writes
// on one port never interleave.
package transport
