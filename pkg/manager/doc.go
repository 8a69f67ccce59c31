// Package manager discovers cutting machines and owns their sessions.
//
// A Manager scans serial ports and USB devices, guesses which driver fits
// each one, and connects drivers on request. Every connection is a Session
// with its own id. Driver events are re-published to the manager's handlers
// tagged with that id, so a single subscriber can follow all devices.
//
//	Scan ──> []Device{Descriptor, Name, DriverID, Supported}
//	Connect(desc, driverID) ──> session id
//	Submit / Pause / Resume / Cancel / Status (session id)
//	Disconnect / DisconnectAll
//
// Sessions end when the caller disconnects them or when their driver
// reports that the device went away.
package manager
