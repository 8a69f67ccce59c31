// Package log provides machine-readable capture of cutter traffic.
//
// Every frame written to or read from a device, every driver state change,
// progress checkpoint and job error can be recorded as an Event. Capture is
// separate from operational logging (slog): it is a complete, replayable
// trace of what a session sent to the hardware.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: print events via slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// For bench work: write a binary trace
//	cfg.Capture, _ = log.NewFileLogger("/var/log/cutline/session.clog")
//
//	// Both
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw command frames and device responses (FrameEvent)
//   - Driver: job state transitions and progress (StateChangeEvent, ProgressEvent)
//   - Manager: session lifecycle (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .clog
// extension. The cutline-log tool views and summarizes them.
package log
