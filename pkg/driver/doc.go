// Package driver defines the contract every cutting-machine driver fulfils
// and the job engine the drivers share.
//
// A driver owns one device link. Its lifecycle is:
//
//	Disconnected ──Connect──▶ Connecting ──▶ Idle ──Cut──▶ Cutting ⇄ Paused
//	      ▲                                   ▲               │
//	      │                                   └── Completed / Cancelled / Error
//	      └──────────── Disconnect (any state) or link loss ──┘
//
// Terminal job states are entered and left in the same step: they show up
// in events and in the capture log, after which the driver is Idle again.
//
// # Jobs
//
// A driver supplies a Protocol that turns a validated job with resolved
// settings into a Plan of frames. The Engine streams the plan: setup frames
// once, the pass frames MultiCutPasses times, then the home frames. Every
// frame is followed by the configured pacing delay since devices offer no
// hardware flow control.
//
// Cut blocks until the job ends. Pause, Resume, Cancel, Disconnect and
// Status may be called from other goroutines while it runs. Cancellation is
// checked between frames; a frame already written is never retracted.
// Disconnect wins over cancel: the job ends Cancelled and the driver ends
// Disconnected.
//
// # Events
//
// Handlers registered with OnEvent are called synchronously, in
// registration order, on the goroutine that caused the event. Handlers must
// not block and must not call Cut.
package driver
