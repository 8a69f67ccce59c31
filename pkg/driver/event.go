package driver

import "time"

// EventType identifies a driver notification.
type EventType uint8

const (
	// EventConnected - link open and handshake sent.
	EventConnected EventType = iota

	// EventDisconnected - link closed, by request or because the device went away.
	EventDisconnected

	// EventJobStarted - a job passed validation and streaming began.
	EventJobStarted

	// EventProgress - progress checkpoint of the running job.
	EventProgress

	// EventPaused - the running job was paused.
	EventPaused

	// EventResumed - the paused job was resumed.
	EventResumed

	// EventCompleted - the job finished and the tool was sent home.
	EventCompleted

	// EventCancelled - the job stopped early by Cancel, context or Disconnect.
	EventCancelled

	// EventError - the job failed; Err holds the classified error.
	EventError
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventJobStarted:
		return "JOB_STARTED"
	case EventProgress:
		return "PROGRESS"
	case EventPaused:
		return "PAUSED"
	case EventResumed:
		return "RESUMED"
	case EventCompleted:
		return "COMPLETED"
	case EventCancelled:
		return "CANCELLED"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Progress reports how far a job has streamed.
// Current and Total count movement commands across all passes.
type Progress struct {
	Current int
	Total   int
	Percent int
	Pass    int
}

func newProgress(current, total, pass int) Progress {
	p := Progress{Current: current, Total: total, Pass: pass}
	if total > 0 {
		p.Percent = current * 100 / total
	}
	return p
}

// Event is a driver notification.
type Event struct {
	Type      EventType
	Time      time.Time
	SessionID string
	DriverID  string

	// State is the driver state after the event.
	State State

	// Progress is set for JobStarted, Progress, Completed and Cancelled.
	Progress *Progress

	// Err is set for Error events.
	Err *Error

	// Reason explains Cancelled and Disconnected events.
	Reason string
}

// EventHandler receives driver events.
type EventHandler func(Event)
