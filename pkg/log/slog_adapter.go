package log

import (
	"context"
	"encoding/hex"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger at Debug level.
// Useful on the bench when the raw command stream should show up in the
// console next to the operational log.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.DriverID != "" {
		attrs = append(attrs, slog.String("driver", event.DriverID))
	}
	if event.Address != "" {
		attrs = append(attrs, slog.String("address", event.Address))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.String("frame", Printable(event.Frame.Data)),
		)
		if event.Frame.Seq > 0 {
			attrs = append(attrs, slog.Uint64("seq", event.Frame.Seq))
		}
		if event.Frame.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Progress != nil:
		attrs = append(attrs,
			slog.Int("current", event.Progress.Current),
			slog.Int("total", event.Progress.Total),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

const hexDigits = "0123456789abcdef"

// Printable renders ASCII command frames as text and anything else as hex.
// Control bytes inside otherwise printable frames are shown as \xNN.
func Printable(data []byte) string {
	ascii := 0
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			ascii++
		}
	}
	if len(data) == 0 || ascii*2 < len(data) {
		return hex.EncodeToString(data)
	}

	out := make([]byte, 0, len(data)+8)
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			out = append(out, b)
			continue
		}
		out = append(out, '\\', 'x', hexDigits[b>>4], hexDigits[b&0x0f])
	}
	return string(out)
}

var _ Logger = (*SlogAdapter)(nil)
