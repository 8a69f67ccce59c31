package log

import (
	"io"
	"iter"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects capture events. Zero fields do not restrict.
// Direction only applies to frames; a direction filter drops every
// non-frame event.
type Filter struct {
	SessionID string
	DriverID  string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Matches reports whether ev passes every criterion of f.
func (f *Filter) Matches(ev Event) bool {
	switch {
	case f.SessionID != "" && ev.SessionID != f.SessionID,
		f.DriverID != "" && ev.DriverID != f.DriverID,
		f.Layer != nil && ev.Layer != *f.Layer,
		f.Category != nil && ev.Category != *f.Category,
		f.Direction != nil && (ev.Category != CategoryFrame || ev.Direction != *f.Direction):
		return false
	}
	return f.inWindow(ev.Timestamp)
}

func (f *Filter) inWindow(ts time.Time) bool {
	if f.TimeStart != nil && ts.Before(*f.TimeStart) {
		return false
	}
	return f.TimeEnd == nil || ts.Before(*f.TimeEnd)
}

// Reader streams the events of a capture file that pass its filter.
type Reader struct {
	f      *os.File
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens a capture file without filtering.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and yields only events passing filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, dec: newDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF after the last record.
// A file cut short mid-record reports io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var ev Event
		if err := r.dec.Decode(&ev); err != nil {
			return Event{}, err
		}
		if r.filter.Matches(ev) {
			return ev, nil
		}
	}
}

// All iterates over the remaining matching events. A decode error is
// yielded once with a zero Event and ends the iteration.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the capture file.
func (r *Reader) Close() error {
	return r.f.Close()
}
