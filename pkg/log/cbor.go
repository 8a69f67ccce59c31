package log

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// A capture file is a plain sequence of CBOR items, one Event each.
// Canonical key order keeps two captures of the same traffic identical
// apart from their timestamps, which are stored as RFC 3339 with
// nanoseconds.
var (
	captureEnc = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	captureDec = mustDecMode(cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic("capture: cbor encoder options: " + err.Error())
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic("capture: cbor decoder options: " + err.Error())
	}
	return m
}

// DecodeEvent decodes a single capture record.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	err := captureDec.Unmarshal(data, &ev)
	return ev, err
}

func newEncoder(w io.Writer) *cbor.Encoder { return captureEnc.NewEncoder(w) }

func newDecoder(r io.Reader) *cbor.Decoder { return captureDec.NewDecoder(r) }
