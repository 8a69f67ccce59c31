// Package translate converts job paths into device-unit movement commands.
//
// The translation is shared by every driver; only the textual encoding of
// the resulting commands differs between protocols.
package translate

import (
	"math"

	"github.com/cutline-project/cutline-go/pkg/job"
)

// Kind distinguishes pen-up moves from pen-down cuts.
type Kind uint8

const (
	// Move travels with the tool lifted.
	Move Kind = iota
	// Cut travels with the tool engaged.
	Cut
)

// String returns the command kind name.
func (k Kind) String() string {
	switch k {
	case Move:
		return "MOVE"
	case Cut:
		return "CUT"
	default:
		return "UNKNOWN"
	}
}

// Command is one movement in device units.
type Command struct {
	Kind Kind
	X    int
	Y    int
}

// Scale converts a coordinate to device units, rounding to the nearest
// integer (halves away from zero).
func Scale(v, factor float64) int {
	return int(math.Round(v * factor))
}

// Path translates one path's points.
//
// The first point always becomes a Move, whatever its declared pen state.
// Later pen-down points become Cuts. A pen-up point starts a new Move, and
// consecutive pen-up points collapse into a single Move to the last one.
func Path(points []job.Point, factor float64) []Command {
	if len(points) == 0 {
		return nil
	}

	cmds := make([]Command, 0, len(points))
	for i, pt := range points {
		c := Command{Kind: Cut, X: Scale(pt.X, factor), Y: Scale(pt.Y, factor)}
		if i == 0 || pt.Pen == job.PenUp {
			c.Kind = Move
		}

		if c.Kind == Move && len(cmds) > 0 && cmds[len(cmds)-1].Kind == Move {
			cmds[len(cmds)-1] = c
			continue
		}
		cmds = append(cmds, c)
	}
	return cmds
}

// Job translates every path of a job in order.
// The result holds one command slice per path.
func Job(j *job.CutJob, factor float64) [][]Command {
	out := make([][]Command, len(j.Paths))
	for i, p := range j.Paths {
		out[i] = Path(p.Points, factor)
	}
	return out
}

// Count returns the total number of commands across translated paths.
func Count(paths [][]Command) int {
	n := 0
	for _, p := range paths {
		n += len(p)
	}
	return n
}
