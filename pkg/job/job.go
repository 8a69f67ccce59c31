package job

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors.
var (
	ErrNoPaths   = errors.New("job has no paths")
	ErrEmptyPath = errors.New("path has no points")
	ErrNilJob    = errors.New("job is nil")

	ErrNonFinitePoint  = errors.New("point coordinate is not finite")
	ErrNegativeSetting = errors.New("setting is negative")
)

// PenState tells whether a point is reached with the tool lifted or engaged.
type PenState uint8

const (
	// PenUp moves without cutting.
	PenUp PenState = iota
	// PenDown cuts on the way to the point.
	PenDown
)

// String returns the pen state name.
func (p PenState) String() string {
	switch p {
	case PenUp:
		return "UP"
	case PenDown:
		return "DOWN"
	default:
		return "UNKNOWN"
	}
}

// Point is a single coordinate with its pen state.
type Point struct {
	X   float64
	Y   float64
	Pen PenState
}

// Up returns a pen-up point.
func Up(x, y float64) Point {
	return Point{X: x, Y: y, Pen: PenUp}
}

// Down returns a pen-down point.
func Down(x, y float64) Point {
	return Point{X: x, Y: y, Pen: PenDown}
}

// Path is one continuous stroke.
type Path struct {
	Points []Point
}

// DownPoints returns the number of pen-down points in the path.
func (p Path) DownPoints() int {
	n := 0
	for _, pt := range p.Points {
		if pt.Pen == PenDown {
			n++
		}
	}
	return n
}

// CutSettings configures how a job is cut.
// Zero values are unset and get filled from the material preset table
// and then from driver defaults.
type CutSettings struct {
	// Material names a preset (e.g. "vinyl").
	Material string

	// Pressure is the blade force in device units.
	Pressure int

	// Speed is the tool speed in device units.
	Speed int

	// MultiCutPasses repeats the whole stream; at least 1 once resolved.
	MultiCutPasses int

	// MatWidth and MatHeight describe the cutting mat in job units.
	MatWidth  float64
	MatHeight float64
}

// CutJob is a request to cut one or more paths on a connected device.
type CutJob struct {
	Paths    []Path
	Settings CutSettings
}

// Validate checks the job shape before any I/O happens.
func (j *CutJob) Validate() error {
	if j == nil {
		return ErrNilJob
	}
	if len(j.Paths) == 0 {
		return ErrNoPaths
	}
	for i, p := range j.Paths {
		if len(p.Points) == 0 {
			return fmt.Errorf("path %d: %w", i, ErrEmptyPath)
		}
		for k, pt := range p.Points {
			if !finite(pt.X) || !finite(pt.Y) {
				return fmt.Errorf("path %d point %d: %w", i, k, ErrNonFinitePoint)
			}
		}
	}
	return j.Settings.validate()
}

func (s CutSettings) validate() error {
	switch {
	case s.Pressure < 0:
		return fmt.Errorf("pressure %d: %w", s.Pressure, ErrNegativeSetting)
	case s.Speed < 0:
		return fmt.Errorf("speed %d: %w", s.Speed, ErrNegativeSetting)
	case s.MultiCutPasses < 0:
		return fmt.Errorf("passes %d: %w", s.MultiCutPasses, ErrNegativeSetting)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// PointCount returns the total number of points across all paths.
func (j *CutJob) PointCount() int {
	n := 0
	for _, p := range j.Paths {
		n += len(p.Points)
	}
	return n
}
