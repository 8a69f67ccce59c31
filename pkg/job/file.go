package job

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// jobFile is the YAML layout of a job file:
//
//	settings:
//	  material: vinyl
//	  passes: 2
//	paths:
//	  - points:
//	      - {x: 0, y: 0, pen: up}
//	      - {x: 1, y: 0}
//	      - {x: 1, y: 1}
//
// Points default to pen down.
type jobFile struct {
	Settings struct {
		Material  string  `yaml:"material"`
		Pressure  int     `yaml:"pressure"`
		Speed     int     `yaml:"speed"`
		Passes    int     `yaml:"passes"`
		MatWidth  float64 `yaml:"mat_width"`
		MatHeight float64 `yaml:"mat_height"`
	} `yaml:"settings"`
	Paths []struct {
		Points []struct {
			X   float64 `yaml:"x"`
			Y   float64 `yaml:"y"`
			Pen string  `yaml:"pen"`
		} `yaml:"points"`
	} `yaml:"paths"`
}

// LoadFile reads a YAML job file.
func LoadFile(path string) (*CutJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML job data. The result is not validated.
func Parse(data []byte) (*CutJob, error) {
	var f jobFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("job YAML parse error: %w", err)
	}

	j := &CutJob{
		Paths: make([]Path, 0, len(f.Paths)),
		Settings: CutSettings{
			Material:       f.Settings.Material,
			Pressure:       f.Settings.Pressure,
			Speed:          f.Settings.Speed,
			MultiCutPasses: f.Settings.Passes,
			MatWidth:       f.Settings.MatWidth,
			MatHeight:      f.Settings.MatHeight,
		},
	}
	for i, fp := range f.Paths {
		p := Path{Points: make([]Point, 0, len(fp.Points))}
		for k, pt := range fp.Points {
			pen, err := parsePen(pt.Pen)
			if err != nil {
				return nil, fmt.Errorf("path %d point %d: %w", i, k, err)
			}
			p.Points = append(p.Points, Point{X: pt.X, Y: pt.Y, Pen: pen})
		}
		j.Paths = append(j.Paths, p)
	}
	return j, nil
}

func parsePen(s string) (PenState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "down", "d":
		return PenDown, nil
	case "up", "u":
		return PenUp, nil
	default:
		return 0, fmt.Errorf("unknown pen state %q", s)
	}
}
