package material

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// presetFile is the YAML layout of a preset override file:
//
//	materials:
//	  chipboard:
//	    pressure: 33
//	    speed: 1
//	    passes: 3
type presetFile struct {
	Materials map[string]Preset `yaml:"materials"`
}

// LoadFile reads a YAML preset file and returns a table layered over the
// built-in presets.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML preset data into a table layered over the built-ins.
func Parse(data []byte) (*Table, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("material YAML parse error: %w", err)
	}
	for name, p := range f.Materials {
		if p.Pressure < 0 || p.Speed < 0 || p.MultiCutPasses < 0 {
			return nil, fmt.Errorf("material %q: negative value", name)
		}
	}
	return NewTable(f.Materials), nil
}
