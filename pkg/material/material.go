// Package material holds the material preset table consulted by drivers
// to fill unset cut settings.
package material

import (
	"sort"
	"strings"

	"github.com/cutline-project/cutline-go/pkg/job"
)

// Preset bundles the defaults for one material.
type Preset struct {
	Pressure       int `yaml:"pressure"`
	Speed          int `yaml:"speed"`
	MultiCutPasses int `yaml:"passes"`
}

// Table maps material names to presets. A Table is immutable once built.
type Table struct {
	presets map[string]Preset
}

var builtin = map[string]Preset{
	"vinyl":           {Pressure: 10, Speed: 5, MultiCutPasses: 1},
	"cardstock":       {Pressure: 20, Speed: 3, MultiCutPasses: 1},
	"cardstock-heavy": {Pressure: 30, Speed: 2, MultiCutPasses: 2},
	"paper":           {Pressure: 8, Speed: 5, MultiCutPasses: 1},
	"iron-on":         {Pressure: 14, Speed: 5, MultiCutPasses: 1},
	"fabric":          {Pressure: 22, Speed: 2, MultiCutPasses: 2},
	"faux-leather":    {Pressure: 30, Speed: 2, MultiCutPasses: 3},
	"sticker-paper":   {Pressure: 12, Speed: 5, MultiCutPasses: 1},
	"vellum":          {Pressure: 9, Speed: 4, MultiCutPasses: 1},
}

var defaultTable = &Table{presets: builtin}

// Default returns the built-in preset table.
func Default() *Table {
	return defaultTable
}

// NewTable builds a table from the built-in presets overlaid with extra.
// Names are normalized; the built-in table is left untouched.
func NewTable(extra map[string]Preset) *Table {
	presets := make(map[string]Preset, len(builtin)+len(extra))
	for name, p := range builtin {
		presets[name] = p
	}
	for name, p := range extra {
		presets[normalize(name)] = p
	}
	return &Table{presets: presets}
}

// Lookup returns the preset for a material name.
func (t *Table) Lookup(name string) (Preset, bool) {
	if t == nil {
		t = defaultTable
	}
	p, ok := t.presets[normalize(name)]
	return p, ok
}

// Names returns the sorted material names.
func (t *Table) Names() []string {
	if t == nil {
		t = defaultTable
	}
	names := make([]string, 0, len(t.presets))
	for name := range t.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of presets.
func (t *Table) Len() int {
	if t == nil {
		t = defaultTable
	}
	return len(t.presets)
}

// Resolve fills the unset fields of s.
//
// A known material supplies pressure, speed and passes for fields the
// caller left at zero. Anything still unset falls back to defaults.
// MultiCutPasses is never below 1 in the result.
func Resolve(t *Table, s job.CutSettings, defaults Preset) job.CutSettings {
	if p, ok := t.Lookup(s.Material); ok && s.Material != "" {
		fill(&s, p)
	}
	fill(&s, defaults)
	if s.MultiCutPasses < 1 {
		s.MultiCutPasses = 1
	}
	return s
}

func fill(s *job.CutSettings, p Preset) {
	if s.Pressure == 0 {
		s.Pressure = p.Pressure
	}
	if s.Speed == 0 {
		s.Speed = p.Speed
	}
	if s.MultiCutPasses == 0 {
		s.MultiCutPasses = p.MultiCutPasses
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
