package material

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutline-project/cutline-go/pkg/job"
)

func TestDefaultTableHasNineEntries(t *testing.T) {
	assert.Equal(t, 9, Default().Len())
	for _, name := range []string{
		"vinyl", "cardstock", "cardstock-heavy", "paper", "iron-on",
		"fabric", "faux-leather", "sticker-paper", "vellum",
	} {
		_, ok := Default().Lookup(name)
		assert.True(t, ok, "missing preset %q", name)
	}
}

func TestLookupNormalizesName(t *testing.T) {
	p, ok := Default().Lookup("  Vinyl ")
	require.True(t, ok)
	assert.Equal(t, Preset{Pressure: 10, Speed: 5, MultiCutPasses: 1}, p)
}

func TestResolveFillsFromPreset(t *testing.T) {
	s := Resolve(Default(), job.CutSettings{Material: "cardstock-heavy"}, Preset{Pressure: 1, Speed: 1, MultiCutPasses: 1})
	assert.Equal(t, 30, s.Pressure)
	assert.Equal(t, 2, s.Speed)
	assert.Equal(t, 2, s.MultiCutPasses)
}

func TestResolveKeepsCallerValues(t *testing.T) {
	s := Resolve(Default(), job.CutSettings{Material: "vinyl", Pressure: 17}, Preset{})
	assert.Equal(t, 17, s.Pressure)
	assert.Equal(t, 5, s.Speed)
}

func TestResolveUnknownMaterialUsesDefaults(t *testing.T) {
	s := Resolve(Default(), job.CutSettings{Material: "balsa", Speed: 3}, Preset{Pressure: 12, Speed: 6})
	assert.Equal(t, 12, s.Pressure)
	assert.Equal(t, 3, s.Speed)
	assert.Equal(t, 1, s.MultiCutPasses)
}

func TestParseOverlaysBuiltins(t *testing.T) {
	tbl, err := Parse([]byte(`
materials:
  Chipboard:
    pressure: 33
    speed: 1
    passes: 3
  vinyl:
    pressure: 11
    speed: 4
    passes: 1
`))
	require.NoError(t, err)

	p, ok := tbl.Lookup("chipboard")
	require.True(t, ok)
	assert.Equal(t, Preset{Pressure: 33, Speed: 1, MultiCutPasses: 3}, p)

	p, _ = tbl.Lookup("vinyl")
	assert.Equal(t, 11, p.Pressure)
	assert.Equal(t, 10, func() int { d, _ := Default().Lookup("vinyl"); return d.Pressure }(), "built-in table must not change")
	assert.Equal(t, 10, tbl.Len())
}

func TestParseRejectsNegative(t *testing.T) {
	_, err := Parse([]byte("materials:\n  foo:\n    pressure: -1\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "materials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("materials:\n  foam:\n    pressure: 5\n    speed: 8\n    passes: 1\n"), 0644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Contains(t, tbl.Names(), "foam")

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
