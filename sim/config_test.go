package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/matfx"
	"github.com/sbinet/matfx/effects"
	"github.com/sbinet/matfx/pdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(fname, []byte(content), 0644)
	require.NoError(t, err)
	return fname
}

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, matfx.StraightLine{}, cfg.propagator())
}

func TestLoadConfigYAML(t *testing.T) {
	fname := writeFile(t, "cfg.yaml", `
events: 42
workers: 4
output: muons.out
field: [0, 0, 1.5]
generator:
  particle: 11
  charged: false
  min_momentum: 1
  max_momentum: 2
  height: 500
geometry:
  world: vacuum
  volumes:
    - name: absorber
      material: lead
      min: [-10, 10, -10]
      max: [10, 20, 10]
effects:
  msc_model: Highland
  brems_table: bethe
  no_effects: true
`)

	cfg, err := LoadConfig(fname)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Events)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "muons.out", cfg.Output)
	assert.Equal(t, pdg.Electron, cfg.Generator.Particle)
	assert.False(t, cfg.Generator.Charged)
	assert.Equal(t, 500.0, cfg.Generator.Height)
	// unset keys keep their default values.
	assert.Equal(t, DefaultConfig().Generator.Source, cfg.Generator.Source)
	assert.Equal(t, DefaultConfig().MaxStep, cfg.MaxStep)

	assert.Equal(t, "Highland", cfg.Effects.MSCModel)
	assert.Equal(t, effects.BremsBethe, cfg.Effects.BremsTable)
	assert.True(t, cfg.Effects.NoEffects)
	assert.True(t, cfg.Effects.NoiseCoulomb)

	assert.Equal(t, matfx.Helix{B: r3.Vec{Z: 1.5}}, cfg.propagator())

	require.Len(t, cfg.Geometry.Volumes, 1)
	geo, err := cfg.Geometry.geometry(matfx.DefaultCatalog())
	require.NoError(t, err)
	lead, err := matfx.DefaultCatalog().Material("lead")
	require.NoError(t, err)
	assert.Equal(t, effects.Material{}, geo.World)
	assert.Equal(t, lead, geo.MaterialAt(r3.Vec{Y: 15}))
	assert.Equal(t, "absorber", geo.Volumes[0].Name)
}

func TestLoadConfigEnv(t *testing.T) {
	fname := writeFile(t, "cfg.yaml", "events: 42\nworkers: 4\n")

	t.Setenv("MATFX_WORKERS", "8")
	t.Setenv("MATFX_FIELD", "0,2,0")
	t.Setenv("MATFX_GEN_MIN_MOMENTUM", "3")
	t.Setenv("MATFX_EFFECTS_MSC_MODEL", "Highland")
	t.Setenv("MATFX_EFFECTS_BREMS_CUT", "1e4")
	t.Setenv("MATFX_EFFECTS_NOISE_BREMS", "false")

	cfg, err := LoadConfig(fname)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Events)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []float64{0, 2, 0}, cfg.Field)
	assert.Equal(t, 3.0, cfg.Generator.MinMomentum)
	assert.Equal(t, "Highland", cfg.Effects.MSCModel)
	assert.Equal(t, 1e4, cfg.Effects.BremsCut)
	assert.False(t, cfg.Effects.NoiseBrems)
	assert.True(t, cfg.Effects.EnergyLossBrems)
}

func TestLoadConfigErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "workers", yaml: "workers: 0\n"},
		{name: "events", yaml: "events: -1\n"},
		{name: "output", yaml: "output: ''\n"},
		{name: "field", yaml: "field: [0, 1]\n"},
		{name: "momentum", yaml: "generator: {min_momentum: 10, max_momentum: 5}\n"},
		{name: "particle", yaml: "generator: {particle: 12345}\n"},
		{name: "msc", yaml: "effects: {msc_model: Moliere}\n"},
		{name: "brems", yaml: "effects: {brems_table: seltzer-berger}\n"},
		{name: "volume", yaml: "geometry: {world: dry_air, volumes: [{name: v, material: iron, min: [0, 0], max: [1, 1, 1]}]}\n"},
		{name: "env", env: map[string]string{"MATFX_MAX_STEP": "-1"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			fname := writeFile(t, "cfg.yaml", tc.yaml)
			_, err := LoadConfig(fname)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	t.Run("unknown-key", func(t *testing.T) {
		fname := writeFile(t, "cfg.yaml", "nevts: 10\n")
		_, err := LoadConfig(fname)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrConfig)
	})

	t.Run("missing-file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("bad-env", func(t *testing.T) {
		t.Setenv("MATFX_EVENTS", "many")
		_, err := LoadConfig("")
		assert.Error(t, err)
	})
}

func TestGeometryUnknownMaterial(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Geometry.Volumes[0].Material = "unobtainium"

	_, err := New(cfg, matfx.DefaultCatalog(), nil)
	assert.ErrorIs(t, err, matfx.ErrUnknownMaterial)

	cfg = DefaultConfig()
	cfg.Geometry.World = "aether"
	_, err = New(cfg, matfx.DefaultCatalog(), nil)
	assert.ErrorIs(t, err, matfx.ErrUnknownMaterial)
}
