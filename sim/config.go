package sim

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/sbinet/matfx"
	"github.com/sbinet/matfx/effects"
	"github.com/sbinet/matfx/pdg"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of the environment variables overriding a Config.
const EnvPrefix = "MATFX_"

var ErrConfig = errors.New("sim: invalid configuration")

// Config describes a simulation run.
type Config struct {
	Events     int    `yaml:"events" env:"EVENTS" validate:"gte=1"`
	FirstEvent int64  `yaml:"first_event" env:"FIRST_EVENT" validate:"gte=0"`
	Workers    int    `yaml:"workers" env:"WORKERS" validate:"gte=1"`
	Seed       int64  `yaml:"seed" env:"SEED"`
	Output     string `yaml:"output" env:"OUTPUT" validate:"required"`

	CPUProfile string `yaml:"cpu_profile" env:"CPU_PROFILE"`
	Trace      string `yaml:"trace" env:"TRACE"`

	// Field is the uniform magnetic field, in Tesla.
	// Tracks follow straight lines when it is empty.
	Field    []float64 `yaml:"field" env:"FIELD" envSeparator:"," validate:"omitempty,len=3"`
	MaxStep  float64   `yaml:"max_step" env:"MAX_STEP" validate:"gt=0"`
	MaxSteps int       `yaml:"max_steps" env:"MAX_STEPS" validate:"gte=1"`

	Generator GeneratorConfig `yaml:"generator" envPrefix:"GEN_"`
	Geometry  GeometryConfig  `yaml:"geometry" env:"-"`
	Effects   effects.Config  `yaml:"effects" envPrefix:"EFFECTS_"`
}

type GeneratorConfig struct {
	Particle    int     `yaml:"particle" env:"PARTICLE" validate:"ne=0"`
	Charged     bool    `yaml:"charged" env:"CHARGED"`
	MinMomentum float64 `yaml:"min_momentum" env:"MIN_MOMENTUM" validate:"gt=0"`
	MaxMomentum float64 `yaml:"max_momentum" env:"MAX_MOMENTUM" validate:"gtefield=MinMomentum"`
	Height      float64 `yaml:"height" env:"HEIGHT" validate:"gt=0"`
	Source      float64 `yaml:"source" env:"SOURCE" validate:"gte=0"`
	Target      float64 `yaml:"target" env:"TARGET" validate:"gte=0"`
}

type GeometryConfig struct {
	World   string         `yaml:"world" validate:"required"`
	Volumes []VolumeConfig `yaml:"volumes" validate:"dive"`
}

// VolumeConfig is a box of material, with corners in cm.
type VolumeConfig struct {
	Name     string    `yaml:"name" validate:"required"`
	Material string    `yaml:"material" validate:"required"`
	Min      []float64 `yaml:"min" validate:"len=3"`
	Max      []float64 `yaml:"max" validate:"len=3"`
}

// DefaultConfig returns the configuration of a block of standard rock
// crossed by cosmic muons, in dry air.
func DefaultConfig() Config {
	return Config{
		Events:   100,
		Workers:  1,
		Seed:     1234,
		Output:   "matfx.out",
		MaxStep:  100,
		MaxSteps: 100000,
		Generator: GeneratorConfig{
			Particle:    pdg.Muon,
			Charged:     true,
			MinMomentum: 5,
			MaxMomentum: 5 + 1e4,
			Height:      4000,
			Source:      1000,
			Target:      100,
		},
		Geometry: GeometryConfig{
			World: "dry_air",
			Volumes: []VolumeConfig{{
				Name:     "block",
				Material: "standard_rock",
				Min:      []float64{-250, 100, -250},
				Max:      []float64{+250, 2100, +250},
			}},
		},
		Effects: effects.DefaultConfig(),
	}
}

var validate = validator.New()

// LoadConfig returns the default configuration, updated with the YAML
// document at path (if any) and then with the MATFX_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("sim: could not open configuration file: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		err = dec.Decode(&cfg)
		if err != nil {
			return cfg, fmt.Errorf("sim: could not decode configuration file %q: %w", path, err)
		}
	}

	err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return cfg, fmt.Errorf("sim: could not parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration.
func (cfg Config) Validate() error {
	err := validate.Struct(cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	err = cfg.Effects.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	_, err = pdg.Lookup(cfg.Generator.Particle)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

// geometry builds the geometry described by cfg from the materials of cat.
func (cfg GeometryConfig) geometry(cat *matfx.Catalog) (*matfx.Geometry, error) {
	world, err := cat.Material(cfg.World)
	if err != nil {
		return nil, fmt.Errorf("sim: world: %w", err)
	}
	geo := &matfx.Geometry{World: world}
	for _, v := range cfg.Volumes {
		m, err := cat.Material(v.Material)
		if err != nil {
			return nil, fmt.Errorf("sim: volume %q: %w", v.Name, err)
		}
		geo.Volumes = append(geo.Volumes, matfx.Volume{
			Name:     v.Name,
			Box:      r3.NewBox(v.Min[0], v.Min[1], v.Min[2], v.Max[0], v.Max[1], v.Max[2]),
			Material: m,
		})
	}
	return geo, nil
}

func (cfg Config) propagator() effects.Propagator {
	if len(cfg.Field) != 3 {
		return matfx.StraightLine{}
	}
	b := r3.Vec{X: cfg.Field[0], Y: cfg.Field[1], Z: cfg.Field[2]}
	if b == (r3.Vec{}) {
		return matfx.StraightLine{}
	}
	return matfx.Helix{B: b}
}

func (cfg GeneratorConfig) generator() matfx.Generator {
	return matfx.Generator{
		PDG:         cfg.Particle,
		Charged:     cfg.Charged,
		MinMomentum: cfg.MinMomentum,
		MaxMomentum: cfg.MaxMomentum,
		Height:      cfg.Height,
		Source:      cfg.Source,
		Target:      cfg.Target,
	}
}
