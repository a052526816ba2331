package effects

import (
	"fmt"
)

// MSCModel selects the multiple Coulomb scattering parametrization.
type MSCModel int

const (
	MSCGeane    MSCModel = iota // linear in step length (PANDA PV/01-07)
	MSCHighland                 // Highland formula with logarithmic correction
)

func (m MSCModel) String() string {
	switch m {
	case MSCGeane:
		return "GEANE"
	case MSCHighland:
		return "Highland"
	}
	return fmt.Sprintf("MSCModel(%d)", int(m))
}

// ParseMSCModel returns the scattering model with the given name.
func ParseMSCModel(name string) (MSCModel, error) {
	switch name {
	case "GEANE":
		return MSCGeane, nil
	case "Highland":
		return MSCHighland, nil
	}
	return 0, fmt.Errorf(
		"%w: no model called %q (valid: GEANE, Highland)",
		ErrUnknownMSCModel, name,
	)
}

// BremsTable names the bremsstrahlung coefficient table.
type BremsTable string

const (
	BremsMigdal BremsTable = "migdal" // fit including Migdal corrections
	BremsBethe  BremsTable = "bethe"  // pure Bethe-Heitler fit
)

func (b BremsTable) table() (*bremsTable, error) {
	switch b {
	case BremsMigdal, "":
		return &bremsMigdal, nil
	case BremsBethe:
		return &bremsBethe, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBremsTable, string(b))
}

// Config holds the configuration of an Engine.
type Config struct {
	// NoEffects disables all material effects.
	NoEffects bool `yaml:"no_effects" env:"NO_EFFECTS"`

	EnergyLossBetheBloch bool `yaml:"energy_loss_bethe_bloch" env:"ENERGY_LOSS_BETHE_BLOCH"`
	NoiseBetheBloch      bool `yaml:"noise_bethe_bloch" env:"NOISE_BETHE_BLOCH"`
	NoiseCoulomb         bool `yaml:"noise_coulomb" env:"NOISE_COULOMB"`
	EnergyLossBrems      bool `yaml:"energy_loss_brems" env:"ENERGY_LOSS_BREMS"`
	NoiseBrems           bool `yaml:"noise_brems" env:"NOISE_BREMS"`

	// IgnoreBoundariesBetweenEqualMaterials lets the step limiter skip
	// boundaries separating two identical materials.
	IgnoreBoundariesBetweenEqualMaterials bool `yaml:"ignore_boundaries_between_equal_materials" env:"IGNORE_EQUAL_BOUNDARIES"`

	// MSCModel is the multiple scattering model: "GEANE" or "Highland".
	MSCModel string `yaml:"msc_model" env:"MSC_MODEL"`

	// BremsTable is the bremsstrahlung coefficient table, fixed at construction.
	BremsTable BremsTable `yaml:"brems_table" env:"BREMS_TABLE"`

	// BremsCut is the energy (GeV) up to which the soft bremsstrahlung
	// energy loss is computed. It is confined to the particle momentum.
	BremsCut float64 `yaml:"brems_cut" env:"BREMS_CUT"`

	DebugLevel int `yaml:"debug_level" env:"DEBUG_LEVEL"`
}

// DefaultConfig returns a configuration with every effect enabled.
func DefaultConfig() Config {
	return Config{
		EnergyLossBetheBloch:                  true,
		NoiseBetheBloch:                       true,
		NoiseCoulomb:                          true,
		EnergyLossBrems:                       true,
		NoiseBrems:                            true,
		IgnoreBoundariesBetweenEqualMaterials: true,
		MSCModel:                              MSCGeane.String(),
		BremsTable:                            BremsMigdal,
		BremsCut:                              10,
	}
}

// Validate checks the named selections of the configuration.
func (cfg Config) Validate() error {
	if _, err := ParseMSCModel(cfg.MSCModel); err != nil {
		return err
	}
	if _, err := cfg.BremsTable.table(); err != nil {
		return err
	}
	return nil
}
