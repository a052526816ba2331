// Package effects computes the interactions of a charged particle with the
// material it traverses, for the needs of a track fit:
//
//   - the momentum lost through ionization (Bethe-Bloch) and bremsstrahlung,
//   - the process noise added to the 7x7 covariance of the global track
//     state by multiple Coulomb scattering and energy loss straggling,
//   - the maximum step a propagator may take before the momentum loss or a
//     material boundary must interrupt it.
//
// Units are GeV, cm, g/cm^3 and eV (mean excitation energy).
//
// An Engine is not safe for concurrent use.
// Independent trajectories should use independent engines.
package effects

import (
	"io"
	"log/slog"
	"math"

	"github.com/sbinet/matfx/pdg"
	"gonum.org/v1/gonum/mat"
)

// minEffectsStep is the step length below which no effect is computed, in cm.
const minEffectsStep = 1e-8

// Engine computes material effects along propagated trajectories.
type Engine struct {
	cfg   Config
	msc   MSCModel
	brems *bremsTable
	mi    MaterialInterface
	log   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger receiving the debug output of the engine.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMaterialInterface sets the material interface of the engine.
func WithMaterialInterface(mi MaterialInterface) Option {
	return func(e *Engine) { e.mi = mi }
}

// New creates an engine from the given configuration.
// Invalid model selections are reported immediately.
func New(cfg Config, opts ...Option) (*Engine, error) {
	msc, err := ParseMSCModel(cfg.MSCModel)
	if err != nil {
		return nil, &Error{Op: "New", Err: err}
	}
	brems, err := cfg.BremsTable.table()
	if err != nil {
		return nil, &Error{Op: "New", Err: err}
	}

	e := &Engine{
		cfg:   cfg,
		msc:   msc,
		brems: brems,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetDebugLevel(cfg.DebugLevel)
	return e, nil
}

// SetMaterialInterface attaches the material interface to the engine.
// It fails if an interface is already attached.
func (e *Engine) SetMaterialInterface(mi MaterialInterface) error {
	if e.mi != nil {
		return &Error{Op: "SetMaterialInterface", Err: ErrAlreadyInitialized}
	}
	e.mi = mi
	e.SetDebugLevel(e.cfg.DebugLevel)
	return nil
}

// Finalize detaches the material interface, closing it if it is an io.Closer.
func (e *Engine) Finalize() error {
	mi := e.mi
	e.mi = nil
	if c, ok := mi.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Config returns the current configuration of the engine.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) SetNoEffects(v bool)            { e.cfg.NoEffects = v }
func (e *Engine) SetEnergyLossBetheBloch(v bool) { e.cfg.EnergyLossBetheBloch = v }
func (e *Engine) SetNoiseBetheBloch(v bool)      { e.cfg.NoiseBetheBloch = v }
func (e *Engine) SetNoiseCoulomb(v bool)         { e.cfg.NoiseCoulomb = v }
func (e *Engine) SetEnergyLossBrems(v bool)      { e.cfg.EnergyLossBrems = v }
func (e *Engine) SetNoiseBrems(v bool)           { e.cfg.NoiseBrems = v }

func (e *Engine) SetIgnoreBoundariesBetweenEqualMaterials(v bool) {
	e.cfg.IgnoreBoundariesBetweenEqualMaterials = v
}

// SetMSCModel selects the multiple scattering model by name.
func (e *Engine) SetMSCModel(name string) error {
	m, err := ParseMSCModel(name)
	if err != nil {
		return &Error{Op: "SetMSCModel", Err: err}
	}
	e.msc = m
	e.cfg.MSCModel = m.String()
	return nil
}

// SetBremsCut sets the soft bremsstrahlung photon cut, in GeV.
func (e *Engine) SetBremsCut(v float64) { e.cfg.BremsCut = v }

// SetDebugLevel sets the verbosity of the engine.
// Levels above 1 are forwarded, decremented, to the material interface.
func (e *Engine) SetDebugLevel(lvl int) {
	e.cfg.DebugLevel = lvl
	if e.mi != nil && lvl > 1 {
		e.mi.SetDebugLevel(lvl - 1)
	}
}

// Effects returns the momentum lost along the steps [start, stop) by a
// particle of type id starting with momentum mom (GeV).
//
// If noise is not nil, it must be a 7x7 matrix and the process noise of
// every step is added to it.
func (e *Engine) Effects(steps []StepRecord, start, stop int, mom float64, id int, noise *mat.SymDense) (float64, error) {
	const op = "Effects"

	if e.cfg.NoEffects {
		return 0, nil
	}

	if e.mi == nil {
		return 0, &Error{Op: op, Err: ErrNotInitialized}
	}

	if start < 0 || stop > len(steps) || start > stop {
		return 0, fatalf(op, ErrStepRange, "range=[%d, %d), steps=%d", start, stop, len(steps))
	}

	if noise != nil && noise.SymmetricDim() != len(State7{}) {
		return 0, fatalf(op, ErrNoiseDimension, "dim=%d", noise.SymmetricDim())
	}

	p, err := pdg.Lookup(id)
	if err != nil {
		return 0, &Error{Op: op, Err: err}
	}

	loss := 0.0
	for i := start; i < stop; i++ {
		st := &steps[i]
		if math.Abs(st.Length) < minEffectsStep {
			continue
		}

		if e.cfg.DebugLevel > 0 {
			e.log.Debug("material effects",
				"step", i, "length", st.Length, "material", st.Material,
				"noise", noise != nil,
			)
		}

		if st.Material.IsVacuum() {
			continue
		}

		sign := 1.0
		if st.Length < 0 {
			sign = -1
		}
		ctx := stepContext{
			length: math.Abs(st.Length),
			mat:    st.Material,
		}

		dp, err := e.momentumLoss(&ctx, sign, mom-loss, false, p)
		if err != nil {
			return loss, err
		}
		loss += dp
		if loss >= mom {
			break
		}

		if noise == nil {
			continue
		}

		if ctx.energy <= p.Mass {
			return loss, fatalf(op, ErrEnergyBelowMass, "E=%g GeV, m=%g GeV", ctx.energy, p.Mass)
		}

		gamma, gamma2, beta2, pmid := kinematics(ctx.energy, p.Mass)
		pmid2 := pmid * pmid

		if e.cfg.EnergyLossBetheBloch && e.cfg.NoiseBetheBloch {
			e.noiseBetheBloch(noise, &ctx, pmid, beta2, gamma, gamma2, p)
		}

		if e.cfg.NoiseCoulomb {
			e.noiseCoulomb(noise, &ctx, st.State.Dir(), pmid2, beta2, p)
		}

		if e.cfg.EnergyLossBrems && e.cfg.NoiseBrems {
			noiseBrems(noise, &ctx, pmid2, beta2, p)
		}
	}

	if loss >= mom {
		return loss, fatalf(op, ErrMomentumLoss, "loss=%g GeV, mom=%g GeV, aborting extrapolation", loss, mom)
	}

	return loss, nil
}
