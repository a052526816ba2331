package effects

import (
	"math"

	"github.com/sbinet/matfx/pdg"
	"gonum.org/v1/gonum/spatial/r3"
)

// Step limiter cuts.
const (
	MaxRelMomentumLoss = 0.01 // maximum relative momentum loss of a segment
	MinMomentum        = 4e-3 // minimum momentum for propagation, in GeV
	MinStep            = 1e-4 // 1 um, in cm

	maxBoundarySearch = 100
)

// StepRequest describes the track being stepped by LimitStep.
type StepRequest struct {
	Propagator   Propagator // used to follow the track across boundaries
	State        State7     // state at the beginning of the step; not modified
	Momentum     float64    // in GeV
	PDG          int        // particle identifier
	VaryingField bool       // whether the magnetic field varies along the step
}

// LimitStep bounds the step described by req and limits so that neither the
// relative momentum loss accumulated in relMomLoss exceeds
// MaxRelMomentumLoss nor a material boundary is crossed.
//
// On return, the MomentumLoss and Boundary limits are set, the material at
// the beginning of the step is stored in current and relMomLoss is
// incremented by the relative momentum loss of the effective step.
// A MomentumLoss limit of 0 signals that the segment already reached the
// maximum relative momentum loss.
func (e *Engine) LimitStep(req StepRequest, limits *StepLimits, relMomLoss *float64, current *Material) error {
	const op = "LimitStep"

	if e.cfg.NoEffects {
		return nil
	}

	if e.mi == nil {
		return &Error{Op: op, Err: ErrNotInitialized}
	}

	if req.Momentum < MinMomentum {
		return fatalf(op, ErrMomentumTooLow, "mom=%g MeV", req.Momentum*1e3)
	}

	p, err := pdg.Lookup(req.PDG)
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	if math.Abs(*relMomLoss) > MaxRelMomentumLoss {
		limits.SetLimit(MomentumLoss, 0)
		return nil
	}

	sMax := limits.LowestSignedValue()
	if math.Abs(sMax) < MinStep {
		return nil
	}

	var (
		sign  = limits.StepSign()
		state = req.State
	)

	// material just after the starting point.
	state.advance(sign * MinStep)
	e.mi.InitTrack(state.Pos(), r3.Scale(sign, state.Dir()))
	*current = e.mi.Material()

	if e.cfg.DebugLevel > 0 {
		e.log.Debug("current material", "material", *current)
	}

	// limit due to the momentum loss
	ratePerCm := 0.0
	if !current.IsVacuum() {
		ctx := stepContext{length: 1, mat: *current}
		dp, err := e.momentumLoss(&ctx, sign, req.Momentum, true, p)
		if err != nil {
			return err
		}
		ratePerCm = dp / req.Momentum
	}

	maxStepMomLoss := MaxLimit
	if ratePerCm != 0 {
		maxStepMomLoss = math.Abs((MaxRelMomentumLoss - math.Abs(*relMomLoss)) / ratePerCm)
	}
	limits.SetLimit(MomentumLoss, maxStepMomLoss)

	if e.cfg.DebugLevel > 0 {
		e.log.Debug("momentum loss limit",
			"step", maxStepMomLoss, "rel-mom-loss", *relMomLoss,
		)
	}

	// look for boundaries
	sMax = limits.LowestSignedValue()
	var (
		stepped   = sign * MinStep
		remaining = sMax
	)
	for i := 0; i < maxBoundarySearch; i++ {
		step, err := e.mi.FindNextBoundary(req.Propagator, state, remaining, req.VaryingField)
		if err != nil {
			return &Error{Op: op, Err: err}
		}

		stepped += step
		remaining -= step

		if e.cfg.DebugLevel > 0 {
			e.log.Debug("next boundary", "iter", i, "step", step, "stepped", stepped)
		}

		if !e.cfg.IgnoreBoundariesBetweenEqualMaterials {
			break
		}

		if math.Abs(stepped) >= math.Abs(sMax) {
			break
		}

		// propagate to the boundary and cross it.
		state, err = propagate(req.Propagator, state, step, req.VaryingField)
		if err != nil {
			return &Error{Op: op, Err: err}
		}
		state.advance(sign * MinStep)
		stepped += sign * MinStep
		remaining -= sign * MinStep

		e.mi.InitTrack(state.Pos(), r3.Scale(sign, state.Dir()))
		after := e.mi.Material()

		if e.cfg.DebugLevel > 0 {
			e.log.Debug("material after boundary", "material", after)
		}

		if after != *current {
			break
		}
	}

	limits.SetLimit(Boundary, stepped)

	*relMomLoss += ratePerCm * limits.LowestValue()
	return nil
}

// propagate moves state by step, along a straight line if prop is nil.
func propagate(prop Propagator, state State7, step float64, varField bool) (State7, error) {
	if prop == nil {
		state.advance(step)
		return state, nil
	}
	return prop.Propagate(state, step, varField)
}
