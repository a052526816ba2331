package effects

import (
	"math"

	"github.com/sbinet/matfx/pdg"
)

// Physical constants
const (
	electronMass float64 = 0.510998910e-3 // in GeV
	betheBlochK  float64 = 0.307075       // 4 pi N_A r_e^2 m_e c^2, in MeV cm^2/mol
	betaGammaMin float64 = 0.05           // validity floor of the Bethe-Bloch formula
)

// stepContext holds the quantities shared by the energy loss and the noise
// computations of a single step.
type stepContext struct {
	length float64  // absolute step length, in cm
	mat    Material // material of the step

	energy float64 // total energy at mid-step, in GeV
	dEdx   float64 // average energy loss over the step, in GeV/cm
}

// kinematics returns gamma, gamma^2, beta^2 and the momentum of a particle
// of mass m and total energy energy.
func kinematics(energy, m float64) (gamma, gamma2, beta2, mom float64) {
	gamma = energy / m
	gamma2 = gamma * gamma
	beta2 = 1 - 1/gamma2
	mom = energy * math.Sqrt(beta2)
	return gamma, gamma2, beta2, mom
}

// dEdx returns the energy loss per unit length (GeV/cm) of a particle with
// total energy energy in the material of ctx, summed over the enabled models.
func (e *Engine) dEdx(ctx *stepContext, energy float64, p pdg.Particle) (float64, error) {
	if energy <= p.Mass {
		return 0, fatalf("dEdx", ErrEnergyBelowMass, "E=%g GeV, m=%g GeV", energy, p.Mass)
	}

	gamma, gamma2, beta2, mom := kinematics(energy, p.Mass)

	sum := 0.0
	if e.cfg.EnergyLossBetheBloch {
		v, err := betheBloch(ctx.mat, beta2, gamma, gamma2, p.Mass, p.Charge)
		if err != nil {
			return 0, err
		}
		sum += v
	}

	if e.cfg.EnergyLossBrems {
		sum += e.brems.dEdx(ctx.mat, mom, p.ID, e.cfg.BremsCut)
	}

	return sum, nil
}

// betheBloch returns the mean ionization energy loss in GeV/cm.
// The density effect is not included.
func betheBloch(m Material, beta2, gamma, gamma2, mass, charge float64) (float64, error) {
	if beta2*gamma2 < betaGammaMin*betaGammaMin {
		return 0, fatalf(
			"dEdxBetheBloch", ErrBetheBlochInvalid,
			"beta*gamma=%g", math.Sqrt(beta2*gamma2),
		)
	}

	v := betheBlochK * m.Z / m.A * m.Density / beta2 * charge * charge
	ratio := electronMass / mass
	arg := gamma2 * beta2 * electronMass * 1e3 * 2 /
		((1e-6 * m.MeanExcitation) * math.Sqrt(1+2*gamma*ratio+ratio*ratio))
	v *= math.Log(arg) - beta2 // MeV/cm
	v *= 1e-3                  // GeV/cm
	if v < 0 {
		v = 0
	}
	return v, nil
}

// momentumLoss returns the momentum lost over the step of ctx, traversed in
// the direction sign by a particle of momentum mom.
// The loss is positive for a positive sign.
//
// With linear, dE/dx is evaluated once at the beginning of the step.
// Otherwise it is averaged with a 4th order Runge-Kutta integration in energy:
//
//	dEdx1 = dEdx(E0)
//	dEdx2 = dEdx(E0 - h/2 dEdx1)
//	dEdx3 = dEdx(E0 - h/2 dEdx2)
//	dEdx4 = dEdx(E0 - h   dEdx3)
//
// The average dE/dx and the mid-step energy are stored in ctx for the noise
// computation.
func (e *Engine) momentumLoss(ctx *stepContext, sign, mom float64, linear bool, p pdg.Particle) (float64, error) {
	e0 := math.Hypot(mom, p.Mass)
	step := ctx.length * sign

	dEdx1, err := e.dEdx(ctx, e0, p)
	if err != nil {
		return 0, err
	}

	switch {
	case linear:
		ctx.dEdx = dEdx1
	default:
		dEdx2, err := e.dEdx(ctx, e0-dEdx1*step/2, p)
		if err != nil {
			return 0, err
		}
		dEdx3, err := e.dEdx(ctx, e0-dEdx2*step/2, p)
		if err != nil {
			return 0, err
		}
		dEdx4, err := e.dEdx(ctx, e0-dEdx3*step, p)
		if err != nil {
			return 0, err
		}
		ctx.dEdx = (dEdx1 + 2*dEdx2 + 2*dEdx3 + dEdx4) / 6
	}

	ctx.energy = e0 - ctx.dEdx*step*0.5

	de := step * ctx.dEdx
	if e0-de <= p.Mass {
		// the particle stops within the step.
		return mom, nil
	}

	loss := mom - math.Sqrt((e0-de)*(e0-de)-p.Mass*p.Mass)
	if e.cfg.DebugLevel > 0 {
		e.log.Debug("momentum loss",
			"mom", mom, "E0", e0, "dEdx", ctx.dEdx, "dE", de, "mass", p.Mass,
			"loss", loss,
		)
	}
	return loss, nil
}
