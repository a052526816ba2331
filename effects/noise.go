package effects

import (
	"math"

	"github.com/sbinet/matfx/pdg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// qopIdx is the index of q/p in the 7-dimensional state.
const qopIdx = 6

// addSym adds v to the (i,j) and (j,i) elements of m.
func addSym(m *mat.SymDense, i, j int, v float64) {
	m.SetSym(i, j, m.At(i, j)+v)
}

// noiseBetheBloch adds the energy loss straggling of ionization to the q/p
// variance. Ported from GEANT3 (erland.F).
func (e *Engine) noiseBetheBloch(noise *mat.SymDense, ctx *stepContext, mom, beta2, gamma, gamma2 float64, p pdg.Particle) {
	var (
		step  = ctx.length
		z     = ctx.mat.Z
		ratio = electronMass / p.Mass
	)

	zeta := 153.4e3 * p.Charge * p.Charge / beta2 * z / ctx.mat.A * ctx.mat.Density * step // eV
	emax := 2e9 * electronMass * beta2 * gamma2 / (1 + 2*gamma*ratio + ratio*ratio)     // eV
	kappa := zeta / emax

	sigma2E := 0.0
	switch {
	case kappa > 0.01:
		// Vavilov-Gaussian regime
		sigma2E += zeta * emax * (1 - beta2/2) // eV^2

	default:
		// Urban/Landau approximation: number of collisions
		ion := 16 * math.Pow(z, 0.9) // eV
		f2 := 0.0
		if z > 2 {
			f2 = 2 / z
		}
		f1 := 1 - f2
		e2 := 10 * z * z                          // eV
		e1 := math.Pow(ion/math.Pow(e2, f2), 1/f1) // eV

		mbbgg2 := 2e9 * p.Mass * beta2 * gamma2 // eV
		norm := math.Log(mbbgg2/ion) - beta2
		sigma1 := ctx.dEdx * 1e9 * f1 / e1 * (math.Log(mbbgg2/e1) - beta2) / norm * 0.6 // 1/cm
		sigma2 := ctx.dEdx * 1e9 * f2 / e2 * (math.Log(mbbgg2/e2) - beta2) / norm * 0.6 // 1/cm
		sigma3 := ctx.dEdx * 1e9 * emax / (ion * (emax + ion) * math.Log((emax+ion)/ion)) * 0.4 // 1/cm

		nc := (sigma1 + sigma2 + sigma3) * step

		switch {
		case nc > 50:
			// truncated Landau distribution (GEANT3 manual W5013)
			sa := landauSigmaAlpha(beta2, zeta, emax)
			sigma2E += sa * sa * zeta * zeta // eV^2
		default:
			// Urban model
			const alpha = 0.996
			ealpha := ion / (1 - (alpha * emax / (emax + ion)))  // eV
			meanE32 := ion * (emax + ion) / emax * (ealpha - ion) // eV^2
			sigma2E += step * (sigma1*e1*e1 + sigma2*e2*e2 + sigma3*meanE32)
		}
	}

	if sigma2E < 0 {
		sigma2E = 0
	}
	sigma2E *= 1e-18 // eV^2 -> GeV^2

	// linear error propagation from E to q/p
	addSym(noise, qopIdx, qopIdx, p.Charge*p.Charge/beta2/math.Pow(mom, 4)*sigma2E)
}

// landauSigmaAlpha returns the width (in units of zeta) of the Landau
// distribution truncated at 0.9996 of its integral.
func landauSigmaAlpha(beta2, zeta, emax float64) float64 {
	const sigmaAlphaMax = 54.6 // alpha=54.6 corresponds to a 0.9996 maximum cut

	lamed := -0.422784 - beta2 - math.Log(zeta/emax)
	lamax := 0.60715 + 1.1934*lamed + (0.67794+0.052382*lamed)*math.Exp(0.94753+0.74442*lamed)

	var v float64
	switch {
	case lamax <= 1010:
		v = 1.975560 +
			9.898841e-02*lamax -
			2.828670e-04*lamax*lamax +
			5.345406e-07*math.Pow(lamax, 3) -
			4.942035e-10*math.Pow(lamax, 4) +
			1.729807e-13*math.Pow(lamax, 5)
	default:
		v = 1.871887e+01 + 1.296254e-02*lamax
	}
	return math.Min(v, sigmaAlphaMax)
}

// noiseCoulomb adds the multiple Coulomb scattering noise of a step
// traversed along the unit direction dir.
// See PDG 2010, Sec. 27.3.
func (e *Engine) noiseCoulomb(noise *mat.SymDense, ctx *stepContext, dir r3.Vec, mom2, beta2 float64, p pdg.Particle) {
	sigma2 := mscVariance(e.msc, ctx, mom2, beta2, p.Charge)

	var (
		step  = ctx.length
		step2 = step * step
		a     = [3]float64{dir.X, dir.Y, dir.Z}
	)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			proj := -a[i] * a[j]
			if i == j {
				proj += 1
			}
			addSym(noise, i, j+3, sigma2*step*0.5*proj) // Cov(x_i, a_j) = Cov(x_j, a_i)
			if j < i {
				continue
			}
			addSym(noise, i, j, sigma2*step2/3*proj)
			addSym(noise, i+3, j+3, sigma2*proj)
		}
	}
}

// mscVariance returns the variance of the projected scattering angle.
func mscVariance(model MSCModel, ctx *stepContext, mom2, beta2, charge float64) float64 {
	var (
		sigma2 = 0.0
		z      = ctx.mat.Z
		xx0    = ctx.length / ctx.mat.RadiationLength
	)

	switch model {
	case MSCGeane:
		// PANDA report PV/01-07 eq(43); linear in step length
		sigma2 = 225e-6 * charge * charge / (beta2 * mom2) * xx0 *
			z / (z + 1) * math.Log(159*math.Pow(z, -1./3)) / math.Log(287*math.Pow(z, -0.5))
	case MSCHighland:
		// PDG 2011; not linear in step length
		cor := 1 + 0.038*math.Log(xx0)
		sigma2 = 0.0136 * 0.0136 * charge * charge / (beta2 * mom2) * xx0 * cor * cor
	}

	if sigma2 < 0 {
		sigma2 = 0
	}
	return sigma2
}

// noiseBrems adds the energy loss straggling of bremsstrahlung to the q/p
// variance, for electrons and positrons.
// Ported from GEANT3 (erland.F) and simplified with E ~ p.
// The 1.44 factor is an empirical correction absent from the Bethe-Heitler model.
func noiseBrems(noise *mat.SymDense, ctx *stepContext, mom2, beta2 float64, p pdg.Particle) {
	if !pdg.IsElectron(p.ID) {
		return
	}

	x := -math.Log2E * ctx.length / ctx.mat.RadiationLength
	sigma2E := 1.44 * (math.Pow(3, x) - math.Pow(4, x)) * mom2
	sigma2E = math.Max(sigma2E, 0)

	addSym(noise, qopIdx, qopIdx, p.Charge*p.Charge/beta2/(mom2*mom2)*sigma2E)
}
