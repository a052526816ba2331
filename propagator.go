package matfx

import (
	"math"

	"github.com/sbinet/matfx/effects"
	"gonum.org/v1/gonum/spatial/r3"
)

// kLarmor converts q/p (1/GeV) times B (T) into a curvature, in 1/cm.
const kLarmor = 0.299792458e-2

// StraightLine propagates states along straight lines.
type StraightLine struct{}

func (StraightLine) Propagate(state effects.State7, step float64, varField bool) (effects.State7, error) {
	pos := r3.Add(state.Pos(), r3.Scale(step, state.Dir()))
	return effects.NewState7(pos, state.Dir(), state.QOverP()), nil
}

// Helix propagates states along helices in the uniform magnetic field B,
// in Tesla.
type Helix struct {
	B r3.Vec
}

// Propagate moves state by the signed path length step (cm).
func (h Helix) Propagate(state effects.State7, step float64, varField bool) (effects.State7, error) {
	var (
		pos = state.Pos()
		dir = state.Dir()
		qop = state.QOverP()
		bn  = r3.Norm(h.B)
	)

	kappa := kLarmor * qop * bn // 1/cm
	if bn == 0 || math.Abs(kappa*step) < 1e-9 {
		return StraightLine{}.Propagate(state, step, varField)
	}

	var (
		b     = r3.Scale(1/bn, h.B)
		para  = r3.Scale(r3.Dot(dir, b), b)
		perp  = r3.Sub(dir, para)
		cross = r3.Cross(perp, b)
		phi   = kappa * step
		sin   = math.Sin(phi)
		cos   = math.Cos(phi)
	)

	pos = r3.Add(pos, r3.Scale(step, para))
	pos = r3.Add(pos, r3.Scale(sin/kappa, perp))
	pos = r3.Add(pos, r3.Scale((1-cos)/kappa, cross))

	dir = r3.Add(para, r3.Add(r3.Scale(cos, perp), r3.Scale(sin, cross)))

	return effects.NewState7(pos, dir, qop), nil
}
