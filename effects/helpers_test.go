package effects_test

import (
	"math"

	"github.com/sbinet/matfx/effects"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	iron = effects.Material{
		Density:         7.87,
		Z:               26,
		A:               55.85,
		RadiationLength: 1.76,
		MeanExcitation:  286,
	}
	air = effects.Material{
		Density:         1.205e-3,
		Z:               7.3,
		A:               14.62,
		RadiationLength: 30390,
		MeanExcitation:  85.7,
	}
	vacuum = effects.Material{}
)

// slab is a region [lo, hi) along the x axis.
type slab struct {
	lo, hi float64
	mat    effects.Material
}

// slabs is a material interface made of slabs stacked along x.
// Outside of every slab the material is outside.
type slabs struct {
	slabs   []slab
	outside effects.Material

	pos, dir r3.Vec
	debug    int
	inits    int
}

func (s *slabs) InitTrack(pos, dir r3.Vec) {
	s.pos = pos
	s.dir = dir
	s.inits++
}

func (s *slabs) at(x float64) effects.Material {
	for _, sl := range s.slabs {
		if sl.lo <= x && x < sl.hi {
			return sl.mat
		}
	}
	return s.outside
}

func (s *slabs) Material() effects.Material { return s.at(s.pos.X) }

func (s *slabs) FindNextBoundary(prop effects.Propagator, state effects.State7, sMax float64, varField bool) (float64, error) {
	sign := 1.0
	if sMax < 0 {
		sign = -1
	}
	var (
		x  = state[0]
		ax = sign * state[3]
	)
	dist := math.Abs(sMax)
	if ax == 0 {
		return sign * dist, nil
	}
	for _, sl := range s.slabs {
		for _, edge := range []float64{sl.lo, sl.hi} {
			d := (edge - x) / ax
			if d > 0 && d < dist {
				dist = d
			}
		}
	}
	return sign * dist, nil
}

func (s *slabs) SetDebugLevel(lvl int) { s.debug = lvl }

func uniform(m effects.Material) *slabs {
	return &slabs{outside: m}
}

// line is a straight line propagator counting its calls.
type line struct {
	calls int
}

func (l *line) Propagate(state effects.State7, step float64, varField bool) (effects.State7, error) {
	l.calls++
	for i := 0; i < 3; i++ {
		state[i] += step * state[i+3]
	}
	return state, nil
}

func alongX(x float64, qop float64) effects.State7 {
	return effects.NewState7(r3.Vec{X: x}, r3.Vec{X: 1}, qop)
}
