package effects

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// vacuumZ is the atomic number below which a medium is treated as vacuum.
const vacuumZ = 1e-3

// Material describes the local properties of a medium.
// Materials are compared with == to detect boundary crossings.
type Material struct {
	Density         float64 // in g/cm^3
	Z               float64 // atomic number
	A               float64 // atomic mass in g/mol
	RadiationLength float64 // in cm
	MeanExcitation  float64 // mean excitation energy in eV
}

// IsVacuum reports whether no energy loss nor noise is computed in m.
func (m Material) IsVacuum() bool { return m.Z <= vacuumZ }

func (m Material) String() string {
	return fmt.Sprintf(
		"Material{density=%g g/cm^3, Z=%g, A=%g g/mol, X0=%g cm, I=%g eV}",
		m.Density, m.Z, m.A, m.RadiationLength, m.MeanExcitation,
	)
}

// State7 is the global track state: position (cm), unit direction and q/p (1/GeV).
type State7 [7]float64

// NewState7 builds a state from a position, a direction and q/p.
// The direction is normalized.
func NewState7(pos, dir r3.Vec, qop float64) State7 {
	dir = r3.Unit(dir)
	return State7{pos.X, pos.Y, pos.Z, dir.X, dir.Y, dir.Z, qop}
}

func (s State7) Pos() r3.Vec { return r3.Vec{X: s[0], Y: s[1], Z: s[2]} }
func (s State7) Dir() r3.Vec { return r3.Vec{X: s[3], Y: s[4], Z: s[5]} }
func (s State7) QOverP() float64 {
	return s[6]
}

// advance moves the position by a straight step of length d along the direction.
func (s *State7) advance(d float64) {
	s[0] += d * s[3]
	s[1] += d * s[4]
	s[2] += d * s[5]
}

// StepRecord is one step of a propagated trajectory.
type StepRecord struct {
	State    State7   // state at the beginning of the step
	Material Material // material valid for the step
	Length   float64  // signed step length in cm
}

// MaterialInterface gives access to the detector material along a track.
type MaterialInterface interface {
	// InitTrack positions the interface at pos, looking along dir.
	InitTrack(pos, dir r3.Vec)

	// Material returns the material at the current position.
	Material() Material

	// FindNextBoundary returns the signed distance to the next material
	// boundary, starting from state and searching at most |sMax| along
	// sign(sMax).
	FindNextBoundary(prop Propagator, state State7, sMax float64, varField bool) (float64, error)

	SetDebugLevel(lvl int)
}

// Propagator advances a track state by a signed path length.
type Propagator interface {
	Propagate(state State7, step float64, varField bool) (State7, error)
}
