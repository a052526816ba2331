// Package pdg provides mass and charge of common particles, indexed by their
// Particle Data Group Monte Carlo identifier.
package pdg

import (
	"errors"
	"fmt"
)

var ErrUnknownParticle = errors.New("pdg: unknown particle")

// Well-known identifiers.
const (
	Electron = 11
	Positron = -11
	Muon     = 13
	Pion     = 211
	Kaon     = 321
	Proton   = 2212
	Deuteron = 1000010020
	Alpha    = 1000020040
)

// Particle describes a particle species.
type Particle struct {
	ID     int
	Name   string
	Mass   float64 // in GeV
	Charge float64 // in units of e
}

// table holds the particles with a positive id.
// Only charged, massive species are listed.
var table = map[int]Particle{
	Electron: {ID: Electron, Name: "e-", Mass: 0.510998910e-3, Charge: -1},
	Muon:     {ID: Muon, Name: "mu-", Mass: 0.1056583715, Charge: -1},
	Pion:     {ID: Pion, Name: "pi+", Mass: 0.13957018, Charge: +1},
	Kaon:     {ID: Kaon, Name: "K+", Mass: 0.493677, Charge: +1},
	Proton:   {ID: Proton, Name: "p", Mass: 0.938272046, Charge: +1},
	Deuteron: {ID: Deuteron, Name: "d", Mass: 1.875612859, Charge: +1},
	Alpha:    {ID: Alpha, Name: "alpha", Mass: 3.727379240, Charge: +2},
}

var antiNames = map[int]string{
	Electron: "e+",
	Muon:     "mu+",
	Pion:     "pi-",
	Kaon:     "K-",
	Proton:   "pbar",
	Deuteron: "dbar",
	Alpha:    "alphabar",
}

// Lookup returns the particle with the given identifier.
func Lookup(id int) (Particle, error) {
	abs := id
	if abs < 0 {
		abs = -abs
	}
	p, ok := table[abs]
	if !ok {
		return Particle{}, fmt.Errorf("%w (id=%d)", ErrUnknownParticle, id)
	}
	if id < 0 {
		p.ID = id
		p.Charge = -p.Charge
		p.Name = antiNames[abs]
	}
	return p, nil
}

// IsElectron reports whether id denotes an electron or a positron.
func IsElectron(id int) bool { return id == Electron || id == Positron }
