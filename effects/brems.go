package effects

import "math"

// bremsTable holds the coefficients of the GEANT3 parametrization of the
// electron bremsstrahlung energy loss (gbrele).
//
// The first 60 coefficients (1-based, index 0 unused) fit the part
// independent of Z, the remaining 40 the part linear in Z.
// Both sets are split in a low (ln(kc/(E*vl)) <= 0) and a high region.
type bremsTable struct {
	c      [101]float64
	xi     float64
	beta   float64 // exponent of kc/T
	vl     float64 // lower bound of the photon energy fraction
	migdal bool    // apply the Migdal (LPM/dielectric) suppression
}

var bremsMigdal = bremsTable{
	c: [101]float64{
		0.0,
		-0.960613E-01, 0.631029E-01, -0.142819E-01, 0.150437E-02, -0.733286E-04, 0.131404E-05,
		0.859343E-01, -0.529023E-01, 0.131899E-01, -0.159201E-02, 0.926958E-04, -0.208439E-05,
		-0.684096E+01, 0.370364E+01, -0.786752E+00, 0.822670E-01, -0.424710E-02, 0.867980E-04,
		-0.200856E+01, 0.129573E+01, -0.306533E+00, 0.343682E-01, -0.185931E-02, 0.392432E-04,
		0.127538E+01, -0.515705E+00, 0.820644E-01, -0.641997E-02, 0.245913E-03, -0.365789E-05,
		0.115792E+00, -0.463143E-01, 0.725442E-02, -0.556266E-03, 0.208049E-04, -0.300895E-06,
		-0.271082E-01, 0.173949E-01, -0.452531E-02, 0.569405E-03, -0.344856E-04, 0.803964E-06,
		0.419855E-02, -0.277188E-02, 0.737658E-03, -0.939463E-04, 0.569748E-05, -0.131737E-06,
		-0.318752E-03, 0.215144E-03, -0.579787E-04, 0.737972E-05, -0.441485E-06, 0.994726E-08,
		0.938233E-05, -0.651642E-05, 0.177303E-05, -0.224680E-06, 0.132080E-07, -0.288593E-09,
		-0.245667E-03, 0.833406E-04, -0.129217E-04, 0.915099E-06, -0.247179E-07,
		0.147696E-03, -0.498793E-04, 0.402375E-05, 0.989281E-07, -0.133378E-07,
		-0.737702E-02, 0.333057E-02, -0.553141E-03, 0.402464E-04, -0.107977E-05,
		-0.641533E-02, 0.290113E-02, -0.477641E-03, 0.342008E-04, -0.900582E-06,
		0.574303E-05, 0.908521E-04, -0.256900E-04, 0.239921E-05, -0.741271E-07,
		-0.341260E-04, 0.971711E-05, -0.172031E-06, -0.119455E-06, 0.704166E-08,
		0.341740E-05, -0.775867E-06, -0.653231E-07, 0.225605E-07, -0.114860E-08,
		-0.119391E-06, 0.194885E-07, 0.588959E-08, -0.127589E-08, 0.608247E-10,
	},
	xi:     2.51,
	beta:   0.99,
	vl:     0.00004,
	migdal: true,
}

// bremsBethe is the pure Bethe-Heitler fit, without Migdal corrections.
var bremsBethe = bremsTable{
	c: [101]float64{
		0.0,
		0.834459E-02, 0.443979E-02, -0.101420E-02, 0.963240E-04, -0.409769E-05, 0.642589E-07,
		0.464473E-02, -0.290378E-02, 0.547457E-03, -0.426949E-04, 0.137760E-05, -0.131050E-07,
		-0.547866E-02, 0.156218E-02, -0.167352E-03, 0.101026E-04, -0.427518E-06, 0.949555E-08,
		-0.406862E-02, 0.208317E-02, -0.374766E-03, 0.317610E-04, -0.130533E-05, 0.211051E-07,
		0.158941E-02, -0.385362E-03, 0.315564E-04, -0.734968E-06, -0.230387E-07, 0.971174E-09,
		0.467219E-03, -0.154047E-03, 0.202400E-04, -0.132438E-05, 0.431474E-07, -0.559750E-09,
		-0.220958E-02, 0.100698E-02, -0.596464E-04, -0.124653E-04, 0.142999E-05, -0.394378E-07,
		0.477447E-03, -0.184952E-03, -0.152614E-04, 0.848418E-05, -0.736136E-06, 0.190192E-07,
		-0.552930E-04, 0.209858E-04, 0.290001E-05, -0.133254E-05, 0.116971E-06, -0.309716E-08,
		0.212117E-05, -0.103884E-05, -0.110912E-06, 0.655143E-07, -0.613013E-08, 0.169207E-09,
		0.301125E-04, -0.461920E-04, 0.871485E-05, -0.622331E-06, 0.151800E-07,
		-0.478023E-04, 0.247530E-04, -0.381763E-05, 0.232819E-06, -0.494487E-08,
		-0.336230E-04, 0.223822E-04, -0.384583E-05, 0.252867E-06, -0.572599E-08,
		0.105335E-04, -0.567074E-06, -0.216564E-06, 0.237268E-07, -0.658131E-09,
		0.282025E-05, -0.671965E-06, 0.565858E-07, -0.193843E-08, 0.211839E-10,
		0.157544E-04, -0.304104E-05, -0.624410E-06, 0.120124E-06, -0.457445E-08,
		-0.188222E-05, -0.407118E-06, 0.375106E-06, -0.466881E-07, 0.158312E-08,
		0.945037E-07, 0.564718E-07, -0.319231E-07, 0.371926E-08, -0.123111E-09,
	},
	xi:   2.10,
	beta: 1.00,
	vl:   0.001,
}

const (
	bremsTHigh = 100. // in GeV, above which the fit is extrapolated
	bremsCHigh = 50.  // in GeV
)

// dEdx returns the mean bremsstrahlung energy loss (GeV/cm) of an electron
// or positron of momentum mom (GeV) for photons below the cut bcut (GeV).
// It returns 0 for every other particle.
func (tbl *bremsTable) dEdx(m Material, mom float64, pdg int, bcut float64) float64 {
	if pdg != 11 && pdg != -11 {
		return 0
	}

	dedx := 0.0
	if bcut > 0 {
		if bcut > mom {
			bcut = mom
		}

		var t, kc float64
		if mom > bremsTHigh {
			t = bremsTHigh
			if bcut >= bremsTHigh {
				kc = bremsCHigh
			} else {
				kc = bcut
			}
		} else {
			t = mom
			kc = bcut
		}

		e := t + electronMass // total electron energy
		if bcut > t {
			kc = t
		}

		x := math.Log(t / electronMass)
		y := math.Log(kc / (e * tbl.vl))

		s := tbl.series(x, y, 6, 6, 24, func(i, j int) int { return 6*i + j - 6 })
		ss := tbl.series(x, y, 5, 5, 15, func(i, j int) int { return 5*i + j + 55 })
		s += m.Z * ss

		if s > 0 {
			corr := 1.0
			if tbl.migdal {
				corr = 1 / (1 + 0.805485e-10*m.Density*m.Z*e*e/(m.A*kc*kc))
			}

			fac := m.Z * (m.Z + tbl.xi) * e * e / (e + electronMass)
			if tbl.beta == 1 {
				fac *= kc * corr / t
			} else {
				fac *= math.Exp(tbl.beta * math.Log(kc*corr/t))
			}
			if fac <= 0 {
				return 0
			}
			dedx = fac * s

			if mom >= bremsTHigh {
				var r float64
				if bcut < bremsTHigh {
					rat := bcut / mom
					r = 1 - 0.5*rat + 2*rat*rat/9
					rat = bcut / t
					r /= 1 - 0.5*rat + 2*rat*rat/9
				} else {
					rat := bcut / mom
					r = bcut * (1 - 0.5*rat + 2*rat*rat/9)
					rat = kc / t
					r /= kc * (1 - 0.5*rat + 2*rat*rat/9)
				}
				dedx *= r // GeV barn
			}

			dedx *= 0.60221367 * m.Density / m.A // GeV/cm
		}
	}

	if dedx < 0 {
		dedx = 0
	}

	if pdg == -11 {
		dedx *= positronFactor(m, mom, bcut)
	}
	return dedx
}

// series sums c[k(i,j)] x^(j-1) y^(i-1) for i in [1,ny] and j in [1,nx].
// For i > 2 the coefficients of the high-y region, shifted by off, are used
// when y > 0.
func (tbl *bremsTable) series(x, y float64, ny, nx, off int, k func(i, j int) int) float64 {
	var (
		sum = 0.0
		yy  = 1.0
	)
	for i := 1; i <= ny; i++ {
		xx := 1.0
		for j := 1; j <= nx; j++ {
			kk := k(i, j)
			if i > 2 && y > 0 {
				kk += off
			}
			sum += tbl.c[kk] * xx * yy
			xx *= x
		}
		yy *= y
	}
	return sum
}

// positronFactor is the ratio of the positron to the electron
// bremsstrahlung energy loss below the photon cut bcut.
func positronFactor(m Material, mom, bcut float64) float64 {
	const (
		aa = 7522100.
		a1 = 0.415
		a3 = 0.0021
		a5 = 0.00054
	)

	if bcut > mom {
		bcut = mom
	}

	eta := 0.0
	if m.Z > 0 {
		x := math.Log(aa * mom / (m.Z * m.Z))
		if x > -8 {
			if x >= +9 {
				eta = 1
			} else {
				w := a1*x + a3*x*x*x + a5*x*x*x*x*x
				eta = 0.5 + math.Atan(w)/math.Pi
			}
		}
	}

	switch {
	case eta < 0.0001:
		return 1e-10
	case eta > 0.9999:
		return 1
	}

	e0 := bcut / mom
	if e0 > 1 {
		e0 = 1
	}
	if e0 < 1e-8 {
		return 1
	}
	return eta * (1 - math.Pow(1-e0, 1/eta)) / e0
}
