package matfx

import (
	"io"
	"log/slog"
	"math"

	"github.com/sbinet/matfx/effects"
	"gonum.org/v1/gonum/spatial/r3"
)

// World is the index of the volume surrounding every box of a Geometry.
const World = -1

// Volume is an axis-aligned box filled with a material.
// Lengths are in cm.
type Volume struct {
	Name     string
	Box      r3.Box
	Material effects.Material
}

// Geometry is a set of non-overlapping volumes embedded in a world material.
type Geometry struct {
	World   effects.Material
	Volumes []Volume
}

// Medium returns the index of the volume containing pos, or World.
// On a shared face, the first declared volume wins.
func (geo *Geometry) Medium(pos r3.Vec) int {
	for i, v := range geo.Volumes {
		if v.Box.Contains(pos) {
			return i
		}
	}
	return World
}

// MaterialAt returns the material at pos.
func (geo *Geometry) MaterialAt(pos r3.Vec) effects.Material {
	return geo.material(geo.Medium(pos))
}

func (geo *Geometry) material(idx int) effects.Material {
	if idx == World {
		return geo.World
	}
	return geo.Volumes[idx].Material
}

// Cursor returns a new navigator over the geometry.
// Navigators are not safe for concurrent use: each trajectory needs its own.
func (geo *Geometry) Cursor() *Navigator {
	return &Navigator{
		geo: geo,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Navigator locates a track in a Geometry.
// It implements effects.MaterialInterface.
type Navigator struct {
	geo   *Geometry
	pos   r3.Vec
	dir   r3.Vec
	idx   int
	debug int
	log   *slog.Logger
}

var _ effects.MaterialInterface = (*Navigator)(nil)

// WithLogger sets the logger receiving the debug output of the navigator.
func (nav *Navigator) WithLogger(l *slog.Logger) *Navigator {
	nav.log = l
	return nav
}

// InitTrack places the navigator at pos, heading along dir.
func (nav *Navigator) InitTrack(pos, dir r3.Vec) {
	nav.pos = pos
	nav.dir = r3.Unit(dir)
	nav.idx = nav.geo.Medium(pos)
}

// Material returns the material at the current position.
func (nav *Navigator) Material() effects.Material {
	return nav.geo.material(nav.idx)
}

// Volume returns the index of the current volume.
func (nav *Navigator) Volume() int { return nav.idx }

func (nav *Navigator) SetDebugLevel(lvl int) { nav.debug = lvl }

const (
	boundaryTolerance = 1e-9 // faces closer than this are behind the track, in cm
	pullBack          = 1e-7 // in cm, to locate the end point of a step ending on a face
	maxRefine         = 50   // bisections of a curved step
)

// FindNextBoundary returns the signed distance to the next boundary along
// the trajectory of state, at most sMax.
//
// The distance is first computed along the straight line tangent to the
// trajectory. When a propagator is given, the step is then shrunk until the
// propagated end point stays in the starting volume.
func (nav *Navigator) FindNextBoundary(prop effects.Propagator, state effects.State7, sMax float64, varField bool) (float64, error) {
	sign := 1.0
	if sMax < 0 {
		sign = -1
	}
	var (
		pos   = state.Pos()
		dir   = r3.Scale(sign, state.Dir())
		start = nav.geo.Medium(pos)
	)

	dist := math.Abs(sMax)
	for _, v := range nav.geo.Volumes {
		d := rayBox(v.Box, pos, dir)
		if d < dist {
			dist = d
		}
	}

	if nav.debug > 0 {
		nav.log.Debug("straight boundary", "pos", pos, "dir", dir, "volume", start, "dist", dist)
	}

	if prop == nil {
		return sign * dist, nil
	}

	// a curved trajectory may leave the volume before the straight line does.
	inside := func(step float64) (bool, error) {
		end, err := prop.Propagate(state, sign*step, varField)
		if err != nil {
			return false, err
		}
		back := r3.Sub(end.Pos(), r3.Scale(sign*pullBack, end.Dir()))
		return nav.geo.Medium(back) == start, nil
	}

	ok, err := inside(dist)
	if err != nil || ok {
		return sign * dist, err
	}

	lo, hi := 0.0, dist
	for i := 0; i < maxRefine && hi-lo > effects.MinStep; i++ {
		mid := 0.5 * (lo + hi)
		ok, err := inside(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}

	if nav.debug > 0 {
		nav.log.Debug("curved boundary", "straight", dist, "dist", lo)
	}
	return sign * lo, nil
}

// rayBox returns the distance along dir from pos to the first face of box
// ahead of pos, or +Inf.
func rayBox(box r3.Box, pos, dir r3.Vec) float64 {
	var (
		tmin = math.Inf(-1)
		tmax = math.Inf(+1)
		p    = [3]float64{pos.X, pos.Y, pos.Z}
		d    = [3]float64{dir.X, dir.Y, dir.Z}
		lo   = [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
		hi   = [3]float64{box.Max.X, box.Max.Y, box.Max.Z}
	)
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if p[i] < lo[i] || p[i] > hi[i] {
				return math.Inf(+1)
			}
			continue
		}
		t1 := (lo[i] - p[i]) / d[i]
		t2 := (hi[i] - p[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	switch {
	case tmax < tmin:
		return math.Inf(+1)
	case tmin > boundaryTolerance:
		return tmin
	case tmax > boundaryTolerance:
		return tmax
	}
	return math.Inf(+1)
}
