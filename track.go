// Package matfx extrapolates charged tracks through geometries of materials,
// using the effects engine for energy loss and multiple scattering.
package matfx

import (
	"bytes"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/sbinet/matfx/effects"
	"github.com/sbinet/matfx/pdg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrPlaneUnreachable = errors.New("matfx: target plane is unreachable")
	ErrTooManySteps     = errors.New("matfx: too many steps")
)

// Plane is the surface where the extrapolation of a track ends.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// distance returns the straight line distance from pos to the plane along
// dir, and whether dir crosses the plane at all.
func (p Plane) distance(pos, dir r3.Vec) (float64, bool) {
	den := r3.Dot(dir, p.Normal)
	if den == 0 {
		return math.Inf(+1), false
	}
	return r3.Dot(r3.Sub(p.Point, pos), p.Normal) / den, true
}

// height returns the signed distance from the plane to pos, along its normal.
func (p Plane) height(pos r3.Vec) float64 {
	return r3.Dot(r3.Sub(pos, p.Point), p.Normal) / r3.Norm(p.Normal)
}

// Track is a charged particle extrapolated through matter.
type Track struct {
	Event     int64
	PDG       int
	Charge    float64 // in units of e
	Momentum  float64 // in GeV
	Position  r3.Vec  // in cm
	Direction r3.Vec
	Length    float64 // travelled path length, in cm
	Steps     int
	Stopped   bool          // the particle ranged out
	Lost      bool          // the trajectory turned away from the target plane
	Noise     *mat.SymDense // 7x7 process noise accumulated along the track

	init effects.State7
	mom0 float64
}

// NewTrack creates a track for particle id at pos, heading along dir with
// momentum mom (GeV).
func NewTrack(evt int64, id int, pos, dir r3.Vec, mom float64) (*Track, error) {
	p, err := pdg.Lookup(id)
	if err != nil {
		return nil, err
	}
	if mom <= 0 {
		return nil, fmt.Errorf("matfx: invalid momentum %g GeV", mom)
	}
	trk := &Track{
		Event:     evt,
		PDG:       id,
		Charge:    p.Charge,
		Momentum:  mom,
		Position:  pos,
		Direction: r3.Unit(dir),
		Noise:     mat.NewSymDense(len(effects.State7{}), nil),
	}
	trk.init = trk.State()
	trk.mom0 = mom
	return trk, nil
}

// State returns the global state of the track.
func (trk *Track) State() effects.State7 {
	return effects.NewState7(trk.Position, trk.Direction, trk.Charge/trk.Momentum)
}

// Generator draws the initial state of tracks: a position uniformly spread
// over a square at a given height, pointing to a square around the origin.
type Generator struct {
	PDG         int     // particle identifier; the sign is drawn when Charged is set
	Charged     bool    // draw the charge sign uniformly
	MinMomentum float64 // in GeV
	MaxMomentum float64 // in GeV
	Height      float64 // y of the generation square, in cm
	Source      float64 // half-size of the generation square, in cm
	Target      float64 // half-size of the target square at y=0, in cm
}

// Generate creates the track of event evt.
func (gen Generator) Generate(evt int64, rng *rand.Rand) (*Track, error) {
	mom := gen.MinMomentum + rng.Float64()*(gen.MaxMomentum-gen.MinMomentum)

	id := gen.PDG
	if gen.Charged && rng.Float64() < 0.5 {
		id = -id
	}

	pos := r3.Vec{
		X: (2*rng.Float64() - 1) * gen.Source,
		Y: gen.Height,
		Z: (2*rng.Float64() - 1) * gen.Source,
	}
	target := r3.Vec{
		X: (2*rng.Float64() - 1) * gen.Target,
		Z: (2*rng.Float64() - 1) * gen.Target,
	}

	return NewTrack(evt, id, pos, r3.Sub(target, pos), mom)
}

// Stepper extrapolates tracks through the material known to its engine,
// accumulating the momentum loss and the process noise.
type Stepper struct {
	Engine     *effects.Engine
	Propagator effects.Propagator // straight lines when nil
	MaxStep    float64 // in cm
	MaxSteps   int

	Log *slog.Logger
}

const (
	planeTolerance = 1e-6 // in cm
	maxPlaneSearch = 60   // bisections of a step crossing the target plane
)

// Extrapolate moves trk to the target plane.
//
// Steps are bounded by the engine and grouped in segments of at most
// effects.MaxRelMomentumLoss relative momentum loss: the momentum and the
// noise are updated at the end of each segment.
// A particle ranging out is flagged as stopped; this is not an error.
// A trajectory heading away from the plane, from the start or after being
// bent by the field, is flagged as lost and ErrPlaneUnreachable is returned.
func (st *Stepper) Extrapolate(trk *Track, target Plane) error {
	var (
		state   = trk.State()
		limits  = effects.NewStepLimits()
		records []effects.StepRecord
		relLoss = 0.0
		prop    = st.Propagator
	)
	if prop == nil {
		prop = StraightLine{}
	}

	h0 := target.height(state.Pos())
	if h0 == 0 {
		return nil
	}

	flush := func() error {
		if len(records) == 0 {
			return nil
		}
		loss, err := st.Engine.Effects(records, 0, len(records), trk.Momentum, trk.PDG, trk.Noise)
		records = records[:0]
		relLoss = 0
		if err != nil {
			return err
		}
		trk.Momentum -= loss
		state[6] = trk.Charge / trk.Momentum
		return nil
	}

	defer func() {
		trk.Position = state.Pos()
		trk.Direction = state.Dir()
	}()

	for {
		h := target.height(state.Pos())
		if math.Abs(h) <= planeTolerance || h*h0 < 0 {
			break
		}
		dist, ok := target.distance(state.Pos(), state.Dir())
		if !ok || dist <= 0 {
			err := flush()
			if err != nil {
				return st.stop(trk, err)
			}
			trk.Lost = true
			return fmt.Errorf(
				"%w (event=%d, height=%g cm, direction=%v)",
				ErrPlaneUnreachable, trk.Event, h, state.Dir(),
			)
		}
		if trk.Steps >= st.MaxSteps {
			return fmt.Errorf("%w (event=%d, steps=%d)", ErrTooManySteps, trk.Event, trk.Steps)
		}

		limits.Reset()
		limits.SetLimit(effects.SMax, st.MaxStep)
		limits.SetLimit(effects.Plane, dist)

		var current effects.Material
		err := st.Engine.LimitStep(effects.StepRequest{
			Propagator: prop,
			State:      state,
			Momentum:   trk.Momentum,
			PDG:        trk.PDG,
		}, limits, &relLoss, &current)
		if err != nil {
			return st.stop(trk, err)
		}

		kind, step := limits.Lowest()
		if step == 0 {
			err = flush()
			if err != nil {
				return st.stop(trk, err)
			}
			continue
		}

		next, err := prop.Propagate(state, step, false)
		if err != nil {
			return fmt.Errorf("matfx: could not propagate event %d: %w", trk.Event, err)
		}
		if hn := target.height(next.Pos()); hn*h < 0 && math.Abs(hn) > planeTolerance {
			// a curved trajectory crossed the plane within the step.
			step, next, err = crossing(prop, state, step, target)
			if err != nil {
				return fmt.Errorf("matfx: could not propagate event %d: %w", trk.Event, err)
			}
			kind = effects.Plane
		}
		records = append(records, effects.StepRecord{
			State:    state,
			Material: current,
			Length:   step,
		})
		state = next
		trk.Length += step
		trk.Steps++

		if st.Log != nil {
			st.Log.Debug("step",
				"event", trk.Event, "step", trk.Steps, "limit", kind,
				"length", step, "material", current,
			)
		}

		if kind == effects.MomentumLoss {
			err = flush()
			if err != nil {
				return st.stop(trk, err)
			}
		}
	}

	err := flush()
	if err != nil {
		return st.stop(trk, err)
	}
	return nil
}

// crossing returns the path length from state to the target plane, which
// the trajectory crosses within step, and the state on the plane.
func crossing(prop effects.Propagator, state effects.State7, step float64, target Plane) (float64, effects.State7, error) {
	var (
		h0     = target.height(state.Pos())
		lo, hi = 0.0, step
		next   effects.State7
		err    error
	)
	for i := 0; i < maxPlaneSearch; i++ {
		mid := 0.5 * (lo + hi)
		next, err = prop.Propagate(state, mid, false)
		if err != nil {
			return 0, next, err
		}
		h := target.height(next.Pos())
		switch {
		case math.Abs(h) <= planeTolerance:
			return mid, next, nil
		case h*h0 > 0:
			lo = mid
		default:
			hi = mid
		}
	}
	next, err = prop.Propagate(state, hi, false)
	return hi, next, err
}

// stop flags trk as stopped when err reports a particle ranging out.
func (st *Stepper) stop(trk *Track, err error) error {
	switch {
	case errors.Is(err, effects.ErrMomentumLoss),
		errors.Is(err, effects.ErrMomentumTooLow),
		errors.Is(err, effects.ErrBetheBlochInvalid),
		errors.Is(err, effects.ErrEnergyBelowMass):
		trk.Stopped = true
		trk.Momentum = 0
		if st.Log != nil {
			st.Log.Debug("particle stopped", "event", trk.Event, "reason", err)
		}
		return nil
	}
	return fmt.Errorf("matfx: could not extrapolate event %d: %w", trk.Event, err)
}

// Result is the outcome of the extrapolation of one track.
type Result struct {
	ID        [sha512.Size384]byte
	Event     int64
	PDG       int64
	Momentum0 float64 // initial momentum, in GeV
	Momentum  float64 // final momentum, in GeV
	Position  r3.Vec
	Direction r3.Vec
	Length    float64
	Steps     int64
	Stopped   bool
	Lost      bool
	Sigma     [7]float64 // square root of the diagonal of the process noise
}

// Result returns the result of the extrapolation of trk.
// The id is a digest of the initial state of the track.
func (trk *Track) Result() Result {
	res := Result{
		Event:     trk.Event,
		PDG:       int64(trk.PDG),
		Momentum0: trk.mom0,
		Momentum:  trk.Momentum,
		Position:  trk.Position,
		Direction: trk.Direction,
		Length:    trk.Length,
		Steps:     int64(trk.Steps),
		Stopped:   trk.Stopped,
		Lost:      trk.Lost,
	}

	var buf [8 * (1 + len(effects.State7{}))]byte
	binary.LittleEndian.PutUint64(buf[:8], uint64(trk.Event))
	for i, v := range trk.init {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], math.Float64bits(v))
	}
	res.ID = sha512.Sum384(buf[:])

	for i := range res.Sigma {
		res.Sigma[i] = math.Sqrt(math.Max(trk.Noise.At(i, i), 0))
	}
	return res
}

// ResultSize is the size of an encoded Result, in bytes.
var ResultSize = binary.Size(Result{})

func (res Result) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, ResultSize))
	err := binary.Write(buf, binary.LittleEndian, &res)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (res *Result) UnmarshalBinary(data []byte) error {
	if len(data) != ResultSize {
		return fmt.Errorf("matfx: invalid result size (got=%d, want=%d)", len(data), ResultSize)
	}
	return binary.Read(bytes.NewReader(data), binary.LittleEndian, res)
}

// ReadResults decodes the results stored back-to-back in r.
func ReadResults(r io.Reader) ([]Result, error) {
	var (
		out []Result
		buf = make([]byte, ResultSize)
	)
	for {
		_, err := io.ReadFull(r, buf)
		switch {
		case errors.Is(err, io.EOF):
			return out, nil
		case err != nil:
			return out, fmt.Errorf("matfx: could not read result #%d: %w", len(out), err)
		}
		var res Result
		err = res.UnmarshalBinary(buf)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
}
