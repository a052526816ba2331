package matfx

import (
	"math"
	"testing"

	"github.com/sbinet/matfx/effects"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

func vecEqual(a, b r3.Vec, tol float64) bool {
	return scalar.EqualWithinAbs(a.X, b.X, tol) &&
		scalar.EqualWithinAbs(a.Y, b.Y, tol) &&
		scalar.EqualWithinAbs(a.Z, b.Z, tol)
}

func TestStraightLine(t *testing.T) {
	state := effects.NewState7(r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, -0.5)
	got, err := StraightLine{}.Propagate(state, math.Sqrt2, false)
	require.NoError(t, err)
	assert.True(t, vecEqual(r3.Vec{X: 2, Y: 1}, got.Pos(), 1e-12), "pos=%v", got.Pos())
	assert.Equal(t, state.Dir(), got.Dir())
	assert.Equal(t, -0.5, got.QOverP())
}

func TestHelix(t *testing.T) {
	var (
		h      = Helix{B: r3.Vec{Z: 2}}
		qop    = 0.5 // 2 GeV, q>0
		radius = 1 / (kLarmor * qop * 2)
		state  = effects.NewState7(r3.Vec{}, r3.Vec{X: 1}, qop)
	)
	require.InDelta(t, 333.564, radius, 1e-3)

	t.Run("quarter-turn", func(t *testing.T) {
		got, err := h.Propagate(state, radius*math.Pi/2, false)
		require.NoError(t, err)
		assert.True(t, vecEqual(r3.Vec{X: radius, Y: -radius}, got.Pos(), 1e-9), "pos=%v", got.Pos())
		assert.True(t, vecEqual(r3.Vec{Y: -1}, got.Dir(), 1e-12), "dir=%v", got.Dir())
		assert.Equal(t, qop, got.QOverP())
	})

	t.Run("negative-charge", func(t *testing.T) {
		neg := effects.NewState7(r3.Vec{}, r3.Vec{X: 1}, -qop)
		got, err := h.Propagate(neg, 1, false)
		require.NoError(t, err)
		assert.Greater(t, got.Pos().Y, 0.0)
	})

	t.Run("full-turn", func(t *testing.T) {
		got, err := h.Propagate(state, 2*math.Pi*radius, false)
		require.NoError(t, err)
		assert.True(t, vecEqual(state.Pos(), got.Pos(), 1e-9), "pos=%v", got.Pos())
	})

	t.Run("pitch", func(t *testing.T) {
		pitched := effects.NewState7(r3.Vec{}, r3.Vec{X: 1, Z: 1}, qop)
		got, err := h.Propagate(pitched, 100, false)
		require.NoError(t, err)
		assert.InDelta(t, 100/math.Sqrt2, got.Pos().Z, 1e-9, "motion along B is free")
		assert.InDelta(t, 1, r3.Norm(got.Dir()), 1e-12)
		assert.InDelta(t, 1/math.Sqrt2, got.Dir().Z, 1e-12)
	})

	t.Run("backward", func(t *testing.T) {
		fwd, err := h.Propagate(state, 123, false)
		require.NoError(t, err)
		back, err := h.Propagate(fwd, -123, false)
		require.NoError(t, err)
		assert.True(t, vecEqual(state.Pos(), back.Pos(), 1e-9))
		assert.True(t, vecEqual(state.Dir(), back.Dir(), 1e-12))
	})

	t.Run("no-field", func(t *testing.T) {
		got, err := Helix{}.Propagate(state, 10, false)
		require.NoError(t, err)
		assert.Equal(t, r3.Vec{X: 10}, got.Pos())
	})
}
