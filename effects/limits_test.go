package effects_test

import (
	"testing"

	"github.com/sbinet/matfx/effects"
	"github.com/stretchr/testify/assert"
)

func TestStepLimits(t *testing.T) {
	l := effects.NewStepLimits()

	kind, v := l.Lowest()
	assert.Equal(t, effects.NoLimit, kind)
	assert.Equal(t, effects.MaxLimit, v)
	assert.Equal(t, 1.0, l.StepSign())
	assert.Equal(t, "StepLimits{sign=+1}", l.String())

	l.SetLimit(effects.SMax, 12)
	l.SetLimit(effects.Boundary, -3)
	l.SetLimit(effects.Plane, 3)

	assert.Equal(t, 3.0, l.Limit(effects.Boundary), "limits are magnitudes")
	kind, v = l.Lowest()
	assert.Equal(t, effects.Boundary, kind, "ties go to the lowest kind")
	assert.Equal(t, 3.0, v)

	l.SetStepSign(-0.5)
	assert.Equal(t, -1.0, l.StepSign())
	assert.Equal(t, -3.0, l.LowestSignedValue())
	assert.Equal(t, 3.0, l.LowestValue())

	l.RemoveLimit(effects.Boundary)
	kind, _ = l.Lowest()
	assert.Equal(t, effects.Plane, kind)
	assert.Equal(t, "StepLimits{sign=-1, s-max=12, plane=3}", l.String())

	l.Reset()
	assert.Equal(t, effects.MaxLimit, l.LowestValue())
	assert.Equal(t, 1.0, l.StepSign())
}

func TestLimitKindString(t *testing.T) {
	for _, tc := range []struct {
		kind effects.LimitKind
		want string
	}{
		{effects.NoLimit, "none"},
		{effects.FieldCurvature, "field-curvature"},
		{effects.MomentumLoss, "momentum-loss"},
		{effects.SMax, "s-max"},
		{effects.SMaxArg, "s-max-arg"},
		{effects.Boundary, "boundary"},
		{effects.Plane, "plane"},
		{effects.LimitKind(42), "LimitKind(42)"},
	} {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}
