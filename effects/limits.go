package effects

import (
	"fmt"
	"math"
	"strings"
)

// LimitKind names the constraint that bounds a step.
type LimitKind int

const (
	NoLimit        LimitKind = iota
	FieldCurvature           // curvature of the track in the magnetic field
	MomentumLoss             // cumulative relative momentum loss
	SMax                     // maximum step requested by the propagator
	SMaxArg                  // maximum step requested by the caller
	Boundary                 // next material boundary
	Plane                    // destination plane

	numLimits
)

// MaxLimit is the magnitude held by limits that have not been set.
const MaxLimit = 99e99

var limitNames = [numLimits]string{
	NoLimit:        "none",
	FieldCurvature: "field-curvature",
	MomentumLoss:   "momentum-loss",
	SMax:           "s-max",
	SMaxArg:        "s-max-arg",
	Boundary:       "boundary",
	Plane:          "plane",
}

func (k LimitKind) String() string {
	if k < 0 || k >= numLimits {
		return fmt.Sprintf("LimitKind(%d)", int(k))
	}
	return limitNames[k]
}

// StepLimits holds the candidate step limits of one stepping call.
// Each limit is an unsigned magnitude; all share the same step sign.
type StepLimits struct {
	limits [numLimits]float64
	sign   float64
}

// NewStepLimits returns limits with no limit set and a positive step sign.
func NewStepLimits() *StepLimits {
	var l StepLimits
	l.Reset()
	return &l
}

// Reset unsets every limit and restores a positive step sign.
func (l *StepLimits) Reset() {
	for i := range l.limits {
		l.limits[i] = MaxLimit
	}
	l.sign = 1
}

// SetLimit sets the magnitude of the limit of kind k.
func (l *StepLimits) SetLimit(k LimitKind, v float64) {
	l.limits[k] = math.Abs(v)
}

// Limit returns the magnitude of the limit of kind k.
func (l *StepLimits) Limit(k LimitKind) float64 { return l.limits[k] }

// RemoveLimit unsets the limit of kind k.
func (l *StepLimits) RemoveLimit(k LimitKind) { l.limits[k] = MaxLimit }

// Lowest returns the kind and magnitude of the smallest limit.
// Ties are resolved in favour of the lowest kind.
func (l *StepLimits) Lowest() (LimitKind, float64) {
	kind := NoLimit
	low := MaxLimit
	for i := FieldCurvature; i < numLimits; i++ {
		if l.limits[i] < low {
			low = l.limits[i]
			kind = i
		}
	}
	return kind, low
}

// LowestValue returns the magnitude of the smallest limit.
func (l *StepLimits) LowestValue() float64 {
	_, v := l.Lowest()
	return v
}

// LowestSignedValue returns the effective (signed) step.
func (l *StepLimits) LowestSignedValue() float64 {
	return l.sign * l.LowestValue()
}

func (l *StepLimits) StepSign() float64 { return l.sign }

// SetStepSign sets the direction of travel from the sign of s.
func (l *StepLimits) SetStepSign(s float64) {
	if s < 0 {
		l.sign = -1
		return
	}
	l.sign = 1
}

func (l *StepLimits) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "StepLimits{sign=%+g", l.sign)
	for i := FieldCurvature; i < numLimits; i++ {
		if l.limits[i] >= MaxLimit {
			continue
		}
		fmt.Fprintf(&sb, ", %s=%g", i, l.limits[i])
	}
	sb.WriteString("}")
	return sb.String()
}
