package effects

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized     = errors.New("effects: material interface not initialized")
	ErrAlreadyInitialized = errors.New("effects: material interface already initialized")
	ErrEnergyBelowMass    = errors.New("effects: energy <= mass")
	ErrBetheBlochInvalid  = errors.New("effects: beta*gamma < 0.05, Bethe-Bloch not valid")
	ErrMomentumLoss       = errors.New("effects: momentum loss >= momentum")
	ErrMomentumTooLow     = errors.New("effects: momentum too low")
	ErrUnknownMSCModel    = errors.New("effects: unknown multiple scattering model")
	ErrUnknownBremsTable  = errors.New("effects: unknown bremsstrahlung table")
	ErrStepRange          = errors.New("effects: invalid step range")
	ErrNoiseDimension     = errors.New("effects: noise matrix is not 7x7")
)

// Error records a failed engine operation.
// Every Error aborts the current trajectory: there is no recoverable case
// inside the engine.
type Error struct {
	Op  string // operation that failed (e.g. "dEdx", "LimitStep")
	Msg string // optional details
	Err error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the error must abort the trajectory fit.
func (e *Error) Fatal() bool { return true }

// IsFatal reports whether err, or any error it wraps, was raised by the
// engine and must abort the current trajectory.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Fatal()
	}
	return false
}

func fatalf(op string, err error, format string, args ...any) error {
	return &Error{Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}
