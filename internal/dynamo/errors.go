package dynamo

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig indicates a step size or step count the simulator cannot use.
	ErrInvalidConfig = errors.New("dynamo: invalid simulation config")

	// ErrInvalidState indicates an initial state holding NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNumericalInstability indicates a non-finite derivative or state during integration.
	ErrNumericalInstability = errors.New("dynamo: numerical instability")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates an initial state that does not fit the system.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// NumericalInstabilityError reports the step at which integration produced
// a non-finite value. Time is the start of the failing step.
type NumericalInstabilityError struct {
	Step  int
	Time  float64
	State State
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("dynamo: non-finite value at step %d (t=%.4f)", e.Step, e.Time)
}

func (e *NumericalInstabilityError) Unwrap() error {
	return ErrNumericalInstability
}
