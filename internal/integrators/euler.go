package integrators

import "github.com/san-kum/bondsim/internal/dynamo"

// Euler is the explicit first-order method. It is only stable for steps
// well inside the stability region of the fastest mode.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return advance(make(dynamo.State, len(x)), x, dt, sys.Derive(x, t))
}
