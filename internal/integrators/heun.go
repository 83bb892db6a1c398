package integrators

import "github.com/san-kum/bondsim/internal/dynamo"

// Heun is the explicit trapezoidal method: an Euler predictor followed by
// an averaged corrector.
type Heun struct {
	k1, scratch dynamo.State
}

func NewHeun() *Heun {
	return &Heun{}
}

func (h *Heun) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	h.k1, h.scratch = resize(h.k1, n), resize(h.scratch, n)

	copy(h.k1, sys.Derive(x, t))
	k2 := sys.Derive(advance(h.scratch, x, dt, h.k1), t+dt)

	next := make(dynamo.State, n)
	for i := range next {
		next[i] = x[i] + 0.5*dt*(h.k1[i]+k2[i])
	}
	return next
}
