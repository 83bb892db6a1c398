package integrators

import "github.com/san-kum/bondsim/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method. Stage vectors are
// reused between steps, so one RK4 must not step two systems concurrently.
type RK4 struct {
	k       [4]dynamo.State
	scratch dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	for i := range r.k {
		r.k[i] = resize(r.k[i], n)
	}
	r.scratch = resize(r.scratch, n)
	half := 0.5 * dt

	copy(r.k[0], sys.Derive(x, t))
	copy(r.k[1], sys.Derive(advance(r.scratch, x, half, r.k[0]), t+half))
	copy(r.k[2], sys.Derive(advance(r.scratch, x, half, r.k[1]), t+half))
	copy(r.k[3], sys.Derive(advance(r.scratch, x, dt, r.k[2]), t+dt))

	next := make(dynamo.State, n)
	for i := range next {
		next[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return next
}
