package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/bondsim/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step advances with the fifth-order Dormand-Prince solution at the given
// step size. The embedded error estimate is not used.
func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	xNew, _ := r.stages(sys, x, t, dt)
	return xNew
}

// StepAdaptive also returns the step size that would bring the local error
// estimate to tol.
func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, dt, tol float64) (dynamo.State, float64, error) {
	if tol <= 0 {
		return nil, 0, fmt.Errorf("%w: tolerance must be positive, got %g", dynamo.ErrInvalidConfig, tol)
	}
	xNew, k := r.stages(sys, x, t, dt)
	k1, k3, k4, k5, k6 := k[0], k[2], k[3], k[4], k[5]
	k7 := sys.Derive(xNew, t+dt)

	errMax := 0.0
	for i := range x {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := math.Abs(x[i]) + math.Abs(dt*k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dtNew = dt * scale
	} else {
		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			dtNew = dt * scale
		} else {
			dtNew = dt * r.maxScale
		}
	}

	return xNew, dtNew, nil
}

func (r *RK45) stages(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, [6]dynamo.State) {
	n := len(x)
	var k [6]dynamo.State
	stage := func(coef ...float64) dynamo.State {
		xs := make(dynamo.State, n)
		for i := 0; i < n; i++ {
			acc := 0.0
			for j, c := range coef {
				acc += c * k[j][i]
			}
			xs[i] = x[i] + dt*acc
		}
		return xs
	}

	k[0] = sys.Derive(x, t)
	k[1] = sys.Derive(stage(b21), t+a2*dt)
	k[2] = sys.Derive(stage(b31, b32), t+a3*dt)
	k[3] = sys.Derive(stage(b41, b42, b43), t+a4*dt)
	k[4] = sys.Derive(stage(b51, b52, b53, b54), t+a5*dt)
	k[5] = sys.Derive(stage(b61, b62, b63, b64, b65), t+dt)

	return stage(c1, 0, c3, c4, c5, c6), k
}
