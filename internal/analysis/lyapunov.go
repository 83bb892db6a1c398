package analysis

import (
	"math"

	"github.com/san-kum/bondsim/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent by following a
// perturbed copy of the trajectory and renormalizing the separation to its
// initial size after every step:
//
//	λ ≈ (1/T) Σ ln(|δx_k| / |δx_0|)
//
// For a linear system it approaches the largest real part of the
// eigenvalues, so it cross-checks Linearize on short runs.
func LyapunovExponent(
	sys dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	cfg dynamo.Config,
	perturbation float64,
) float64 {
	if len(x0) == 0 || cfg.StepNumber == 0 || perturbation <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation

	sumLog := 0.0
	count := 0
	for i := 0; i < cfg.StepNumber; i++ {
		t := cfg.StartTime + float64(i)*cfg.StepSize
		x = integ.Step(sys, x, t, cfg.StepSize)
		xp = integ.Step(sys, xp, t, cfg.StepSize)

		sep := xp.Sub(x).Norm()
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			break
		}
		sumLog += math.Log(sep / perturbation)
		count++

		scale := perturbation / sep
		for k := range xp {
			xp[k] = x[k] + (xp[k]-x[k])*scale
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * cfg.StepSize)
}
