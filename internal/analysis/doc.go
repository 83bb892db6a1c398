// Package analysis inspects reduced bond graph systems numerically.
//
//   - [Linearize]: Jacobian and eigenvalues at an operating point
//   - [Linearization.MaxStableStep]: largest stable step per explicit method
//   - [SuggestStep]: step size proposed by the Dormand-Prince error controller
//   - [LyapunovExponent]: divergence rate of nearby trajectories
//   - [DominantFrequency]: strongest oscillation in a sampled series
//   - [PhasePortrait]: two state components of a trajectory, drawable as text
//
// A step larger than MaxStableStep makes the simulator fail with
// dynamo.ErrNumericalInstability:
//
//	lin, _ := analysis.Linearize(sys, x0, 0)
//	h, _ := lin.MaxStableStep("rk4")
package analysis
