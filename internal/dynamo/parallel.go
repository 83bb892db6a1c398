package dynamo

import (
	"context"
	"sync"
)

// SweepResult is the outcome of one step size of a sweep.
type SweepResult struct {
	StepSize   float64
	Trajectory *Trajectory
	Err        error
}

// Sweep runs sys once per step size, concurrently. Every run gets its own
// integrator from newIntegrator so stateful integrators never share
// scratch buffers. Results keep the order of sizes; a failing run does not
// stop the others.
func Sweep(ctx context.Context, sys System, newIntegrator func() Integrator, x0 State, cfg Config, sizes []float64) []SweepResult {
	results := make([]SweepResult, len(sizes))

	var wg sync.WaitGroup
	for i, h := range sizes {
		wg.Add(1)
		go func(idx int, h float64) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.StepSize = h

			s := New(sys, newIntegrator())
			tr, err := s.Run(ctx, x0, cfgCopy)
			results[idx] = SweepResult{StepSize: h, Trajectory: tr, Err: err}
		}(i, h)
	}

	wg.Wait()
	return results
}
