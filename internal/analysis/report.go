package analysis

import (
	"context"
	"sort"

	"github.com/san-kum/bondsim/internal/dynamo"
)

// Report summarizes the linear behaviour of a system around its initial
// state and checks it against a short run.
type Report struct {
	Linearization *Linearization
	StableSteps   map[string]float64
	SuggestedStep float64
	StepSize      float64
	Lyapunov      float64
	Frequencies   []float64
	Trajectory    *dynamo.Trajectory
}

// Methods returns the StableSteps keys in order.
func (r *Report) Methods() []string {
	names := make([]string, 0, len(r.StableSteps))
	for name := range r.StableSteps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze linearizes sys at x0, bounds the stable step of every known
// method, and simulates cfg with integ for the per-state dominant
// frequencies.
func Analyze(ctx context.Context, sys dynamo.System, integ dynamo.Integrator, x0 dynamo.State, cfg dynamo.Config) (*Report, error) {
	lin, err := Linearize(sys, x0, cfg.StartTime)
	if err != nil {
		return nil, err
	}
	r := &Report{
		Linearization: lin,
		StableSteps:   make(map[string]float64, len(stability)),
		StepSize:      cfg.StepSize,
	}
	for name := range stability {
		h, err := lin.MaxStableStep(name)
		if err != nil {
			return nil, err
		}
		r.StableSteps[name] = h
	}
	if r.SuggestedStep, err = SuggestStep(sys, x0, cfg.StartTime, cfg.StepSize, 1e-6); err != nil {
		return nil, err
	}

	tr, err := dynamo.New(sys, integ).Run(ctx, x0, cfg)
	if err != nil {
		return nil, err
	}
	r.Trajectory = tr
	r.Lyapunov = LyapunovExponent(sys, integ, x0, cfg, 1e-8)
	for i := 0; i < sys.StateDim(); i++ {
		r.Frequencies = append(r.Frequencies, DominantFrequency(tr.Series(i), cfg.StepSize))
	}
	return r, nil
}
