package dynamo

import (
	"context"
	"fmt"
	"math"
)

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
}

type Simulator struct {
	sys        System
	integrator Integrator
}

func New(sys System, integrator Integrator) *Simulator {
	return &Simulator{sys: sys, integrator: integrator}
}

// Run integrates cfg.StepNumber fixed steps from x0. The result is all or
// nothing: a non-finite derivative or state discards the samples gathered
// so far.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Trajectory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x0) != s.sys.StateDim() {
		return nil, fmt.Errorf("%w: state has %d components, system expects %d",
			ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	if !x0.IsValid() {
		return nil, ErrInvalidState
	}

	tr := &Trajectory{
		Times:  make([]float64, 0, cfg.StepNumber+1),
		States: make([]State, 0, cfg.StepNumber+1),
	}
	guard := &guarded{sys: s.sys}

	x := x0.Clone()
	tr.Times = append(tr.Times, cfg.StartTime)
	tr.States = append(tr.States, x.Clone())

	initialEnergy := s.computeEnergy(x)

	for i := 0; i < cfg.StepNumber; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err())
		default:
		}

		t := cfg.StartTime + float64(i)*cfg.StepSize
		next := s.integrator.Step(guard, x, t, cfg.StepSize)
		if guard.tripped || !next.IsValid() {
			return nil, &NumericalInstabilityError{Step: i, Time: t, State: x.Clone()}
		}

		x = next
		tr.Times = append(tr.Times, cfg.StartTime+float64(i+1)*cfg.StepSize)
		tr.States = append(tr.States, x.Clone())
	}

	finalEnergy := s.computeEnergy(x)
	if initialEnergy != 0 {
		tr.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}
	return tr, nil
}

func (s *Simulator) computeEnergy(x State) float64 {
	if h, ok := s.sys.(Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// guarded records whether any derivative evaluated during a run was
// non-finite, including the intermediate stages of an integrator step.
type guarded struct {
	sys     System
	tripped bool
}

func (g *guarded) Derive(x State, t float64) State {
	dx := g.sys.Derive(x, t)
	if !dx.IsValid() {
		g.tripped = true
	}
	return dx
}

func (g *guarded) StateDim() int { return g.sys.StateDim() }
