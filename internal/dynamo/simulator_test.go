package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
)

type decay struct{}

func (decay) Derive(x State, t float64) State { return State{-x[0]} }
func (decay) StateDim() int                   { return 1 }
func (decay) Energy(x State) float64          { return x[0] * x[0] / 2 }

type blowup struct{ at float64 }

func (b blowup) Derive(x State, t float64) State {
	if t >= b.at {
		return State{math.Inf(1)}
	}
	return State{1}
}
func (blowup) StateDim() int { return 1 }

type euler struct{}

func (euler) Step(sys System, x State, t, dt float64) State {
	return x.Add(sys.Derive(x, t).Scale(dt))
}

func TestSimulatorRun(t *testing.T) {
	sim := New(decay{}, euler{})

	tr, err := sim.Run(context.Background(), State{1.0}, Config{StepNumber: 10, StepSize: 0.1})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if tr.Len() != 11 {
		t.Errorf("expected 11 samples, got %d", tr.Len())
	}
	if math.Abs(tr.Times[10]-1.0) > 1e-12 {
		t.Errorf("expected final time 1.0, got %f", tr.Times[10])
	}

	expected := math.Exp(-1.0)
	if math.Abs(tr.Final()[0]-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, tr.Final()[0])
	}
	if tr.EnergyDrift <= 0 {
		t.Error("expected energy drift for a dissipative system")
	}
}

func TestSimulatorZeroSteps(t *testing.T) {
	sim := New(decay{}, euler{})
	tr, err := sim.Run(context.Background(), State{2.5}, Config{StepNumber: 0, StepSize: 0.1, StartTime: 3})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if tr.Len() != 1 || tr.Times[0] != 3 || tr.States[0][0] != 2.5 {
		t.Errorf("expected only the initial sample, got %v %v", tr.Times, tr.States)
	}
}

func TestSimulatorIsRepeatable(t *testing.T) {
	sim := New(decay{}, euler{})
	cfg := Config{StepNumber: 50, StepSize: 0.03}
	a, _ := sim.Run(context.Background(), State{1}, cfg)
	b, _ := sim.Run(context.Background(), State{1}, cfg)
	for i := range a.States {
		if a.States[i][0] != b.States[i][0] || a.Times[i] != b.Times[i] {
			t.Fatalf("runs differ at sample %d", i)
		}
	}
}

func TestSimulatorDoesNotAliasInitialState(t *testing.T) {
	x0 := State{1}
	tr, _ := New(decay{}, euler{}).Run(context.Background(), x0, Config{StepNumber: 3, StepSize: 0.1})
	tr.States[0][0] = 42
	if x0[0] != 1 {
		t.Error("trajectory aliases the initial state")
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(decay{}, euler{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero step size", Config{StepNumber: 10, StepSize: 0}},
		{"negative step size", Config{StepNumber: 10, StepSize: -0.1}},
		{"infinite step size", Config{StepNumber: 10, StepSize: math.Inf(1)}},
		{"nan step size", Config{StepNumber: 10, StepSize: math.NaN()}},
		{"negative steps", Config{StepNumber: -1, StepSize: 0.1}},
		{"nan start", Config{StepNumber: 1, StepSize: 0.1, StartTime: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), State{1.0}, tt.cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSimulatorRejectsBadInitialState(t *testing.T) {
	sim := New(decay{}, euler{})
	cfg := Config{StepNumber: 1, StepSize: 0.1}

	if _, err := sim.Run(context.Background(), State{1, 2}, cfg); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := sim.Run(context.Background(), State{math.NaN()}, cfg); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSimulatorNumericalInstability(t *testing.T) {
	sim := New(blowup{at: 0.5}, euler{})

	tr, err := sim.Run(context.Background(), State{0}, Config{StepNumber: 100, StepSize: 0.1})
	if tr != nil {
		t.Error("expected the partial trajectory to be discarded")
	}
	var ie *NumericalInstabilityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if !errors.Is(err, ErrNumericalInstability) {
		t.Error("expected error to match ErrNumericalInstability")
	}
	if ie.Step != 5 {
		t.Errorf("expected failure at step 5, got %d", ie.Step)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(decay{}, euler{}).Run(ctx, State{1}, Config{StepNumber: 10, StepSize: 0.1})
	if !errors.Is(err, ErrContextCanceled) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	sizes := []float64{0.1, 0.05, -1, 0.01}
	results := Sweep(context.Background(), decay{}, func() Integrator { return euler{} },
		State{1}, Config{StepNumber: 10}, sizes)

	if len(results) != len(sizes) {
		t.Fatalf("expected %d results, got %d", len(sizes), len(results))
	}
	for i, r := range results {
		if r.StepSize != sizes[i] {
			t.Errorf("result %d out of order", i)
		}
	}
	if !errors.Is(results[2].Err, ErrInvalidConfig) {
		t.Errorf("expected invalid config for negative size, got %v", results[2].Err)
	}
	if results[3].Trajectory == nil || results[3].Trajectory.Len() != 11 {
		t.Error("expected a full trajectory for the smallest step")
	}
}

func TestTrajectorySeries(t *testing.T) {
	tr := &Trajectory{Times: []float64{0, 1}, States: []State{{1, 2}, {3, 4}}}
	got := tr.Series(1)
	if got[0] != 2 || got[1] != 4 {
		t.Errorf("unexpected series %v", got)
	}
	if (&Trajectory{}).Final() != nil {
		t.Error("expected nil final state for an empty trajectory")
	}
}
