package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + other[i]
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] - other[i]
	}
	return result
}

// System is an explicit ODE dx/dt = f(x, t). Derive must not retain x.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// Config describes a fixed-step run of StepNumber steps of StepSize
// starting at StartTime.
type Config struct {
	StepNumber int
	StepSize   float64
	StartTime  float64
}

const (
	DefaultStepNumber = 1000
	DefaultStepSize   = 0.01
)

func DefaultConfig() Config {
	return Config{
		StepNumber: DefaultStepNumber,
		StepSize:   DefaultStepSize,
	}
}

func (c Config) Validate() error {
	switch {
	case c.StepNumber < 0:
		return configError("step number must be non-negative, got %d", c.StepNumber)
	case math.IsNaN(c.StepSize) || math.IsInf(c.StepSize, 0) || c.StepSize <= 0:
		return configError("step size must be positive and finite, got %g", c.StepSize)
	case math.IsNaN(c.StartTime) || math.IsInf(c.StartTime, 0):
		return configError("start time must be finite, got %g", c.StartTime)
	}
	return nil
}

// Trajectory holds StepNumber+1 samples, the first being the initial state.
type Trajectory struct {
	Times       []float64
	States      []State
	EnergyDrift float64
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

func (tr *Trajectory) Final() State {
	if len(tr.States) == 0 {
		return nil
	}
	return tr.States[len(tr.States)-1]
}

// Series returns the i-th state component over time.
func (tr *Trajectory) Series(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, x := range tr.States {
		out[k] = x[i]
	}
	return out
}
