package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/integrators"
)

// linear is dx/dt = A x.
type linear struct{ a [][]float64 }

func (l linear) StateDim() int { return len(l.a) }

func (l linear) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(l.a))
	for i, row := range l.a {
		for j, v := range row {
			dx[i] += v * x[j]
		}
	}
	return dx
}

var (
	decay       = linear{a: [][]float64{{-2}}}
	oscillator  = linear{a: [][]float64{{0, 1}, {-1, 0}}}
	springDampr = linear{a: [][]float64{{-0.25, -10}, {0.5, 0}}}
)

func TestLinearizeSpringDamper(t *testing.T) {
	lin, err := Linearize(springDampr, dynamo.State{3, 5}, 0)
	require.NoError(t, err)

	for i, row := range springDampr.a {
		for j, v := range row {
			assert.InDelta(t, v, lin.Jacobian.At(i, j), 1e-6)
		}
	}
	require.Len(t, lin.Eigenvalues, 2)
	wantIm := math.Sqrt(5 - 0.125*0.125)
	assert.InDelta(t, -0.125, real(lin.Eigenvalues[0]), 1e-9)
	assert.InDelta(t, -wantIm, imag(lin.Eigenvalues[0]), 1e-9)
	assert.InDelta(t, wantIm, imag(lin.Eigenvalues[1]), 1e-9)
	assert.True(t, lin.Stable())
	assert.InDeltaSlice(t, []float64{8, 8}, lin.TimeConstants(), 1e-6)
}

func TestMaxStableStep(t *testing.T) {
	tests := []struct {
		name   string
		sys    linear
		method string
		want   float64
	}{
		{"euler decay", decay, "euler", 1},
		{"heun decay", decay, "heun", 1},
		{"rk4 decay", decay, "rk4", 2.785293563 / 2},
		{"euler oscillator", oscillator, "euler", 0},
		{"heun oscillator", oscillator, "heun", 0},
		{"rk4 oscillator", oscillator, "rk4", 2 * math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lin, err := Linearize(tt.sys, make(dynamo.State, tt.sys.StateDim()), 0)
			require.NoError(t, err)
			h, err := lin.MaxStableStep(tt.method)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, h, 1e-4)
		})
	}
}

func TestMaxStableStepMatchesSimulation(t *testing.T) {
	lin, err := Linearize(decay, dynamo.State{1}, 0)
	require.NoError(t, err)
	h, err := lin.MaxStableStep("euler")
	require.NoError(t, err)

	run := func(dt float64) float64 {
		tr, err := dynamo.New(decay, integrators.NewEuler()).Run(context.Background(),
			dynamo.State{1}, dynamo.Config{StepNumber: 200, StepSize: dt})
		require.NoError(t, err)
		return math.Abs(tr.Final()[0])
	}
	assert.Less(t, run(0.9*h), 1.0)
	assert.Greater(t, run(1.1*h), 1.0)
}

func TestMaxStableStepUnknownMethod(t *testing.T) {
	lin, err := Linearize(decay, dynamo.State{1}, 0)
	require.NoError(t, err)
	_, err = lin.MaxStableStep("verlet")
	assert.Error(t, err)
}

func TestLinearizeEmptyAndMismatch(t *testing.T) {
	lin, err := Linearize(linear{}, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, lin.Jacobian)
	h, err := lin.MaxStableStep("rk4")
	require.NoError(t, err)
	assert.True(t, math.IsInf(h, 1))

	_, err = Linearize(decay, dynamo.State{1, 2}, 0)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
}

func TestSuggestStep(t *testing.T) {
	loose, err := SuggestStep(springDampr, dynamo.State{3, 5}, 0, 0.01, 1e-4)
	require.NoError(t, err)
	tight, err := SuggestStep(springDampr, dynamo.State{3, 5}, 0, 0.01, 1e-10)
	require.NoError(t, err)
	assert.Positive(t, tight)
	assert.Less(t, tight, loose)

	_, err = SuggestStep(springDampr, dynamo.State{3, 5}, 0, 0.01, 0)
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestLyapunovExponent(t *testing.T) {
	cfg := dynamo.Config{StepNumber: 500, StepSize: 0.01}
	lambda := LyapunovExponent(decay, integrators.NewRK4(), dynamo.State{1}, cfg, 1e-6)
	assert.InDelta(t, -2, lambda, 1e-3)

	assert.Zero(t, LyapunovExponent(decay, integrators.NewRK4(), nil, cfg, 1e-6))
}

func TestDominantFrequency(t *testing.T) {
	const dt, freq = 0.01, 2.0
	series := make([]float64, 1000)
	for i := range series {
		series[i] = 3 + math.Cos(2*math.Pi*freq*float64(i)*dt)
	}
	assert.InDelta(t, freq, DominantFrequency(series, dt), 0.1)
	assert.Zero(t, DominantFrequency(make([]float64, 100), dt))
	assert.Nil(t, PowerSpectrum([]float64{1}))
}

func TestPhasePortrait(t *testing.T) {
	tr, err := dynamo.New(oscillator, integrators.NewRK4()).Run(context.Background(),
		dynamo.State{1, 0}, dynamo.Config{StepNumber: 700, StepSize: 0.01})
	require.NoError(t, err)

	p, err := PhasePortrait(tr, 0, 1)
	require.NoError(t, err)
	assert.Len(t, p.Points, 701)
	assert.Equal(t, Point{X: 1, Y: 0}, p.Points[0])

	lo, hi := p.Bounds(0)
	assert.InDelta(t, -1, lo.X, 1e-3)
	assert.InDelta(t, 1, hi.Y, 1e-3)

	art := p.Plot(40, 20)
	assert.Equal(t, 20, strings.Count(art, "\n"))
	assert.Contains(t, art, "•")
	assert.Contains(t, art, "o")
	assert.Contains(t, art, "┼")
	assert.Empty(t, (&PhasePortrait2D{}).Plot(40, 20))

	_, err = PhasePortrait(tr, 0, 2)
	assert.ErrorIs(t, err, dynamo.ErrDimensionMismatch)
	_, err = PhasePortrait(nil, 0, 1)
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	cfg := dynamo.Config{StepNumber: 2000, StepSize: 0.01}
	r, err := Analyze(context.Background(), oscillator, integrators.NewRK4(), dynamo.State{1, 0}, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"euler", "heun", "rk4", "rk45"}, r.Methods())
	assert.Zero(t, r.StableSteps["euler"])
	assert.InDelta(t, 2*math.Sqrt2, r.StableSteps["rk4"], 1e-4)
	assert.Positive(t, r.SuggestedStep)
	assert.InDelta(t, 0, r.Lyapunov, 1e-3)
	require.Len(t, r.Frequencies, 2)
	assert.InDelta(t, 1/(2*math.Pi), r.Frequencies[0], 0.03)
}
