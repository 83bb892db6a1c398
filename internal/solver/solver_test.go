package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/equations"
	"github.com/san-kum/bondsim/internal/expr"
	"github.com/san-kum/bondsim/internal/integrators"
)

func assemble(t *testing.T, elements []bondgraph.Element, bonds [][2]string, opts ...causality.Option) *equations.Set {
	t.Helper()
	g, err := bondgraph.Build(t.Name(), elements, bonds)
	require.NoError(t, err)
	a, err := causality.Assign(g, opts...)
	require.NoError(t, err)
	set, err := equations.Assemble(g, a)
	require.NoError(t, err)
	return set
}

func compile(t *testing.T, set *equations.Set) *Compiled {
	t.Helper()
	space, err := Reduce(set)
	require.NoError(t, err)
	sys, err := space.Compile()
	require.NoError(t, err)
	return sys
}

func outputsByName(sys *Compiled, x dynamo.State, tm float64) map[string]float64 {
	out := make(map[string]float64)
	for i, v := range sys.Outputs(x, tm) {
		out[sys.OutputNames()[i]] = v
	}
	return out
}

func TestReduceSpringDamper(t *testing.T) {
	sys := compile(t, assemble(t, []bondgraph.Element{
		bondgraph.Se("Se", expr.N(9.81)),
		bondgraph.I("I", 2, 3),
		bondgraph.C("C", 0.1, 5),
		bondgraph.R("R", 0.5),
		bondgraph.J1("1"),
	}, [][2]string{{"Se", "1"}, {"1", "I"}, {"1", "C"}, {"1", "R"}}))

	assert.Equal(t, []string{"p_I", "q_C"}, sys.StateNames())
	assert.Equal(t, 2, sys.StateDim())
	x0 := dynamo.State(sys.Space().InitialState())
	assert.Equal(t, dynamo.State{3, 5}, x0)

	dx := sys.Derive(x0, 0)
	assert.InDelta(t, 9.81-50-0.75, dx[0], 1e-12)
	assert.InDelta(t, 1.5, dx[1], 1e-12)
	assert.InDelta(t, 125+2.25, sys.Energy(x0), 1e-12)

	y := outputsByName(sys, x0, 0)
	assert.Len(t, y, 8)
	assert.InDelta(t, 1.5, y["f1"], 1e-12)
	assert.InDelta(t, 0.75, y["e4"], 1e-12)
	assert.Len(t, sys.Space().Equations(), 2)
}

func TestReduceController(t *testing.T) {
	law := expr.Prod(expr.N(5), expr.Minus(expr.N(10), expr.S("D_f")))
	sys := compile(t, assemble(t, []bondgraph.Element{
		bondgraph.Se("S_e", expr.Fn("sin", expr.S(expr.Time))),
		bondgraph.I("I", 2, 0),
		bondgraph.Df("D_f"),
		bondgraph.Ge("G_e", law),
		bondgraph.J1("1"),
	}, [][2]string{{"G_e", "1"}, {"1", "D_f"}, {"1", "I"}, {"S_e", "1"}}))

	assert.InDelta(t, 50, sys.Derive(dynamo.State{0}, 0)[0], 1e-12)
	assert.InDelta(t, 45+math.Sin(1), sys.Derive(dynamo.State{2}, 1)[0], 1e-12)
}

// Se -> 1 -> R and 1 -> 0 -> C charges q toward C*E.
func TestRCChargeFollowsAnalyticCurve(t *testing.T) {
	const capacitance, resistance, source = 2.0, 0.5, 3.0
	sys := compile(t, assemble(t, []bondgraph.Element{
		bondgraph.Se("Se", expr.N(source)),
		bondgraph.R("R", resistance),
		bondgraph.C("C", capacitance, 0),
		bondgraph.J1("1"),
		bondgraph.J0("0"),
	}, [][2]string{{"Se", "1"}, {"1", "R"}, {"1", "0"}, {"0", "C"}}))

	tests := []struct {
		integrator string
		tolerance  float64
	}{
		{"euler", 5e-2},
		{"heun", 1e-4},
		{"rk4", 1e-8},
	}
	for _, tt := range tests {
		t.Run(tt.integrator, func(t *testing.T) {
			integ, err := integrators.New(tt.integrator)
			require.NoError(t, err)
			tr, err := dynamo.New(sys, integ).Run(context.Background(), dynamo.State{0},
				dynamo.Config{StepNumber: 100, StepSize: 0.01})
			require.NoError(t, err)
			require.Equal(t, 101, tr.Len())
			for k, tm := range tr.Times {
				want := capacitance * source * (1 - math.Exp(-tm/(resistance*capacitance)))
				assert.InDelta(t, want, tr.States[k][0], tt.tolerance, "t=%g", tm)
			}
		})
	}
}

func TestRLDecayIsMonotonic(t *testing.T) {
	sys := compile(t, assemble(t, []bondgraph.Element{
		bondgraph.I("I", 1.5, 4),
		bondgraph.R("R", 0.8),
		bondgraph.J1("1"),
	}, [][2]string{{"1", "I"}, {"1", "R"}}))

	tr, err := dynamo.New(sys, integrators.NewRK4()).Run(context.Background(),
		dynamo.State(sys.Space().InitialState()), dynamo.Config{StepNumber: 500, StepSize: 0.05})
	require.NoError(t, err)

	p := tr.Series(0)
	for k := 1; k < len(p); k++ {
		assert.Less(t, p[k], p[k-1])
		assert.Greater(t, p[k], 0.0)
	}
	assert.Less(t, p[len(p)-1], 1e-3)
}

func TestReduceResistiveLoop(t *testing.T) {
	set := assemble(t, []bondgraph.Element{
		bondgraph.Se("Se", expr.N(5)),
		bondgraph.R("R_1", 1),
		bondgraph.R("R_2", 2),
		bondgraph.R("R_3", 3),
		bondgraph.J1("1"),
		bondgraph.J0("0"),
	}, [][2]string{{"Se", "1"}, {"1", "R_1"}, {"1", "0"}, {"0", "R_2"}, {"0", "R_3"}},
		causality.WithLoopBreaking())
	sys := compile(t, set)

	assert.Zero(t, sys.StateDim())
	y := outputsByName(sys, nil, 0)
	assert.InDelta(t, 25.0/11, y["f2"], 1e-12)
	assert.InDelta(t, y["f2"], y["f4"]+y["f5"], 1e-12)
	assert.InDelta(t, 5-25.0/11, y["e4"], 1e-12)
}

func TestReduceDerivativeCausality(t *testing.T) {
	set := assemble(t, []bondgraph.Element{
		bondgraph.Se("Se", expr.N(1)),
		bondgraph.J0("0"),
		bondgraph.C("C", 1, 0),
	}, [][2]string{{"Se", "0"}, {"0", "C"}})

	space, err := Reduce(set)
	assert.Nil(t, space)
	require.True(t, errors.Is(err, ErrUnsolvable))
	var ue *UnsolvableSystemError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Unresolved, "d(q_C)/dt")
	assert.Contains(t, err.Error(), "d(q_C)/dt")
}

func TestReduceNonlinearLoop(t *testing.T) {
	set := assemble(t, []bondgraph.Element{
		bondgraph.Ge("G", expr.Fn("sin", expr.S("D"))),
		bondgraph.Df("D"),
		bondgraph.R("R", 2),
		bondgraph.J1("1"),
	}, [][2]string{{"G", "1"}, {"1", "D"}, {"1", "R"}})

	_, err := Reduce(set)
	var ue *UnsolvableSystemError
	require.True(t, errors.As(err, &ue))
	assert.Contains(t, ue.Reason, "nonlinearly")
	assert.NotEmpty(t, ue.Unresolved)
}

func TestIsolate(t *testing.T) {
	x := expr.S("x")
	got, err := isolate("x", expr.Sum(expr.Scale(0.5, x), expr.N(3)))
	require.NoError(t, err)
	v, ok := expr.Value(got)
	require.True(t, ok)
	assert.InDelta(t, 6, v, 1e-12)

	_, err = isolate("x", expr.Sum(x, expr.N(1)))
	assert.ErrorContains(t, err, "singular")

	_, err = isolate("x", expr.If("<", x, expr.N(0), expr.N(1), expr.N(2)))
	assert.ErrorContains(t, err, "condition")
}

func TestReduceNilSet(t *testing.T) {
	_, err := Reduce(nil)
	assert.True(t, errors.Is(err, ErrUnsolvable))
}
