package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplify(t *testing.T) {
	x, a, b := S("x"), S("a"), S("b")
	tests := []struct {
		name string
		got  Expr
		want string
	}{
		{"like terms", Sum(x, x), "2 * x"},
		{"cancel", Sum(x, Neg(x)), "0"},
		{"fold product", Prod(N(2), N(3), x), "6 * x"},
		{"quotient", Quo(S("q"), S("C")), "q / C"},
		{"reciprocal", PowOf(S("R"), N(-1)), "1 / R"},
		{"inverse pair", Prod(x, PowOf(x, N(-1))), "1"},
		{"difference", Minus(a, b), "a - b"},
		{"negated sum", Neg(Sum(a, b)), "-a - b"},
		{"constant last", Sum(N(1), x, N(2)), "x + 3"},
		{"nested power", PowOf(PowOf(x, N(2)), N(3)), "x^6"},
		{"root of square", PowOf(PowOf(x, N(2)), N(0.5)), "(x^2)^0.5"},
		{"root of product", PowOf(Prod(a, b), N(0.5)), "(a * b)^0.5"},
		{"square of product", PowOf(Prod(a, b), N(2)), "a^2 * b^2"},
		{"exact constant", N(1.0 / 3), "0.3333333333333333"},
		{"zero exponent", PowOf(x, N(0)), "1"},
		{"folded call", Fn("cos", N(0)), "1"},
		{"folded cond", If(">", N(2), N(1), a, b), "a"},
		{"same branches", If("<", x, N(1), a, a), "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.String())
		})
	}
}

func TestRootOfSquareKeepsSign(t *testing.T) {
	e := PowOf(PowOf(S("x"), N(2)), N(0.5))
	got, err := Eval(e, map[string]float64{"x": -3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestPrintedConstantsParseBack(t *testing.T) {
	for _, v := range []float64{1.0 / 3, math.Pi, -2.0 / 7, 6.02214076e23, 1e-9} {
		back, err := Parse(Prod(N(v), S("x")).String())
		require.NoError(t, err)
		got, err := Eval(back, map[string]float64{"x": 1})
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestSimplifyIsDeterministic(t *testing.T) {
	build := func() Expr {
		return Sum(S("f3"), Scale(-1, S("f2")), S("f1"), Scale(2, S("f3")))
	}
	first := build().String()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, build().String())
	}
	assert.Equal(t, "3 * f3 - f2 + f1", first)
}

func TestSubstitute(t *testing.T) {
	e := Sum(S("e1"), Neg(S("e2")))
	got := Substitute(e, map[string]Expr{"e2": N(3)})
	assert.Equal(t, "e1 - 3", got.String())

	got = Substitute(e, map[string]Expr{"e2": S("e1")})
	assert.True(t, IsZero(got))
}

func TestSymbols(t *testing.T) {
	e := Sum(S("b"), Prod(S("a"), S("b")), Fn("sin", S(Time)))
	assert.Equal(t, []string{"a", "b", "t"}, Symbols(e))
	assert.True(t, Contains(e, "a"))
	assert.False(t, Contains(e, "c"))
}

func TestDerivatives(t *testing.T) {
	e := Sum(&Der{Name: "p_I"}, S("e1"))
	assert.Equal(t, []string{"p_I"}, Derivatives(e))
	assert.Equal(t, "d(p_I)/dt + e1", e.String())
}

func TestDiff(t *testing.T) {
	x := S("x")
	tests := []struct {
		name string
		e    Expr
		want Expr
	}{
		{"constant", S("k"), N(0)},
		{"linear", Scale(4, x), N(4)},
		{"square", Prod(N(3), x, x), Scale(6, x)},
		{"sine", Fn("sin", x), Fn("cos", x)},
		{"reciprocal", PowOf(x, N(-1)), Neg(PowOf(x, N(-2)))},
		{"exp chain", Fn("exp", Scale(2, x)), Scale(2, Fn("exp", Scale(2, x)))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.e, "x")
			assert.True(t, Equal(tt.want, got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestEval(t *testing.T) {
	v, err := Eval(Sum(Scale(2, S("x")), N(1)), map[string]float64{"x": 3})
	require.NoError(t, err)
	assert.Equal(t, 7.0, v)

	_, err = Eval(S("y"), map[string]float64{"x": 3})
	assert.True(t, errors.Is(err, ErrUnboundSymbol))

	_, err = Eval(Fn("sin", S(Time)), nil)
	assert.True(t, errors.Is(err, ErrUnboundSymbol))

	_, err = Eval(&Der{Name: "q_C"}, nil)
	assert.True(t, errors.Is(err, ErrDerivativeNode))
}

func TestCompile(t *testing.T) {
	e := Sum(Prod(S("k"), S("x")), S(Time))
	f, err := Compile(e, func(name string) (Func, bool) {
		switch name {
		case "x":
			return Index(0), true
		case "k":
			return Const(2), true
		}
		return nil, false
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, f([]float64{3}, 1))

	_, err = Compile(S("missing"), func(string) (Func, bool) { return nil, false })
	assert.ErrorIs(t, err, ErrUnboundSymbol)
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		env  map[string]float64
		want float64
	}{
		{"2 * x + 1", map[string]float64{"x": 3}, 7},
		{"x ** 2", map[string]float64{"x": 3}, 9},
		{"-x / 4", map[string]float64{"x": 2}, -0.5},
		{"sin(pi / 2)", nil, 1},
		{"t > 1 ? 2 : 0", map[string]float64{"t": 2}, 2},
		{"t > 1 ? 2 : 0", map[string]float64{"t": 0.5}, 0},
		{"abs(x - 5)", map[string]float64{"x": 2}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			require.NoError(t, err)
			got, err := Eval(e, tt.env)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, src := range []string{"foo(x)", "x < 1", "x &&", "sin(x, y)"} {
		_, err := Parse(src)
		assert.Error(t, err, src)
	}
}

func TestCompileMatchesEval(t *testing.T) {
	e := MustParse("exp(-t / 2) * cos(3 * t) + sqrt(x)")
	f, err := Compile(e, func(name string) (Func, bool) {
		return Index(0), name == "x"
	})
	require.NoError(t, err)
	for _, tt := range []float64{0, 0.3, 1.7} {
		want, err := Eval(e, map[string]float64{"x": 4, Time: tt})
		require.NoError(t, err)
		assert.Equal(t, want, f([]float64{4}, tt))
		assert.InDelta(t, math.Exp(-tt/2)*math.Cos(3*tt)+2, want, 1e-12)
	}
}
