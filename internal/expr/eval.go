package expr

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnboundSymbol   = errors.New("expr: unbound symbol")
	ErrDerivativeNode  = errors.New("expr: derivative cannot be evaluated")
	ErrUnknownFunction = errors.New("expr: unknown function")
)

// Func is a compiled expression evaluated against a state vector and time.
type Func func(x []float64, t float64) float64

// Resolver binds a symbol name to a compiled leaf.
type Resolver func(name string) (Func, bool)

var functions = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"log":  math.Log,
	"sqrt": math.Sqrt,
	"abs":  math.Abs,
	"tanh": math.Tanh,
	"sign": sign,
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// IsFunction reports whether name is a supported unary function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

func compare(op string, a, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "==":
		return a == b
	case "!=":
		return a != b
	}
	return false
}

// Const returns a Func yielding v.
func Const(v float64) Func {
	return func([]float64, float64) float64 { return v }
}

// Index returns a Func reading x[i].
func Index(i int) Func {
	return func(x []float64, _ float64) float64 { return x[i] }
}

// Eval evaluates e with every symbol, including t when referenced, bound by env.
func Eval(e Expr, env map[string]float64) (float64, error) {
	f, err := Compile(e, func(name string) (Func, bool) {
		v, ok := env[name]
		return Const(v), ok
	})
	if err != nil {
		return 0, err
	}
	t, ok := env[Time]
	if !ok && Contains(e, Time) {
		return 0, fmt.Errorf("%w: %s", ErrUnboundSymbol, Time)
	}
	return f(nil, t), nil
}

// Compile turns e into a closure tree. Symbols other than t are bound
// through resolve.
func Compile(e Expr, resolve Resolver) (Func, error) {
	switch v := e.(type) {
	case *Num:
		return Const(v.V), nil
	case *Sym:
		if v.Name == Time {
			return func(_ []float64, t float64) float64 { return t }, nil
		}
		if f, ok := resolve(v.Name); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnboundSymbol, v.Name)
	case *Der:
		return nil, fmt.Errorf("%w: %s", ErrDerivativeNode, v)
	case *Add:
		fs, err := compileAll(v.Terms, resolve)
		if err != nil {
			return nil, err
		}
		return func(x []float64, t float64) float64 {
			s := 0.0
			for _, f := range fs {
				s += f(x, t)
			}
			return s
		}, nil
	case *Mul:
		fs, err := compileAll(v.Factors, resolve)
		if err != nil {
			return nil, err
		}
		return func(x []float64, t float64) float64 {
			p := 1.0
			for _, f := range fs {
				p *= f(x, t)
			}
			return p
		}, nil
	case *Pow:
		return compilePow(v, resolve)
	case *Call:
		fn, ok := functions[v.Fn]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, v.Fn)
		}
		arg, err := Compile(v.Arg, resolve)
		if err != nil {
			return nil, err
		}
		return func(x []float64, t float64) float64 { return fn(arg(x, t)) }, nil
	case *Cond:
		fs, err := compileAll([]Expr{v.L, v.R, v.Then, v.Else}, resolve)
		if err != nil {
			return nil, err
		}
		op := v.Op
		l, r, then, els := fs[0], fs[1], fs[2], fs[3]
		return func(x []float64, t float64) float64 {
			if compare(op, l(x, t), r(x, t)) {
				return then(x, t)
			}
			return els(x, t)
		}, nil
	}
	return nil, fmt.Errorf("expr: cannot compile %T", e)
}

func compilePow(p *Pow, resolve Resolver) (Func, error) {
	base, err := Compile(p.Base, resolve)
	if err != nil {
		return nil, err
	}
	if k, ok := p.Exp.(*Num); ok {
		switch k.V {
		case -1:
			return func(x []float64, t float64) float64 { return 1 / base(x, t) }, nil
		case 2:
			return func(x []float64, t float64) float64 {
				b := base(x, t)
				return b * b
			}, nil
		}
	}
	exp, err := Compile(p.Exp, resolve)
	if err != nil {
		return nil, err
	}
	return func(x []float64, t float64) float64 { return math.Pow(base(x, t), exp(x, t)) }, nil
}

func compileAll(items []Expr, resolve Resolver) ([]Func, error) {
	fs := make([]Func, len(items))
	for i, it := range items {
		f, err := Compile(it, resolve)
		if err != nil {
			return nil, err
		}
		fs[i] = f
	}
	return fs, nil
}
