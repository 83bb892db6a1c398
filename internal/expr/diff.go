package expr

// Diff returns the partial derivative of e with respect to the symbol name.
// Der nodes are treated as independent of every symbol.
func Diff(e Expr, name string) Expr {
	if !Contains(e, name) {
		return N(0)
	}
	switch v := e.(type) {
	case *Sym:
		return N(1)
	case *Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = Diff(t, name)
		}
		return Sum(terms...)
	case *Mul:
		terms := make([]Expr, 0, len(v.Factors))
		for i, f := range v.Factors {
			d := Diff(f, name)
			if IsZero(d) {
				continue
			}
			fs := make([]Expr, len(v.Factors))
			copy(fs, v.Factors)
			fs[i] = d
			terms = append(terms, Prod(fs...))
		}
		return Sum(terms...)
	case *Pow:
		return diffPow(v, name)
	case *Call:
		return Prod(diffCall(v.Fn, v.Arg), Diff(v.Arg, name))
	case *Cond:
		return If(v.Op, v.L, v.R, Diff(v.Then, name), Diff(v.Else, name))
	}
	return N(0)
}

func diffPow(p *Pow, name string) Expr {
	if !Contains(p.Exp, name) {
		return Prod(p.Exp, PowOf(p.Base, Minus(p.Exp, N(1))), Diff(p.Base, name))
	}
	if !Contains(p.Base, name) {
		return Prod(p, Fn("log", p.Base), Diff(p.Exp, name))
	}
	return Prod(p, Sum(
		Prod(Diff(p.Exp, name), Fn("log", p.Base)),
		Prod(p.Exp, Diff(p.Base, name), PowOf(p.Base, N(-1))),
	))
}

// diffCall is the derivative of fn with respect to its argument.
func diffCall(fn string, a Expr) Expr {
	switch fn {
	case "sin":
		return Fn("cos", a)
	case "cos":
		return Neg(Fn("sin", a))
	case "tan":
		return PowOf(Fn("cos", a), N(-2))
	case "exp":
		return Fn("exp", a)
	case "log":
		return PowOf(a, N(-1))
	case "sqrt":
		return Scale(0.5, PowOf(Fn("sqrt", a), N(-1)))
	case "abs":
		return Fn("sign", a)
	case "tanh":
		return Minus(N(1), PowOf(Fn("tanh", a), N(2)))
	}
	return N(0)
}
