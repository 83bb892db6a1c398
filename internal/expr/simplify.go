package expr

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Simplify folds constants, flattens nested sums and products, drops neutral
// elements and merges like terms with numeric coefficients. The result is
// deterministic: terms keep the order of their first appearance.
func Simplify(e Expr) Expr {
	switch v := e.(type) {
	case *Add:
		return simplifyAdd(v)
	case *Mul:
		return simplifyMul(v)
	case *Pow:
		return simplifyPow(v)
	case *Call:
		arg := Simplify(v.Arg)
		if n, ok := arg.(*Num); ok {
			if f, ok := functions[v.Fn]; ok {
				return N(f(n.V))
			}
		}
		return &Call{Fn: v.Fn, Arg: arg}
	case *Cond:
		l, r := Simplify(v.L), Simplify(v.R)
		then, els := Simplify(v.Then), Simplify(v.Else)
		if a, ok := l.(*Num); ok {
			if b, ok := r.(*Num); ok {
				if compare(v.Op, a.V, b.V) {
					return then
				}
				return els
			}
		}
		if Equal(then, els) {
			return then
		}
		return &Cond{Op: v.Op, L: l, R: r, Then: then, Else: els}
	}
	return e
}

func simplifyAdd(a *Add) Expr {
	flat := make([]Expr, 0, len(a.Terms))
	for _, t := range a.Terms {
		t = Simplify(t)
		if inner, ok := t.(*Add); ok {
			flat = append(flat, inner.Terms...)
			continue
		}
		flat = append(flat, t)
	}

	constant := 0.0
	var order []string
	coefs := make(map[string]float64)
	rests := make(map[string]Expr)
	for _, t := range flat {
		if n, ok := t.(*Num); ok {
			constant += n.V
			continue
		}
		c, rest := splitCoef(t)
		k := key(rest)
		if _, seen := rests[k]; !seen {
			order = append(order, k)
			rests[k] = rest
		}
		coefs[k] += c
	}

	terms := make([]Expr, 0, len(order)+1)
	for _, k := range order {
		switch c := coefs[k]; c {
		case 0:
		case 1:
			terms = append(terms, rests[k])
		default:
			terms = append(terms, scaleTerm(c, rests[k]))
		}
	}
	if constant != 0 {
		terms = append(terms, N(constant))
	}
	switch len(terms) {
	case 0:
		return N(0)
	case 1:
		return terms[0]
	}
	return &Add{Terms: terms}
}

func simplifyMul(m *Mul) Expr {
	flat := make([]Expr, 0, len(m.Factors))
	for _, f := range m.Factors {
		f = Simplify(f)
		if inner, ok := f.(*Mul); ok {
			flat = append(flat, inner.Factors...)
			continue
		}
		flat = append(flat, f)
	}

	coef := 1.0
	var order []string
	bases := make(map[string]Expr)
	exps := make(map[string]float64)
	for _, f := range flat {
		if n, ok := f.(*Num); ok {
			coef *= n.V
			continue
		}
		base, exp := f, 1.0
		if p, ok := f.(*Pow); ok {
			if k, ok := p.Exp.(*Num); ok {
				base, exp = p.Base, k.V
			}
		}
		k := key(base)
		if _, seen := bases[k]; !seen {
			order = append(order, k)
			bases[k] = base
		}
		exps[k] += exp
	}
	if coef == 0 {
		return N(0)
	}

	factors := make([]Expr, 0, len(order))
	for _, k := range order {
		switch e := exps[k]; e {
		case 0:
		case 1:
			factors = append(factors, bases[k])
		default:
			factors = append(factors, &Pow{Base: bases[k], Exp: N(e)})
		}
	}

	switch len(factors) {
	case 0:
		return N(coef)
	case 1:
		if coef == 1 {
			return factors[0]
		}
		if sum, ok := factors[0].(*Add); ok {
			terms := make([]Expr, len(sum.Terms))
			for i, t := range sum.Terms {
				terms[i] = &Mul{Factors: []Expr{N(coef), t}}
			}
			return simplifyAdd(&Add{Terms: terms})
		}
	}
	if coef != 1 {
		factors = append([]Expr{N(coef)}, factors...)
	}
	return &Mul{Factors: factors}
}

func simplifyPow(p *Pow) Expr {
	base, exp := Simplify(p.Base), Simplify(p.Exp)
	if k, ok := exp.(*Num); ok {
		switch k.V {
		case 0:
			return N(1)
		case 1:
			return base
		}
		integer := k.V == math.Trunc(k.V)
		switch b := base.(type) {
		case *Num:
			return N(math.Pow(b.V, k.V))
		case *Pow:
			// (x^2)^0.5 is |x|, so only integer powers fold.
			if j, ok := b.Exp.(*Num); ok && integer {
				return simplifyPow(&Pow{Base: b.Base, Exp: N(j.V * k.V)})
			}
		case *Mul:
			if !integer {
				break
			}
			fs := make([]Expr, len(b.Factors))
			for i, f := range b.Factors {
				fs[i] = &Pow{Base: f, Exp: k}
			}
			return simplifyMul(&Mul{Factors: fs})
		}
	}
	if b, ok := base.(*Num); ok && b.V == 1 {
		return N(1)
	}
	return &Pow{Base: base, Exp: exp}
}

func splitCoef(t Expr) (float64, Expr) {
	m, ok := t.(*Mul)
	if !ok || len(m.Factors) < 2 {
		return 1, t
	}
	n, ok := m.Factors[0].(*Num)
	if !ok {
		return 1, t
	}
	if len(m.Factors) == 2 {
		return n.V, m.Factors[1]
	}
	return n.V, &Mul{Factors: m.Factors[1:]}
}

func scaleTerm(c float64, rest Expr) Expr {
	if m, ok := rest.(*Mul); ok {
		return &Mul{Factors: append([]Expr{N(c)}, m.Factors...)}
	}
	return &Mul{Factors: []Expr{N(c), rest}}
}

// key is an exact canonical rendering used for term matching.
func key(e Expr) string {
	var sb strings.Builder
	writeKey(&sb, e)
	return sb.String()
}

func writeKey(sb *strings.Builder, e Expr) {
	switch v := e.(type) {
	case *Num:
		sb.WriteString(strconv.FormatFloat(v.V, 'g', -1, 64))
	case *Sym:
		sb.WriteString("$" + v.Name)
	case *Der:
		sb.WriteString("d$" + v.Name)
	case *Add:
		writeList(sb, "+", v.Terms)
	case *Mul:
		writeList(sb, "*", v.Factors)
	case *Pow:
		writeList(sb, "^", []Expr{v.Base, v.Exp})
	case *Call:
		writeList(sb, v.Fn, []Expr{v.Arg})
	case *Cond:
		writeList(sb, "?"+v.Op, []Expr{v.L, v.R, v.Then, v.Else})
	}
}

func writeList(sb *strings.Builder, op string, items []Expr) {
	sb.WriteString(op + "(")
	for i, it := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeKey(sb, it)
	}
	sb.WriteByte(')')
}

// Substitute replaces every symbol named in m and simplifies the result.
func Substitute(e Expr, m map[string]Expr) Expr {
	if len(m) == 0 {
		return e
	}
	return Simplify(substitute(e, m))
}

func substitute(e Expr, m map[string]Expr) Expr {
	switch v := e.(type) {
	case *Sym:
		if r, ok := m[v.Name]; ok {
			return r
		}
	case *Add:
		return &Add{Terms: substituteAll(v.Terms, m)}
	case *Mul:
		return &Mul{Factors: substituteAll(v.Factors, m)}
	case *Pow:
		return &Pow{Base: substitute(v.Base, m), Exp: substitute(v.Exp, m)}
	case *Call:
		return &Call{Fn: v.Fn, Arg: substitute(v.Arg, m)}
	case *Cond:
		return &Cond{
			Op: v.Op,
			L:  substitute(v.L, m), R: substitute(v.R, m),
			Then: substitute(v.Then, m), Else: substitute(v.Else, m),
		}
	}
	return e
}

func substituteAll(items []Expr, m map[string]Expr) []Expr {
	out := make([]Expr, len(items))
	for i, it := range items {
		out[i] = substitute(it, m)
	}
	return out
}

// Walk visits e depth first. Returning false from fn skips the children.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	switch v := e.(type) {
	case *Add:
		for _, t := range v.Terms {
			Walk(t, fn)
		}
	case *Mul:
		for _, f := range v.Factors {
			Walk(f, fn)
		}
	case *Pow:
		Walk(v.Base, fn)
		Walk(v.Exp, fn)
	case *Call:
		Walk(v.Arg, fn)
	case *Cond:
		Walk(v.L, fn)
		Walk(v.R, fn)
		Walk(v.Then, fn)
		Walk(v.Else, fn)
	}
}

// Symbols returns the sorted free symbol names of e.
func Symbols(e Expr) []string {
	set := make(map[string]struct{})
	Walk(e, func(n Expr) bool {
		if s, ok := n.(*Sym); ok {
			set[s.Name] = struct{}{}
		}
		return true
	})
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Derivatives returns the sorted names of variables under a Der node.
func Derivatives(e Expr) []string {
	set := make(map[string]struct{})
	Walk(e, func(n Expr) bool {
		if d, ok := n.(*Der); ok {
			set[d.Name] = struct{}{}
		}
		return true
	})
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether symbol name occurs in e.
func Contains(e Expr, name string) bool {
	found := false
	Walk(e, func(n Expr) bool {
		if found {
			return false
		}
		if s, ok := n.(*Sym); ok && s.Name == name {
			found = true
		}
		return !found
	})
	return found
}
