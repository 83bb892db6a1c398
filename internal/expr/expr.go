package expr

import (
	"math"
	"strconv"
	"strings"
)

// Time is the reserved symbol for the independent variable.
const Time = "t"

const (
	precAdd = iota + 1
	precMul
	precPow
	precAtom
)

type Expr interface {
	String() string
	prec() int
}

type Num struct{ V float64 }

type Sym struct{ Name string }

type Add struct{ Terms []Expr }

type Mul struct{ Factors []Expr }

type Pow struct{ Base, Exp Expr }

type Call struct {
	Fn  string
	Arg Expr
}

// Cond selects Then when "L Op R" holds, Else otherwise.
type Cond struct {
	Op         string
	L, R       Expr
	Then, Else Expr
}

// Der is the time derivative of the named variable.
type Der struct{ Name string }

func N(v float64) *Num   { return &Num{V: v} }
func S(name string) *Sym { return &Sym{Name: name} }

func Sum(terms ...Expr) Expr        { return Simplify(&Add{Terms: terms}) }
func Prod(factors ...Expr) Expr     { return Simplify(&Mul{Factors: factors}) }
func PowOf(base, exp Expr) Expr     { return Simplify(&Pow{Base: base, Exp: exp}) }
func Neg(e Expr) Expr               { return Prod(N(-1), e) }
func Minus(a, b Expr) Expr          { return Sum(a, Neg(b)) }
func Quo(a, b Expr) Expr            { return Prod(a, PowOf(b, N(-1))) }
func Fn(name string, arg Expr) Expr { return Simplify(&Call{Fn: name, Arg: arg}) }

func If(op string, l, r, then, els Expr) Expr {
	return Simplify(&Cond{Op: op, L: l, R: r, Then: then, Else: els})
}

// Scale multiplies e by a numeric factor.
func Scale(k float64, e Expr) Expr { return Prod(N(k), e) }

func (n *Num) prec() int  { return precAtom }
func (s *Sym) prec() int  { return precAtom }
func (a *Add) prec() int  { return precAdd }
func (m *Mul) prec() int  { return precMul }
func (p *Pow) prec() int  { return precPow }
func (c *Call) prec() int { return precAtom }
func (c *Cond) prec() int { return precAtom }
func (d *Der) prec() int  { return precAtom }

func (n *Num) String() string { return formatFloat(n.V) }

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Sym) String() string { return s.Name }

func (d *Der) String() string { return "d(" + d.Name + ")/dt" }

func (c *Call) String() string { return c.Fn + "(" + c.Arg.String() + ")" }

func (c *Cond) String() string {
	return "(" + c.L.String() + " " + c.Op + " " + c.R.String() + " ? " +
		c.Then.String() + " : " + c.Else.String() + ")"
}

func (p *Pow) String() string {
	if k, ok := p.Exp.(*Num); ok && k.V < 0 {
		return (&Mul{Factors: []Expr{p}}).String()
	}
	return wrap(p.Base, precAtom) + "^" + wrap(p.Exp, precAtom)
}

func (a *Add) String() string {
	var sb strings.Builder
	for i, t := range a.Terms {
		neg, abs := negated(t)
		switch {
		case i == 0 && neg:
			sb.WriteString("-" + wrap(abs, precMul))
		case i == 0:
			sb.WriteString(t.String())
		case neg:
			sb.WriteString(" - " + wrap(abs, precMul))
		default:
			sb.WriteString(" + " + t.String())
		}
	}
	return sb.String()
}

func (m *Mul) String() string {
	coef := 1.0
	var num, den []string
	for _, f := range m.Factors {
		if n, ok := f.(*Num); ok {
			coef *= n.V
			continue
		}
		if p, ok := f.(*Pow); ok {
			if k, ok := p.Exp.(*Num); ok && k.V < 0 {
				base := p.Base
				if k.V != -1 {
					base = &Pow{Base: p.Base, Exp: N(-k.V)}
				}
				den = append(den, wrap(base, precPow))
				continue
			}
		}
		num = append(num, wrap(f, precMul))
	}
	var sb strings.Builder
	switch {
	case len(num) == 0:
		sb.WriteString(formatFloat(coef))
	case coef == -1:
		sb.WriteString("-")
	case coef != 1:
		sb.WriteString(formatFloat(coef) + " * ")
	}
	sb.WriteString(strings.Join(num, " * "))
	for _, d := range den {
		sb.WriteString(" / " + d)
	}
	return sb.String()
}

func wrap(e Expr, min int) string {
	if e.prec() < min {
		return "(" + e.String() + ")"
	}
	if n, ok := e.(*Num); ok && n.V < 0 && min > precAdd {
		return "(" + n.String() + ")"
	}
	return e.String()
}

// negated reports whether t renders with a leading minus and returns its
// absolute counterpart.
func negated(t Expr) (bool, Expr) {
	switch v := t.(type) {
	case *Num:
		if v.V < 0 {
			return true, N(-v.V)
		}
	case *Mul:
		if len(v.Factors) > 0 {
			if n, ok := v.Factors[0].(*Num); ok && n.V < 0 {
				rest := append([]Expr{N(-n.V)}, v.Factors[1:]...)
				return true, Prod(rest...)
			}
		}
	}
	return false, t
}

// Equal reports structural equality of two simplified trees.
func Equal(a, b Expr) bool { return key(a) == key(b) }

// IsZero reports whether e is the constant 0.
func IsZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.V == 0
}

// Value returns the numeric value of a constant expression.
func Value(e Expr) (float64, bool) {
	n, ok := e.(*Num)
	if !ok {
		return 0, false
	}
	return n.V, true
}
