// Package equations turns a causally augmented bond graph into its set of
// constitutive and junction equations.
package equations

import (
	"errors"
	"fmt"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
	"github.com/san-kum/bondsim/internal/expr"
)

var ErrAssembly = errors.New("equations: cannot assemble")

type AssemblyError struct {
	Graph  string
	Reason string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("equations %q: %s", e.Graph, e.Reason)
}

func (e *AssemblyError) Unwrap() error { return ErrAssembly }

type Role int

const (
	Algebraic Role = iota + 1
	StateDerivative
)

// Equation defines Target (or its time derivative) as RHS.
type Equation struct {
	Target  string
	Role    Role
	RHS     expr.Expr
	Element string
}

func (e Equation) String() string {
	if e.Role == StateDerivative {
		return "d" + e.Target + "/dt = " + e.RHS.String()
	}
	return e.Target + " = " + e.RHS.String()
}

type State struct {
	Name    string
	Element string
	Kind    bondgraph.Kind
	Initial float64
}

type Param struct {
	Name  string
	Value float64
}

// Input is an external time law, referenced in equations by Name.
type Input struct {
	Name string
	Law  expr.Expr
}

// Set is the unordered equation system with its symbol tables. Equations
// keep assembly order for listing.
type Set struct {
	Graph     string
	Equations []Equation
	States    []State
	Params    []Param
	Inputs    []Input
	Variables []string
}

func (s *Set) Algebraic() []Equation   { return s.filter(Algebraic) }
func (s *Set) Derivatives() []Equation { return s.filter(StateDerivative) }

func (s *Set) filter(r Role) []Equation {
	var out []Equation
	for _, eq := range s.Equations {
		if eq.Role == r {
			out = append(out, eq)
		}
	}
	return out
}

// Param looks up a parameter value by name.
func (s *Set) Param(name string) (float64, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

type assembler struct {
	g   *bondgraph.Graph
	a   *causality.Assignment
	set *Set
}

// Assemble emits the equations of every element in insertion order.
func Assemble(g *bondgraph.Graph, a *causality.Assignment) (*Set, error) {
	if g == nil || a == nil {
		return nil, &AssemblyError{Reason: "nil graph or assignment"}
	}
	if a.Graph() != g {
		return nil, &AssemblyError{Graph: g.Name(), Reason: "assignment belongs to another graph"}
	}
	m := &assembler{g: g, a: a, set: &Set{Graph: g.Name()}}
	for _, b := range g.Bonds() {
		if a.Stroke(b) == causality.Open {
			return nil, &AssemblyError{Graph: g.Name(), Reason: fmt.Sprintf("bond %d has no causal stroke", b.Index)}
		}
		m.set.Variables = append(m.set.Variables, b.Effort(), b.Flow())
	}

	for _, el := range g.Elements() {
		if el.Kind.HasValue() {
			m.set.Params = append(m.set.Params, Param{Name: el.ID, Value: el.Value})
		}
		switch {
		case el.Kind.IsJunction():
			m.junction(el)
		case el.Kind == bondgraph.Transformer:
			m.transformer(el)
		case el.Kind == bondgraph.Gyrator:
			m.gyrator(el)
		default:
			m.onePort(el)
		}
	}
	return m.set, nil
}

func (m *assembler) emit(target string, role Role, rhs expr.Expr, el string) {
	m.set.Equations = append(m.set.Equations, Equation{Target: target, Role: role, RHS: rhs, Element: el})
}

func (m *assembler) onePort(el bondgraph.Element) {
	b := m.g.BondsOf(el.ID)[0]
	s := m.g.Sign(b, el.ID)
	e, f := expr.S(b.Effort()), expr.S(b.Flow())
	effortIn := m.a.EffortIn(b, el.ID)
	param := expr.S(el.ID)

	switch el.Kind {
	case bondgraph.EffortSource:
		m.set.Inputs = append(m.set.Inputs, Input{Name: el.ID, Law: el.Law})
		m.emit(b.Effort(), Algebraic, param, el.ID)
	case bondgraph.FlowSource:
		m.set.Inputs = append(m.set.Inputs, Input{Name: el.ID, Law: el.Law})
		m.emit(b.Flow(), Algebraic, expr.Scale(-s, param), el.ID)
	case bondgraph.Resistance:
		if effortIn {
			m.emit(b.Flow(), Algebraic, expr.Scale(s, expr.Quo(e, param)), el.ID)
		} else {
			m.emit(b.Effort(), Algebraic, expr.Scale(s, expr.Prod(param, f)), el.ID)
		}
	case bondgraph.Capacitance:
		q := el.State()
		if m.a.StorageCausality(el.ID) == causality.Integral {
			m.addState(el)
			m.emit(b.Effort(), Algebraic, expr.Quo(expr.S(q), param), el.ID)
			m.emit(q, StateDerivative, expr.Scale(s, f), el.ID)
		} else {
			m.emit(q, Algebraic, expr.Prod(param, e), el.ID)
			m.emit(b.Flow(), Algebraic, expr.Scale(s, &expr.Der{Name: q}), el.ID)
		}
	case bondgraph.Inertance:
		p := el.State()
		if m.a.StorageCausality(el.ID) == causality.Integral {
			m.addState(el)
			m.emit(b.Flow(), Algebraic, expr.Scale(s, expr.Quo(expr.S(p), param)), el.ID)
			m.emit(p, StateDerivative, e, el.ID)
		} else {
			m.emit(p, Algebraic, expr.Scale(s, expr.Prod(param, f)), el.ID)
			m.emit(b.Effort(), Algebraic, &expr.Der{Name: p}, el.ID)
		}
	case bondgraph.EffortSensor:
		m.emit(b.Flow(), Algebraic, expr.N(0), el.ID)
	case bondgraph.FlowSensor:
		m.emit(b.Effort(), Algebraic, expr.N(0), el.ID)
	case bondgraph.EffortController:
		m.emit(b.Effort(), Algebraic, m.measured(el.Law), el.ID)
	case bondgraph.FlowController:
		m.emit(b.Flow(), Algebraic, expr.Scale(-s, m.measured(el.Law)), el.ID)
	}
}

func (m *assembler) addState(el bondgraph.Element) {
	m.set.States = append(m.set.States, State{
		Name:    el.State(),
		Element: el.ID,
		Kind:    el.Kind,
		Initial: el.Initial,
	})
}

// measured replaces sensor IDs in a controller law with the bond variable
// each sensor reads.
func (m *assembler) measured(law expr.Expr) expr.Expr {
	sub := make(map[string]expr.Expr)
	for _, name := range expr.Symbols(law) {
		el, ok := m.g.Element(name)
		if !ok {
			continue
		}
		b := m.g.BondsOf(name)[0]
		switch el.Kind {
		case bondgraph.EffortSensor:
			sub[name] = expr.S(b.Effort())
		case bondgraph.FlowSensor:
			sub[name] = expr.S(b.Flow())
		}
	}
	return expr.Substitute(law, sub)
}

// junction emits the shared variable for every non-dominant bond and the
// conservation sum solved for the dominant one.
func (m *assembler) junction(el bondgraph.Element) {
	zero := el.Kind == bondgraph.Junction0
	bonds := m.g.BondsOf(el.ID)
	var dom bondgraph.Bond
	for _, b := range bonds {
		if m.a.EffortIn(b, el.ID) == zero {
			dom = b
			break
		}
	}

	shared, summed := bondgraph.Bond.Effort, bondgraph.Bond.Flow
	if !zero {
		shared, summed = bondgraph.Bond.Flow, bondgraph.Bond.Effort
	}
	var terms []expr.Expr
	for _, b := range bonds {
		if b.Index == dom.Index {
			continue
		}
		m.emit(shared(b), Algebraic, expr.S(shared(dom)), el.ID)
		terms = append(terms, expr.Scale(m.g.Sign(b, el.ID), expr.S(summed(b))))
	}
	m.emit(summed(dom), Algebraic, expr.Scale(-m.g.Sign(dom, el.ID), expr.Sum(terms...)), el.ID)
}

// transformer: e1 = n*e2 and phi2 = n*phi1 with phi1 = s1*f1, phi2 = -s2*f2.
func (m *assembler) transformer(el bondgraph.Element) {
	bonds := m.g.BondsOf(el.ID)
	b1, b2 := bonds[0], bonds[1]
	s1, s2 := m.g.Sign(b1, el.ID), m.g.Sign(b2, el.ID)
	n := expr.S(el.ID)
	if m.a.EffortIn(b1, el.ID) {
		m.emit(b2.Effort(), Algebraic, expr.Quo(expr.S(b1.Effort()), n), el.ID)
		m.emit(b1.Flow(), Algebraic, expr.Scale(-s1*s2, expr.Quo(expr.S(b2.Flow()), n)), el.ID)
		return
	}
	m.emit(b1.Effort(), Algebraic, expr.Prod(n, expr.S(b2.Effort())), el.ID)
	m.emit(b2.Flow(), Algebraic, expr.Scale(-s1*s2, expr.Prod(n, expr.S(b1.Flow()))), el.ID)
}

// gyrator: e1 = r*phi2 and e2 = r*phi1.
func (m *assembler) gyrator(el bondgraph.Element) {
	bonds := m.g.BondsOf(el.ID)
	b1, b2 := bonds[0], bonds[1]
	s1, s2 := m.g.Sign(b1, el.ID), m.g.Sign(b2, el.ID)
	r := expr.S(el.ID)
	if m.a.EffortIn(b1, el.ID) {
		m.emit(b1.Flow(), Algebraic, expr.Scale(s1, expr.Quo(expr.S(b2.Effort()), r)), el.ID)
		m.emit(b2.Flow(), Algebraic, expr.Scale(-s2, expr.Quo(expr.S(b1.Effort()), r)), el.ID)
		return
	}
	m.emit(b1.Effort(), Algebraic, expr.Scale(-s2, expr.Prod(r, expr.S(b2.Flow()))), el.ID)
	m.emit(b2.Effort(), Algebraic, expr.Scale(s1, expr.Prod(r, expr.S(b1.Flow()))), el.ID)
}
