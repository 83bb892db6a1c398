package solver

import (
	"fmt"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/expr"
)

type energyTerm struct {
	index int
	half  float64
}

// Compiled evaluates a StateSpace numerically. It implements dynamo.System
// and dynamo.Hamiltonian and holds no mutable state.
type Compiled struct {
	space   *StateSpace
	derive  []expr.Func
	outputs []expr.Func
	energy  []energyTerm
}

// Compile binds states to x, parameters to their values and inputs to their
// time laws.
func (s *StateSpace) Compile() (*Compiled, error) {
	bindings := make(map[string]expr.Func)
	for i, st := range s.States {
		bindings[st.Name] = expr.Index(i)
	}
	params := make(map[string]float64, len(s.Params))
	for _, p := range s.Params {
		bindings[p.Name] = expr.Const(p.Value)
		params[p.Name] = p.Value
	}
	for _, in := range s.Inputs {
		law, err := expr.Compile(in.Law, func(string) (expr.Func, bool) { return nil, false })
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		bindings[in.Name] = law
	}
	resolve := func(name string) (expr.Func, bool) {
		f, ok := bindings[name]
		return f, ok
	}

	c := &Compiled{space: s}
	for i, d := range s.Derivatives {
		f, err := expr.Compile(d, resolve)
		if err != nil {
			return nil, fmt.Errorf("d%s/dt: %w", s.States[i].Name, err)
		}
		c.derive = append(c.derive, f)
	}
	for _, o := range s.Outputs {
		f, err := expr.Compile(o.Expr, resolve)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", o.Name, err)
		}
		c.outputs = append(c.outputs, f)
	}
	for i, st := range s.States {
		switch st.Kind {
		case bondgraph.Capacitance, bondgraph.Inertance:
			c.energy = append(c.energy, energyTerm{index: i, half: 0.5 / params[st.Element]})
		}
	}
	return c, nil
}

func (c *Compiled) Space() *StateSpace { return c.space }

func (c *Compiled) StateDim() int { return len(c.derive) }

func (c *Compiled) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(c.derive))
	for i, f := range c.derive {
		dx[i] = f(x, t)
	}
	return dx
}

// Energy is the stored energy: q^2/2C summed over capacitances plus p^2/2I
// over inertances.
func (c *Compiled) Energy(x dynamo.State) float64 {
	e := 0.0
	for _, term := range c.energy {
		v := x[term.index]
		e += term.half * v * v
	}
	return e
}

// Outputs evaluates every bond variable in OutputNames order.
func (c *Compiled) Outputs(x dynamo.State, t float64) []float64 {
	y := make([]float64, len(c.outputs))
	for i, f := range c.outputs {
		y[i] = f(x, t)
	}
	return y
}

func (c *Compiled) StateNames() []string {
	names := make([]string, len(c.space.States))
	for i, st := range c.space.States {
		names[i] = st.Name
	}
	return names
}

func (c *Compiled) OutputNames() []string {
	names := make([]string, len(c.space.Outputs))
	for i, o := range c.space.Outputs {
		names[i] = o.Name
	}
	return names
}
