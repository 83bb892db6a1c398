// Package solver reduces an assembled equation set to an explicit
// state-space system dx/dt = f(x, t) by work-list substitution.
package solver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/bondsim/internal/equations"
	"github.com/san-kum/bondsim/internal/expr"
)

var ErrUnsolvable = errors.New("solver: system cannot be reduced")

// UnsolvableSystemError lists the variables that could not be expressed in
// states, parameters, inputs and time. Time derivatives of storage variables
// appear as "d(x)/dt".
type UnsolvableSystemError struct {
	Graph      string
	Reason     string
	Unresolved []string
}

func (e *UnsolvableSystemError) Error() string {
	msg := fmt.Sprintf("solver %q: %s", e.Graph, e.Reason)
	if len(e.Unresolved) > 0 {
		msg += " (unresolved: " + strings.Join(e.Unresolved, ", ") + ")"
	}
	return msg
}

func (e *UnsolvableSystemError) Unwrap() error { return ErrUnsolvable }

// Output is an eliminated bond variable written in states and inputs.
type Output struct {
	Name string
	Expr expr.Expr
}

// StateSpace is the explicit system. Derivatives[i] is dStates[i]/dt.
type StateSpace struct {
	Graph       string
	States      []equations.State
	Derivatives []expr.Expr
	Params      []equations.Param
	Inputs      []equations.Input
	Outputs     []Output
}

// InitialState collects the initial value of every state in order.
func (s *StateSpace) InitialState() []float64 {
	x := make([]float64, len(s.States))
	for i, st := range s.States {
		x[i] = st.Initial
	}
	return x
}

// Equations renders the system as "dx/dt = ..." lines.
func (s *StateSpace) Equations() []string {
	lines := make([]string, len(s.States))
	for i, st := range s.States {
		lines[i] = "d" + st.Name + "/dt = " + s.Derivatives[i].String()
	}
	return lines
}

type pending struct {
	target string
	rhs    expr.Expr
}

// Reduce repeatedly picks the pending algebraic equation with the fewest
// unresolved variables on its right-hand side (first in assembly order on
// ties), isolates its target when it appears on both sides, and substitutes
// it into the rest. Either every derivative ends up explicit or the whole
// reduction fails.
func Reduce(set *equations.Set) (*StateSpace, error) {
	if set == nil {
		return nil, &UnsolvableSystemError{Reason: "nil equation set"}
	}
	var work []pending
	for _, eq := range set.Algebraic() {
		work = append(work, pending{target: eq.Target, rhs: eq.RHS})
	}

	var solved []pending
	for len(work) > 0 {
		open := make(map[string]bool, len(work))
		for _, p := range work {
			open[p.target] = true
		}
		best, bestCount := 0, -1
		for i, p := range work {
			n := 0
			for _, name := range expr.Symbols(p.rhs) {
				if open[name] {
					n++
				}
			}
			if bestCount < 0 || n < bestCount {
				best, bestCount = i, n
			}
		}

		p := work[best]
		work = append(work[:best], work[best+1:]...)
		rhs, err := isolate(p.target, p.rhs)
		if err != nil {
			names := []string{p.target}
			for _, w := range work {
				names = append(names, w.target)
			}
			return nil, &UnsolvableSystemError{Graph: set.Graph, Reason: err.Error(), Unresolved: names}
		}
		solved = append(solved, pending{target: p.target, rhs: rhs})

		sub := map[string]expr.Expr{p.target: rhs}
		for i := range work {
			if expr.Contains(work[i].rhs, p.target) {
				work[i].rhs = expr.Substitute(work[i].rhs, sub)
			}
		}
	}

	// Each solved RHS only references targets solved after it.
	final := make(map[string]expr.Expr, len(solved))
	for i := len(solved) - 1; i >= 0; i-- {
		final[solved[i].target] = expr.Substitute(solved[i].rhs, final)
	}

	space := &StateSpace{
		Graph:  set.Graph,
		States: set.States,
		Params: set.Params,
		Inputs: set.Inputs,
	}
	for _, eq := range set.Derivatives() {
		space.Derivatives = append(space.Derivatives, expr.Substitute(eq.RHS, final))
	}
	for _, v := range set.Variables {
		if e, ok := final[v]; ok {
			space.Outputs = append(space.Outputs, Output{Name: v, Expr: e})
		}
	}

	if len(space.Derivatives) != len(space.States) {
		return nil, &UnsolvableSystemError{
			Graph:  set.Graph,
			Reason: fmt.Sprintf("%d derivatives for %d states", len(space.Derivatives), len(space.States)),
		}
	}
	if bad := space.unresolved(); len(bad) > 0 {
		return nil, &UnsolvableSystemError{Graph: set.Graph, Reason: "implicit system", Unresolved: bad}
	}
	return space, nil
}

// isolate solves x = r(x) for x when r is affine in x.
func isolate(x string, rhs expr.Expr) (expr.Expr, error) {
	if !expr.Contains(rhs, x) {
		return rhs, nil
	}
	if inCondition(rhs, x) {
		return nil, fmt.Errorf("%s appears in a condition of its own definition", x)
	}
	d := expr.Diff(rhs, x)
	if expr.Contains(d, x) {
		return nil, fmt.Errorf("%s appears nonlinearly in its own definition", x)
	}
	den := expr.Minus(expr.N(1), d)
	if expr.IsZero(den) {
		return nil, fmt.Errorf("singular algebraic loop on %s", x)
	}
	r0 := expr.Substitute(rhs, map[string]expr.Expr{x: expr.N(0)})
	return expr.Quo(r0, den), nil
}

func inCondition(e expr.Expr, name string) bool {
	found := false
	expr.Walk(e, func(n expr.Expr) bool {
		if c, ok := n.(*expr.Cond); ok && (expr.Contains(c.L, name) || expr.Contains(c.R, name)) {
			found = true
		}
		return !found
	})
	return found
}

// unresolved returns every symbol or time derivative in the derivatives and
// outputs that is not a state, parameter, input or t.
func (s *StateSpace) unresolved() []string {
	known := map[string]bool{expr.Time: true}
	for _, st := range s.States {
		known[st.Name] = true
	}
	for _, p := range s.Params {
		known[p.Name] = true
	}
	for _, in := range s.Inputs {
		known[in.Name] = true
	}

	bad := make(map[string]bool)
	check := func(e expr.Expr) {
		for _, name := range expr.Symbols(e) {
			if !known[name] {
				bad[name] = true
			}
		}
		for _, name := range expr.Derivatives(e) {
			bad[(&expr.Der{Name: name}).String()] = true
		}
	}
	for _, d := range s.Derivatives {
		check(d)
	}
	for _, o := range s.Outputs {
		check(o.Expr)
	}
	names := make([]string, 0, len(bad))
	for name := range bad {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
