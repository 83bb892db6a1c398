package render

import (
	"fmt"

	"github.com/san-kum/bondsim/internal/equations"
	"github.com/san-kum/bondsim/internal/solver"
)

// Equations lists the assembled system in assembly order followed by its
// parameters and inputs.
func (p *Printer) Equations(set *equations.Set) {
	p.section("Equations of " + set.Graph)
	for i, eq := range set.Equations {
		line := eq.String()
		if eq.Role == equations.StateDerivative {
			line = p.st.Value.Render(line)
		}
		p.printf("%3d  %s  %s\n", i+1, line, p.st.Muted.Render(eq.Element))
	}
	p.println()

	if len(set.Params) > 0 {
		rows := make([][]string, len(set.Params))
		for i, prm := range set.Params {
			rows[i] = []string{prm.Name, num(prm.Value)}
		}
		p.table([]string{"PARAMETER", "VALUE"}, rows)
	}
	if len(set.Inputs) > 0 {
		rows := make([][]string, len(set.Inputs))
		for i, in := range set.Inputs {
			rows[i] = []string{in.Name, in.Law.String()}
		}
		p.table([]string{"INPUT", "LAW"}, rows)
	}
	p.println()
}

// Solution lists the explicit state equations and every bond variable in
// terms of the states.
func (p *Printer) Solution(space *solver.StateSpace) {
	p.section("Solution of " + space.Graph)
	if len(space.States) == 0 {
		p.println(p.st.Muted.Render("no storage elements in integral causality"))
	}
	for i, line := range space.Equations() {
		p.printf("  %s    %s\n", p.st.Value.Render(line),
			p.st.Muted.Render(fmt.Sprintf("%s(0) = %s", space.States[i].Name, num(space.States[i].Initial))))
	}
	p.println()
	for _, out := range space.Outputs {
		p.printf("  %s = %s\n", p.st.Label.Render(out.Name), out.Expr)
	}
	p.println()
}
