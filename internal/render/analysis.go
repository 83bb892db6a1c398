package render

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/bondsim/internal/analysis"
	"github.com/san-kum/bondsim/internal/pipeline"
)

func eigenText(v complex128) string {
	switch {
	case imag(v) == 0:
		return num(real(v))
	case imag(v) < 0:
		return fmt.Sprintf("%s - %si", num(real(v)), num(-imag(v)))
	}
	return fmt.Sprintf("%s + %si", num(real(v)), num(imag(v)))
}

func stepText(h float64) string {
	switch {
	case math.IsInf(h, 1):
		return "unbounded"
	case h == 0:
		return "none"
	}
	return num(h)
}

// Analysis writes the linearization report of art around its initial
// state.
func (p *Printer) Analysis(art *pipeline.Artifacts, r *analysis.Report) {
	lin := r.Linearization
	p.section("Linear analysis of " + art.Topology.Name)
	names := art.System.StateNames()
	if len(names) == 0 {
		p.println(p.st.Muted.Render("no states to linearize"))
		p.println()
		return
	}

	p.field("operating point", nums(lin.Point))
	p.println(p.st.Title.Render("Jacobian"))
	p.printf("%v\n\n", mat.Formatted(lin.Jacobian, mat.Prefix("  "), mat.Squeeze()))

	rows := make([][]string, len(lin.Eigenvalues))
	for i, v := range lin.Eigenvalues {
		tau := "-"
		if real(v) < 0 {
			tau = num(-1 / real(v))
		}
		rows[i] = []string{eigenText(v), tau}
	}
	p.table([]string{"EIGENVALUE", "TIME CONSTANT"}, rows)

	if lin.Stable() {
		p.println(p.st.Good.Render("asymptotically stable"))
	} else {
		p.println(p.st.Warn.Render("not asymptotically stable"))
	}

	rows = rows[:0]
	for _, m := range r.Methods() {
		h := r.StableSteps[m]
		status := p.st.Good.Render("ok")
		if r.StepSize > h {
			status = p.st.Bad.Render("unstable")
		}
		rows = append(rows, []string{m, stepText(h), status})
	}
	p.table([]string{"METHOD", "MAX STABLE STEP", "STEP " + num(r.StepSize)}, rows)

	p.field("suggested rk45 step", num(r.SuggestedStep))
	p.field("largest lyapunov exponent", num(r.Lyapunov))
	for i, f := range r.Frequencies {
		if f > 0 {
			p.field("dominant frequency of "+names[i], num(f)+" Hz")
		}
	}

	if len(names) >= 2 && r.Trajectory != nil {
		if pp, err := analysis.PhasePortrait(r.Trajectory, 0, 1); err == nil {
			p.println()
			p.println(p.st.Title.Render(fmt.Sprintf("Phase portrait %s / %s", names[1], names[0])))
			p.println(p.st.Panel.Render(pp.Plot(min(p.Width, 60), 20)))
		}
	}
	p.println()
}
