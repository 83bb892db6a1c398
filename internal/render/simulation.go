package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/pipeline"
)

// Export is the JSON document of one simulation.
type Export struct {
	RunID       string      `json:"run_id"`
	Topology    string      `json:"topology"`
	Integrator  string      `json:"integrator"`
	StepSize    float64     `json:"step_size"`
	Steps       int         `json:"steps"`
	States      []string    `json:"states"`
	Outputs     []string    `json:"outputs"`
	Times       []float64   `json:"times"`
	Samples     [][]float64 `json:"samples"`
	OutputRows  [][]float64 `json:"output_samples"`
	EnergyDrift float64     `json:"energy_drift"`
}

// NewExport collects the trajectory and bond variables of a finished run.
func NewExport(art *pipeline.Artifacts) *Export {
	tr := art.Trajectory
	e := &Export{
		RunID:       art.RunID,
		Topology:    art.Topology.Name,
		Integrator:  art.Integrator,
		Steps:       tr.Len() - 1,
		States:      art.System.StateNames(),
		Outputs:     art.System.OutputNames(),
		Times:       tr.Times,
		Samples:     make([][]float64, tr.Len()),
		OutputRows:  make([][]float64, tr.Len()),
		EnergyDrift: tr.EnergyDrift,
	}
	if tr.Len() > 1 {
		e.StepSize = tr.Times[1] - tr.Times[0]
	}
	for k, x := range tr.States {
		e.Samples[k] = x
		e.OutputRows[k] = art.System.Outputs(x, tr.Times[k])
	}
	return e
}

// Simulation writes the trajectory of art in format.
func (p *Printer) Simulation(art *pipeline.Artifacts, format string) error {
	if art.Trajectory == nil || art.System == nil {
		return fmt.Errorf("render: %s has no simulation", art.Topology.Name)
	}
	switch format {
	case FormatText, "":
		p.simulationText(art)
		return nil
	case FormatCSV:
		return p.simulationCSV(art)
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewExport(art))
	}
	return fmt.Errorf("%w: %q", ErrFormat, format)
}

func (p *Printer) simulationText(art *pipeline.Artifacts) {
	tr, sys := art.Trajectory, art.System
	p.section(fmt.Sprintf("Simulation of %s", art.Topology.Name))
	p.field("integrator", art.Integrator)
	p.field("samples", tr.Len())
	p.field("time", fmt.Sprintf("%s .. %s", num(tr.Times[0]), num(tr.Times[tr.Len()-1])))
	p.println()

	names := sys.StateNames()
	if tr.Len() > 1 {
		for i, name := range names {
			p.println(asciigraph.Plot(tr.Series(i),
				asciigraph.Height(p.ChartHeight),
				asciigraph.Width(p.Width),
				asciigraph.Caption(name+" vs time"),
			))
			p.println()
		}
	}

	if len(names) > 0 {
		rows := make([][]string, len(names))
		for i, name := range names {
			s := tr.Series(i)
			lo, hi := s[0], s[0]
			for _, v := range s {
				lo, hi = min(lo, v), max(hi, v)
			}
			rows[i] = []string{name, num(s[0]), num(s[len(s)-1]), num(lo), num(hi)}
		}
		p.table([]string{"STATE", "INITIAL", "FINAL", "MIN", "MAX"}, rows)

		energy := make([]float64, tr.Len())
		for k, x := range tr.States {
			energy[k] = sys.Energy(x)
		}
		p.printf("%s %s\n", p.st.Label.Render("stored energy:"), p.st.Sparkline(energy, min(p.Width, 60)))
		p.field("energy drift", num(tr.EnergyDrift))
	} else {
		p.println(p.st.Muted.Render("no states; bond variables are algebraic in time"))
	}

	final, t := tr.Final(), tr.Times[tr.Len()-1]
	if outs := sys.OutputNames(); len(outs) > 0 {
		vals := sys.Outputs(final, t)
		rows := make([][]string, len(outs))
		for i, name := range outs {
			rows[i] = []string{name, num(vals[i])}
		}
		p.println()
		p.println(p.st.Title.Render(fmt.Sprintf("Bond variables at t = %s", num(t))))
		p.table([]string{"VARIABLE", "VALUE"}, rows)
	}
	p.println(p.st.Separator(p.Width))
}

func (p *Printer) simulationCSV(art *pipeline.Artifacts) error {
	tr, sys := art.Trajectory, art.System
	w := csv.NewWriter(p.w)

	header := append([]string{"time"}, sys.StateNames()...)
	header = append(header, sys.OutputNames()...)
	if err := w.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for k, x := range tr.States {
		row := make([]string, 0, len(header))
		row = append(row, format(tr.Times[k]))
		for _, v := range x {
			row = append(row, format(v))
		}
		for _, v := range sys.Outputs(x, tr.Times[k]) {
			row = append(row, format(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Sweep summarizes a step-size sweep, one row per step size.
func (p *Printer) Sweep(art *pipeline.Artifacts, results []dynamo.SweepResult) {
	p.section(fmt.Sprintf("Step-size sweep of %s (%s)", art.Topology.Name, art.Integrator))
	names := art.System.StateNames()
	rows := make([][]string, len(results))
	for i, res := range results {
		row := []string{num(res.StepSize)}
		switch {
		case res.Err != nil:
			row = append(row, p.st.Bad.Render("failed"), res.Err.Error())
		default:
			row = append(row, p.st.Good.Render("ok"), nums(res.Trajectory.Final()))
		}
		rows[i] = row
	}
	header := "FINAL STATE"
	if len(names) > 0 {
		header = fmt.Sprintf("FINAL (%s)", strings.Join(names, ", "))
	}
	p.table([]string{"STEP", "STATUS", header}, rows)
}
