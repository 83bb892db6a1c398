package render

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/bondsim/internal/pipeline"
)

// PlotSize is the PNG size in inches.
type PlotSize struct {
	Width  float64
	Height float64
}

// PlotPNG draws every state of the simulated run against time and writes
// the chart to path.
func PlotPNG(path string, art *pipeline.Artifacts, size PlotSize) error {
	if art.Trajectory == nil || art.System == nil {
		return fmt.Errorf("render: %s has no simulation", art.Topology.Name)
	}
	names := art.System.StateNames()
	if len(names) == 0 {
		return fmt.Errorf("render: %s has no states to plot", art.Topology.Name)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", art.Topology.Name, art.Integrator)
	p.X.Label.Text = "time"
	p.Y.Label.Text = "state"
	p.Add(plotter.NewGrid())

	tr := art.Trajectory
	for i, name := range names {
		pts := make(plotter.XYs, tr.Len())
		for k := range pts {
			pts[k].X = tr.Times[k]
			pts[k].Y = tr.States[k][i]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot %s: %w", name, err)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	p.Legend.Top = true

	return savePNG(p, size, path)
}

func savePNG(p *plot.Plot, size PlotSize, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(size.Width)*vg.Inch, vg.Length(size.Height)*vg.Inch),
		vgimg.UseDPI(150),
	)
	p.Draw(draw.New(c))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}
