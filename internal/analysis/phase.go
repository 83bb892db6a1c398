package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/bondsim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D pairs two state components of a trajectory.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// PhasePortrait projects tr onto the (xIdx, yIdx) plane.
func PhasePortrait(tr *dynamo.Trajectory, xIdx, yIdx int) (*PhasePortrait2D, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("analysis: empty trajectory")
	}
	dim := len(tr.States[0])
	if xIdx < 0 || yIdx < 0 || xIdx >= dim || yIdx >= dim {
		return nil, fmt.Errorf("%w: components %d and %d of a %d-dimensional state",
			dynamo.ErrDimensionMismatch, xIdx, yIdx, dim)
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, len(tr.States)),
	}
	for i, x := range tr.States {
		portrait.Points[i] = Point{X: x[xIdx], Y: x[yIdx]}
	}
	return portrait, nil
}

// Bounds is the bounding box of the portrait, widened by pad of its extent
// on every side. A flat axis gets unit extent.
func (pp *PhasePortrait2D) Bounds(pad float64) (lo, hi Point) {
	lo, hi = pp.Points[0], pp.Points[0]
	for _, p := range pp.Points {
		lo.X, hi.X = math.Min(lo.X, p.X), math.Max(hi.X, p.X)
		lo.Y, hi.Y = math.Min(lo.Y, p.Y), math.Max(hi.Y, p.Y)
	}
	dx, dy := hi.X-lo.X, hi.Y-lo.Y
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	lo.X, hi.X = lo.X-pad*dx, hi.X+pad*dx
	lo.Y, hi.Y = lo.Y-pad*dy, hi.Y+pad*dy
	return lo, hi
}

// Plot draws the portrait on a width x height character grid with the
// axes through the origin when visible. The first sample is drawn as 'o'
// and the last as '*'.
func (pp *PhasePortrait2D) Plot(width, height int) string {
	if len(pp.Points) == 0 || width < 2 || height < 2 {
		return ""
	}
	lo, hi := pp.Bounds(0.1)
	cell := func(p Point) (row, col int) {
		col = int((p.X - lo.X) / (hi.X - lo.X) * float64(width-1))
		row = height - 1 - int((p.Y-lo.Y)/(hi.Y-lo.Y)*float64(height-1))
		return row, col
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	zero, _ := cell(Point{})
	_, axis := cell(Point{})
	if lo.Y <= 0 && hi.Y >= 0 {
		for c := range grid[zero] {
			grid[zero][c] = '─'
		}
	}
	if lo.X <= 0 && hi.X >= 0 {
		for r := range grid {
			grid[r][axis] = '│'
		}
		if lo.Y <= 0 && hi.Y >= 0 {
			grid[zero][axis] = '┼'
		}
	}

	last := len(pp.Points) - 1
	for i, p := range pp.Points {
		r, c := cell(p)
		switch i {
		case 0:
			grid[r][c] = 'o'
		case last:
			grid[r][c] = '*'
		default:
			if grid[r][c] != 'o' {
				grid[r][c] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}
