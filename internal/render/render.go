// Package render writes the outputs of a pipeline run: the bond graph with
// its causal strokes, the assembled and the solved equations, simulation
// plots and tables, and linearization reports.
package render

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var ErrFormat = errors.New("render: unknown format")

// Printer writes styled listings to one writer.
type Printer struct {
	w           io.Writer
	st          styles
	Width       int
	ChartHeight int
}

// New returns a Printer for w. Colors follow theme when w is a terminal.
func New(w io.Writer, theme Theme) *Printer {
	return &Printer{w: w, st: newStyles(w, theme), Width: 80, ChartHeight: 12}
}

// NewTerminal returns a Printer for w that keeps the colors of the
// terminal on stdout, for buffers shown in the interactive viewer.
func NewTerminal(w io.Writer, theme Theme) *Printer {
	return &Printer{w: w, st: newStyles(os.Stdout, theme), Width: 80, ChartHeight: 12}
}

func (p *Printer) println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

func (p *Printer) printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *Printer) section(title string) {
	p.println(p.st.Header.Render(title))
}

func (p *Printer) field(label string, value any) {
	p.printf("%s %s\n", p.st.Label.Render(label+":"), p.st.Value.Render(fmt.Sprint(value)))
}

func (p *Printer) table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.st.Label).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.st.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	p.println(t.String())
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func nums(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = num(v)
	}
	return strings.Join(parts, ", ")
}
