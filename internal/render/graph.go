package render

import (
	"fmt"
	"strings"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
)

func parameter(el bondgraph.Element) string {
	switch {
	case el.Kind.IsStorage():
		return fmt.Sprintf("%s (%s0 = %s)", num(el.Value), el.State()[:1], num(el.Initial))
	case el.Kind.HasValue():
		return num(el.Value)
	case el.Kind.HasLaw():
		return el.Law.String()
	}
	return ""
}

// strokeText describes where the causal stroke of b sits.
func strokeText(a *causality.Assignment, b bondgraph.Bond) string {
	if a == nil {
		return "open"
	}
	switch a.Stroke(b) {
	case causality.StrokeAtTo:
		return b.From + " ⇀| " + b.To
	case causality.StrokeAtFrom:
		return b.From + " |⇀ " + b.To
	}
	return "open"
}

// Graph lists elements, bonds with their strokes and connected subsystems.
// a may be nil when causality could not be assigned.
func (p *Printer) Graph(g *bondgraph.Graph, a *causality.Assignment) {
	p.section("Bond graph " + g.Name())

	rows := make([][]string, 0, len(g.Elements()))
	for _, el := range g.Elements() {
		row := []string{el.ID, el.Kind.String(), parameter(el), ""}
		if a != nil && el.Kind.IsStorage() {
			row[3] = a.StorageCausality(el.ID).String()
		}
		rows = append(rows, row)
	}
	p.table([]string{"ELEMENT", "KIND", "PARAMETER", "CAUSALITY"}, rows)

	rows = rows[:0]
	for _, b := range g.Bonds() {
		rows = append(rows, []string{
			fmt.Sprint(b.Index), b.Effort() + ", " + b.Flow(), strokeText(a, b),
		})
	}
	p.table([]string{"BOND", "VARIABLES", "STROKE"}, rows)

	if a == nil {
		p.println(p.st.Warn.Render("causality could not be assigned"))
	}
	comps := g.Components()
	if len(comps) > 1 {
		p.field("subsystems", len(comps))
		for i, c := range comps {
			p.printf("  %d: %s\n", i+1, strings.Join(c, " "))
		}
	}
	p.println()
}

// DOT writes the graph in Graphviz syntax, labelling bonds with their
// variables and stroke.
func (p *Printer) DOT(g *bondgraph.Graph, a *causality.Assignment) error {
	out, err := g.DOT(func(b bondgraph.Bond) string {
		label := b.Effort() + "/" + b.Flow()
		if a != nil {
			label += " " + a.Stroke(b).String()
		}
		return label
	})
	if err != nil {
		return fmt.Errorf("render dot: %w", err)
	}
	_, err = p.w.Write(append(out, '\n'))
	return err
}
