package bondgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

type node struct {
	id int64
	el Element
}

func (n node) ID() int64 { return n.id }
func (n node) DOTID() string { return n.el.ID }
func (n node) Attributes() []encoding.Attribute {
	shape := "plaintext"
	if n.el.Kind.IsJunction() {
		shape = "circle"
	}
	return []encoding.Attribute{
		{Key: "label", Value: n.el.String()},
		{Key: "shape", Value: shape},
	}
}

type edge struct {
	from, to node
	bond     Bond
	label    string
}

func (e edge) From() graph.Node         { return e.from }
func (e edge) To() graph.Node           { return e.to }
func (e edge) ReversedEdge() graph.Edge { return edge{from: e.to, to: e.from, bond: e.bond, label: e.label} }
func (e edge) Attributes() []encoding.Attribute {
	return []encoding.Attribute{
		{Key: "label", Value: e.label},
		{Key: "arrowhead", Value: "lhalf"},
	}
}

func (g *Graph) nodes() []node {
	ns := make([]node, len(g.elements))
	for i, el := range g.elements {
		ns[i] = node{id: int64(i), el: el}
	}
	return ns
}

// Components returns the connected subsystems as element ID lists, each in
// insertion order and ordered by their first element.
func (g *Graph) Components() [][]string {
	ug := simple.NewUndirectedGraph()
	ns := g.nodes()
	for _, n := range ns {
		ug.AddNode(n)
	}
	for _, b := range g.bonds {
		ug.SetEdge(ug.NewEdge(ns[g.index[b.From]], ns[g.index[b.To]]))
	}

	var out [][]int64
	for _, cc := range topo.ConnectedComponents(ug) {
		ids := make([]int64, len(cc))
		for i, n := range cc {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })

	comps := make([][]string, len(out))
	for i, ids := range out {
		for _, id := range ids {
			comps[i] = append(comps[i], g.elements[id].ID)
		}
	}
	return comps
}

// DOT renders the graph in Graphviz syntax. label names each bond; nil
// labels bonds with their effort and flow variables.
func (g *Graph) DOT(label func(Bond) string) ([]byte, error) {
	if label == nil {
		label = func(b Bond) string { return b.Effort() + "/" + b.Flow() }
	}
	dg := simple.NewDirectedGraph()
	ns := g.nodes()
	for _, n := range ns {
		dg.AddNode(n)
	}
	for _, b := range g.bonds {
		dg.SetEdge(edge{from: ns[g.index[b.From]], to: ns[g.index[b.To]], bond: b, label: label(b)})
	}
	return dot.Marshal(dg, g.name, "", "  ")
}
