package bondgraph

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/san-kum/bondsim/internal/expr"
)

// Bond is a directed power connection. The half arrow points at To: power
// is counted positive when it flows from From to To.
type Bond struct {
	Index    int
	From, To string
}

func (b Bond) Effort() string { return "e" + strconv.Itoa(b.Index) }
func (b Bond) Flow() string   { return "f" + strconv.Itoa(b.Index) }

// Other returns the element on the opposite end of id.
func (b Bond) Other(id string) string {
	if b.From == id {
		return b.To
	}
	return b.From
}

func (b Bond) String() string { return fmt.Sprintf("%d:%s->%s", b.Index, b.From, b.To) }

// Graph is an immutable, validated bond graph. Bonds are numbered from 1 in
// declaration order.
type Graph struct {
	name     string
	elements []Element
	index    map[string]int
	bonds    []Bond
	incident map[string][]int
}

var bondVar = regexp.MustCompile(`^[ef][0-9]+$`)

func reserved(id string) bool {
	return id == expr.Time || id == "pi" || bondVar.MatchString(id) ||
		strings.HasPrefix(id, "q_") || strings.HasPrefix(id, "p_")
}

// Build validates elements and bonds and returns the graph. Each bond is a
// [from, to] pair of element IDs.
func Build(name string, elements []Element, bonds [][2]string) (*Graph, error) {
	g := &Graph{
		name:     name,
		elements: make([]Element, 0, len(elements)),
		index:    make(map[string]int, len(elements)),
		incident: make(map[string][]int, len(elements)),
	}
	fail := func(id, format string, args ...any) error {
		return &TopologyError{Graph: name, Element: id, Reason: fmt.Sprintf(format, args...)}
	}

	for _, el := range elements {
		switch {
		case el.ID == "":
			return nil, fail("", "empty element id")
		case reserved(el.ID):
			return nil, fail(el.ID, "reserved identifier")
		case !el.Kind.valid():
			return nil, fail(el.ID, "unknown kind %d", int(el.Kind))
		}
		if _, dup := g.index[el.ID]; dup {
			return nil, fail(el.ID, "duplicate element id")
		}
		if err := checkParams(el); err != "" {
			return nil, fail(el.ID, "%s", err)
		}
		g.index[el.ID] = len(g.elements)
		g.elements = append(g.elements, el)
	}

	seen := make(map[[2]string]bool, len(bonds))
	for i, pair := range bonds {
		from, to := pair[0], pair[1]
		for _, id := range pair {
			if _, ok := g.index[id]; !ok {
				return nil, fail(id, "bond %d references unknown element", i+1)
			}
		}
		if from == to {
			return nil, fail(from, "self bond")
		}
		key := [2]string{from, to}
		if from > to {
			key = [2]string{to, from}
		}
		if seen[key] {
			return nil, fail(from, "duplicate bond to %q", to)
		}
		seen[key] = true
		b := Bond{Index: i + 1, From: from, To: to}
		g.bonds = append(g.bonds, b)
		g.incident[from] = append(g.incident[from], i)
		g.incident[to] = append(g.incident[to], i)
	}

	for _, el := range g.elements {
		n := len(g.incident[el.ID])
		switch {
		case el.Kind.IsOnePort() && n != 1:
			return nil, fail(el.ID, "one-port has %d bonds", n)
		case el.Kind.IsTwoPort() && n != 2:
			return nil, fail(el.ID, "two-port has %d bonds", n)
		case el.Kind.IsJunction() && n < 2:
			return nil, fail(el.ID, "junction has %d bonds", n)
		}
		if el.Law == nil {
			continue
		}
		for _, sym := range expr.Symbols(el.Law) {
			if sym == expr.Time {
				continue
			}
			j, ok := g.index[sym]
			if !el.Kind.IsController() || !ok || !g.elements[j].Kind.IsSensor() {
				return nil, fail(el.ID, "law references unknown sensor %q", sym)
			}
		}
		if ders := expr.Derivatives(el.Law); len(ders) > 0 {
			return nil, fail(el.ID, "law contains a derivative")
		}
	}
	return g, nil
}

func checkParams(el Element) string {
	if el.Kind.HasLaw() && el.Law == nil {
		return "missing law"
	}
	if !el.Kind.HasLaw() && el.Law != nil {
		return "law on a passive element"
	}
	if math.IsNaN(el.Value) || math.IsInf(el.Value, 0) {
		return "non-finite value"
	}
	if math.IsNaN(el.Initial) || math.IsInf(el.Initial, 0) {
		return "non-finite initial state"
	}
	switch el.Kind {
	case Resistance, Capacitance, Inertance:
		if el.Value <= 0 {
			return fmt.Sprintf("value must be positive, got %g", el.Value)
		}
	case Transformer, Gyrator:
		if el.Value == 0 {
			return "value must be non-zero"
		}
	}
	return ""
}

func (g *Graph) Name() string { return g.name }

// Elements returns the elements in insertion order.
func (g *Graph) Elements() []Element {
	out := make([]Element, len(g.elements))
	copy(out, g.elements)
	return out
}

func (g *Graph) Element(id string) (Element, bool) {
	i, ok := g.index[id]
	if !ok {
		return Element{}, false
	}
	return g.elements[i], true
}

func (g *Graph) Bonds() []Bond {
	out := make([]Bond, len(g.bonds))
	copy(out, g.bonds)
	return out
}

// Bond returns the bond with the given 1-based index.
func (g *Graph) Bond(index int) (Bond, bool) {
	if index < 1 || index > len(g.bonds) {
		return Bond{}, false
	}
	return g.bonds[index-1], true
}

// BondsOf returns the bonds attached to id in declaration order.
func (g *Graph) BondsOf(id string) []Bond {
	idx := g.incident[id]
	out := make([]Bond, len(idx))
	for i, j := range idx {
		out[i] = g.bonds[j]
	}
	return out
}

// Inward reports whether b points into id.
func (g *Graph) Inward(b Bond, id string) bool { return b.To == id }

// Sign is +1 when b points into id and -1 otherwise.
func (g *Graph) Sign(b Bond, id string) float64 {
	if g.Inward(b, id) {
		return 1
	}
	return -1
}

func (g *Graph) StorageElements() []Element {
	var out []Element
	for _, el := range g.elements {
		if el.Kind.IsStorage() {
			out = append(out, el)
		}
	}
	return out
}
