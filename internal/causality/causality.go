// Package causality assigns causal strokes to the bonds of a bond graph with
// the Sequential Causality Assignment Procedure.
package causality

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/bondsim/internal/bondgraph"
)

var ErrCausality = errors.New("causality: no consistent assignment")

// CausalityError names the element whose rule could not be met together with
// the bonds that were still open when assignment stopped.
type CausalityError struct {
	Graph      string
	Element    string
	Reason     string
	Unassigned []int
}

func (e *CausalityError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "causality %q", e.Graph)
	if e.Element != "" {
		fmt.Fprintf(&sb, ": element %q", e.Element)
	}
	sb.WriteString(": " + e.Reason)
	if len(e.Unassigned) > 0 {
		ids := make([]string, len(e.Unassigned))
		for i, b := range e.Unassigned {
			ids[i] = strconv.Itoa(b)
		}
		sb.WriteString(" (unassigned bonds: " + strings.Join(ids, ", ") + ")")
	}
	return sb.String()
}

func (e *CausalityError) Unwrap() error { return ErrCausality }

// Stroke marks the bond end that receives effort.
type Stroke int

const (
	Open Stroke = iota
	StrokeAtTo
	StrokeAtFrom
)

func (s Stroke) String() string {
	switch s {
	case StrokeAtTo:
		return "|->"
	case StrokeAtFrom:
		return "-|"
	}
	return "open"
}

type StorageCausality int

const (
	Integral StorageCausality = iota + 1
	Derivative
)

func (c StorageCausality) String() string {
	switch c {
	case Integral:
		return "integral"
	case Derivative:
		return "derivative"
	}
	return "none"
}

// Assignment holds one stroke per bond of the graph it was computed for.
type Assignment struct {
	graph   *bondgraph.Graph
	strokes []Stroke
}

func (a *Assignment) Graph() *bondgraph.Graph { return a.graph }

func (a *Assignment) Stroke(b bondgraph.Bond) Stroke {
	if b.Index < 1 || b.Index > len(a.strokes) {
		return Open
	}
	return a.strokes[b.Index-1]
}

// EffortIn reports whether id receives effort on b.
func (a *Assignment) EffortIn(b bondgraph.Bond, id string) bool {
	switch a.Stroke(b) {
	case StrokeAtTo:
		return b.To == id
	case StrokeAtFrom:
		return b.From == id
	}
	return false
}

// StorageCausality is Integral when a capacitance receives flow or an
// inertance receives effort. It is zero for non-storage elements.
func (a *Assignment) StorageCausality(id string) StorageCausality {
	el, ok := a.graph.Element(id)
	if !ok || !el.Kind.IsStorage() {
		return 0
	}
	bonds := a.graph.BondsOf(id)
	if len(bonds) != 1 {
		return 0
	}
	effortIn := a.EffortIn(bonds[0], id)
	if (el.Kind == bondgraph.Inertance) == effortIn {
		return Integral
	}
	return Derivative
}

func (a *Assignment) Equal(o *Assignment) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.graph != o.graph || len(a.strokes) != len(o.strokes) {
		return false
	}
	for i := range a.strokes {
		if a.strokes[i] != o.strokes[i] {
			return false
		}
	}
	return true
}

type options struct {
	breakLoops bool
	logger     *slog.Logger
}

type Option func(*options)

// WithLoopBreaking lets the assignor resolve algebraic loops by imposing
// resistive causality once propagation stalls.
func WithLoopBreaking() Option {
	return func(o *options) { o.breakLoops = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Assign runs the procedure:
//  1. fixed causality of sources, sensors and controllers,
//  2. junction and two-port propagation to a fixed point,
//  3. integral causality for each open storage element, in insertion order,
//  4. optional loop breaking on resistances.
//
// Propagation is a FIFO work-list of element IDs, so the result only depends
// on the graph.
func Assign(g *bondgraph.Graph, opts ...Option) (*Assignment, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &assigner{g: g, strokes: make([]Stroke, len(g.Bonds())), log: o.logger}

	for _, el := range g.Elements() {
		b, ok := s.onlyBond(el.ID)
		if !ok {
			continue
		}
		switch el.Kind {
		case bondgraph.EffortSource, bondgraph.FlowSensor, bondgraph.EffortController:
			if err := s.give(b, el.ID); err != nil {
				return nil, err
			}
		case bondgraph.FlowSource, bondgraph.EffortSensor, bondgraph.FlowController:
			if err := s.take(b, el.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := s.propagate(); err != nil {
		return nil, err
	}

	for _, el := range g.StorageElements() {
		b, _ := s.onlyBond(el.ID)
		if s.strokes[b.Index-1] != Open {
			continue
		}
		var err error
		if el.Kind == bondgraph.Capacitance {
			err = s.give(b, el.ID)
		} else {
			err = s.take(b, el.ID)
		}
		if err == nil {
			err = s.propagate()
		}
		if err != nil {
			return nil, err
		}
	}

	for {
		open := s.unassigned()
		if len(open) == 0 {
			break
		}
		if !o.breakLoops {
			return nil, s.fail("", "algebraic loop: propagation stalled")
		}
		if err := s.breakLoop(open); err != nil {
			return nil, err
		}
	}
	return &Assignment{graph: g, strokes: s.strokes}, nil
}

type assigner struct {
	g       *bondgraph.Graph
	strokes []Stroke
	queue   []string
	log     *slog.Logger
}

func (s *assigner) onlyBond(id string) (bondgraph.Bond, bool) {
	bonds := s.g.BondsOf(id)
	if len(bonds) != 1 {
		return bondgraph.Bond{}, false
	}
	return bonds[0], true
}

// take makes id the effort receiver on b.
func (s *assigner) take(b bondgraph.Bond, id string) error {
	want := StrokeAtTo
	if b.From == id {
		want = StrokeAtFrom
	}
	switch cur := s.strokes[b.Index-1]; cur {
	case Open:
		s.strokes[b.Index-1] = want
		s.queue = append(s.queue, b.From, b.To)
		return nil
	case want:
		return nil
	}
	return s.fail(id, fmt.Sprintf("bond %d already imposes effort on %q", b.Index, b.Other(id)))
}

// give makes the element opposite id the effort receiver on b.
func (s *assigner) give(b bondgraph.Bond, id string) error {
	return s.take(b, b.Other(id))
}

func (s *assigner) propagate() error {
	for len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		el, _ := s.g.Element(id)
		var err error
		switch el.Kind {
		case bondgraph.Junction0:
			err = s.junction(id, true)
		case bondgraph.Junction1:
			err = s.junction(id, false)
		case bondgraph.Transformer:
			err = s.twoPort(id, false)
		case bondgraph.Gyrator:
			err = s.twoPort(id, true)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// junction enforces a single dominant bond: the one effort enters through
// on a 0-junction, the one effort leaves through on a 1-junction.
func (s *assigner) junction(id string, zero bool) error {
	var dominant []bondgraph.Bond
	var open []bondgraph.Bond
	for _, b := range s.g.BondsOf(id) {
		if s.strokes[b.Index-1] == Open {
			open = append(open, b)
			continue
		}
		if s.isDominant(b, id, zero) {
			dominant = append(dominant, b)
		}
	}
	switch {
	case len(dominant) > 1:
		return s.fail(id, fmt.Sprintf("%d bonds determine the common %s", len(dominant), common(zero)))
	case len(dominant) == 1:
		for _, b := range open {
			if err := s.setDominant(b, id, zero, false); err != nil {
				return err
			}
		}
	case len(open) == 1:
		return s.setDominant(open[0], id, zero, true)
	case len(open) == 0:
		return s.fail(id, fmt.Sprintf("no bond determines the common %s", common(zero)))
	}
	return nil
}

func common(zero bool) string {
	if zero {
		return "effort"
	}
	return "flow"
}

func (s *assigner) isDominant(b bondgraph.Bond, id string, zero bool) bool {
	in := s.effortIn(b, id)
	if zero {
		return in
	}
	return !in
}

func (s *assigner) setDominant(b bondgraph.Bond, id string, zero, dominant bool) error {
	if zero == dominant {
		return s.take(b, id)
	}
	return s.give(b, id)
}

func (s *assigner) effortIn(b bondgraph.Bond, id string) bool {
	switch s.strokes[b.Index-1] {
	case StrokeAtTo:
		return b.To == id
	case StrokeAtFrom:
		return b.From == id
	}
	return false
}

// twoPort applies the transformer rule (one port takes effort) or the
// gyrator rule (both ports alike).
func (s *assigner) twoPort(id string, gyrator bool) error {
	bonds := s.g.BondsOf(id)
	a, b := bonds[0], bonds[1]
	oa, ob := s.strokes[a.Index-1] == Open, s.strokes[b.Index-1] == Open
	switch {
	case oa && ob:
		return nil
	case !oa && !ob:
		same := s.effortIn(a, id) == s.effortIn(b, id)
		if same != gyrator {
			return s.fail(id, "inconsistent port causality")
		}
		return nil
	case oa:
		a, b = b, a
	}
	in := s.effortIn(a, id)
	if in == gyrator {
		return s.take(b, id)
	}
	return s.give(b, id)
}

func (s *assigner) unassigned() []int {
	var open []int
	for i, st := range s.strokes {
		if st == Open {
			open = append(open, i+1)
		}
	}
	return open
}

// breakLoop imposes effort from the first open resistance, falling back to
// the first open bond when the loop has no resistance.
func (s *assigner) breakLoop(open []int) error {
	for _, el := range s.g.Elements() {
		if el.Kind != bondgraph.Resistance {
			continue
		}
		b, _ := s.onlyBond(el.ID)
		if s.strokes[b.Index-1] != Open {
			continue
		}
		s.log.Warn("breaking algebraic loop", "graph", s.g.Name(), "element", el.ID, "bond", b.Index)
		if err := s.give(b, el.ID); err != nil {
			return err
		}
		return s.propagate()
	}
	b, _ := s.g.Bond(open[0])
	s.log.Warn("breaking algebraic loop", "graph", s.g.Name(), "bond", b.Index)
	if err := s.take(b, b.To); err != nil {
		return err
	}
	return s.propagate()
}

func (s *assigner) fail(id, reason string) error {
	open := s.unassigned()
	sort.Ints(open)
	return &CausalityError{Graph: s.g.Name(), Element: id, Reason: reason, Unassigned: open}
}
