// Package topology holds named bond graph topologies: the built-in examples
// and documents loaded from YAML files.
package topology

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
)

var ErrUnknownTopology = errors.New("topology: unknown topology")

// Topology is an unvalidated element and bond list plus run defaults.
type Topology struct {
	Name        string
	Title       string
	Description string
	Elements    []bondgraph.Element
	Bonds       [][2]string
	StepNumber  int
	StepSize    float64
	BreakLoops  bool
}

// Graph validates the topology into a bond graph named after Title.
func (t *Topology) Graph() (*bondgraph.Graph, error) {
	title := t.Title
	if title == "" {
		title = t.Name
	}
	return bondgraph.Build(title, t.Elements, t.Bonds)
}

func (t *Topology) CausalityOptions() []causality.Option {
	if t.BreakLoops {
		return []causality.Option{causality.WithLoopBreaking()}
	}
	return nil
}

var registry = map[string]func() *Topology{
	"simple_example":            simpleExample,
	"rc":                        rc,
	"moving_body":               movingBody,
	"moving_body_controller":    movingBodyController,
	"spring_damper":             springDamper,
	"check_transformer":         checkTransformer,
	"controlled_moving_body":    controlledMovingBody,
	"electrical_bridge":         electricalBridge,
	"causality_assignment_test": causalityAssignmentTest,
	"collision":                 collision,
	"dc_motor":                  dcMotor,
	"rl_decay":                  rlDecay,
	"rc_charge":                 rcCharge,
}

// Get returns a fresh copy of the named built-in topology.
func Get(name string) (*Topology, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopology, name)
	}
	t := fn()
	t.Name = name
	return t, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every built-in topology in name order.
func All() []*Topology {
	names := Names()
	out := make([]*Topology, len(names))
	for i, name := range names {
		out[i], _ = Get(name)
	}
	return out
}
