package bondgraph

import (
	"errors"
	"fmt"
)

var ErrTopology = errors.New("bondgraph: invalid topology")

// TopologyError reports the first structural defect found by Build.
type TopologyError struct {
	Graph   string
	Element string
	Reason  string
}

func (e *TopologyError) Error() string {
	if e.Element == "" {
		return fmt.Sprintf("bondgraph %q: %s", e.Graph, e.Reason)
	}
	return fmt.Sprintf("bondgraph %q: element %q: %s", e.Graph, e.Element, e.Reason)
}

func (e *TopologyError) Unwrap() error { return ErrTopology }
