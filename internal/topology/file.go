package topology

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/expr"
)

type document struct {
	Name        string            `yaml:"name"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	StepNumber  int               `yaml:"step_number"`
	StepSize    float64           `yaml:"step_size"`
	BreakLoops  bool              `yaml:"break_loops"`
	Elements    []elementDocument `yaml:"elements"`
	Bonds       [][]string        `yaml:"bonds"`
}

type elementDocument struct {
	ID      string  `yaml:"id"`
	Kind    string  `yaml:"kind"`
	Value   float64 `yaml:"value,omitempty"`
	Initial float64 `yaml:"initial,omitempty"`
	Law     string  `yaml:"law,omitempty"`
}

// LoadFile reads a YAML topology and validates it by building its graph.
// The name defaults to the file name without extension.
func LoadFile(path string) (*Topology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if _, err := t.Graph(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode parses one YAML topology document. Laws use expression syntax
// such as "5 * (10 - D_f)" or "t <= 3 ? 0 : 3".
func Decode(r io.Reader) (*Topology, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}

	t := &Topology{
		Name:        doc.Name,
		Title:       doc.Title,
		Description: doc.Description,
		StepNumber:  doc.StepNumber,
		StepSize:    doc.StepSize,
		BreakLoops:  doc.BreakLoops,
	}
	for _, ed := range doc.Elements {
		kind, err := bondgraph.ParseKind(ed.Kind)
		if err != nil {
			return nil, fmt.Errorf("element %q: %w", ed.ID, err)
		}
		el := bondgraph.Element{ID: ed.ID, Kind: kind, Value: ed.Value, Initial: ed.Initial}
		if ed.Law != "" {
			law, err := expr.Parse(ed.Law)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", ed.ID, err)
			}
			el.Law = law
		}
		t.Elements = append(t.Elements, el)
	}
	for i, b := range doc.Bonds {
		if len(b) != 2 {
			return nil, fmt.Errorf("bond %d: want [from, to], got %d entries", i+1, len(b))
		}
		t.Bonds = append(t.Bonds, [2]string{b[0], b[1]})
	}
	return t, nil
}

// Encode writes t as a YAML document that Decode reads back.
func Encode(w io.Writer, t *Topology) error {
	doc := document{
		Name:        t.Name,
		Title:       t.Title,
		Description: t.Description,
		StepNumber:  t.StepNumber,
		StepSize:    t.StepSize,
		BreakLoops:  t.BreakLoops,
	}
	for _, el := range t.Elements {
		ed := elementDocument{ID: el.ID, Kind: el.Kind.String(), Value: el.Value, Initial: el.Initial}
		if el.Law != nil {
			ed.Law = el.Law.String()
		}
		doc.Elements = append(doc.Elements, ed)
	}
	for _, b := range t.Bonds {
		doc.Bonds = append(doc.Bonds, []string{b[0], b[1]})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
