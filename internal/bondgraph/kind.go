package bondgraph

import "fmt"

// Kind is the closed set of bond graph element variants.
type Kind int

const (
	EffortSource Kind = iota + 1
	FlowSource
	Resistance
	Capacitance
	Inertance
	Junction0
	Junction1
	Transformer
	Gyrator
	EffortSensor
	FlowSensor
	EffortController
	FlowController
)

var mnemonics = map[Kind]string{
	EffortSource:     "Se",
	FlowSource:       "Sf",
	Resistance:       "R",
	Capacitance:      "C",
	Inertance:        "I",
	Junction0:        "0",
	Junction1:        "1",
	Transformer:      "TF",
	Gyrator:          "GY",
	EffortSensor:     "De",
	FlowSensor:       "Df",
	EffortController: "Ge",
	FlowController:   "Gf",
}

func (k Kind) String() string {
	if s, ok := mnemonics[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a mnemonic such as "Se" or "0" back to its Kind.
func ParseKind(s string) (Kind, error) {
	for k, m := range mnemonics {
		if m == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("bondgraph: unknown element kind %q", s)
}

func (k Kind) valid() bool {
	_, ok := mnemonics[k]
	return ok
}

func (k Kind) IsOnePort() bool {
	switch k {
	case Junction0, Junction1, Transformer, Gyrator:
		return false
	}
	return k.valid()
}

func (k Kind) IsTwoPort() bool  { return k == Transformer || k == Gyrator }
func (k Kind) IsJunction() bool { return k == Junction0 || k == Junction1 }
func (k Kind) IsStorage() bool  { return k == Capacitance || k == Inertance }
func (k Kind) IsSource() bool   { return k == EffortSource || k == FlowSource }
func (k Kind) IsSensor() bool   { return k == EffortSensor || k == FlowSensor }

func (k Kind) IsController() bool {
	return k == EffortController || k == FlowController
}

// HasLaw reports whether elements of this kind are driven by a time law.
func (k Kind) HasLaw() bool { return k.IsSource() || k.IsController() }

// HasValue reports whether the element carries a constitutive parameter.
func (k Kind) HasValue() bool {
	switch k {
	case Resistance, Capacitance, Inertance, Transformer, Gyrator:
		return true
	}
	return false
}
