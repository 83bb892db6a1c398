package bondgraph

import "github.com/san-kum/bondsim/internal/expr"

// Element is one node of a bond graph. Value holds the constitutive
// parameter (R, C, I, transformer ratio or gyrator modulus) and Initial
// the starting displacement or momentum of storage elements.
type Element struct {
	ID      string
	Kind    Kind
	Value   float64
	Initial float64
	Law     expr.Expr
}

// State returns the name of the state variable owned by a storage element,
// or "" for every other kind.
func (e Element) State() string {
	switch e.Kind {
	case Capacitance:
		return "q_" + e.ID
	case Inertance:
		return "p_" + e.ID
	}
	return ""
}

func (e Element) String() string { return e.Kind.String() + ":" + e.ID }

func Se(id string, law expr.Expr) Element { return Element{ID: id, Kind: EffortSource, Law: law} }
func Sf(id string, law expr.Expr) Element { return Element{ID: id, Kind: FlowSource, Law: law} }

func R(id string, r float64) Element { return Element{ID: id, Kind: Resistance, Value: r} }

func C(id string, c, q0 float64) Element {
	return Element{ID: id, Kind: Capacitance, Value: c, Initial: q0}
}

func I(id string, m, p0 float64) Element {
	return Element{ID: id, Kind: Inertance, Value: m, Initial: p0}
}

func J0(id string) Element { return Element{ID: id, Kind: Junction0} }
func J1(id string) Element { return Element{ID: id, Kind: Junction1} }

func TF(id string, n float64) Element { return Element{ID: id, Kind: Transformer, Value: n} }
func GY(id string, r float64) Element { return Element{ID: id, Kind: Gyrator, Value: r} }

func De(id string) Element { return Element{ID: id, Kind: EffortSensor} }
func Df(id string) Element { return Element{ID: id, Kind: FlowSensor} }

// Ge and Gf are modulated sources whose law may read sensor IDs.
func Ge(id string, law expr.Expr) Element { return Element{ID: id, Kind: EffortController, Law: law} }
func Gf(id string, law expr.Expr) Element { return Element{ID: id, Kind: FlowController, Law: law} }
