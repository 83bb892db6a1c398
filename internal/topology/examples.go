package topology

import (
	bg "github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/expr"
)

func constant(v float64) expr.Expr { return expr.N(v) }

func simpleExample() *Topology {
	return &Topology{
		Title:       "Simple Electrical Circuit",
		Description: "flow source charging a capacitor in parallel with a resistor",
		Elements: []bg.Element{
			bg.Sf("S_f", constant(2)),
			bg.C("C", 1, 1),
			bg.R("R", 1),
			bg.J0("0"),
		},
		Bonds:      [][2]string{{"S_f", "0"}, {"0", "C"}, {"0", "R"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func rc() *Topology {
	return &Topology{
		Title:       "RC Discharge",
		Description: "charged capacitor discharging through a resistor",
		Elements: []bg.Element{
			bg.C("C", 1, 2),
			bg.R("R", 1),
			bg.J0("0"),
		},
		Bonds:      [][2]string{{"0", "C"}, {"0", "R"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func movingBody() *Topology {
	return &Topology{
		Title:       "Simple Moving Body",
		Description: "mass of 2 pushed by a constant unit force",
		Elements: []bg.Element{
			bg.I("I", 2, 0),
			bg.Se("S_e", constant(1)),
			bg.J1("1"),
		},
		Bonds:      [][2]string{{"S_e", "1"}, {"1", "I"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func movingBodyController() *Topology {
	const mass, setpoint, gain = 2, 10, 5
	law := expr.Prod(expr.N(gain), expr.Minus(expr.N(setpoint), expr.S("D_f")))
	return &Topology{
		Title:       "Moving Body Controller",
		Description: "proportional velocity controller on a mass with a sinusoidal disturbance",
		Elements: []bg.Element{
			bg.Se("S_e", expr.Fn("sin", expr.S(expr.Time))),
			bg.I("I", mass, 0),
			bg.Df("D_f"),
			bg.Ge("G_e", law),
			bg.J1("1"),
		},
		Bonds:      [][2]string{{"G_e", "1"}, {"1", "D_f"}, {"1", "I"}, {"S_e", "1"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func springDamper() *Topology {
	return &Topology{
		Title:       "Spring Damper System",
		Description: "mass on a spring and damper under gravity",
		Elements: []bg.Element{
			bg.Se("S_e", constant(9.81)),
			bg.I("I", 2, 3),
			bg.C("C", 0.1, 5),
			bg.R("R", 0.5),
			bg.J1("1"),
		},
		Bonds:      [][2]string{{"S_e", "1"}, {"1", "I"}, {"1", "C"}, {"1", "R"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func checkTransformer() *Topology {
	return &Topology{
		Title:       "Transformer Check",
		Description: "spring damper behind a transformer of ratio 5",
		Elements: []bg.Element{
			bg.Se("S_e", constant(0)),
			bg.TF("TF", 5),
			bg.J1("1"),
			bg.I("I", 2, 0),
			bg.C("C", 3, 2),
			bg.R("R", 1.5),
		},
		Bonds:      [][2]string{{"S_e", "TF"}, {"TF", "1"}, {"1", "C"}, {"1", "I"}, {"1", "R"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func controlledMovingBody() *Topology {
	t := expr.S(expr.Time)
	force := expr.If("<=", t, expr.N(3), expr.N(0),
		expr.If("<=", t, expr.N(7), expr.N(3), expr.N(-5)))
	return &Topology{
		Title:       "Controlled Moving Body",
		Description: "moving mass under a piecewise constant force",
		Elements: []bg.Element{
			bg.I("I", 2, 5),
			bg.Se("S_e", force),
			bg.J1("1"),
		},
		Bonds:      [][2]string{{"S_e", "1"}, {"1", "I"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func electricalBridge() *Topology {
	return &Topology{
		Title:       "Electrical Bridge",
		Description: "Wheatstone bridge of five unit resistors; resistive loops need loop breaking",
		Elements: []bg.Element{
			bg.R("R_1", 1), bg.R("R_2", 1), bg.R("R_3", 1), bg.R("R_4", 1), bg.R("R_5", 1),
			bg.J1("1_1"), bg.J1("1_2"), bg.J1("1_3"), bg.J1("1_4"), bg.J1("1_5"), bg.J1("1_6"),
			bg.J0("0_1"), bg.J0("0_2"), bg.J0("0_3"), bg.J0("0_4"),
			bg.Se("Se_S", constant(5)),
			bg.Se("Se_G", constant(0)),
		},
		Bonds: [][2]string{
			{"Se_S", "1_1"},
			{"1_1", "0_1"},
			{"0_1", "1_2"},
			{"1_2", "R_1"},
			{"0_1", "1_3"},
			{"1_3", "R_2"},
			{"1_2", "0_2"},
			{"1_3", "0_3"},
			{"0_2", "1_6"},
			{"1_6", "0_3"},
			{"1_6", "R_5"},
			{"0_2", "1_4"},
			{"0_3", "1_5"},
			{"1_4", "R_3"},
			{"1_5", "R_4"},
			{"1_4", "0_4"},
			{"1_5", "0_4"},
			{"0_4", "1_1"},
			{"0_4", "Se_G"},
		},
		StepNumber: 10,
		StepSize:   0.1,
		BreakLoops: true,
	}
}

func causalityAssignmentTest() *Topology {
	return &Topology{
		Title:       "Causality Assignment",
		Description: "purely resistive network exercising junction propagation",
		Elements: []bg.Element{
			bg.Se("S_e", constant(0)),
			bg.Sf("S_f", constant(0)),
			bg.R("R_1", 1),
			bg.R("R_2", 1),
			bg.J1("1_1"), bg.J1("1_2"), bg.J1("1_3"),
			bg.J0("0_1"), bg.J0("0_2"),
		},
		Bonds: [][2]string{
			{"0_1", "S_e"},
			{"0_1", "0_2"},
			{"0_1", "1_3"},
			{"0_2", "R_1"},
			{"R_2", "1_3"},
			{"0_2", "1_1"},
			{"1_2", "1_1"},
			{"1_2", "S_f"},
		},
		StepNumber: 10,
		StepSize:   0.1,
	}
}

func collision() *Topology {
	return &Topology{
		Title:       "Collision",
		Description: "two bodies meeting through a pair of contact springs",
		Elements: []bg.Element{
			bg.I("I_1", 1, 3),
			bg.J1("1_1"), bg.J1("1_3"), bg.J0("0_1"),
			bg.C("C_1", 1, 0),
			bg.I("I_2", 2, -10),
			bg.J1("1_2"), bg.J1("1_4"), bg.J0("0_2"),
			bg.C("C_2", 1, 0),
		},
		Bonds: [][2]string{
			{"1_1", "I_1"},
			{"1_3", "1_1"},
			{"1_3", "0_1"},
			{"0_1", "1_4"},
			{"0_1", "C_1"},
			{"1_2", "I_2"},
			{"1_4", "1_2"},
			{"1_4", "0_2"},
			{"0_2", "1_3"},
			{"0_2", "C_2"},
		},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func dcMotor() *Topology {
	return &Topology{
		Title:       "DC Motor",
		Description: "armature circuit coupled to a rotor through a gyrator",
		Elements: []bg.Element{
			bg.Se("V", constant(12)),
			bg.R("R_a", 1),
			bg.I("L_a", 0.5, 0),
			bg.GY("K", 0.1),
			bg.I("J", 0.01, 0),
			bg.R("B", 0.001),
			bg.J1("1_e"),
			bg.J1("1_m"),
		},
		Bonds: [][2]string{
			{"V", "1_e"}, {"1_e", "R_a"}, {"1_e", "L_a"}, {"1_e", "K"},
			{"K", "1_m"}, {"1_m", "J"}, {"1_m", "B"},
		},
		StepNumber: 2000,
		StepSize:   0.005,
	}
}

func rlDecay() *Topology {
	return &Topology{
		Title:       "RL Decay",
		Description: "momentum of an inertance dissipated by a resistance",
		Elements: []bg.Element{
			bg.I("L", 1.5, 4),
			bg.R("R", 0.8),
			bg.J1("1"),
		},
		Bonds:      [][2]string{{"1", "L"}, {"1", "R"}},
		StepNumber: 1000,
		StepSize:   0.01,
	}
}

func rcCharge() *Topology {
	return &Topology{
		Title:       "RC Charge",
		Description: "capacitor charged from a constant effort source through a series resistor",
		Elements: []bg.Element{
			bg.Se("E", constant(1)),
			bg.R("R", 1),
			bg.C("C", 1, 0),
			bg.J1("1"),
			bg.J0("0"),
		},
		Bonds:      [][2]string{{"E", "1"}, {"1", "R"}, {"1", "0"}, {"0", "C"}},
		StepNumber: 100,
		StepSize:   0.01,
	}
}
