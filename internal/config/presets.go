package config

import "sort"

// Presets are named run profiles. A preset only sets the fields it names;
// Apply copies those onto a config.
var Presets = map[string]Preset{
	"quick": {
		StepNumber: 200, StepSize: 0.05,
	},
	"precise": {
		Integrator: "rk45", StepNumber: 10000, StepSize: 0.001,
	},
	"coarse": {
		Integrator: "euler", StepNumber: 100, StepSize: 0.1,
	},
	"report": {
		Outputs: []string{OutputGraph, OutputEquations, OutputSolution, OutputSimulation},
	},
	"export": {
		Outputs: []string{OutputSimulation}, Format: "csv",
	},
}

type Preset struct {
	Integrator string
	StepNumber int
	StepSize   float64
	Outputs    []string
	Format     string
}

func (p Preset) Apply(c *Config) {
	if p.Integrator != "" {
		c.Integrator = p.Integrator
	}
	if p.StepNumber > 0 {
		c.StepNumber = p.StepNumber
	}
	if p.StepSize > 0 {
		c.StepSize = p.StepSize
	}
	if len(p.Outputs) > 0 {
		c.Outputs = append([]string(nil), p.Outputs...)
	}
	if p.Format != "" {
		c.Format = p.Format
	}
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
