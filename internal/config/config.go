package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/integrators"
)

const (
	DefaultStepNumber  = dynamo.DefaultStepNumber
	DefaultStepSize    = dynamo.DefaultStepSize
	DefaultFormat      = "text"
	DefaultLogLevel    = "info"
	DefaultPlotWidth   = 8.0
	DefaultPlotHeight  = 4.0
	DefaultChartHeight = 12
)

const (
	OutputGraph      = "dgraph"
	OutputEquations  = "deq"
	OutputSolution   = "dsol"
	OutputSimulation = "dsim"
)

var (
	Outputs   = []string{OutputGraph, OutputEquations, OutputSolution, OutputSimulation}
	Formats   = []string{"text", "csv", "json"}
	LogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	Topology   string     `yaml:"topology"`
	File       string     `yaml:"file,omitempty"`
	Integrator string     `yaml:"integrator"`
	StepNumber int        `yaml:"step_number"`
	StepSize   float64    `yaml:"step_size"`
	StartTime  float64    `yaml:"start_time"`
	Outputs    []string   `yaml:"outputs"`
	Format     string     `yaml:"format"`
	BreakLoops bool       `yaml:"break_loops"`
	Plot       PlotConfig `yaml:"plot"`
	LogLevel   string     `yaml:"log_level"`
}

// PlotConfig sizes the PNG chart in inches and the terminal chart in rows.
type PlotConfig struct {
	Path        string  `yaml:"path,omitempty"`
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	ChartHeight int     `yaml:"chart_height"`
}

func DefaultConfig() *Config {
	run := dynamo.DefaultConfig()
	return &Config{
		Topology:   "spring_damper",
		Integrator: integrators.Default,
		StepNumber: run.StepNumber,
		StepSize:   run.StepSize,
		StartTime:  run.StartTime,
		Outputs:    []string{OutputSimulation},
		Format:     DefaultFormat,
		Plot: PlotConfig{
			Width:       DefaultPlotWidth,
			Height:      DefaultPlotHeight,
			ChartHeight: DefaultChartHeight,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads path over DefaultConfig, so omitted keys keep their defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path over a copy of base. Keys the file omits keep the
// values of base, which is left unchanged.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := *base
	cfg.Outputs = slices.Clone(base.Outputs)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidConfig}, args...)...)
}

func (c *Config) Validate() error {
	if c.Topology == "" && c.File == "" {
		return invalid("no topology or file")
	}
	if _, err := integrators.Factory(c.Integrator); err != nil {
		return invalid("%v", err)
	}
	if err := c.Run().Validate(); err != nil {
		return err
	}
	for _, o := range c.Outputs {
		if !slices.Contains(Outputs, o) {
			return invalid("unknown output %q (want one of %v)", o, Outputs)
		}
	}
	if !slices.Contains(Formats, c.Format) {
		return invalid("unknown format %q (want one of %v)", c.Format, Formats)
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return invalid("unknown log level %q (want one of %v)", c.LogLevel, LogLevels)
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 || c.Plot.ChartHeight <= 0 {
		return invalid("plot dimensions must be positive")
	}
	return nil
}

func (c *Config) Run() dynamo.Config {
	return dynamo.Config{StepNumber: c.StepNumber, StepSize: c.StepSize, StartTime: c.StartTime}
}

func (c *Config) Wants(output string) bool { return slices.Contains(c.Outputs, output) }

func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
