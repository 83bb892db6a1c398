package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/bondsim/internal/config"
	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/integrators"
	"github.com/san-kum/bondsim/internal/pipeline"
	"github.com/san-kum/bondsim/internal/render"
	"github.com/san-kum/bondsim/internal/telemetry"
	"github.com/san-kum/bondsim/internal/topology"
	"github.com/san-kum/bondsim/internal/tui"
)

var (
	configFile string
	topoFile   string
	preset     string
	integrator string
	breakLoops bool
	format     string
	plotPath   string
	dotOut     bool
	metricsOut bool
	logLevel   string
	theme      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "bondsim",
		Short:         "bond graph modelling and simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "run configuration file (yaml)")
	pf.StringVar(&topoFile, "file", "", "topology file (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&integrator, "integrator", integrators.Default, "integration method ("+strings.Join(integrators.Names(), ", ")+")")
	pf.BoolVar(&breakLoops, "break-loops", false, "break algebraic loops at the first open resistor")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.BoolVar(&metricsOut, "metrics", false, "print pipeline metrics to stderr on exit")
	pf.StringVar(&theme, "theme", render.ThemeCyberpunk.Name, "color theme ("+strings.Join(render.ThemeNames(), ", ")+")")

	runCmd := &cobra.Command{
		Use:   "run <topology|all|-> [step_number step_size] [dgraph] [deq] [dsol] [dsim]",
		Short: "build, solve and simulate a topology",
		Long: "Runs the named topology, every built-in topology (all), or the topology\n" +
			"loaded with --file (-). Outputs default to those of the configuration.",
		Args: cobra.MinimumNArgs(1),
		RunE: runTopology,
	}
	runCmd.Flags().StringVar(&format, "format", config.DefaultFormat, "simulation output format (text, csv, json)")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "write a PNG chart of the states to this path")
	runCmd.Flags().BoolVar(&dotOut, "dot", false, "write the bond graph in Graphviz syntax with dgraph")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list built-in topologies",
		Args:  cobra.NoArgs,
		RunE:  listTopologies,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep <topology> <step_number> <step_size>...",
		Short: "simulate one topology at several step sizes in parallel",
		Args:  cobra.MinimumNArgs(3),
		RunE:  sweepTopology,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <topology> [step_number step_size]",
		Short: "linearize a topology around its initial state",
		Args:  cobra.RangeArgs(1, 3),
		RunE:  analyzeTopology,
	}

	viewCmd := &cobra.Command{
		Use:   "view [topology]",
		Short: "interactive viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  viewTopology,
	}

	exportCmd := &cobra.Command{
		Use:   "export <topology>",
		Short: "write a built-in topology as a yaml topology file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := topology.Get(args[0])
			if err != nil {
				return err
			}
			return topology.Encode(cmd.OutOrStdout(), top)
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage run configuration files",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init <path>",
		Short: "write the default run configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	})

	rootCmd.AddCommand(runCmd, listCmd, sweepCmd, analyzeCmd, viewCmd, exportCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bondsim: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, preset, configuration file and explicitly set
// flags, in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("break-loops") {
		cfg.BreakLoops = breakLoops
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Lookup("format") != nil && flags.Changed("format") {
		cfg.Format = format
	}
	if flags.Lookup("plot") != nil && flags.Changed("plot") {
		cfg.Plot.Path = plotPath
	}
	if flags.Changed("file") {
		cfg.File = topoFile
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

// parseSteps reads a step number and step size from args.
func parseSteps(args []string) (int, float64, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: step number %q", dynamo.ErrInvalidConfig, args[0])
	}
	h, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: step size %q", dynamo.ErrInvalidConfig, args[1])
	}
	return n, h, nil
}

// explicitSteps reports whether the step settings came from the user rather
// than the defaults, so topology defaults apply otherwise.
func explicitSteps(cfg *config.Config) bool {
	return cfg.StepNumber != config.DefaultStepNumber || cfg.StepSize != config.DefaultStepSize
}

func resolve(name string, cfg *config.Config) ([]*topology.Topology, error) {
	switch {
	case name == "all":
		return topology.All(), nil
	case name == "-":
		if cfg.File == "" {
			return nil, fmt.Errorf("%w: '-' needs --file", dynamo.ErrInvalidConfig)
		}
		top, err := topology.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		return []*topology.Topology{top}, nil
	}
	top, err := topology.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(topology.Names(), ", "))
	}
	return []*topology.Topology{top}, nil
}

func options(cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) pipeline.Options {
	return pipeline.Options{
		Graph:      cfg.Wants(config.OutputGraph),
		Equations:  cfg.Wants(config.OutputEquations),
		Solution:   cfg.Wants(config.OutputSolution),
		Simulation: cfg.Wants(config.OutputSimulation),
		Integrator: cfg.Integrator,
		Run:        cfg.Run(),
		BreakLoops: cfg.BreakLoops,
		Logger:     logger,
		Metrics:    metrics,
	}
}

// withTopologyDefaults uses the step settings of top unless the user chose
// their own.
func withTopologyDefaults(opts pipeline.Options, top *topology.Topology, explicit bool) pipeline.Options {
	if !explicit && top.StepNumber > 0 {
		opts.Run.StepNumber, opts.Run.StepSize = top.StepNumber, top.StepSize
	}
	return opts
}

func writeMetrics(metrics *telemetry.Metrics) {
	if metricsOut {
		if err := metrics.Write(os.Stderr); err != nil {
			fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		}
	}
}

func runTopology(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rest := args[1:]
	explicit := false
	if len(rest) >= 2 {
		if _, convErr := strconv.Atoi(rest[0]); convErr == nil {
			cfg.StepNumber, cfg.StepSize, err = parseSteps(rest)
			if err != nil {
				return err
			}
			rest, explicit = rest[2:], true
		}
	}
	if len(rest) > 0 {
		cfg.Outputs = rest
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	explicit = explicit || explicitSteps(cfg)

	tops, err := resolve(args[0], cfg)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	metrics := telemetry.New()
	defer writeMetrics(metrics)

	out := cmd.OutOrStdout()
	printer := render.New(out, render.GetTheme(theme))
	printer.ChartHeight = cfg.Plot.ChartHeight
	base := options(cfg, logger, metrics)

	results := pipeline.RunEach(cmd.Context(), tops, func(top *topology.Topology) pipeline.Options {
		return withTopologyDefaults(base, top, explicit)
	})

	var errs []error
	for _, res := range results {
		if err := show(printer, cfg, res.Artifacts, len(tops) > 1); err != nil {
			errs = append(errs, err)
		}
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// show prints every requested output that the run produced.
func show(p *render.Printer, cfg *config.Config, art *pipeline.Artifacts, many bool) error {
	if cfg.Wants(config.OutputGraph) && art.Graph != nil {
		p.Graph(art.Graph, art.Causality)
		if dotOut {
			if err := p.DOT(art.Graph, art.Causality); err != nil {
				return err
			}
		}
	}
	if cfg.Wants(config.OutputEquations) && art.Equations != nil {
		p.Equations(art.Equations)
	}
	if cfg.Wants(config.OutputSolution) && art.Space != nil {
		p.Solution(art.Space)
	}
	if !cfg.Wants(config.OutputSimulation) || art.Trajectory == nil {
		return nil
	}
	if err := p.Simulation(art, cfg.Format); err != nil {
		return err
	}
	if cfg.Plot.Path == "" || art.System.StateDim() == 0 {
		return nil
	}
	path := cfg.Plot.Path
	if many {
		ext := filepath.Ext(path)
		path = strings.TrimSuffix(path, ext) + "_" + art.Topology.Name + ext
	}
	return render.PlotPNG(path, art, render.PlotSize{Width: cfg.Plot.Width, Height: cfg.Plot.Height})
}

func listTopologies(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tSTEP SIZE\tDESCRIPTION")
	for _, top := range topology.All() {
		fmt.Fprintf(w, "%s\t%d\t%g\t%s\n", top.Name, top.StepNumber, top.StepSize, top.Description)
	}
	return w.Flush()
}

func sweepTopology(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: step number %q", dynamo.ErrInvalidConfig, args[1])
	}
	sizes := make([]float64, 0, len(args)-2)
	for _, a := range args[2:] {
		h, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("%w: step size %q", dynamo.ErrInvalidConfig, a)
		}
		sizes = append(sizes, h)
	}
	tops, err := resolve(args[0], cfg)
	if err != nil {
		return err
	}
	metrics := telemetry.New()
	defer writeMetrics(metrics)

	art, results, err := pipeline.Sweep(cmd.Context(), tops[0], n, sizes, options(cfg, newLogger(cfg), metrics))
	if err != nil {
		return err
	}
	render.New(cmd.OutOrStdout(), render.GetTheme(theme)).Sweep(art, results)
	return nil
}

func analyzeTopology(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	explicit := explicitSteps(cfg)
	if len(args) == 3 {
		if cfg.StepNumber, cfg.StepSize, err = parseSteps(args[1:]); err != nil {
			return err
		}
		explicit = true
	} else if len(args) == 2 {
		return fmt.Errorf("%w: step number and step size go together", dynamo.ErrInvalidConfig)
	}
	tops, err := resolve(args[0], cfg)
	if err != nil {
		return err
	}
	metrics := telemetry.New()
	defer writeMetrics(metrics)

	opts := withTopologyDefaults(options(cfg, newLogger(cfg), metrics), tops[0], explicit)
	art, report, err := pipeline.Analyze(cmd.Context(), tops[0], opts)
	if err != nil {
		return err
	}
	render.New(cmd.OutOrStdout(), render.GetTheme(theme)).Analysis(art, report)
	return nil
}

func viewTopology(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	start := ""
	if len(args) == 1 {
		start = args[0]
	}
	tops := topology.All()
	if cfg.File != "" {
		top, err := topology.LoadFile(cfg.File)
		if err != nil {
			return err
		}
		tops = append([]*topology.Topology{top}, tops...)
	}
	opts := tui.Options{
		Integrator: cfg.Integrator,
		Theme:      render.GetTheme(theme),
		Metrics:    telemetry.New(),
	}
	if explicitSteps(cfg) {
		opts.Run = cfg.Run()
	}
	return tui.Run(cmd.Context(), tops, start, opts)
}
