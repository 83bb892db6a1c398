// Package pipeline runs a topology through graph construction, causality
// assignment, equation assembly, reduction and simulation, stopping after
// the last stage the requested outputs need.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/bondsim/internal/analysis"
	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/equations"
	"github.com/san-kum/bondsim/internal/integrators"
	"github.com/san-kum/bondsim/internal/solver"
	"github.com/san-kum/bondsim/internal/telemetry"
	"github.com/san-kum/bondsim/internal/topology"
)

const (
	StageBuild    = "build"
	StageAssign   = "assign"
	StageAssemble = "assemble"
	StageReduce   = "reduce"
	StageCompile  = "compile"
	StageSimulate = "simulate"
	StageAnalyze  = "analyze"
)

// Options selects outputs and run parameters. Graph alone only builds the
// graph and tries causality for display.
type Options struct {
	Graph      bool
	Equations  bool
	Solution   bool
	Simulation bool

	Integrator string
	Run        dynamo.Config
	BreakLoops bool

	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Artifacts holds whatever the run produced. Fields past the last stage
// run are nil.
type Artifacts struct {
	RunID      string
	Topology   *topology.Topology
	Integrator string
	Graph      *bondgraph.Graph
	Causality  *causality.Assignment
	Equations  *equations.Set
	Space      *solver.StateSpace
	System     *solver.Compiled
	Trajectory *dynamo.Trajectory
}

type runner struct {
	opts Options
	log  *slog.Logger
	art  *Artifacts
}

func newRunner(top *topology.Topology, opts Options) *runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.New()
	}
	if opts.Integrator == "" {
		opts.Integrator = integrators.Default
	}
	id := uuid.NewString()
	return &runner{
		opts: opts,
		log:  opts.Logger.With("topology", top.Name, "run_id", id),
		art:  &Artifacts{RunID: id, Topology: top, Integrator: opts.Integrator},
	}
}

func (r *runner) stage(name string, fn func() error) error {
	start := time.Now()
	r.log.Debug("stage started", "stage", name)
	err := fn()
	elapsed := time.Since(start)
	r.opts.Metrics.ObserveStage(name, elapsed)
	if err != nil {
		r.opts.Metrics.StageFailed(name, Kind(err))
		r.log.Error("stage failed", "stage", name, "kind", Kind(err), "err", err)
		return fmt.Errorf("%s %s: %w", r.art.Topology.Name, name, err)
	}
	r.log.Debug("stage finished", "stage", name, "elapsed", elapsed)
	return nil
}

func (r *runner) causalityOptions() []causality.Option {
	opts := []causality.Option{causality.WithLogger(r.log)}
	if r.opts.BreakLoops || r.art.Topology.BreakLoops {
		opts = append(opts, causality.WithLoopBreaking())
	}
	return opts
}

// Run executes the stages the requested outputs need.
func Run(ctx context.Context, top *topology.Topology, opts Options) (*Artifacts, error) {
	r := newRunner(top, opts)
	if err := r.through(ctx, r.lastStage()); err != nil {
		return r.art, err
	}
	return r.art, nil
}

func (r *runner) lastStage() string {
	switch {
	case r.opts.Simulation:
		return StageSimulate
	case r.opts.Solution:
		return StageReduce
	case r.opts.Equations:
		return StageAssemble
	}
	return StageBuild
}

var order = []string{StageBuild, StageAssign, StageAssemble, StageReduce, StageCompile, StageSimulate}

// through runs every stage up to and including last.
func (r *runner) through(ctx context.Context, last string) error {
	art := r.art
	steps := map[string]func() error{
		StageBuild: func() (err error) {
			art.Graph, err = art.Topology.Graph()
			if err == nil {
				r.log.Info("graph built", "elements", len(art.Graph.Elements()), "bonds", len(art.Graph.Bonds()))
			}
			return err
		},
		StageAssign: func() (err error) {
			art.Causality, err = causality.Assign(art.Graph, r.causalityOptions()...)
			return err
		},
		StageAssemble: func() (err error) {
			art.Equations, err = equations.Assemble(art.Graph, art.Causality)
			if err == nil {
				r.log.Info("equations assembled", "equations", len(art.Equations.Equations), "states", len(art.Equations.States))
			}
			return err
		},
		StageReduce: func() (err error) {
			art.Space, err = solver.Reduce(art.Equations)
			return err
		},
		StageCompile: func() (err error) {
			art.System, err = art.Space.Compile()
			return err
		},
		StageSimulate: func() error {
			integ, err := integrators.New(r.opts.Integrator)
			if err != nil {
				return err
			}
			x0 := dynamo.State(art.Space.InitialState())
			art.Trajectory, err = dynamo.New(art.System, integ).Run(ctx, x0, r.opts.Run)
			if err == nil {
				r.opts.Metrics.RunCompleted(art.Topology.Name, r.opts.Run.StepNumber)
				r.log.Info("simulation finished", "integrator", r.opts.Integrator,
					"samples", art.Trajectory.Len(), "energy_drift", art.Trajectory.EnergyDrift)
			}
			return err
		},
	}

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}
		if err := r.stage(name, steps[name]); err != nil {
			return err
		}
		if name == StageBuild && last == StageBuild {
			r.tryAssign()
			return nil
		}
		if name == last {
			return nil
		}
	}
	return nil
}

// tryAssign attaches strokes to a graph-only run without failing it.
func (r *runner) tryAssign() {
	a, err := causality.Assign(r.art.Graph, r.causalityOptions()...)
	if err != nil {
		r.log.Warn("graph shown without causality", "err", err)
		return
	}
	r.art.Causality = a
}

// Result is one entry of RunAll.
type Result struct {
	Artifacts *Artifacts
	Err       error
}

// RunAll runs each topology concurrently with the same options. Results keep
// the order of tops and one failure does not stop the others.
func RunAll(ctx context.Context, tops []*topology.Topology, opts Options) []Result {
	return RunEach(ctx, tops, func(*topology.Topology) Options { return opts })
}

// RunEach is RunAll with options chosen per topology.
func RunEach(ctx context.Context, tops []*topology.Topology, optsFor func(*topology.Topology) Options) []Result {
	results := make([]Result, len(tops))
	var wg sync.WaitGroup
	for i, top := range tops {
		wg.Add(1)
		go func(idx int, top *topology.Topology) {
			defer wg.Done()
			art, err := Run(ctx, top, optsFor(top))
			results[idx] = Result{Artifacts: art, Err: err}
		}(i, top)
	}
	wg.Wait()
	return results
}

// Sweep compiles the topology once and simulates it at every step size in
// parallel, each run with its own integrator.
func Sweep(ctx context.Context, top *topology.Topology, stepNumber int, sizes []float64, opts Options) (*Artifacts, []dynamo.SweepResult, error) {
	r := newRunner(top, opts)
	if err := r.through(ctx, StageCompile); err != nil {
		return r.art, nil, err
	}
	factory, err := integrators.Factory(r.opts.Integrator)
	if err != nil {
		return r.art, nil, err
	}

	cfg := r.opts.Run
	cfg.StepNumber = stepNumber
	var results []dynamo.SweepResult
	err = r.stage(StageSimulate, func() error {
		results = dynamo.Sweep(ctx, r.art.System, factory, r.art.Space.InitialState(), cfg, sizes)
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				r.opts.Metrics.StageFailed(StageSimulate, Kind(res.Err))
				r.log.Warn("sweep run failed", "step_size", res.StepSize, "err", res.Err)
			}
		}
		r.log.Info("sweep finished", "runs", len(results), "failed", failed)
		return nil
	})
	return r.art, results, err
}

// Analyze compiles the topology and builds a linearization report around
// its initial state.
func Analyze(ctx context.Context, top *topology.Topology, opts Options) (*Artifacts, *analysis.Report, error) {
	r := newRunner(top, opts)
	if err := r.through(ctx, StageCompile); err != nil {
		return r.art, nil, err
	}
	integ, err := integrators.New(r.opts.Integrator)
	if err != nil {
		return r.art, nil, err
	}
	var report *analysis.Report
	err = r.stage(StageAnalyze, func() (err error) {
		report, err = analysis.Analyze(ctx, r.art.System, integ, r.art.Space.InitialState(), r.opts.Run)
		return err
	})
	return r.art, report, err
}

// Kind classifies an error for metrics and exit reporting.
func Kind(err error) string {
	switch {
	case errors.Is(err, bondgraph.ErrTopology):
		return "topology"
	case errors.Is(err, causality.ErrCausality):
		return "causality"
	case errors.Is(err, equations.ErrAssembly):
		return "assembly"
	case errors.Is(err, solver.ErrUnsolvable):
		return "unsolvable"
	case errors.Is(err, dynamo.ErrNumericalInstability):
		return "instability"
	case errors.Is(err, dynamo.ErrInvalidConfig), errors.Is(err, integrators.ErrUnknownIntegrator):
		return "config"
	case errors.Is(err, dynamo.ErrContextCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "other"
}
