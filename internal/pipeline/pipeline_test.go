package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bondsim/internal/bondgraph"
	"github.com/san-kum/bondsim/internal/causality"
	"github.com/san-kum/bondsim/internal/dynamo"
	"github.com/san-kum/bondsim/internal/expr"
	"github.com/san-kum/bondsim/internal/pipeline"
	"github.com/san-kum/bondsim/internal/solver"
	"github.com/san-kum/bondsim/internal/telemetry"
	"github.com/san-kum/bondsim/internal/topology"
)

func mustGet(name string) *topology.Topology {
	top, err := topology.Get(name)
	Expect(err).NotTo(HaveOccurred())
	return top
}

var _ = Describe("Run", func() {
	var (
		ctx     context.Context
		logs    *bytes.Buffer
		metrics *telemetry.Metrics
		opts    pipeline.Options
	)

	BeforeEach(func() {
		ctx = context.Background()
		logs = &bytes.Buffer{}
		metrics = telemetry.New()
		opts = pipeline.Options{
			Run:     dynamo.Config{StepNumber: 100, StepSize: 0.01},
			Logger:  slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
			Metrics: metrics,
		}
	})

	Context("with every output requested", func() {
		BeforeEach(func() {
			opts.Graph, opts.Equations, opts.Solution, opts.Simulation = true, true, true, true
		})

		It("produces every artifact for the spring damper", func() {
			art, err := pipeline.Run(ctx, mustGet("spring_damper"), opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(art.RunID).NotTo(BeEmpty())
			Expect(art.Integrator).To(Equal("rk4"))
			Expect(art.Graph).NotTo(BeNil())
			Expect(art.Causality).NotTo(BeNil())
			Expect(art.Equations.Equations).NotTo(BeEmpty())
			Expect(art.Space.States).To(HaveLen(2))
			Expect(art.System.StateDim()).To(Equal(2))
			Expect(art.Trajectory.Len()).To(Equal(101))

			for _, stage := range []string{"build", "assign", "assemble", "reduce", "compile", "simulate"} {
				Expect(metrics.Observations(stage)).To(Equal(uint64(1)), stage)
			}
			Expect(logs.String()).To(ContainSubstring("run_id=" + art.RunID))
			Expect(logs.String()).To(ContainSubstring("topology=spring_damper"))
			Expect(logs.String()).To(ContainSubstring("simulation finished"))
		})

		It("follows the analytic charging curve", func() {
			art, err := pipeline.Run(ctx, mustGet("rc_charge"), opts)
			Expect(err).NotTo(HaveOccurred())

			for k, t := range art.Trajectory.Times {
				want := 1 - math.Exp(-t)
				Expect(art.Trajectory.States[k][0]).To(BeNumerically("~", want, 1e-8))
			}
		})

		It("decays the RL circuit monotonically", func() {
			opts.Run = dynamo.Config{StepNumber: 400, StepSize: 0.05}
			art, err := pipeline.Run(ctx, mustGet("rl_decay"), opts)
			Expect(err).NotTo(HaveOccurred())

			p := art.Trajectory.Series(0)
			for k := 1; k < len(p); k++ {
				Expect(p[k]).To(BeNumerically("<", p[k-1]))
			}
			Expect(p[len(p)-1]).To(BeNumerically("<", 1e-3))
		})

		It("is bit-identical across runs", func() {
			a, err := pipeline.Run(ctx, mustGet("collision"), opts)
			Expect(err).NotTo(HaveOccurred())
			b, err := pipeline.Run(ctx, mustGet("collision"), opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(b.Trajectory.States).To(Equal(a.Trajectory.States))
			Expect(b.RunID).NotTo(Equal(a.RunID))
		})

		It("returns only the initial sample for zero steps", func() {
			opts.Run.StepNumber = 0
			art, err := pipeline.Run(ctx, mustGet("spring_damper"), opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(art.Trajectory.Times).To(Equal([]float64{0}))
			Expect(art.Trajectory.States[0]).To(Equal(dynamo.State{3, 5}))
		})
	})

	Context("with only the graph requested", func() {
		BeforeEach(func() { opts.Graph = true })

		It("stops after graph construction", func() {
			art, err := pipeline.Run(ctx, mustGet("check_transformer"), opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(art.Graph).NotTo(BeNil())
			Expect(art.Causality).NotTo(BeNil())
			Expect(art.Equations).To(BeNil())
			Expect(metrics.Observations("assemble")).To(BeZero())
		})

		It("shows a graph whose causality cannot be assigned", func() {
			top := &topology.Topology{
				Name: "two_sources",
				Elements: []bondgraph.Element{
					bondgraph.Se("Se_1", expr.N(1)),
					bondgraph.Se("Se_2", expr.N(2)),
					bondgraph.J1("1"),
				},
				Bonds: [][2]string{{"Se_1", "1"}, {"Se_2", "1"}},
			}
			art, err := pipeline.Run(ctx, top, opts)
			Expect(err).NotTo(HaveOccurred())
			Expect(art.Graph).NotTo(BeNil())
			Expect(art.Causality).To(BeNil())
			Expect(logs.String()).To(ContainSubstring("graph shown without causality"))
		})
	})

	It("stops after assembly when only equations are requested", func() {
		opts.Equations = true
		art, err := pipeline.Run(ctx, mustGet("dc_motor"), opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(art.Equations).NotTo(BeNil())
		Expect(art.Space).To(BeNil())
		Expect(art.Trajectory).To(BeNil())
	})

	Describe("failures", func() {
		BeforeEach(func() { opts.Simulation = true })

		It("reports a missing element as a topology error", func() {
			top := &topology.Topology{
				Name:     "dangling",
				Elements: []bondgraph.Element{bondgraph.C("C", 1, 0), bondgraph.J0("0")},
				Bonds:    [][2]string{{"0", "C"}, {"0", "R"}},
			}
			art, err := pipeline.Run(ctx, top, opts)
			Expect(errors.Is(err, bondgraph.ErrTopology)).To(BeTrue())
			Expect(art.Graph).To(BeNil())
			Expect(art.Equations).To(BeNil())
			Expect(metrics.Failures("build", "topology")).To(Equal(1.0))
		})

		It("reports conflicting sources as a causality error", func() {
			top := &topology.Topology{
				Name: "two_sources",
				Elements: []bondgraph.Element{
					bondgraph.Se("Se_1", expr.N(1)),
					bondgraph.Se("Se_2", expr.N(2)),
					bondgraph.J1("1"),
				},
				Bonds: [][2]string{{"Se_1", "1"}, {"Se_2", "1"}},
			}
			_, err := pipeline.Run(ctx, top, opts)
			var ce *causality.CausalityError
			Expect(errors.As(err, &ce)).To(BeTrue())
			Expect(pipeline.Kind(err)).To(Equal("causality"))
		})

		It("rejects derivative causality without a partial system", func() {
			top := &topology.Topology{
				Name: "clamped_capacitor",
				Elements: []bondgraph.Element{
					bondgraph.Se("Se", expr.N(1)),
					bondgraph.J0("0"),
					bondgraph.C("C", 1, 0),
				},
				Bonds: [][2]string{{"Se", "0"}, {"0", "C"}},
			}
			art, err := pipeline.Run(ctx, top, opts)
			Expect(errors.Is(err, solver.ErrUnsolvable)).To(BeTrue())
			Expect(art.Equations).NotTo(BeNil())
			Expect(art.Space).To(BeNil())
			Expect(metrics.Failures("reduce", "unsolvable")).To(Equal(1.0))
		})

		It("discards the trajectory on numerical instability", func() {
			opts.Integrator = "euler"
			opts.Run = dynamo.Config{StepNumber: 1000, StepSize: 100}
			art, err := pipeline.Run(ctx, mustGet("rl_decay"), opts)

			var ne *dynamo.NumericalInstabilityError
			Expect(errors.As(err, &ne)).To(BeTrue())
			Expect(ne.Step).To(BeNumerically(">", 0))
			Expect(art.Trajectory).To(BeNil())
			Expect(pipeline.Kind(err)).To(Equal("instability"))
		})

		It("rejects an unknown integrator", func() {
			opts.Integrator = "verlet"
			_, err := pipeline.Run(ctx, mustGet("rc"), opts)
			Expect(pipeline.Kind(err)).To(Equal("config"))
		})

		It("rejects a non-positive step size", func() {
			opts.Run.StepSize = 0
			_, err := pipeline.Run(ctx, mustGet("rc"), opts)
			Expect(errors.Is(err, dynamo.ErrInvalidConfig)).To(BeTrue())
		})

		It("stops when the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := pipeline.Run(canceled, mustGet("rc"), opts)
			Expect(pipeline.Kind(err)).To(Equal("canceled"))
		})
	})
})

var _ = Describe("RunAll", func() {
	It("simulates every built-in topology", func() {
		opts := pipeline.Options{
			Simulation: true,
			Run:        dynamo.Config{StepNumber: 20, StepSize: 0.01},
			Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		}
		tops := topology.All()
		results := pipeline.RunAll(context.Background(), tops, opts)

		Expect(results).To(HaveLen(len(tops)))
		for i, res := range results {
			Expect(res.Err).NotTo(HaveOccurred(), tops[i].Name)
			Expect(res.Artifacts.Topology.Name).To(Equal(tops[i].Name))
			Expect(res.Artifacts.Trajectory.Len()).To(Equal(21))
		}
	})
})

var _ = Describe("Sweep", func() {
	It("runs every step size in order and keeps failures separate", func() {
		sizes := []float64{0.1, 0.01, 10}
		opts := pipeline.Options{
			Integrator: "euler",
			Logger:     slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		}
		art, results, err := pipeline.Sweep(context.Background(), mustGet("rl_decay"), 1000, sizes, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(art.System).NotTo(BeNil())
		Expect(results).To(HaveLen(3))

		for i, res := range results {
			Expect(res.StepSize).To(Equal(sizes[i]))
		}
		Expect(results[0].Err).NotTo(HaveOccurred())
		Expect(results[1].Trajectory.Len()).To(Equal(1001))
		Expect(errors.Is(results[2].Err, dynamo.ErrNumericalInstability)).To(BeTrue())
	})
})

var _ = Describe("Analyze", func() {
	It("bounds the stable step of the spring damper", func() {
		opts := pipeline.Options{
			Run:    dynamo.Config{StepNumber: 500, StepSize: 0.01},
			Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		}
		_, report, err := pipeline.Analyze(context.Background(), mustGet("spring_damper"), opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Linearization.Stable()).To(BeTrue())
		Expect(report.StableSteps["rk4"]).To(BeNumerically(">", 0.01))
		Expect(report.Frequencies).To(HaveLen(2))
	})
})

var _ = DescribeTable("Kind",
	func(err error, want string) {
		Expect(pipeline.Kind(err)).To(Equal(want))
	},
	Entry("topology", &bondgraph.TopologyError{Reason: "x"}, "topology"),
	Entry("causality", fmt.Errorf("wrapped: %w", causality.ErrCausality), "causality"),
	Entry("unsolvable", &solver.UnsolvableSystemError{Reason: "x"}, "unsolvable"),
	Entry("instability", &dynamo.NumericalInstabilityError{}, "instability"),
	Entry("config", dynamo.ErrInvalidConfig, "config"),
	Entry("canceled", context.Canceled, "canceled"),
	Entry("other", errors.New("boom"), "other"),
)
