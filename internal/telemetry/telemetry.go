// Package telemetry records pipeline stage latency and failures in a
// Prometheus registry.
package telemetry

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

type Metrics struct {
	registry     *prometheus.Registry
	stageSeconds *prometheus.HistogramVec
	stageErrors  *prometheus.CounterVec
	runs         *prometheus.CounterVec
	steps        prometheus.Counter
}

// New creates metrics on a private registry so that concurrent pipelines
// and tests do not share counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bondsim_stage_seconds",
				Help:    "Latency of pipeline stages",
				Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"stage"},
		),
		stageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondsim_stage_errors_total",
				Help: "Pipeline stage failures by error kind",
			},
			[]string{"stage", "kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondsim_runs_total",
				Help: "Completed pipeline runs per topology",
			},
			[]string{"topology"},
		),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bondsim_integration_steps_total",
			Help: "Integration steps taken across all runs",
		}),
	}
	m.registry.MustRegister(m.stageSeconds, m.stageErrors, m.runs, m.steps)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) StageFailed(stage, kind string) {
	m.stageErrors.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) RunCompleted(topology string, steps int) {
	m.runs.WithLabelValues(topology).Inc()
	m.steps.Add(float64(steps))
}

// Write renders every gathered family in the Prometheus text format.
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Observations returns how many latencies were recorded for stage.
func (m *Metrics) Observations(stage string) uint64 {
	var n uint64
	m.each("bondsim_stage_seconds", func(metric *dto.Metric) {
		if label(metric, "stage") == stage {
			n += metric.GetHistogram().GetSampleCount()
		}
	})
	return n
}

// Failures returns the error count for stage and kind.
func (m *Metrics) Failures(stage, kind string) float64 {
	var n float64
	m.each("bondsim_stage_errors_total", func(metric *dto.Metric) {
		if label(metric, "stage") == stage && label(metric, "kind") == kind {
			n += metric.GetCounter().GetValue()
		}
	})
	return n
}

func (m *Metrics) each(family string, fn func(*dto.Metric)) {
	families, err := m.registry.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, metric := range mf.GetMetric() {
			fn(metric)
		}
	}
}

func label(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
