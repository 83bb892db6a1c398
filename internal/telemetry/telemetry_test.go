package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage("reduce", 3*time.Millisecond)
	m.ObserveStage("reduce", time.Millisecond)
	m.ObserveStage("simulate", time.Second)

	assert.Equal(t, uint64(2), m.Observations("reduce"))
	assert.Equal(t, uint64(1), m.Observations("simulate"))
	assert.Zero(t, m.Observations("assign"))
}

func TestStageFailed(t *testing.T) {
	m := New()
	m.StageFailed("assign", "causality")
	m.StageFailed("assign", "causality")
	m.StageFailed("simulate", "instability")

	assert.Equal(t, 2.0, m.Failures("assign", "causality"))
	assert.Equal(t, 1.0, m.Failures("simulate", "instability"))
	assert.Zero(t, m.Failures("simulate", "causality"))
}

func TestRunCompleted(t *testing.T) {
	m := New()
	m.RunCompleted("rc", 100)
	m.RunCompleted("rc", 50)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("rc")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.steps))
}

func TestWrite(t *testing.T) {
	m := New()
	m.ObserveStage("build", time.Microsecond)
	m.StageFailed("build", "topology")

	var buf bytes.Buffer
	require.NoError(t, m.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "# TYPE bondsim_stage_seconds histogram")
	assert.Contains(t, out, `bondsim_stage_errors_total{kind="topology",stage="build"} 1`)
	assert.Contains(t, out, "bondsim_integration_steps_total 0")
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.StageFailed("solve", "unsolvable")
	assert.Zero(t, b.Failures("solve", "unsolvable"))
	assert.NotSame(t, a.Registry(), b.Registry())
}
