package metrics

import (
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.IncPersist(true)
	pr.IncPersist(true)
	pr.IncPersist(false)
	pr.IncPhaseTransition("planning", "executing")
	pr.IncCompaction(4)
	pr.IncCheckpointCreated()
	pr.IncCheckpointsPruned(2)
	pr.IncCheckpointsPruned(0)
	pr.IncCheckpointRestore(false)
	pr.IncBlockerDetected("code_loop", "high")
	pr.SetTokenUsage(120, 1000)

	assert.Equal(t, 2.0, testutil.ToFloat64(pr.persists.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.persists.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.phaseTransitions.WithLabelValues("planning", "executing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.compactions))
	assert.Equal(t, 4.0, testutil.ToFloat64(pr.decisionsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.checkpoints))
	assert.Equal(t, 2.0, testutil.ToFloat64(pr.checkpointsPruned))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.restores.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pr.blockers.WithLabelValues("code_loop", "high")))
	assert.Equal(t, 120.0, testutil.ToFloat64(pr.tokenUsage))
	assert.Equal(t, 1000.0, testutil.ToFloat64(pr.tokenBudget))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncPersist(true)
		pr.IncBlockerDetected("tool_failure", "medium")
		pr.SetTokenUsage(1, 2)
	})
}
