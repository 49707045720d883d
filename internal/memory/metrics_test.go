package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

func TestMetricsTracker_RecordExecution(t *testing.T) {
	tr := NewMetricsTracker()
	now := time.Now()

	ok := workflow.New(1, "ok", nil)
	ok.QualityScore = 90
	tr.RecordExecution(ok, true, 10*time.Second)

	// [spec complete, tests error]: the first errored agent is charged.
	failed := workflow.New(2, "failed", nil)
	failed.QualityScore = 60
	spec := failed.AgentStatusFor(workflow.AgentSpec)
	require.NoError(t, spec.Start(now))
	require.NoError(t, spec.Complete(now.Add(time.Second)))
	tests := failed.AgentStatusFor(workflow.AgentTests)
	require.NoError(t, tests.Start(now))
	require.NoError(t, tests.Fail(now.Add(time.Second), "fixture missing"))
	tr.RecordExecution(failed, false, 20*time.Second)

	m := tr.Metrics()
	assert.Equal(t, 2, m.TotalExecutions)
	assert.Equal(t, 1, m.SuccessfulExecutions)
	assert.Equal(t, 1, m.FailedExecutions)
	assert.Equal(t, 15*time.Second, m.AverageDuration)
	assert.Equal(t, map[string]int{"tests": 1}, m.CommonFailurePoints)
	assert.Equal(t, []float64{90, 60}, m.QualityScoreTrend)
}

func TestMetricsTracker_FailureWithoutErroredAgent(t *testing.T) {
	tr := NewMetricsTracker()
	tr.RecordExecution(workflow.New(1, "w", nil), false, time.Second)

	m := tr.Metrics()
	assert.Equal(t, 1, m.FailedExecutions)
	assert.Empty(t, m.CommonFailurePoints)
}

func TestMetricsTracker_TrendCapped(t *testing.T) {
	tr := NewMetricsTracker()
	for i := 0; i < 105; i++ {
		w := workflow.New(i, "w", nil)
		w.QualityScore = float64(i)
		tr.RecordExecution(w, true, time.Second)
	}

	m := tr.Metrics()
	require.Len(t, m.QualityScoreTrend, 100)
	assert.InDelta(t, 5, m.QualityScoreTrend[0], 1e-9)
	assert.InDelta(t, 104, m.QualityScoreTrend[99], 1e-9)
}

func TestGetQualityTrend(t *testing.T) {
	record := func(tr *MetricsTracker, scores ...float64) {
		for i, s := range scores {
			w := workflow.New(i, "w", nil)
			w.QualityScore = s
			tr.RecordExecution(w, true, time.Second)
		}
	}

	t.Run("empty", func(t *testing.T) {
		qt := NewMetricsTracker().GetQualityTrend()
		assert.Zero(t, qt.Samples)
		assert.False(t, qt.Improving)
	})

	t.Run("improving", func(t *testing.T) {
		tr := NewMetricsTracker()
		older := []float64{60, 60, 60, 60, 60, 60, 60, 60, 60, 60}
		recent := []float64{80, 80, 80, 80, 80, 80, 80, 80, 80, 80}
		record(tr, append(older, recent...)...)

		qt := tr.GetQualityTrend()
		assert.Equal(t, 20, qt.Samples)
		assert.InDelta(t, 80, qt.RecentMean, 1e-9)
		assert.InDelta(t, 60, qt.OlderMean, 1e-9)
		assert.True(t, qt.Improving)
	})

	t.Run("declining", func(t *testing.T) {
		tr := NewMetricsTracker()
		record(tr, 90, 90, 90, 90, 90, 90, 90, 90, 90, 90, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70)

		qt := tr.GetQualityTrend()
		assert.InDelta(t, 70, qt.RecentMean, 1e-9)
		assert.InDelta(t, 90, qt.OlderMean, 1e-9)
		assert.False(t, qt.Improving)
	})

	t.Run("fewer samples than a full window", func(t *testing.T) {
		tr := NewMetricsTracker()
		record(tr, 50, 70)

		qt := tr.GetQualityTrend()
		assert.Equal(t, 2, qt.Samples)
		assert.InDelta(t, 60, qt.RecentMean, 1e-9)
		assert.Zero(t, qt.OlderMean)
	})
}

func TestMetricsTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewMetricsTracker()
	w := workflow.New(1, "w", nil)
	tr.RecordExecution(w, false, time.Second)

	snap := tr.Snapshot()
	snap.CommonFailurePoints["spec"] = 99
	snap.QualityScoreTrend = append(snap.QualityScoreTrend, 1)

	fresh := tr.Metrics()
	assert.NotContains(t, fresh.CommonFailurePoints, "spec")
	assert.Len(t, fresh.QualityScoreTrend, 1)
}

func TestMetricsTracker_Replace(t *testing.T) {
	tr := NewMetricsTracker()
	tr.Replace(WorkflowMetrics{TotalExecutions: 5, SuccessfulExecutions: 4, FailedExecutions: 1})

	m := tr.Metrics()
	assert.Equal(t, 5, m.TotalExecutions)
	assert.NotNil(t, m.CommonFailurePoints)
}
