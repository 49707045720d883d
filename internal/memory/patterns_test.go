package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

func completedWorkflow(t *testing.T, id int, labels []string, agents ...workflow.Agent) *workflow.Workflow {
	t.Helper()
	w := workflow.New(id, "test workflow", labels)
	now := time.Now()
	for _, a := range agents {
		st := w.AgentStatusFor(a)
		require.NoError(t, st.Start(now))
		require.NoError(t, st.Complete(now.Add(10*time.Second)))
	}
	return w
}

func TestPatternStore_RecordExecution_FirstSight(t *testing.T) {
	s := NewPatternStore()
	w := completedWorkflow(t, 1, []string{"feature", "priority:high"}, workflow.AgentSpec, workflow.AgentImpl)

	p := s.RecordExecution(w, true)

	assert.Equal(t, "feature/high", p.Classification)
	assert.Equal(t, []string{"spec", "impl"}, p.AgentSequence)
	assert.Equal(t, "feature/high|spec,impl", p.Key())
	assert.InDelta(t, 1.0, p.SuccessRate, 1e-9)
	assert.Equal(t, 20*time.Second, p.AverageDuration)
	assert.Equal(t, 1, p.UsageCount)
	assert.False(t, p.LastUsed.IsZero())
}

func TestPatternStore_RecordExecution_RunningAverages(t *testing.T) {
	s := NewPatternStore()
	labels := []string{"feature", "priority:high"}

	s.RecordExecution(completedWorkflow(t, 1, labels, workflow.AgentSpec), true)
	s.RecordExecution(completedWorkflow(t, 2, labels, workflow.AgentSpec), true)
	p := s.RecordExecution(completedWorkflow(t, 3, labels, workflow.AgentSpec), false)

	assert.Equal(t, 3, p.UsageCount)
	// (1*2 + 0) / 3
	assert.InDelta(t, 2.0/3.0, p.SuccessRate, 1e-9)
	assert.Equal(t, 10*time.Second, p.AverageDuration)
}

func TestPatternStore_DifferentSequencesAreDistinctPatterns(t *testing.T) {
	s := NewPatternStore()
	labels := []string{"feature"}

	a := s.RecordExecution(completedWorkflow(t, 1, labels, workflow.AgentSpec), true)
	b := s.RecordExecution(completedWorkflow(t, 2, labels, workflow.AgentSpec, workflow.AgentImpl), true)

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, 1, a.UsageCount)
	assert.Equal(t, 1, b.UsageCount)
}

func TestPatternStore_FindSimilarPatterns(t *testing.T) {
	s := NewPatternStore()
	s.RecordExecution(completedWorkflow(t, 1, []string{"feature", "priority:high"}, workflow.AgentSpec), true)
	s.RecordExecution(completedWorkflow(t, 2, []string{"bug", "priority:low"}, workflow.AgentImpl), false)

	w := workflow.New(3, "similar", []string{"feature", "priority:high"})
	matches := s.FindSimilarPatterns(w, 10)

	require.Len(t, matches, 1, "the dissimilar bug pattern stays below the floor")
	m := matches[0]
	assert.Equal(t, "feature/high", m.Pattern.Classification)
	// 0.5 exact classification + 0.3 * 0.5 label overlap + 0.2 * 1.0 rate.
	assert.InDelta(t, 0.85, m.Similarity, 1e-9)
}

func TestPatternStore_FindSimilarPatterns_ReturnsCopies(t *testing.T) {
	s := NewPatternStore()
	s.RecordExecution(completedWorkflow(t, 1, []string{"feature"}, workflow.AgentSpec), true)

	w := workflow.New(2, "w", []string{"feature"})
	matches := s.FindSimilarPatterns(w, 1)
	require.Len(t, matches, 1)

	matches[0].Pattern.SuccessRate = 0
	again := s.FindSimilarPatterns(w, 1)
	require.Len(t, again, 1)
	assert.InDelta(t, 1.0, again[0].Pattern.SuccessRate, 1e-9)
}

func TestPatternStore_BestPractices(t *testing.T) {
	s := NewPatternStore()
	high := s.RecordExecution(completedWorkflow(t, 1, []string{"feature", "priority:high"}, workflow.AgentSpec), true)
	low := s.RecordExecution(completedWorkflow(t, 2, []string{"feature", "priority:low"}, workflow.AgentImpl), false)

	s.AddPractice(high.Key(), "write the test matrix first")
	s.AddPractice(high.Key(), "write the test matrix first") // dedup
	s.AddPractice(low.Key(), "should not surface")

	got := s.BestPractices("feature")
	assert.Equal(t, []string{"write the test matrix first"}, got)

	assert.Empty(t, s.BestPractices("bug"))
}

func TestPatternStore_SnapshotMergeRoundTrip(t *testing.T) {
	s := NewPatternStore()
	s.RecordExecution(completedWorkflow(t, 1, []string{"feature"}, workflow.AgentSpec), true)
	s.RecordExecution(completedWorkflow(t, 2, []string{"bug"}, workflow.AgentImpl), false)

	snap := s.Snapshot()
	require.Len(t, snap, 2)

	restored := NewPatternStore()
	restored.Merge(snap)
	assert.Equal(t, snap, restored.Snapshot())

	// Merging again is idempotent; existing entries win.
	restored.Merge(snap)
	assert.Equal(t, snap, restored.Snapshot())
}

func TestPatternStore_MergeKeepsExistingEntries(t *testing.T) {
	s := NewPatternStore()
	p := s.RecordExecution(completedWorkflow(t, 1, []string{"feature"}, workflow.AgentSpec), true)

	stale := *p
	stale.SuccessRate = 0.1
	s.Merge([]ExecutionPattern{stale})

	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.InDelta(t, 1.0, snap[0].SuccessRate, 1e-9)
}
