package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

func TestLearningStore_AddLearning(t *testing.T) {
	s := NewLearningStore(10)

	r := s.AddLearning(LearningRecord{
		Category:   LearningFailure,
		IssueID:    7,
		Agent:      workflow.AgentTests,
		Lesson:     "flaky fixtures need a retry budget",
		Confidence: 0.9,
	})

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
	assert.Equal(t, 1, s.Len())
}

func TestLearningStore_CapEvictsOldest(t *testing.T) {
	s := NewLearningStore(1000)
	for i := 1; i <= 1001; i++ {
		s.AddLearning(LearningRecord{Lesson: fmt.Sprintf("lesson %d", i)})
	}

	assert.Equal(t, 1000, s.Len())
	snap := s.Snapshot()
	assert.Equal(t, "lesson 2", snap[0].Lesson)
	assert.Equal(t, "lesson 1001", snap[len(snap)-1].Lesson)
}

func TestLearningStore_SearchLearnings(t *testing.T) {
	s := NewLearningStore(10)
	s.AddLearning(LearningRecord{Lesson: "CSV export drops headers"})
	s.AddLearning(LearningRecord{Lesson: "auth tokens expire early", Context: "csv import path"})
	s.AddLearning(LearningRecord{Lesson: "unrelated"})

	got := s.SearchLearnings("csv", 10)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "auth tokens expire early", got[0].Lesson)
	assert.Equal(t, "CSV export drops headers", got[1].Lesson)

	limited := s.SearchLearnings("csv", 1)
	require.Len(t, limited, 1)
	assert.Equal(t, "auth tokens expire early", limited[0].Lesson)
}

func TestLearningStore_HighConfidenceLearnings(t *testing.T) {
	s := NewLearningStore(10)
	s.AddLearning(LearningRecord{Lesson: "low", Confidence: 0.4})
	s.AddLearning(LearningRecord{Lesson: "mid", Confidence: 0.75})
	s.AddLearning(LearningRecord{Lesson: "high", Confidence: 0.95})

	got := s.HighConfidenceLearnings(0.7)
	require.Len(t, got, 2)
	assert.Equal(t, "high", got[0].Lesson)
	assert.Equal(t, "mid", got[1].Lesson)
}

func TestLearningStore_AppendSkipsDuplicateIDs(t *testing.T) {
	s := NewLearningStore(10)
	r := s.AddLearning(LearningRecord{Lesson: "original"})

	s.Append([]LearningRecord{
		{ID: r.ID, Lesson: "duplicate id"},
		{ID: "persisted-1", Lesson: "restored"},
	})

	assert.Equal(t, 2, s.Len())
	snap := s.Snapshot()
	assert.Equal(t, "original", snap[0].Lesson)
	assert.Equal(t, "restored", snap[1].Lesson)
}
