package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// LearningCategory classifies a learning record.
type LearningCategory string

const (
	LearningSuccess      LearningCategory = "success"
	LearningFailure      LearningCategory = "failure"
	LearningOptimization LearningCategory = "optimization"
	LearningPattern      LearningCategory = "pattern"
)

// LearningRecord is a free-text, confidence-scored lesson captured during
// or after an execution.
type LearningRecord struct {
	ID         string           `json:"id"`
	Category   LearningCategory `json:"category"`
	IssueID    int              `json:"issue_id"`
	Labels     []string         `json:"labels,omitempty"`
	Agent      workflow.Agent   `json:"agent"`
	Lesson     string           `json:"lesson"`
	Context    string           `json:"context,omitempty"`
	Confidence float64          `json:"confidence"`
	Timestamp  time.Time        `json:"timestamp"`
}

// DefaultMaxLearnings caps the store when no limit is configured.
const DefaultMaxLearnings = 1000

// LearningStore is an append-only, bounded lesson log. Adding a record past
// the cap evicts the oldest.
type LearningStore struct {
	mu         sync.RWMutex
	records    []LearningRecord
	maxRecords int
}

// NewLearningStore creates a store bounded to maxRecords (default 1000).
func NewLearningStore(maxRecords int) *LearningStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxLearnings
	}
	return &LearningStore{maxRecords: maxRecords}
}

// AddLearning appends the record with a generated id and timestamp,
// evicting the oldest records beyond the cap.
func (s *LearningStore) AddLearning(record LearningRecord) LearningRecord {
	record.ID = uuid.NewString()
	record.Timestamp = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
	return record
}

// SearchLearnings matches query case-insensitively against lesson and
// context text, newest first.
func (s *LearningStore) SearchLearnings(query string, limit int) []LearningRecord {
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LearningRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if strings.Contains(strings.ToLower(r.Lesson), needle) || strings.Contains(strings.ToLower(r.Context), needle) {
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

// HighConfidenceLearnings returns records at or above minConfidence,
// sorted descending by confidence.
func (s *LearningStore) HighConfidenceLearnings(minConfidence float64) []LearningRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LearningRecord
	for _, r := range s.records {
		if r.Confidence >= minConfidence {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Len returns the current record count.
func (s *LearningStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns a copy of all records for persistence, oldest first.
func (s *LearningStore) Snapshot() []LearningRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LearningRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Append folds persisted records into the store, skipping ids already
// present so a repeated load is idempotent.
func (s *LearningStore) Append(records []LearningRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		seen[r.ID] = struct{}{}
	}
	for _, r := range records {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		s.records = append(s.records, r)
	}
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
}
