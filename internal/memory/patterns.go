// Package memory implements cross-run learning persistence: execution
// patterns keyed by issue classification and agent sequence, free-text
// learning records, and aggregate workflow metrics, all serialized to plain
// JSON files that survive process restarts.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// ExecutionPattern is a learned (issue classification, agent sequence)
// success statistic. Stats are running weighted averages, updated in place
// on every matching completion and never recomputed from scratch.
type ExecutionPattern struct {
	Classification  string        `json:"classification"`
	AgentSequence   []string      `json:"agent_sequence"`
	SuccessRate     float64       `json:"success_rate"`
	AverageDuration time.Duration `json:"average_duration"`
	UsageCount      int           `json:"usage_count"`
	LastUsed        time.Time     `json:"last_used"`
	BestPractices   []string      `json:"best_practices,omitempty"`
	Pitfalls        []string      `json:"pitfalls,omitempty"`
}

// Key identifies a pattern: classification plus the ordered agent sequence.
func (p *ExecutionPattern) Key() string {
	return p.Classification + "|" + strings.Join(p.AgentSequence, ",")
}

// PatternSimilarity pairs a pattern with its similarity to a workflow.
type PatternSimilarity struct {
	Pattern    *ExecutionPattern `json:"pattern"`
	Similarity float64           `json:"similarity"`
}

// similarityFloor is the minimum score for a pattern to count as similar.
const similarityFloor = 0.3

// PatternStore learns issue→agent-sequence success patterns.
type PatternStore struct {
	mu       sync.RWMutex
	patterns map[string]*ExecutionPattern
}

// NewPatternStore creates an empty store.
func NewPatternStore() *PatternStore {
	return &PatternStore{patterns: make(map[string]*ExecutionPattern)}
}

// RecordExecution folds one workflow completion into the matching pattern,
// creating it on first sight. SuccessRate and AverageDuration are running
// weighted averages over UsageCount.
func (s *PatternStore) RecordExecution(w *workflow.Workflow, success bool) *ExecutionPattern {
	agents := make([]string, 0, len(w.Agents))
	var total time.Duration
	for _, st := range w.Agents {
		if st.Status == workflow.AgentComplete {
			agents = append(agents, string(st.Agent))
			total += st.Duration
		}
	}

	candidate := &ExecutionPattern{
		Classification: w.Classification(),
		AgentSequence:  agents,
	}
	key := candidate.Key()
	outcome := 0.0
	if success {
		outcome = 1.0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[key]
	if !ok {
		candidate.SuccessRate = outcome
		candidate.AverageDuration = total
		candidate.UsageCount = 1
		candidate.LastUsed = time.Now()
		s.patterns[key] = candidate
		return candidate
	}

	n := float64(p.UsageCount)
	p.SuccessRate = (p.SuccessRate*n + outcome) / (n + 1)
	p.AverageDuration = time.Duration((float64(p.AverageDuration)*n + float64(total)) / (n + 1))
	p.UsageCount++
	p.LastUsed = time.Now()
	return p
}

// AddPractice appends a best practice to the pattern matching the workflow,
// deduplicating exact repeats.
func (s *PatternStore) AddPractice(key, practice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patterns[key]
	if !ok {
		return
	}
	for _, existing := range p.BestPractices {
		if existing == practice {
			return
		}
	}
	p.BestPractices = append(p.BestPractices, practice)
}

// FindSimilarPatterns scores every stored pattern against w and returns the
// top limit matches above the similarity floor, best first. Scoring: +0.5
// for an exact classification match, +0.3 × label-overlap ratio, +0.2 × the
// pattern's success rate.
func (s *PatternStore) FindSimilarPatterns(w *workflow.Workflow, limit int) []PatternSimilarity {
	classification := w.Classification()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []PatternSimilarity
	for _, p := range s.patterns {
		score := 0.0
		if p.Classification == classification {
			score += 0.5
		}
		score += 0.3 * labelOverlap(w.Labels, p.Classification)
		score += 0.2 * p.SuccessRate
		if score < similarityFloor {
			continue
		}
		cp := *p
		matches = append(matches, PatternSimilarity{Pattern: &cp, Similarity: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Pattern.Key() < matches[j].Pattern.Key()
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// BestPractices returns the deduplicated union of best-practice strings
// from patterns of the given issue type with a success rate above 0.8.
func (s *PatternStore) BestPractices(issueType string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	keys := make([]string, 0, len(s.patterns))
	for k := range s.patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p := s.patterns[k]
		if p.SuccessRate <= 0.8 || !strings.HasPrefix(p.Classification, issueType) {
			continue
		}
		for _, bp := range p.BestPractices {
			if _, dup := seen[bp]; dup {
				continue
			}
			seen[bp] = struct{}{}
			out = append(out, bp)
		}
	}
	return out
}

// Snapshot returns a copy of all patterns for persistence.
func (s *PatternStore) Snapshot() []ExecutionPattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExecutionPattern, 0, len(s.patterns))
	keys := make([]string, 0, len(s.patterns))
	for k := range s.patterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, *s.patterns[k])
	}
	return out
}

// Merge folds persisted patterns into the store by key. Existing in-memory
// entries win so a repeated load is idempotent.
func (s *PatternStore) Merge(patterns []ExecutionPattern) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range patterns {
		p := patterns[i]
		if _, ok := s.patterns[p.Key()]; !ok {
			s.patterns[p.Key()] = &p
		}
	}
}

// labelOverlap returns the fraction of workflow labels appearing in the
// pattern classification text.
func labelOverlap(labels []string, classification string) float64 {
	if len(labels) == 0 {
		return 0
	}
	hits := 0
	lower := strings.ToLower(classification)
	for _, l := range labels {
		if strings.Contains(lower, strings.ToLower(l)) {
			hits++
		}
	}
	return float64(hits) / float64(len(labels))
}
