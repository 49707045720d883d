package memory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/logging"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

const instrumentationName = "github.com/fyrsmithlabs/workflowd/internal/memory"

// Recommendation limits used by the facade.
const (
	recommendedPatterns  = 3
	recommendedLearnings = 5
	learningConfidence   = 0.7
)

// Recommendations bundles what the memory system knows that is relevant to
// a new workflow.
type Recommendations struct {
	Patterns      []PatternSimilarity `json:"patterns,omitempty"`
	Learnings     []LearningRecord    `json:"learnings,omitempty"`
	BestPractices []string            `json:"best_practices,omitempty"`
}

// Service is the persistent-memory facade: it keeps the three stores
// consistent with their files and answers recommendation queries.
type Service struct {
	patterns  *PatternStore
	learnings *LearningStore
	metrics   *MetricsTracker
	storage   *FileStorage
	logger    *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	recordCounter metric.Int64Counter
}

// NewService loads persisted state from storage into fresh stores.
func NewService(storage *FileStorage, maxLearnings int, logger *logging.Logger) (*Service, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Service{
		patterns:  NewPatternStore(),
		learnings: NewLearningStore(maxLearnings),
		metrics:   NewMetricsTracker(),
		storage:   storage,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}
	s.initMetrics()

	if storage != nil {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) initMetrics() {
	var err error
	s.recordCounter, err = s.meter.Int64Counter(
		"workflowd.memory.recorded_workflows_total",
		metric.WithDescription("Total number of workflow completions recorded"),
		metric.WithUnit("{workflow}"),
	)
	if err != nil {
		s.logger.Zap().Warn("failed to create record counter", zap.Error(err))
	}
}

// load merges persisted records into the in-memory stores: patterns by key,
// learnings appended, metrics replaced wholesale.
func (s *Service) load() error {
	patterns, err := s.storage.LoadPatterns()
	if err != nil {
		return err
	}
	s.patterns.Merge(patterns)

	learnings, err := s.storage.LoadLearnings()
	if err != nil {
		return err
	}
	s.learnings.Append(learnings)

	metrics, ok, err := s.storage.LoadMetrics()
	if err != nil {
		return err
	}
	if ok {
		s.metrics.Replace(metrics)
	}
	return nil
}

// Patterns exposes the pattern store.
func (s *Service) Patterns() *PatternStore { return s.patterns }

// Learnings exposes the learning store.
func (s *Service) Learnings() *LearningStore { return s.learnings }

// Metrics exposes the metrics tracker.
func (s *Service) Metrics() *MetricsTracker { return s.metrics }

// RecordWorkflow records a completed workflow into the pattern store and
// metrics tracker, then persists both. Practices reported alongside a
// successful completion are attached to the matching pattern and surface in
// later recommendations once the pattern's success rate qualifies.
func (s *Service) RecordWorkflow(ctx context.Context, w *workflow.Workflow, success bool, practices ...string) error {
	ctx, span := s.tracer.Start(ctx, "memory.record_workflow")
	defer span.End()
	span.SetAttributes(
		attribute.Int("workflow.id", w.ID),
		attribute.Bool("success", success),
	)

	var duration time.Duration
	for _, st := range w.Agents {
		duration += st.Duration
	}

	p := s.patterns.RecordExecution(w, success)
	if success {
		for _, practice := range practices {
			s.patterns.AddPractice(p.Key(), practice)
		}
	}
	s.metrics.RecordExecution(w, success, duration)

	if s.recordCounter != nil {
		s.recordCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
	}

	return s.persist()
}

// AddLearning appends a learning record and persists the store.
func (s *Service) AddLearning(ctx context.Context, record LearningRecord) (LearningRecord, error) {
	_, span := s.tracer.Start(ctx, "memory.add_learning")
	defer span.End()

	stored := s.learnings.AddLearning(record)
	if s.storage == nil {
		return stored, nil
	}
	return stored, s.storage.SaveLearnings(s.learnings.Snapshot())
}

// Recommendations returns the top similar patterns, the most relevant
// high-confidence learnings, and best practices for the workflow's type.
func (s *Service) Recommendations(ctx context.Context, w *workflow.Workflow) Recommendations {
	_, span := s.tracer.Start(ctx, "memory.recommendations")
	defer span.End()

	var learnings []LearningRecord
	for _, r := range s.learnings.SearchLearnings(w.Title, 0) {
		if r.Confidence > learningConfidence {
			learnings = append(learnings, r)
			if len(learnings) == recommendedLearnings {
				break
			}
		}
	}

	return Recommendations{
		Patterns:      s.patterns.FindSimilarPatterns(w, recommendedPatterns),
		Learnings:     learnings,
		BestPractices: s.patterns.BestPractices(issueType(w)),
	}
}

func (s *Service) persist() error {
	if s.storage == nil {
		return nil
	}
	if err := s.storage.SavePatterns(s.patterns.Snapshot()); err != nil {
		return err
	}
	if err := s.storage.SaveLearnings(s.learnings.Snapshot()); err != nil {
		return err
	}
	return s.storage.SaveMetrics(s.metrics.Snapshot())
}

// issueType is the classification prefix before the priority component.
func issueType(w *workflow.Workflow) string {
	classification := w.Classification()
	for i := range classification {
		if classification[i] == '/' {
			return classification[:i]
		}
	}
	return classification
}
