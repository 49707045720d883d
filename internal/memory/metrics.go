package memory

import (
	"sync"
	"time"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// qualityTrendCap bounds the rolling quality-score sample list.
const qualityTrendCap = 100

// trendWindow is how many recent samples each side of the trend comparison
// uses.
const trendWindow = 10

// WorkflowMetrics aggregates execution outcomes across workflows.
type WorkflowMetrics struct {
	TotalExecutions      int            `json:"total_executions"`
	SuccessfulExecutions int            `json:"successful_executions"`
	FailedExecutions     int            `json:"failed_executions"`
	AverageDuration      time.Duration  `json:"average_duration"`
	CommonFailurePoints  map[string]int `json:"common_failure_points,omitempty"`
	QualityScoreTrend    []float64      `json:"quality_score_trend,omitempty"`
}

// QualityTrend compares recent quality scores against the preceding window.
type QualityTrend struct {
	RecentMean float64 `json:"recent_mean"`
	OlderMean  float64 `json:"older_mean"`
	Improving  bool    `json:"improving"`
	Samples    int     `json:"samples"`
}

// MetricsTracker maintains WorkflowMetrics under a lock.
type MetricsTracker struct {
	mu      sync.RWMutex
	metrics WorkflowMetrics
}

// NewMetricsTracker creates an empty tracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{metrics: WorkflowMetrics{CommonFailurePoints: make(map[string]int)}}
}

// RecordExecution folds one workflow completion into the aggregates. On
// failure the first agent found in Error status is charged as the failure
// point. The workflow's quality score joins the capped rolling trend.
func (t *MetricsTracker) RecordExecution(w *workflow.Workflow, success bool, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := float64(t.metrics.TotalExecutions)
	t.metrics.AverageDuration = time.Duration((float64(t.metrics.AverageDuration)*n + float64(duration)) / (n + 1))
	t.metrics.TotalExecutions++

	if success {
		t.metrics.SuccessfulExecutions++
	} else {
		t.metrics.FailedExecutions++
		for _, st := range w.Agents {
			if st.Status == workflow.AgentError {
				t.metrics.CommonFailurePoints[string(st.Agent)]++
				break
			}
		}
	}

	t.metrics.QualityScoreTrend = append(t.metrics.QualityScoreTrend, w.QualityScore)
	if len(t.metrics.QualityScoreTrend) > qualityTrendCap {
		t.metrics.QualityScoreTrend = t.metrics.QualityScoreTrend[len(t.metrics.QualityScoreTrend)-qualityTrendCap:]
	}
}

// GetQualityTrend compares the mean of the last 10 samples against the mean
// of the 10 before that.
func (t *MetricsTracker) GetQualityTrend() QualityTrend {
	t.mu.RLock()
	defer t.mu.RUnlock()

	trend := t.metrics.QualityScoreTrend
	qt := QualityTrend{Samples: len(trend)}
	if len(trend) == 0 {
		return qt
	}

	recentStart := len(trend) - trendWindow
	if recentStart < 0 {
		recentStart = 0
	}
	qt.RecentMean = mean(trend[recentStart:])

	olderStart := recentStart - trendWindow
	if olderStart < 0 {
		olderStart = 0
	}
	if recentStart > 0 {
		qt.OlderMean = mean(trend[olderStart:recentStart])
	}
	qt.Improving = qt.RecentMean > qt.OlderMean
	return qt
}

// Snapshot returns a copy of the metrics for persistence.
func (t *MetricsTracker) Snapshot() WorkflowMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := t.metrics
	m.CommonFailurePoints = make(map[string]int, len(t.metrics.CommonFailurePoints))
	for k, v := range t.metrics.CommonFailurePoints {
		m.CommonFailurePoints[k] = v
	}
	m.QualityScoreTrend = append([]float64(nil), t.metrics.QualityScoreTrend...)
	return m
}

// Replace swaps the metrics wholesale, used when loading persisted state.
func (t *MetricsTracker) Replace(m WorkflowMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m.CommonFailurePoints == nil {
		m.CommonFailurePoints = make(map[string]int)
	}
	t.metrics = m
}

// Metrics returns a copy of the current aggregates.
func (t *MetricsTracker) Metrics() WorkflowMetrics {
	return t.Snapshot()
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
