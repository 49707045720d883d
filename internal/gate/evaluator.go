// Package gate scores quality-gate results against their thresholds,
// classifies the gaps, and drives the iterative auto-fix loop that plans
// remediations from evaluator feedback.
package gate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// IssueSeverity ranks a criterion gap.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityHigh     IssueSeverity = "high"
	SeverityMedium   IssueSeverity = "medium"
	SeverityLow      IssueSeverity = "low"
)

// severityRank orders severities for sorting, critical first.
var severityRank = map[IssueSeverity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// IssueCategory buckets a failing criterion by its subject area.
type IssueCategory string

const (
	CategoryAccessibility IssueCategory = "accessibility"
	CategoryPerformance   IssueCategory = "performance"
	CategorySecurity      IssueCategory = "security"
	CategoryTesting       IssueCategory = "testing"
	CategoryCodeQuality   IssueCategory = "code_quality"
	CategoryFunctionality IssueCategory = "functionality"
	CategoryGeneral       IssueCategory = "general"
)

// Issue is one criterion scoring below the gate threshold.
type Issue struct {
	Criterion  string        `json:"criterion"`
	Score      float64       `json:"score"`
	Gap        float64       `json:"gap"`
	Severity   IssueSeverity `json:"severity"`
	Category   IssueCategory `json:"category"`
	Suggestion string        `json:"suggestion"`
}

// Feedback is the evaluator's structured report for one gate result.
type Feedback struct {
	Gate            string   `json:"gate"`
	Passed          bool     `json:"passed"`
	Score           float64  `json:"score"`
	Threshold       float64  `json:"threshold"`
	Issues          []Issue  `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// categoryKeywords maps criterion-name keywords to categories. First match
// wins; unmatched criteria fall into general.
var categoryKeywords = []struct {
	keywords []string
	category IssueCategory
}{
	{[]string{"a11y", "accessibility", "aria", "contrast", "keyboard"}, CategoryAccessibility},
	{[]string{"performance", "latency", "speed", "load", "bundle"}, CategoryPerformance},
	{[]string{"security", "vuln", "auth", "injection", "xss", "csrf"}, CategorySecurity},
	{[]string{"test", "coverage", "assertion"}, CategoryTesting},
	{[]string{"lint", "complexity", "duplication", "style", "maintainab"}, CategoryCodeQuality},
	{[]string{"functional", "feature", "behavior", "requirement"}, CategoryFunctionality},
}

// suggestions maps each category to its fixed remediation suggestion.
var suggestions = map[IssueCategory]string{
	CategoryAccessibility: "add ARIA labels, verify contrast ratios, and test keyboard navigation",
	CategoryPerformance:   "profile the hot path, defer non-critical work, and trim payload sizes",
	CategorySecurity:      "sanitize inputs, review auth checks, and run the dependency audit",
	CategoryTesting:       "add missing test cases and raise coverage on the changed paths",
	CategoryCodeQuality:   "reduce complexity, remove duplication, and fix lint findings",
	CategoryFunctionality: "re-check the acceptance criteria and close the behavioral gaps",
	CategoryGeneral:       "review the criterion definition and address the reported gap",
}

// remediationAgents names the agent responsible for fixes per category.
var remediationAgents = map[IssueCategory]workflow.Agent{
	CategoryAccessibility: workflow.AgentImpl,
	CategoryPerformance:   workflow.AgentImpl,
	CategorySecurity:      workflow.AgentSec,
	CategoryTesting:       workflow.AgentTests,
	CategoryCodeQuality:   workflow.AgentImpl,
	CategoryFunctionality: workflow.AgentImpl,
	CategoryGeneral:       workflow.AgentQA,
}

// Evaluator classifies gate gaps and emits actionable feedback.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores every criterion of gs against the gate threshold and
// assembles feedback: per-issue severity, category, and suggestion, plus
// phase-aware recommendations when the overall score falls short.
func (e *Evaluator) Evaluate(gs workflow.QualityGateStatus) Feedback {
	fb := Feedback{
		Gate:      gs.Gate.Name,
		Passed:    gs.State == workflow.GatePassed,
		Score:     gs.Score,
		Threshold: gs.Gate.Threshold,
	}

	criteria := make([]string, 0, len(gs.CriteriaScores))
	for name := range gs.CriteriaScores {
		criteria = append(criteria, name)
	}
	sort.Strings(criteria)

	for _, name := range criteria {
		score := gs.CriteriaScores[name]
		if score >= gs.Gate.Threshold {
			continue
		}
		gap := gs.Gate.Threshold - score
		category := categorize(name)
		fb.Issues = append(fb.Issues, Issue{
			Criterion:  name,
			Score:      score,
			Gap:        gap,
			Severity:   severityFor(gap),
			Category:   category,
			Suggestion: suggestions[category],
		})
	}

	sort.SliceStable(fb.Issues, func(i, j int) bool {
		return severityRank[fb.Issues[i].Severity] < severityRank[fb.Issues[j].Severity]
	})

	if gs.Score < gs.Gate.Threshold {
		fb.Recommendations = e.recommend(gs, fb.Issues)
	}

	return fb
}

// severityFor classifies a gap: critical ≥30, high ≥20, medium ≥10, else low.
func severityFor(gap float64) IssueSeverity {
	switch {
	case gap >= 30:
		return SeverityCritical
	case gap >= 20:
		return SeverityHigh
	case gap >= 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func categorize(criterion string) IssueCategory {
	lower := strings.ToLower(criterion)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryGeneral
}

// recommend builds the ordered recommendation list: a critical-count header
// when critical issues exist, phase-aware guidance, and a gap-tiered
// closing line.
func (e *Evaluator) recommend(gs workflow.QualityGateStatus, issues []Issue) []string {
	var recs []string

	criticalCount := 0
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			criticalCount++
		}
	}
	if criticalCount > 0 {
		recs = append(recs, fmt.Sprintf("CRITICAL: %d critical issues must be resolved before this gate can pass", criticalCount))
	}

	gap := gs.Gate.Threshold - gs.Score
	switch gs.Gate.Phase {
	case workflow.PhaseFoundation:
		if gap > 10 {
			recs = append(recs, "foundation-phase gaps cascade into every later phase; close them before development starts")
		}
	case workflow.PhaseDevelopment:
		if gap > 15 {
			recs = append(recs, "break the implementation into smaller units and gate each one separately")
		}
	case workflow.PhaseQuality:
		recs = append(recs, "a quality-phase failure often signals upstream scope or testing gaps; re-check the spec and test phases")
	case workflow.PhaseDeployment:
		if gap > 5 {
			recs = append(recs, "deployment gates are hard blockers: a score of 95 or higher is required to proceed")
		}
	}

	switch {
	case gap > 20:
		recs = append(recs, "the gap is large; revisit the overall approach rather than patching criteria")
	case gap > 10:
		recs = append(recs, fmt.Sprintf("focus on the top %d issues to close most of the gap", topN(len(issues))))
	default:
		recs = append(recs, "minor adjustments should be enough to pass")
	}

	return recs
}

func topN(issueCount int) int {
	if issueCount < 3 {
		return issueCount
	}
	return 3
}
