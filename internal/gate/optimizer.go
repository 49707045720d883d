package gate

import (
	"fmt"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// OptimizerConfig tunes the auto-fix loop.
type OptimizerConfig struct {
	MaxIterations   int
	TargetScore     float64
	AutoFix         bool
	StopOnFirstPass bool
}

// DefaultOptimizerConfig returns the standard loop settings.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		MaxIterations:   3,
		TargetScore:     95,
		AutoFix:         true,
		StopOnFirstPass: true,
	}
}

// OptimizationResult reports the outcome of an optimize run. Reaching the
// iteration cap without passing is a normal outcome, not an error.
type OptimizationResult struct {
	Improved    bool     `json:"improved"`
	Iterations  int      `json:"iterations"`
	FinalScore  float64  `json:"final_score"`
	ChangesMade []string `json:"changes_made,omitempty"`
}

// scoreEstimates is the fixed per-severity improvement table used to
// project the effect of remediating the highest-severity issue.
var scoreEstimates = map[IssueSeverity]float64{
	SeverityCritical: 15,
	SeverityHigh:     10,
	SeverityMedium:   7,
	SeverityLow:      5,
}

// maxIssuesPerIteration bounds how many remediation actions one loop pass
// plans.
const maxIssuesPerIteration = 5

// Optimizer iterates evaluator feedback into planned remediations and a
// projected score. The score update is a heuristic planning estimate, not a
// re-run of the real quality checks; callers must treat the projected
// outcome as non-authoritative.
type Optimizer struct {
	cfg       OptimizerConfig
	evaluator *Evaluator
}

// NewOptimizer creates an optimizer driven by the given evaluator.
func NewOptimizer(cfg OptimizerConfig, evaluator *Evaluator) *Optimizer {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultOptimizerConfig().MaxIterations
	}
	if cfg.TargetScore <= 0 {
		cfg.TargetScore = DefaultOptimizerConfig().TargetScore
	}
	if evaluator == nil {
		evaluator = NewEvaluator()
	}
	return &Optimizer{cfg: cfg, evaluator: evaluator}
}

// Optimize runs the auto-fix loop against a copy of gs until the gate
// passes, the target score is reached, nothing is left to automate, or the
// iteration cap is hit.
func (o *Optimizer) Optimize(gs workflow.QualityGateStatus) OptimizationResult {
	current := gs
	initialScore := gs.Score
	result := OptimizationResult{FinalScore: gs.Score}

	feedback := o.evaluator.Evaluate(current)

	for result.Iterations < o.cfg.MaxIterations && !feedback.Passed && current.Score < o.cfg.TargetScore {
		if !o.cfg.AutoFix {
			// Manual intervention required; stop without another pass.
			break
		}

		issues := feedback.Issues
		if len(issues) > maxIssuesPerIteration {
			issues = issues[:maxIssuesPerIteration]
		}
		actions := make([]string, 0, len(issues))
		for _, issue := range issues {
			actions = append(actions, remediationAction(issue))
		}
		if len(actions) == 0 {
			// Nothing left to automate.
			break
		}

		result.Iterations++
		result.ChangesMade = append(result.ChangesMade, actions...)

		// Project the effect of fixing the single highest-severity issue.
		current.Score += scoreEstimates[issues[0].Severity]
		if current.Score > 100 {
			current.Score = 100
		}
		if current.Score >= current.Gate.Threshold {
			current.State = workflow.GatePassed
		}

		feedback = o.evaluator.Evaluate(current)
		if feedback.Passed && o.cfg.StopOnFirstPass {
			break
		}
	}

	result.FinalScore = current.Score
	result.Improved = current.Score > initialScore
	return result
}

// remediationAction renders the one-line fix plan for an issue, tagged with
// the agent responsible for its category.
func remediationAction(issue Issue) string {
	agent := remediationAgents[issue.Category]
	return fmt.Sprintf("[%s] %s: %s (gap %.0f, %s)", agent, issue.Criterion, issue.Suggestion, issue.Gap, issue.Severity)
}
