package contextmgr

import "fmt"

// Default budget limits.
const (
	DefaultMaxTokens        = 100_000
	DefaultWarningThreshold = 0.8
)

// BudgetStatus reports estimated token usage against the configured ceiling.
type BudgetStatus struct {
	WithinBudget    bool    `json:"within_budget"`
	PercentageUsed  float64 `json:"percentage_used"`
	TokensRemaining int     `json:"tokens_remaining"`
	ShouldCompact   bool    `json:"should_compact"`
}

// BudgetMonitor tracks estimated token usage against a ceiling and
// recommends compaction once the warning threshold is crossed.
type BudgetMonitor struct {
	maxTokens        int
	warningThreshold float64
}

// NewBudgetMonitor creates a monitor. Non-positive maxTokens or a threshold
// outside (0,1] falls back to the defaults.
func NewBudgetMonitor(maxTokens int, warningThreshold float64) *BudgetMonitor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if warningThreshold <= 0 || warningThreshold > 1 {
		warningThreshold = DefaultWarningThreshold
	}
	return &BudgetMonitor{maxTokens: maxTokens, warningThreshold: warningThreshold}
}

// CheckBudget evaluates the estimated token count against the ceiling.
func (m *BudgetMonitor) CheckBudget(estimatedTokens int) BudgetStatus {
	pct := float64(estimatedTokens) / float64(m.maxTokens)
	return BudgetStatus{
		WithinBudget:    estimatedTokens < m.maxTokens,
		PercentageUsed:  pct,
		TokensRemaining: m.maxTokens - estimatedTokens,
		ShouldCompact:   pct > m.warningThreshold,
	}
}

// RecommendCompaction returns an ordered list of mitigation actions for the
// given status, escalating the wording when the budget is already exceeded.
func (m *BudgetMonitor) RecommendCompaction(status BudgetStatus) []string {
	var actions []string
	if !status.WithinBudget {
		actions = append(actions,
			fmt.Sprintf("CRITICAL: context exceeds the %d token budget; compact before the next call", m.maxTokens),
			"CRITICAL: drop verbatim history and keep only the compacted snapshot",
		)
	}
	if status.ShouldCompact {
		actions = append(actions,
			"summarize completed-agent outputs into key decisions",
			"trim recent events to the last 5 entries",
			"clear resolved blocker notes for this workflow",
		)
	}
	return actions
}
