package contextmgr

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workflowd/internal/logging"
	"github.com/fyrsmithlabs/workflowd/internal/retrieval"
	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

const (
	contextNoteLimit = 5
	contextRefLimit  = 3
)

// AgentContext is the bounded context assembled for one agent call.
type AgentContext struct {
	Snapshot   ContextSnapshot       `json:"snapshot"`
	Notes      []StructuredNote      `json:"notes,omitempty"`
	References []retrieval.Reference `json:"references,omitempty"`
	Budget     BudgetStatus          `json:"budget"`
}

// Manager composes the compactor, notekeeper, retriever, and budget monitor
// behind a single entry point.
type Manager struct {
	notes     *Notekeeper
	retriever retrieval.Retriever
	budget    *BudgetMonitor
	logger    *logging.Logger
}

// NewManager wires the context sub-capabilities together. retriever may be
// nil when no retrieval source is configured.
func NewManager(notes *Notekeeper, retriever retrieval.Retriever, budget *BudgetMonitor, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{notes: notes, retriever: retriever, budget: budget, logger: logger}
}

// Notes exposes the notekeeper for direct note operations.
func (m *Manager) Notes() *Notekeeper {
	return m.notes
}

// Budget exposes the budget monitor.
func (m *Manager) Budget() *BudgetMonitor {
	return m.budget
}

// ForAgent assembles the bounded context for running agent against w:
// the compacted snapshot, the workflow's last 5 notes, up to 3 retrieved
// references for the workflow title, and the budget status. It logs a
// warning when the estimated usage crosses the compaction threshold, and
// never mutates the workflow.
func (m *Manager) ForAgent(ctx context.Context, w *workflow.Workflow, agent workflow.Agent) AgentContext {
	snapshot := Compact(w, agent)
	status := m.budget.CheckBudget(snapshot.EstimatedTokens)

	ac := AgentContext{
		Snapshot: snapshot,
		Notes:    m.notes.RecentNotes(w.ID, contextNoteLimit),
		Budget:   status,
	}

	if m.retriever != nil && w.Title != "" {
		refs, err := m.retriever.Retrieve(ctx, w.Title, contextRefLimit)
		if err != nil {
			m.logger.Warn(ctx, "reference retrieval failed", zap.Error(err))
		} else {
			ac.References = refs
		}
	}

	if status.ShouldCompact {
		m.logger.Warn(ctx, "context budget threshold crossed",
			zap.Int("estimated_tokens", snapshot.EstimatedTokens),
			zap.Float64("percentage_used", status.PercentageUsed),
			zap.Strings("recommendations", m.budget.RecommendCompaction(status)),
		)
	}

	return ac
}
