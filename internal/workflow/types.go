// Package workflow defines the data model for orchestrated change requests:
// workflows, per-agent execution status, quality gates, and the ordered
// event history consumed by context compaction.
package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors for workflow state transitions.
var (
	ErrAlreadyStarted  = errors.New("agent already started")
	ErrNotRunning      = errors.New("agent is not running")
	ErrUnknownAgent    = errors.New("unknown agent type")
	ErrTerminalStatus  = errors.New("agent status is terminal")
	ErrScoreOutOfRange = errors.New("score must be between 0 and 100")
)

// Agent identifies one of the specialized workers in the delivery pipeline.
type Agent string

const (
	AgentSpec    Agent = "spec"
	AgentTests   Agent = "tests"
	AgentImpl    Agent = "impl"
	AgentQA      Agent = "qa"
	AgentSec     Agent = "sec"
	AgentDocs    Agent = "docs"
	AgentRelease Agent = "release"
)

// AllAgents returns the agent set in pipeline order.
func AllAgents() []Agent {
	return []Agent{AgentSpec, AgentTests, AgentImpl, AgentQA, AgentSec, AgentDocs, AgentRelease}
}

// Valid reports whether a is a known agent type.
func (a Agent) Valid() bool {
	switch a {
	case AgentSpec, AgentTests, AgentImpl, AgentQA, AgentSec, AgentDocs, AgentRelease:
		return true
	}
	return false
}

// Phase represents a workflow lifecycle phase. Each agent belongs to
// exactly one phase; quality gates are scoped to a phase.
type Phase string

const (
	PhaseFoundation  Phase = "foundation"
	PhaseDevelopment Phase = "development"
	PhaseQuality     Phase = "quality"
	PhaseDeployment  Phase = "deployment"
)

// AllPhases returns the phases in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseFoundation, PhaseDevelopment, PhaseQuality, PhaseDeployment}
}

// PhaseFor maps an agent to its pipeline phase.
func PhaseFor(agent Agent) Phase {
	switch agent {
	case AgentSpec, AgentTests:
		return PhaseFoundation
	case AgentImpl:
		return PhaseDevelopment
	case AgentQA, AgentSec:
		return PhaseQuality
	case AgentDocs, AgentRelease:
		return PhaseDeployment
	}
	return PhaseFoundation
}

// AgentState is the lifecycle status of one agent within a workflow.
type AgentState string

const (
	AgentPending  AgentState = "pending"
	AgentRunning  AgentState = "running"
	AgentComplete AgentState = "complete"
	AgentError    AgentState = "error"
)

// AgentStatus tracks one agent's execution within a workflow.
// Transitions are monotonic: Pending → Running → {Complete | Error}.
type AgentStatus struct {
	Agent       Agent         `json:"agent"`
	Status      AgentState    `json:"status"`
	StartedAt   time.Time     `json:"started_at,omitempty"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
}

// Start moves the status from Pending to Running.
func (s *AgentStatus) Start(now time.Time) error {
	if s.Status != AgentPending {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyStarted, s.Agent, s.Status)
	}
	s.Status = AgentRunning
	s.StartedAt = now
	return nil
}

// Complete moves the status from Running to Complete and fixes the duration.
func (s *AgentStatus) Complete(now time.Time) error {
	if s.Status != AgentRunning {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, s.Agent, s.Status)
	}
	s.Status = AgentComplete
	s.CompletedAt = now
	s.Duration = now.Sub(s.StartedAt)
	return nil
}

// Fail moves the status from Running to Error and records the cause.
func (s *AgentStatus) Fail(now time.Time, cause string) error {
	if s.Status != AgentRunning {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, s.Agent, s.Status)
	}
	s.Status = AgentError
	s.CompletedAt = now
	s.Duration = now.Sub(s.StartedAt)
	s.LastError = cause
	return nil
}

// GateState is the evaluation state of a quality gate.
type GateState string

const (
	GatePending GateState = "pending"
	GatePassed  GateState = "passed"
	GateFailed  GateState = "failed"
)

// Gate defines a named, phase-scoped threshold check.
type Gate struct {
	Name      string  `json:"name"`
	Phase     Phase   `json:"phase"`
	Threshold float64 `json:"threshold"`
}

// QualityGateStatus is the evaluated state of a gate for one workflow.
type QualityGateStatus struct {
	Gate           Gate               `json:"gate"`
	State          GateState          `json:"state"`
	Score          float64            `json:"score"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
}

// Validate checks score bounds.
func (g *QualityGateStatus) Validate() error {
	if g.Score < 0 || g.Score > 100 {
		return fmt.Errorf("%w: %s scored %.1f", ErrScoreOutOfRange, g.Gate.Name, g.Score)
	}
	return nil
}

// WorkflowEvent is one entry in a workflow's ordered history.
type WorkflowEvent struct {
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Workflow identifies one change request moving through the pipeline.
type Workflow struct {
	ID           int                 `json:"id"`
	Title        string              `json:"title"`
	Labels       []string            `json:"labels,omitempty"`
	Phase        Phase               `json:"phase"`
	Agents       []AgentStatus       `json:"agents,omitempty"`
	Gates        []QualityGateStatus `json:"gates,omitempty"`
	Events       []WorkflowEvent     `json:"events,omitempty"`
	QualityScore float64             `json:"quality_score"`
}

// New creates a workflow in the Foundation phase with all agents pending.
func New(id int, title string, labels []string) *Workflow {
	agents := make([]AgentStatus, 0, len(AllAgents()))
	for _, a := range AllAgents() {
		agents = append(agents, AgentStatus{Agent: a, Status: AgentPending})
	}
	return &Workflow{
		ID:     id,
		Title:  title,
		Labels: labels,
		Phase:  PhaseFoundation,
		Agents: agents,
	}
}

// AgentStatusFor returns the status entry for the given agent, or nil.
func (w *Workflow) AgentStatusFor(agent Agent) *AgentStatus {
	for i := range w.Agents {
		if w.Agents[i].Agent == agent {
			return &w.Agents[i]
		}
	}
	return nil
}

// CompletedAgents returns agent names with status Complete, in pipeline order.
func (w *Workflow) CompletedAgents() []Agent {
	var out []Agent
	for _, s := range w.Agents {
		if s.Status == AgentComplete {
			out = append(out, s.Agent)
		}
	}
	return out
}

// ErroredAgents returns the status entries currently in Error state.
func (w *Workflow) ErroredAgents() []AgentStatus {
	var out []AgentStatus
	for _, s := range w.Agents {
		if s.Status == AgentError {
			out = append(out, s)
		}
	}
	return out
}

// RecordEvent appends an event to the ordered history.
func (w *Workflow) RecordEvent(eventType string, payload map[string]any) {
	w.Events = append(w.Events, WorkflowEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// Priority extracts the priority label (prefix "priority:"), defaulting
// to "medium" when no such label is present.
func (w *Workflow) Priority() string {
	for _, l := range w.Labels {
		if rest, ok := strings.CutPrefix(l, "priority:"); ok && rest != "" {
			return rest
		}
	}
	return "medium"
}

// Classification derives the pattern key component for this workflow:
// the first bare label (feature, bug, chore) joined with the priority,
// e.g. "feature/high".
func (w *Workflow) Classification() string {
	kind := "change"
	for _, l := range w.Labels {
		if !strings.Contains(l, ":") {
			kind = l
			break
		}
	}
	return kind + "/" + w.Priority()
}
