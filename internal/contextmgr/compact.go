// Package contextmgr assembles the bounded context handed to each agent
// call: a compacted workflow snapshot, recent structured notes, just-in-time
// retrieved references, and the token-budget status.
package contextmgr

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

const (
	maxKeyDecisions  = 10
	maxRecentEvents  = 5
	eventPayloadKeys = 2
)

// ContextSnapshot is a derived, ephemeral view of a workflow. It is
// recomputed per request and never persisted.
type ContextSnapshot struct {
	WorkflowID      int            `json:"workflow_id"`
	Title           string         `json:"title"`
	Phase           workflow.Phase `json:"phase"`
	ActiveAgent     workflow.Agent `json:"active_agent,omitempty"`
	KeyDecisions    []string       `json:"key_decisions,omitempty"`
	RecentEvents    []string       `json:"recent_events,omitempty"`
	EstimatedTokens int            `json:"estimated_tokens"`
}

// Compact reduces a workflow's history to a bounded, high-signal snapshot.
// It extracts up to the last 10 key decisions (gate outcomes, completed
// agents, errored agents) and the last 5 events, then estimates the token
// cost of the result. Compact never mutates the workflow.
func Compact(w *workflow.Workflow, activeAgent workflow.Agent) ContextSnapshot {
	decisions := keyDecisions(w)
	if len(decisions) > maxKeyDecisions {
		decisions = decisions[len(decisions)-maxKeyDecisions:]
	}

	events := renderEvents(w.Events)
	if len(events) > maxRecentEvents {
		events = events[len(events)-maxRecentEvents:]
	}

	return ContextSnapshot{
		WorkflowID:      w.ID,
		Title:           w.Title,
		Phase:           w.Phase,
		ActiveAgent:     activeAgent,
		KeyDecisions:    decisions,
		RecentEvents:    events,
		EstimatedTokens: estimateTokens(decisions, events),
	}
}

func keyDecisions(w *workflow.Workflow) []string {
	var decisions []string

	for _, g := range w.Gates {
		switch g.State {
		case workflow.GatePassed:
			decisions = append(decisions, fmt.Sprintf("gate %s passed with %.0f", g.Gate.Name, g.Score))
		case workflow.GateFailed:
			decisions = append(decisions, fmt.Sprintf("gate %s failed with %.0f", g.Gate.Name, g.Score))
		}
	}

	if completed := w.CompletedAgents(); len(completed) > 0 {
		names := make([]string, 0, len(completed))
		for _, a := range completed {
			names = append(names, string(a))
		}
		decisions = append(decisions, "completed: "+strings.Join(names, ", "))
	}

	for _, s := range w.ErroredAgents() {
		decisions = append(decisions, fmt.Sprintf("ERROR: %s - %s", s.Agent, s.LastError))
	}

	return decisions
}

// renderEvents formats each event as "type: k=v, k=v" using the first two
// payload keys in sorted order so the rendering is deterministic.
func renderEvents(events []workflow.WorkflowEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		keys := make([]string, 0, len(e.Payload))
		for k := range e.Payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > eventPayloadKeys {
			keys = keys[:eventPayloadKeys]
		}
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, e.Payload[k]))
		}
		if len(pairs) == 0 {
			out = append(out, e.Type)
			continue
		}
		out = append(out, e.Type+": "+strings.Join(pairs, ", "))
	}
	return out
}

// estimateTokens approximates the token cost of the snapshot content as
// ceil(bytes/4), the usual rough bytes-per-token ratio for English text.
func estimateTokens(decisions, events []string) int {
	payload, err := json.Marshal(append(append([]string{}, decisions...), events...))
	if err != nil {
		return 0
	}
	return (len(payload) + 3) / 4
}
