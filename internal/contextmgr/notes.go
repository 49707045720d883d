package contextmgr

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// NoteCategory classifies a structured note.
type NoteCategory string

const (
	NoteDecision    NoteCategory = "decision"
	NoteBlocker     NoteCategory = "blocker"
	NoteAchievement NoteCategory = "achievement"
	NoteLearning    NoteCategory = "learning"
)

// StructuredNote is one append-only note in a workflow's log.
type StructuredNote struct {
	ID         string         `json:"id"`
	WorkflowID int            `json:"workflow_id"`
	Category   NoteCategory   `json:"category"`
	Phase      workflow.Phase `json:"phase"`
	Agent      workflow.Agent `json:"agent"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	References []string       `json:"references,omitempty"`
}

// Notekeeper is an append-only categorized note log, queryable by category,
// phase, and recency. Notes are never mutated; the only removal is an
// explicit workflow-scoped clear.
type Notekeeper struct {
	mu    sync.RWMutex
	notes []StructuredNote
}

// NewNotekeeper creates an empty note log.
func NewNotekeeper() *Notekeeper {
	return &Notekeeper{}
}

// AddNote appends a note, assigning its id and timestamp.
func (n *Notekeeper) AddNote(workflowID int, category NoteCategory, phase workflow.Phase, agent workflow.Agent, content string, refs ...string) StructuredNote {
	note := StructuredNote{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Category:   category,
		Phase:      phase,
		Agent:      agent,
		Content:    content,
		Timestamp:  time.Now(),
		References: refs,
	}
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
	return note
}

// NotesByCategory returns a workflow's notes of the given category, in
// append order.
func (n *Notekeeper) NotesByCategory(workflowID int, category NoteCategory) []StructuredNote {
	return n.filter(func(note StructuredNote) bool {
		return note.WorkflowID == workflowID && note.Category == category
	})
}

// NotesByPhase returns a workflow's notes authored during the given phase.
func (n *Notekeeper) NotesByPhase(workflowID int, phase workflow.Phase) []StructuredNote {
	return n.filter(func(note StructuredNote) bool {
		return note.WorkflowID == workflowID && note.Phase == phase
	})
}

// RecentNotes returns up to limit of the workflow's most recent notes,
// newest last.
func (n *Notekeeper) RecentNotes(workflowID int, limit int) []StructuredNote {
	all := n.filter(func(note StructuredNote) bool {
		return note.WorkflowID == workflowID
	})
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}

// AllLearnings returns every Learning note across all workflows.
func (n *Notekeeper) AllLearnings() []StructuredNote {
	return n.filter(func(note StructuredNote) bool {
		return note.Category == NoteLearning
	})
}

// ClearNotes removes every note belonging to the given workflow.
func (n *Notekeeper) ClearNotes(workflowID int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.notes[:0]
	for _, note := range n.notes {
		if note.WorkflowID != workflowID {
			kept = append(kept, note)
		}
	}
	n.notes = kept
}

func (n *Notekeeper) filter(keep func(StructuredNote) bool) []StructuredNote {
	n.mu.RLock()
	defer n.mu.RUnlock()
	var out []StructuredNote
	for _, note := range n.notes {
		if keep(note) {
			out = append(out, note)
		}
	}
	return out
}
