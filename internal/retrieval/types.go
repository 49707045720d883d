// Package retrieval implements just-in-time lookup of related files, prior
// issues, and prior agent outputs for a free-text query. Retrievers are
// pluggable; the orchestration core only requires that a retriever be
// deterministic for a given query and corpus and respect its result bound.
package retrieval

import (
	"context"
	"errors"
)

// Common errors for retrieval operations.
var (
	ErrEmptyQuery = errors.New("query cannot be empty")
	ErrNoSources  = errors.New("retriever has no sources")
)

// RefKind classifies a retrieved reference.
type RefKind string

const (
	RefFile   RefKind = "file"
	RefIssue  RefKind = "issue"
	RefOutput RefKind = "output"
)

// Reference is one retrieved candidate: a file path, an issue reference, or
// a prior agent-output summary.
type Reference struct {
	Kind    RefKind `json:"kind"`
	Locator string  `json:"locator"`
	Summary string  `json:"summary,omitempty"`
	Score   float64 `json:"score"`
}

// Retriever looks up references relevant to a free-text query, returning at
// most maxResults of them, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, maxResults int) ([]Reference, error)
}

// Document is one corpus entry indexed by a retriever.
type Document struct {
	Kind    RefKind
	Locator string
	Content string
}
