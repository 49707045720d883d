// Package contract defines the per-agent input and output schemas and the
// registry that validates payloads against them. Validation never stops at
// the first problem: every violated field is reported together so a caller
// can fix a payload in one pass.
package contract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Common errors for contract operations.
var (
	ErrUnknownAgent = errors.New("no contract registered for agent")
)

// FieldType enumerates the value types a schema field may declare.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeList   FieldType = "list"
	TypeMap    FieldType = "map"
)

// FieldSpec declares one schema field. Enum applies to string fields only.
// Default, when non-nil, is filled in for a missing optional field; this is
// the only coercion the registry performs.
type FieldSpec struct {
	Type     FieldType
	Required bool
	Enum     []string
	Default  any
}

// Schema maps field names to their specs.
type Schema map[string]FieldSpec

// Contract pairs an agent's input and output schemas.
type Contract struct {
	Agent  workflow.Agent
	Input  Schema
	Output Schema
}

// Violation describes one schema violation on one field.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports every violated field of a payload. It is never
// retried by the executor; callers receive the full list.
type ValidationError struct {
	Agent      workflow.Agent
	Direction  string // "input" or "output"
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return fmt.Sprintf("%s %s validation failed: %s", e.Agent, e.Direction, strings.Join(parts, "; "))
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
