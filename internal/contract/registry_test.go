package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

func validSpecInput() map[string]any {
	return map[string]any{
		"issue_number": 42,
		"title":        "Add CSV export",
		"body":         "Users need to export invoice lists.",
		"priority":     "high",
	}
}

func TestValidateInput_AppliesDefaults(t *testing.T) {
	r := NewRegistry()

	out, err := r.ValidateInput(workflow.AgentSpec, validSpecInput())
	require.NoError(t, err)

	// A missing labels list defaults to empty.
	assert.Equal(t, []any{}, out["labels"])
}

func TestValidateInput_DoesNotMutateCaller(t *testing.T) {
	r := NewRegistry()
	in := validSpecInput()

	_, err := r.ValidateInput(workflow.AgentSpec, in)
	require.NoError(t, err)
	assert.NotContains(t, in, "labels")
}

func TestValidateInput_ReportsEveryViolation(t *testing.T) {
	r := NewRegistry()

	_, err := r.ValidateInput(workflow.AgentSpec, map[string]any{
		"issue_number": "not-a-number",
		"priority":     "urgent",
	})
	require.Error(t, err)

	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "input", ve.Direction)

	// Validation must not stop at the first problem: bad type, bad enum
	// value, and both missing required fields are all reported.
	fields := make(map[string]bool)
	for _, v := range ve.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["issue_number"])
	assert.True(t, fields["priority"])
	assert.True(t, fields["title"])
	assert.True(t, fields["body"])
}

func TestValidateInput_UnknownAgent(t *testing.T) {
	r := NewRegistry()
	_, err := r.ValidateInput(workflow.Agent("deploy"), map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestValidateInput_AcceptsJSONNumbers(t *testing.T) {
	r := NewRegistry()
	in := validSpecInput()
	in["issue_number"] = float64(42) // json.Unmarshal produces float64

	_, err := r.ValidateInput(workflow.AgentSpec, in)
	assert.NoError(t, err)

	in["issue_number"] = 42.5
	_, err = r.ValidateInput(workflow.AgentSpec, in)
	assert.Error(t, err)
}

func TestValidateOutput_Spec(t *testing.T) {
	r := NewRegistry()

	out, err := r.ValidateOutput(workflow.AgentSpec, map[string]any{
		"success":             true,
		"spec_path":           "docs/specs/issue-42.md",
		"problem_statement":   "Invoices cannot be exported.",
		"in_scope":            []any{"CSV export"},
		"acceptance_criteria": []any{"export matches the filtered list"},
		"test_matrix":         map[string]any{"unit": 4, "integration": 2, "e2e": 1},
		"files_to_modify":     []any{"internal/export/csv.go"},
		"complexity":          "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, []any{}, out["errors"])
	assert.Equal(t, []any{}, out["out_of_scope"])
}

func TestValidateOutput_EnumViolation(t *testing.T) {
	r := NewRegistry()

	_, err := r.ValidateOutput(workflow.AgentSec, map[string]any{
		"success":          true,
		"findings":         []any{},
		"highest_severity": "catastrophic",
	})
	require.Error(t, err)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Violations, 1)
	assert.Equal(t, "highest_severity", ve.Violations[0].Field)
}

func TestFailureOutput_MatchesSchema(t *testing.T) {
	r := NewRegistry()

	out := r.FailureOutput(workflow.AgentSpec, "transport failed after retries")

	assert.Equal(t, false, out["success"])
	assert.Equal(t, []any{"transport failed after retries"}, out["errors"])

	// Every required output field is populated with a safe default, so the
	// failure payload validates against the agent's own output schema.
	validated, err := r.ValidateOutput(workflow.AgentSpec, out)
	require.NoError(t, err)
	assert.Equal(t, "", validated["spec_path"])
	assert.Equal(t, "low", validated["complexity"]) // first enum value
}

func TestFailureOutput_AllAgents(t *testing.T) {
	r := NewRegistry()
	for _, agent := range workflow.AllAgents() {
		out := r.FailureOutput(agent, "boom")
		_, err := r.ValidateOutput(agent, out)
		assert.NoError(t, err, "failure output for %s must satisfy its schema", agent)
	}
}
