package contract

import "github.com/fyrsmithlabs/workflowd/internal/workflow"

// priorityEnum is shared by every agent input that carries a priority.
var priorityEnum = []string{"low", "medium", "high", "critical"}

// issueFields are the common input fields tying a call to its change request.
func issueFields() Schema {
	return Schema{
		"issue_number": {Type: TypeInt, Required: true},
		"title":        {Type: TypeString, Required: true},
		"labels":       {Type: TypeList, Default: []any{}},
	}
}

func merge(base Schema, extra Schema) Schema {
	out := make(Schema, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// outputBase is shared by every agent output.
func outputBase() Schema {
	return Schema{
		"success": {Type: TypeBool, Required: true},
		"errors":  {Type: TypeList, Default: []any{}},
	}
}

// defaultContracts defines the fixed shapes for the seven pipeline agents.
// These are the load-bearing boundary with the rest of the system and must
// stay stable for compatibility with stored conversation history.
func defaultContracts() []Contract {
	return []Contract{
		{
			Agent: workflow.AgentSpec,
			Input: merge(issueFields(), Schema{
				"body":     {Type: TypeString, Required: true},
				"priority": {Type: TypeString, Required: true, Enum: priorityEnum},
			}),
			Output: merge(outputBase(), Schema{
				"spec_path":           {Type: TypeString, Required: true},
				"problem_statement":   {Type: TypeString, Required: true},
				"in_scope":            {Type: TypeList, Required: true},
				"out_of_scope":        {Type: TypeList, Default: []any{}},
				"acceptance_criteria": {Type: TypeList, Required: true},
				"risks":               {Type: TypeList, Default: []any{}},
				"test_matrix":         {Type: TypeMap, Required: true},
				"quality_budgets":     {Type: TypeList, Default: []any{}},
				"files_to_modify":     {Type: TypeList, Required: true},
				"complexity":          {Type: TypeString, Required: true, Enum: []string{"low", "medium", "high"}},
			}),
		},
		{
			Agent: workflow.AgentTests,
			Input: merge(issueFields(), Schema{
				"spec_path":           {Type: TypeString, Required: true},
				"acceptance_criteria": {Type: TypeList, Required: true},
				"files_to_modify":     {Type: TypeList, Default: []any{}},
			}),
			Output: merge(outputBase(), Schema{
				"test_paths":       {Type: TypeList, Required: true},
				"cases_written":    {Type: TypeInt, Required: true},
				"coverage_targets": {Type: TypeList, Default: []any{}},
			}),
		},
		{
			Agent: workflow.AgentImpl,
			Input: merge(issueFields(), Schema{
				"spec_path":       {Type: TypeString, Required: true},
				"test_paths":      {Type: TypeList, Required: true},
				"files_to_modify": {Type: TypeList, Default: []any{}},
			}),
			Output: merge(outputBase(), Schema{
				"files_changed": {Type: TypeList, Required: true},
				"summary":       {Type: TypeString, Required: true},
				"follow_ups":    {Type: TypeList, Default: []any{}},
			}),
		},
		{
			Agent: workflow.AgentQA,
			Input: merge(issueFields(), Schema{
				"phase":     {Type: TypeString, Required: true},
				"artifacts": {Type: TypeList, Default: []any{}},
			}),
			Output: merge(outputBase(), Schema{
				"score":    {Type: TypeNumber, Required: true},
				"criteria": {Type: TypeMap, Required: true},
				"issues":   {Type: TypeList, Default: []any{}},
			}),
		},
		{
			Agent: workflow.AgentSec,
			Input: merge(issueFields(), Schema{
				"changed_files":  {Type: TypeList, Required: true},
				"severity_floor": {Type: TypeString, Enum: []string{"low", "medium", "high", "critical"}, Default: "low"},
			}),
			Output: merge(outputBase(), Schema{
				"findings":         {Type: TypeList, Required: true},
				"highest_severity": {Type: TypeString, Required: true, Enum: []string{"none", "low", "medium", "high", "critical"}},
			}),
		},
		{
			Agent: workflow.AgentDocs,
			Input: merge(issueFields(), Schema{
				"changed_files": {Type: TypeList, Required: true},
				"release_notes": {Type: TypeBool, Default: false},
			}),
			Output: merge(outputBase(), Schema{
				"doc_paths": {Type: TypeList, Required: true},
				"summary":   {Type: TypeString, Required: true},
			}),
		},
		{
			Agent: workflow.AgentRelease,
			Input: merge(issueFields(), Schema{
				"version":   {Type: TypeString, Required: true},
				"changelog": {Type: TypeString, Default: ""},
			}),
			Output: merge(outputBase(), Schema{
				"version":    {Type: TypeString, Required: true},
				"tag":        {Type: TypeString, Required: true},
				"notes_path": {Type: TypeString, Default: ""},
			}),
		},
	}
}
