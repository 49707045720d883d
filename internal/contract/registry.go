package contract

import (
	"fmt"
	"math"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// Registry holds the contracts for every agent type. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	contracts map[workflow.Agent]Contract
}

// NewRegistry returns a registry seeded with the seven pipeline contracts.
func NewRegistry() *Registry {
	r := &Registry{contracts: make(map[workflow.Agent]Contract)}
	for _, c := range defaultContracts() {
		r.contracts[c.Agent] = c
	}
	return r
}

// Contract returns the contract for the given agent.
func (r *Registry) Contract(agent workflow.Agent) (Contract, error) {
	c, ok := r.contracts[agent]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %s", ErrUnknownAgent, agent)
	}
	return c, nil
}

// ValidateInput validates payload against the agent's input schema. On
// success it returns a copy of the payload with documented defaults applied.
func (r *Registry) ValidateInput(agent workflow.Agent, payload map[string]any) (map[string]any, error) {
	c, err := r.Contract(agent)
	if err != nil {
		return nil, err
	}
	return validate(agent, "input", c.Input, payload)
}

// ValidateOutput validates payload against the agent's output schema.
func (r *Registry) ValidateOutput(agent workflow.Agent, payload map[string]any) (map[string]any, error) {
	c, err := r.Contract(agent)
	if err != nil {
		return nil, err
	}
	return validate(agent, "output", c.Output, payload)
}

// FailureOutput builds a typed failure payload matching the agent's output
// schema: every required field holds a safe default, success is false, and
// errors carries the causing message. The executor returns this when its
// retry budget is exhausted so callers always see a schema-shaped result.
func (r *Registry) FailureOutput(agent workflow.Agent, cause string) map[string]any {
	c, ok := r.contracts[agent]
	if !ok {
		return map[string]any{"success": false, "errors": []any{cause}}
	}
	out := make(map[string]any, len(c.Output))
	for name, spec := range c.Output {
		if !spec.Required {
			continue
		}
		out[name] = safeDefault(spec)
	}
	out["success"] = false
	out["errors"] = []any{cause}
	return out
}

func safeDefault(spec FieldSpec) any {
	if spec.Default != nil {
		return spec.Default
	}
	switch spec.Type {
	case TypeString:
		if len(spec.Enum) > 0 {
			return spec.Enum[0]
		}
		return ""
	case TypeInt:
		return 0
	case TypeNumber:
		return 0.0
	case TypeBool:
		return false
	case TypeList:
		return []any{}
	case TypeMap:
		return map[string]any{}
	}
	return nil
}

// validate checks every schema field, accumulating all violations before
// failing. Unknown payload fields are tolerated; they pass through untouched.
func validate(agent workflow.Agent, direction string, schema Schema, payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}

	var violations []Violation
	for name, spec := range schema {
		val, present := out[name]
		if !present {
			if spec.Required {
				violations = append(violations, Violation{Field: name, Reason: "required field is missing"})
				continue
			}
			if spec.Default != nil {
				out[name] = spec.Default
			}
			continue
		}
		if reason := checkType(spec, val); reason != "" {
			violations = append(violations, Violation{Field: name, Reason: reason})
		}
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Agent: agent, Direction: direction, Violations: violations}
	}
	return out, nil
}

func checkType(spec FieldSpec, val any) string {
	switch spec.Type {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return fmt.Sprintf("expected string, got %T", val)
		}
		if len(spec.Enum) > 0 && !inEnum(spec.Enum, s) {
			return fmt.Sprintf("value %q not in %v", s, spec.Enum)
		}
	case TypeInt:
		switch n := val.(type) {
		case int, int32, int64:
		case float64:
			// JSON numbers decode as float64; accept integral values only.
			if n != math.Trunc(n) {
				return fmt.Sprintf("expected integer, got %v", n)
			}
		default:
			return fmt.Sprintf("expected integer, got %T", val)
		}
	case TypeNumber:
		switch val.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Sprintf("expected number, got %T", val)
		}
	case TypeBool:
		if _, ok := val.(bool); !ok {
			return fmt.Sprintf("expected bool, got %T", val)
		}
	case TypeList:
		switch val.(type) {
		case []any, []string:
		default:
			return fmt.Sprintf("expected list, got %T", val)
		}
	case TypeMap:
		if _, ok := val.(map[string]any); !ok {
			return fmt.Sprintf("expected map, got %T", val)
		}
	}
	return ""
}

func inEnum(enum []string, s string) bool {
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}
