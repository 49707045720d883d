package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fyrsmithlabs/workflowd/internal/workflow"
)

// InstructionSource supplies the system instructions for each agent type.
// The instruction text itself is external content; this core only loads it.
type InstructionSource interface {
	Instructions(agent workflow.Agent) (string, error)
}

// DirInstructionSource loads <dir>/<agent>.md once per agent and caches it.
type DirInstructionSource struct {
	dir   string
	mu    sync.Mutex
	cache map[workflow.Agent]string
}

// NewDirInstructionSource creates a source reading from dir.
func NewDirInstructionSource(dir string) *DirInstructionSource {
	return &DirInstructionSource{dir: dir, cache: make(map[workflow.Agent]string)}
}

// Instructions implements InstructionSource.
func (s *DirInstructionSource) Instructions(agent workflow.Agent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text, ok := s.cache[agent]; ok {
		return text, nil
	}
	data, err := os.ReadFile(filepath.Join(s.dir, string(agent)+".md"))
	if err != nil {
		return "", fmt.Errorf("loading instructions for %s: %w", agent, err)
	}
	text := string(data)
	s.cache[agent] = text
	return text, nil
}

// StaticInstructions is a fixed in-memory source, used in tests and as a
// fallback when no instruction directory is configured.
type StaticInstructions map[workflow.Agent]string

// Instructions implements InstructionSource.
func (s StaticInstructions) Instructions(agent workflow.Agent) (string, error) {
	if text, ok := s[agent]; ok {
		return text, nil
	}
	return fmt.Sprintf("You are the %s agent of a software delivery pipeline. Respond with a single JSON object matching your output contract.", agent), nil
}

// buildTaskPrompt renders the minimal natural-language projection of the
// validated input for the given agent. Each agent type has its own
// projection; the switch is exhaustive over the sealed agent set.
func buildTaskPrompt(agent workflow.Agent, input map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%v: %v\n", input["issue_number"], input["title"])

	switch agent {
	case workflow.AgentSpec:
		fmt.Fprintf(&b, "Priority: %v\n", input["priority"])
		fmt.Fprintf(&b, "Labels: %s\n", joinList(input["labels"]))
		fmt.Fprintf(&b, "Body:\n%v\n", input["body"])
		b.WriteString("Produce the specification for this change.")
	case workflow.AgentTests:
		fmt.Fprintf(&b, "Specification: %v\n", input["spec_path"])
		fmt.Fprintf(&b, "Acceptance criteria: %s\n", joinList(input["acceptance_criteria"]))
		b.WriteString("Author the test suite covering every acceptance criterion.")
	case workflow.AgentImpl:
		fmt.Fprintf(&b, "Specification: %v\n", input["spec_path"])
		fmt.Fprintf(&b, "Tests: %s\n", joinList(input["test_paths"]))
		fmt.Fprintf(&b, "Files to modify: %s\n", joinList(input["files_to_modify"]))
		b.WriteString("Implement the change so the listed tests pass.")
	case workflow.AgentQA:
		fmt.Fprintf(&b, "Phase: %v\n", input["phase"])
		fmt.Fprintf(&b, "Artifacts: %s\n", joinList(input["artifacts"]))
		b.WriteString("Score the quality-gate criteria for this phase.")
	case workflow.AgentSec:
		fmt.Fprintf(&b, "Changed files: %s\n", joinList(input["changed_files"]))
		fmt.Fprintf(&b, "Severity floor: %v\n", input["severity_floor"])
		b.WriteString("Review the changes for security findings.")
	case workflow.AgentDocs:
		fmt.Fprintf(&b, "Changed files: %s\n", joinList(input["changed_files"]))
		b.WriteString("Update documentation for these changes.")
	case workflow.AgentRelease:
		fmt.Fprintf(&b, "Version: %v\n", input["version"])
		if cl, ok := input["changelog"].(string); ok && cl != "" {
			fmt.Fprintf(&b, "Changelog:\n%s\n", cl)
		}
		b.WriteString("Prepare the release.")
	}
	return b.String()
}

func joinList(v any) string {
	switch list := v.(type) {
	case []string:
		return strings.Join(list, ", ")
	case []any:
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
