package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/workflowd/internal/contextmgr"
)

// renderContext flattens the assembled agent context into the prompt
// preamble.
func renderContext(ac contextmgr.AgentContext) string {
	var b strings.Builder
	b.WriteString("Workflow context:\n")
	for _, d := range ac.Snapshot.KeyDecisions {
		fmt.Fprintf(&b, "- %s\n", d)
	}
	for _, ev := range ac.Snapshot.RecentEvents {
		fmt.Fprintf(&b, "- event %s\n", ev)
	}
	for _, n := range ac.Notes {
		fmt.Fprintf(&b, "- note [%s] %s\n", n.Category, n.Content)
	}
	for _, r := range ac.References {
		fmt.Fprintf(&b, "- see %s: %s\n", r.Locator, r.Summary)
	}
	return b.String()
}

// mustJSON serializes the validated output for history storage. The payload
// came from json.Unmarshal, so re-marshaling cannot fail.
func mustJSON(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
