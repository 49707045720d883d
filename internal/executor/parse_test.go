package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructuredOutput_FencedBlock(t *testing.T) {
	text := "Here is the result:\n```json\n{\"success\": true, \"tag\": \"v1.2.0\"}\n```\nDone."
	payload, err := parseStructuredOutput(text)
	require.NoError(t, err)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "v1.2.0", payload["tag"])
}

func TestParseStructuredOutput_FenceCaseInsensitive(t *testing.T) {
	payload, err := parseStructuredOutput("```JSON\n{\"success\": false}\n```")
	require.NoError(t, err)
	assert.Equal(t, false, payload["success"])
}

func TestParseStructuredOutput_FencePreferredOverBareObject(t *testing.T) {
	text := "{\"decoy\": 1} then ```json\n{\"success\": true}\n```"
	payload, err := parseStructuredOutput(text)
	require.NoError(t, err)
	assert.NotContains(t, payload, "decoy")
	assert.Equal(t, true, payload["success"])
}

func TestParseStructuredOutput_BraceFallback(t *testing.T) {
	text := "The agent reports: {\"success\": true, \"nested\": {\"k\": \"v\"}} trailing prose"
	payload, err := parseStructuredOutput(text)
	require.NoError(t, err)
	nested, ok := payload["nested"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", nested["k"])
}

func TestParseStructuredOutput_BracesInsideStrings(t *testing.T) {
	text := `{"summary": "handles {braces} and \"quotes\" fine", "success": true}`
	payload, err := parseStructuredOutput(text)
	require.NoError(t, err)
	assert.Equal(t, `handles {braces} and "quotes" fine`, payload["summary"])
}

func TestParseStructuredOutput_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no payload", "just prose, no structure"},
		{"unbalanced", "{\"success\": true"},
		{"invalid json in fence", "```json\n{not json}\n```"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseStructuredOutput(tt.text)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}
