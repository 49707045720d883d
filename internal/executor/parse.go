package executor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseError reports response text that contained no recoverable structured
// payload. Like a transport failure, it consumes a retry.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return "parsing response: " + e.Reason }

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// parseStructuredOutput extracts the structured payload from response text.
// A fenced code block labeled json wins; otherwise the first top-level
// brace-delimited object in the text is used.
func parseStructuredOutput(text string) (map[string]any, error) {
	candidate := fencedJSONBlock(text)
	if candidate == "" {
		candidate = firstBraceObject(text)
	}
	if candidate == "" {
		return nil, &ParseError{Reason: "no JSON block or brace-delimited object found"}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return payload, nil
}

// fencedJSONBlock returns the body of the first ```json fenced block, or "".
func fencedJSONBlock(text string) string {
	lower := strings.ToLower(text)
	start := strings.Index(lower, "```json")
	if start < 0 {
		return ""
	}
	body := text[start+len("```json"):]
	end := strings.Index(body, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// firstBraceObject returns the first balanced top-level {...} in text,
// ignoring braces inside JSON strings.
func firstBraceObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
