package agentsys

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStringArray extracts a top-level JSON array of strings, tolerating
// a surrounding markdown code fence.
func ParseStringArray(raw string) (any, error) {
	body := extractJSONArray(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON array found in response")
	}
	var out []string
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("decode string array: %w", err)
	}
	return out, nil
}

func extractJSONArray(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
