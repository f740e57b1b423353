package agentsys

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CriticResult is the structured output every critic role (Story Critic,
// Scene Critic) must produce.
type CriticResult struct {
	Score         int      `json:"score"`
	Status        string   `json:"status"`
	Critique      string   `json:"critique"`
	Strengths     []string `json:"strengths"`
	Improvements  []string `json:"improvements"`
	PriorityFixes []string `json:"priority_fixes"`
}

// ParseCriticResult extracts the single JSON object from a critic
// response, tolerating a leading/trailing markdown fence, and validates
// the score is in range.
func ParseCriticResult(raw string) (any, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object found in critic response")
	}
	var r CriticResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, fmt.Errorf("decode critic result: %w", err)
	}
	if r.Score < 0 || r.Score > 100 {
		return nil, fmt.Errorf("critic score %d out of range [0,100]", r.Score)
	}
	if strings.TrimSpace(r.Status) == "" {
		return nil, fmt.Errorf("critic status is required")
	}
	return r, nil
}

// extractJSONObject trims a response down to its first top-level {...}
// block, stripping a surrounding markdown code fence if present.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
