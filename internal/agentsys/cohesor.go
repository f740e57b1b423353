package agentsys

import (
	"encoding/json"
	"fmt"

	"adreel/internal/domain"
)

// cohesorPayload mirrors the wire shape named in §4.7; SceneSpecific uses a
// string key because JSON object keys are always strings, then is
// converted to domain.CohesionReport's int-keyed map.
type cohesorPayload struct {
	OverallCohesionScore float64 `json:"overall_cohesion_score"`
	Pairwise             []struct {
		FromScene       int     `json:"from_scene"`
		ToScene         int     `json:"to_scene"`
		TransitionScore float64 `json:"transition_score"`
		Critique        string  `json:"critique"`
	} `json:"pairwise"`
	GlobalIssues  []string          `json:"global_issues"`
	SceneSpecific map[string]string `json:"scene_specific"`
}

// ParseCohesionReport extracts the Cohesor's structured verdict.
func ParseCohesionReport(raw string) (any, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object found in cohesor response")
	}
	var p cohesorPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("decode cohesion report: %w", err)
	}
	if p.OverallCohesionScore < 0 || p.OverallCohesionScore > 100 {
		return nil, fmt.Errorf("cohesion score %v out of range [0,100]", p.OverallCohesionScore)
	}

	report := domain.CohesionReport{
		OverallCohesionScore:  p.OverallCohesionScore,
		GlobalIssues:          p.GlobalIssues,
		SceneSpecificFeedback: map[int]string{},
	}
	for _, pw := range p.Pairwise {
		report.Pairwise = append(report.Pairwise, domain.PairwiseTransition{
			FromScene:       pw.FromScene,
			ToScene:         pw.ToScene,
			TransitionScore: pw.TransitionScore,
			Critique:        pw.Critique,
		})
	}
	for k, v := range p.SceneSpecific {
		var sceneNum int
		if _, err := fmt.Sscanf(k, "%d", &sceneNum); err != nil {
			continue
		}
		report.SceneSpecificFeedback[sceneNum] = v
	}
	return report, nil
}
