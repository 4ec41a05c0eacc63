package models

// Evaluation is one participant's end-of-session score card. The six criteria
// are 1-10; OverallScore is their mean rounded to two decimals.
type Evaluation struct {
	Name               string   `json:"name"`
	Communication      float64  `json:"communication"`
	ContentRelevance   float64  `json:"content_relevance"`
	Leadership         float64  `json:"leadership"`
	Confidence         float64  `json:"confidence"`
	TeamBehavior       float64  `json:"team_behavior"`
	CorporateReadiness float64  `json:"corporate_readiness"`
	OverallScore       float64  `json:"overall_score"`
	Strengths          []string `json:"strengths"`
	Weaknesses         []string `json:"weaknesses"`
	HRRemarks          string   `json:"hr_remarks"`
	Suggestions        []string `json:"suggestions"`
	PlacementReadiness string   `json:"placement_readiness"`
	Rank               int      `json:"rank,omitempty"`
}

// EvaluationReport ranks every evaluated participant, best first.
type EvaluationReport struct {
	Rankings []Evaluation `json:"rankings"`
	Summary  string       `json:"summary"`
}
