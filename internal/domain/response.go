package domain

import "time"

// Timings captures per-phase wall time for one pipeline run.
type Timings struct {
	Fetch     time.Duration `json:"fetch"`
	Gate      time.Duration `json:"gate"`
	Remote    time.Duration `json:"remote"`
	Aggregate time.Duration `json:"aggregate"`
	Total     time.Duration `json:"total"`
}

// Stats is the per-run accumulator returned alongside the documents.
type Stats struct {
	PerSourceCount    map[SourceID]int     `json:"per_source_count"`
	PerRiskCount      map[string]int       `json:"per_risk_count"`
	PerCategoryCount  map[RiskCategory]int `json:"per_category_count"`
	PerMethodCount    map[Method]int       `json:"per_method_count"`
	Escalated         int                  `json:"escalated"`
	GateResolvedPct   float64              `json:"gate_resolved_pct"`
	RemoteResolvedPct float64              `json:"remote_resolved_pct"`
	Timings           Timings              `json:"timings"`
}

// Response is the outcome of one pipeline run.
type Response struct {
	RunID       string               `json:"run_id"`
	Query       ResolvedQuery        `json:"query"`
	SearchedAt  time.Time            `json:"searched_at"`
	Documents   []ClassifiedDocument `json:"documents"`
	Diagnostics []SourceDiagnostic   `json:"diagnostics"`
	OverallRisk RiskLevel            `json:"overall_risk"`
	Stats       Stats                `json:"stats"`
}

// HighRiskCount counts documents classified High.
func (r Response) HighRiskCount() int {
	n := 0
	for _, d := range r.Documents {
		if d.Classification.RiskLevel == RiskHigh {
			n++
		}
	}
	return n
}
