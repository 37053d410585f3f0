package httpapi

import (
	"slices"
	"strings"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/textnorm"
)

const (
	includePrefix = "include_"
	summaryRunes  = 300
)

type searchRequest struct {
	CompanyName  string   `json:"company_name" validate:"required,max=200"`
	StartDate    string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	DaysBack     int      `json:"days_back" validate:"gte=0,lte=365"`
	Sources      []string `json:"sources" validate:"omitempty,dive,required"`
	ForceRefresh bool     `json:"force_refresh"`

	// Include holds include_<source> flags keyed by source id.
	Include map[string]bool `json:"-"`
}

// toQuery maps the request onto a domain query. Explicit sources win; else
// any include_x=true selects exactly those; else include_x=false removes x
// from the full set.
func (r searchRequest) toQuery(known []domain.SourceID) domain.Query {
	q := domain.Query{
		CompanyName:  r.CompanyName,
		DaysBack:     r.DaysBack,
		ForceRefresh: r.ForceRefresh,
	}
	if r.StartDate != "" {
		q.StartDate, _ = time.Parse(time.DateOnly, r.StartDate)
	}
	if r.EndDate != "" {
		q.EndDate, _ = time.Parse(time.DateOnly, r.EndDate)
	}

	switch {
	case len(r.Sources) > 0:
		q.EnabledSources = r.Sources
	case len(r.Include) > 0:
		var on, off []domain.SourceID
		for name, enabled := range r.Include {
			if enabled {
				on = append(on, name)
			} else {
				off = append(off, name)
			}
		}
		if len(on) > 0 {
			slices.Sort(on)
			q.EnabledSources = on
			break
		}
		for _, s := range known {
			if !slices.Contains(off, s) {
				q.EnabledSources = append(q.EnabledSources, s)
			}
		}
		if len(q.EnabledSources) == 0 {
			// Every source switched off: keep the flags so resolution rejects it.
			q.EnabledSources = off
		}
	}
	return q
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type resultItem struct {
	Source           string  `json:"source"`
	Date             string  `json:"date"`
	Title            string  `json:"title"`
	Summary          string  `json:"summary"`
	RiskLevel        string  `json:"risk_level"`
	RiskCategory     string  `json:"risk_category"`
	Confidence       float64 `json:"confidence"`
	Method           string  `json:"method"`
	Rationale        string  `json:"rationale,omitempty"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	URL              string  `json:"url,omitempty"`
	CategoryCode     string  `json:"category_code,omitempty"`
}

type diagnosticItem struct {
	Source      string   `json:"source"`
	Count       int      `json:"count"`
	ElapsedMS   float64  `json:"elapsed_ms"`
	Status      string   `json:"status"`
	Error       string   `json:"error,omitempty"`
	Adjustments []string `json:"adjustments,omitempty"`
}

type metadata struct {
	TotalResults  int              `json:"total_results"`
	PerSource     map[string]int   `json:"per_source"`
	PerRisk       map[string]int   `json:"per_risk_level"`
	PerCategory   map[string]int   `json:"per_category"`
	HighRiskCount int              `json:"high_risk_count"`
	OverallRisk   string           `json:"overall_risk"`
	Diagnostics   []diagnosticItem `json:"diagnostics"`
}

type timingsMS struct {
	Fetch     float64 `json:"fetch"`
	Gate      float64 `json:"gate"`
	Remote    float64 `json:"remote"`
	Aggregate float64 `json:"aggregate"`
	Total     float64 `json:"total"`
}

type performance struct {
	GateResolvedPct   float64        `json:"gate_resolved_pct"`
	RemoteResolvedPct float64        `json:"remote_resolved_pct"`
	Escalated         int            `json:"escalated"`
	PerMethod         map[string]int `json:"per_method"`
	TimingsMS         timingsMS      `json:"timings_ms"`
}

type searchResponse struct {
	RunID           string       `json:"run_id"`
	Company         string       `json:"company"`
	SearchTimestamp string       `json:"search_timestamp"`
	DateRange       dateRange    `json:"date_range"`
	Results         []resultItem `json:"results"`
	Metadata        metadata     `json:"metadata"`
	Performance     performance  `json:"performance"`
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func toSearchResponse(resp domain.Response) searchResponse {
	out := searchResponse{
		RunID:           resp.RunID,
		Company:         resp.Query.CompanyName,
		SearchTimestamp: resp.SearchedAt.UTC().Format(time.RFC3339),
		DateRange: dateRange{
			Start: resp.Query.Window.From.Format(time.DateOnly),
			End:   resp.Query.Window.To.Format(time.DateOnly),
		},
		Results: make([]resultItem, 0, len(resp.Documents)),
		Metadata: metadata{
			TotalResults:  len(resp.Documents),
			PerSource:     map[string]int{},
			PerRisk:       resp.Stats.PerRiskCount,
			PerCategory:   map[string]int{},
			HighRiskCount: resp.HighRiskCount(),
			OverallRisk:   resp.OverallRisk.String(),
			Diagnostics:   make([]diagnosticItem, 0, len(resp.Diagnostics)),
		},
		Performance: performance{
			GateResolvedPct:   resp.Stats.GateResolvedPct,
			RemoteResolvedPct: resp.Stats.RemoteResolvedPct,
			Escalated:         resp.Stats.Escalated,
			PerMethod:         map[string]int{},
			TimingsMS: timingsMS{
				Fetch:     ms(resp.Stats.Timings.Fetch),
				Gate:      ms(resp.Stats.Timings.Gate),
				Remote:    ms(resp.Stats.Timings.Remote),
				Aggregate: ms(resp.Stats.Timings.Aggregate),
				Total:     ms(resp.Stats.Timings.Total),
			},
		},
	}

	for _, d := range resp.Documents {
		c := d.Classification
		out.Results = append(out.Results, resultItem{
			Source:           d.SourceID,
			Date:             d.PublishedAt.Format(time.DateOnly),
			Title:            d.Title,
			Summary:          summarize(d.Body),
			RiskLevel:        c.RiskLevel.String(),
			RiskCategory:     string(c.RiskCategory),
			Confidence:       c.Confidence,
			Method:           string(c.Method),
			Rationale:        c.Rationale,
			ProcessingTimeMS: ms(c.Elapsed),
			URL:              d.URL,
			CategoryCode:     d.CategoryCode,
		})
	}
	for src, n := range resp.Stats.PerSourceCount {
		out.Metadata.PerSource[src] = n
	}
	for cat, n := range resp.Stats.PerCategoryCount {
		out.Metadata.PerCategory[string(cat)] = n
	}
	for m, n := range resp.Stats.PerMethodCount {
		out.Performance.PerMethod[string(m)] = n
	}
	for _, d := range resp.Diagnostics {
		item := diagnosticItem{
			Source:      d.Source,
			Count:       d.Count,
			ElapsedMS:   ms(d.Elapsed),
			Status:      "ok",
			Adjustments: d.Adjustments,
		}
		switch {
		case d.Cancelled():
			item.Status = "cancelled"
		case d.Failed():
			item.Status = "failed"
		case len(d.Adjustments) > 0:
			item.Status = "adjusted"
		}
		if d.Err != nil {
			item.Error = d.Err.Error()
		}
		out.Metadata.Diagnostics = append(out.Metadata.Diagnostics, item)
	}
	return out
}

func summarize(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if textnorm.RuneLen(body) <= summaryRunes {
		return body
	}
	runes := []rune(body)
	return strings.TrimSpace(string(runes[:summaryRunes])) + "…"
}
