package usecase

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"RiskScanner/internal/domain"
)

// Rollup names a policy that folds document levels into one company level.
type Rollup string

const (
	RollupMax      Rollup = "max"
	RollupMean     Rollup = "mean"
	RollupWeighted Rollup = "weighted"
)

// ParseRollup accepts the configured policy name; empty means max.
func ParseRollup(s string) (Rollup, error) {
	switch r := Rollup(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RollupMax, nil
	case RollupMax, RollupMean, RollupWeighted:
		return r, nil
	}
	return "", fmt.Errorf("unknown rollup policy %q", s)
}

// OverallRisk applies the policy to docs. No documents means no risk.
func (r Rollup) OverallRisk(docs []domain.ClassifiedDocument) domain.RiskLevel {
	if len(docs) == 0 {
		return domain.RiskNo
	}
	switch r {
	case RollupMean:
		var sum float64
		for _, d := range docs {
			sum += float64(d.Classification.RiskLevel)
		}
		return levelFromOrdinal(sum / float64(len(docs)))
	case RollupWeighted:
		var sum, weights float64
		for _, d := range docs {
			w := d.Classification.Confidence
			sum += w * float64(d.Classification.RiskLevel)
			weights += w
		}
		if weights == 0 {
			return domain.RiskNo
		}
		return levelFromOrdinal(sum / weights)
	default:
		maxLevel := domain.RiskNo
		for _, d := range docs {
			maxLevel = max(maxLevel, d.Classification.RiskLevel)
		}
		return maxLevel
	}
}

func levelFromOrdinal(v float64) domain.RiskLevel {
	l := domain.RiskLevel(math.Round(v))
	return min(max(l, domain.RiskNo), domain.RiskHigh)
}

// Aggregator builds the ordered document list and the per-run stats.
type Aggregator struct {
	rollup Rollup
}

func NewAggregator(rollup Rollup) *Aggregator {
	if rollup == "" {
		rollup = RollupMax
	}
	return &Aggregator{rollup: rollup}
}

// Aggregate sorts docs newest first, keeping input order for equal times, and
// fills every counter in stats except the timings.
func (a *Aggregator) Aggregate(docs []domain.ClassifiedDocument, diags []domain.SourceDiagnostic, escalated int) ([]domain.ClassifiedDocument, domain.RiskLevel, domain.Stats) {
	ordered := append([]domain.ClassifiedDocument(nil), docs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PublishedAt.After(ordered[j].PublishedAt)
	})

	stats := domain.Stats{
		PerSourceCount:   map[domain.SourceID]int{},
		PerRiskCount:     map[string]int{},
		PerCategoryCount: map[domain.RiskCategory]int{},
		PerMethodCount:   map[domain.Method]int{},
		Escalated:        escalated,
	}
	for _, lvl := range []domain.RiskLevel{domain.RiskNo, domain.RiskLow, domain.RiskMedium, domain.RiskHigh} {
		stats.PerRiskCount[lvl.String()] = 0
	}
	for _, c := range domain.Categories {
		stats.PerCategoryCount[c] = 0
	}
	for _, d := range diags {
		stats.PerSourceCount[d.Source] = 0
	}

	gate := 0
	for _, d := range ordered {
		c := d.Classification
		stats.PerSourceCount[d.SourceID]++
		stats.PerRiskCount[c.RiskLevel.String()]++
		stats.PerCategoryCount[c.RiskCategory]++
		stats.PerMethodCount[c.Method]++
		if c.Method.ResolvedByGate() {
			gate++
		}
	}
	if total := len(ordered); total > 0 {
		stats.GateResolvedPct = float64(gate) / float64(total)
		stats.RemoteResolvedPct = 1 - stats.GateResolvedPct
	}

	return ordered, a.rollup.OverallRisk(ordered), stats
}
