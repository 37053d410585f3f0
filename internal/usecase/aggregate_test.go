package usecase

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"RiskScanner/internal/domain"
)

func classified(source, title string, published time.Time, level domain.RiskLevel, conf float64, method domain.Method) domain.ClassifiedDocument {
	return domain.ClassifiedDocument{
		Document: doc(source, title, "", "", published),
		Classification: domain.ClassificationResult{
			RiskLevel: level, RiskCategory: domain.CategoryLegal, Confidence: conf, Method: method,
		},
	}
}

func TestAggregateOrdersNewestFirstWithStableTies(t *testing.T) {
	t.Parallel()

	docs := []domain.ClassifiedDocument{
		classified("gazette", "old", testDay.AddDate(0, 0, -2), domain.RiskLow, 0.7, domain.MethodGatePattern),
		classified("gazette", "tie-1", testDay, domain.RiskNo, 0.9, domain.MethodGatePattern),
		classified("rss", "tie-2", testDay, domain.RiskHigh, 0.8, domain.MethodRemotePrimary),
		classified("rss", "mid", testDay.AddDate(0, 0, -1), domain.RiskMedium, 0.8, domain.MethodDefault),
	}
	diags := []domain.SourceDiagnostic{{Source: "gazette"}, {Source: "rss"}, {Source: "newsapi"}}

	ordered, overall, stats := NewAggregator(RollupMax).Aggregate(docs, diags, 2)

	var titles []string
	for _, d := range ordered {
		titles = append(titles, d.Title)
	}
	if diff := cmp.Diff([]string{"tie-1", "tie-2", "mid", "old"}, titles); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if overall != domain.RiskHigh {
		t.Fatalf("max rollup: got %s", overall)
	}
	if diff := cmp.Diff(map[domain.SourceID]int{"gazette": 2, "rss": 2, "newsapi": 0}, stats.PerSourceCount); diff != "" {
		t.Fatalf("per source (-want +got):\n%s", diff)
	}
	if stats.PerRiskCount["High"] != 1 || stats.PerRiskCount["No"] != 1 {
		t.Fatalf("per risk %v", stats.PerRiskCount)
	}
	if stats.GateResolvedPct != 0.5 || stats.RemoteResolvedPct != 0.5 || stats.Escalated != 2 {
		t.Fatalf("unexpected resolution stats %+v", stats)
	}
	if docs[0].Title != "old" {
		t.Fatal("input slice was reordered")
	}
}

func TestRollupPolicies(t *testing.T) {
	t.Parallel()

	docs := []domain.ClassifiedDocument{
		classified("a", "1", testDay, domain.RiskHigh, 0.9, domain.MethodGatePattern),
		classified("a", "2", testDay, domain.RiskNo, 0.3, domain.MethodGateFallback),
		classified("a", "3", testDay, domain.RiskNo, 0.3, domain.MethodGateFallback),
	}

	cases := []struct {
		rollup Rollup
		want   domain.RiskLevel
	}{
		{RollupMax, domain.RiskHigh},
		{RollupMean, domain.RiskLow},       // 3/3 = 1
		{RollupWeighted, domain.RiskMedium}, // 2.7/1.5 = 1.8
	}
	for _, tc := range cases {
		if got := tc.rollup.OverallRisk(docs); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.rollup, got, tc.want)
		}
		if got := tc.rollup.OverallRisk(nil); got != domain.RiskNo {
			t.Errorf("%s on empty: got %s", tc.rollup, got)
		}
	}
}

func TestParseRollup(t *testing.T) {
	t.Parallel()

	if r, err := ParseRollup(""); err != nil || r != RollupMax {
		t.Fatalf("empty: %v %v", r, err)
	}
	if r, err := ParseRollup(" Weighted "); err != nil || r != RollupWeighted {
		t.Fatalf("weighted: %v %v", r, err)
	}
	if _, err := ParseRollup("median"); err == nil {
		t.Fatal("expected an error for an unknown policy")
	}
}
