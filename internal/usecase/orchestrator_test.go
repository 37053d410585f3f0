package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

func TestSearchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	good := &fakeAdapter{name: "gazette", docs: []domain.Document{
		doc("", "a", "", "", testDay),
		doc("", "b", "", "", testDay),
	}}
	broken := &fakeAdapter{name: "newsapi", err: errors.New("connection refused")}
	panicky := &fakeAdapter{name: "rss", panic: true}
	slow := &fakeAdapter{name: "notices", delay: time.Second}

	o := NewOrchestrator([]ports.SourceAdapter{good, broken, panicky, slow}, OrchestratorOptions{AdapterTimeout: 30 * time.Millisecond})
	docs, diags := o.SearchAll(context.Background(), domain.ResolvedQuery{CompanyName: "acme"})

	if len(docs) != 2 || docs[0].Title != "a" || docs[1].Title != "b" {
		t.Fatalf("unexpected documents %+v", docs)
	}
	if docs[0].SourceID != "gazette" {
		t.Fatalf("missing source label: %q", docs[0].SourceID)
	}
	if len(diags) != 4 {
		t.Fatalf("expected a diagnostic per adapter, got %d", len(diags))
	}

	wantKinds := []domain.AdapterErrorKind{"", domain.AdapterHTTP, domain.AdapterPanic, domain.AdapterTimeout}
	for i, d := range diags {
		var kind domain.AdapterErrorKind
		if d.Err != nil {
			kind = d.Err.Kind
		}
		if kind != wantKinds[i] {
			t.Errorf("diag %d (%s): kind %q, want %q", i, d.Source, kind, wantKinds[i])
		}
	}
	if diags[0].Count != 2 || diags[0].Failed() || !diags[1].Failed() {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
}

func TestSearchAllSelectsSources(t *testing.T) {
	t.Parallel()

	a := &fakeAdapter{name: "gazette"}
	b := &fakeAdapter{name: "newsapi"}
	o := NewOrchestrator([]ports.SourceAdapter{a, b}, OrchestratorOptions{})

	_, diags := o.SearchAll(context.Background(), domain.ResolvedQuery{Sources: []domain.SourceID{"newsapi"}})
	if len(diags) != 1 || diags[0].Source != "newsapi" {
		t.Fatalf("unexpected diagnostics %+v", diags)
	}
	if a.calls.Load() != 0 || b.calls.Load() != 1 {
		t.Fatalf("unexpected calls gazette=%d newsapi=%d", a.calls.Load(), b.calls.Load())
	}
}

func TestSearchAllCancelledRunIsNotAFailure(t *testing.T) {
	t.Parallel()

	slow := &fakeAdapter{name: "gazette", delay: time.Second, docs: []domain.Document{doc("", "late", "", "", testDay)}}
	o := NewOrchestrator([]ports.SourceAdapter{slow}, OrchestratorOptions{AdapterTimeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	docs, diags := o.SearchAll(ctx, domain.ResolvedQuery{})

	if len(docs) != 0 {
		t.Fatalf("cancelled adapter contributed documents: %+v", docs)
	}
	if !diags[0].Cancelled() || diags[0].Failed() {
		t.Fatalf("expected a cancelled diagnostic, got %+v", diags[0])
	}
}

func TestSearchAllStableAcrossRuns(t *testing.T) {
	t.Parallel()

	first := &fakeAdapter{name: "gazette", delay: 15 * time.Millisecond, docs: []domain.Document{doc("", "g1", "", "", testDay), doc("", "g2", "", "", testDay)}}
	second := &fakeAdapter{name: "rss", docs: []domain.Document{doc("", "r1", "", "", testDay)}}
	o := NewOrchestrator([]ports.SourceAdapter{first, second}, OrchestratorOptions{})

	for i := 0; i < 3; i++ {
		docs, _ := o.SearchAll(context.Background(), domain.ResolvedQuery{})
		var titles []string
		for _, d := range docs {
			titles = append(titles, d.Title)
		}
		if len(titles) != 3 || titles[0] != "g1" || titles[1] != "g2" || titles[2] != "r1" {
			t.Fatalf("order depends on completion: %v", titles)
		}
	}
}
