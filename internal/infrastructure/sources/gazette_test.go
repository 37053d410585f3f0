package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testDeps(client *http.Client) Deps {
	return Deps{Client: client, Now: func() time.Time { return fixedNow }}
}

func testQuery(from, to time.Time) domain.ResolvedQuery {
	return domain.ResolvedQuery{CompanyName: "Acme", Window: domain.Window{From: from, To: to}}
}

const gazetteFixture = `{"status":{"code":"200"},"data":{"sumario":{"diario":[{"seccion":[
 {"codigo":"5","nombre":"V. Anuncios","departamento":{"codigo":"1","nombre":"BANCO DE ESPAÑA",
  "epigrafe":{"nombre":"Sanciones","item":{"identificador":"BOE-B-1","titulo":"Resolución por la que se sanciona a ACME, S.A.","url_html":"https://gazette/1"}}}},
 {"codigo":"1","nombre":"I. Disposiciones generales","departamento":[{"codigo":"2","nombre":"MINISTERIO DE HACIENDA",
  "item":[{"titulo":"Orden sobre tributos locales","url_html":"https://gazette/2"},{"titulo":"Convenio con Acme Servicios","url_html":"https://gazette/3"}]}]}
]}]}}}`

func TestGazetteFetchFiltersAndMapsCodes(t *testing.T) {
	t.Parallel()

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected accept header %q", r.Header.Get("Accept"))
		}
		if r.URL.Path == "/sumario/20250310" {
			w.Write([]byte(gazetteFixture))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	g, err := NewGazette(config.SourceConfig{Name: "gazette", BaseURL: srv.URL + "/sumario/"}, testDeps(srv.Client()))
	if err != nil {
		t.Fatalf("NewGazette: %v", err)
	}

	res, err := g.Fetch(context.Background(), testQuery(
		time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// Sunday the 9th is never requested.
	if len(paths) != 2 || paths[0] != "/sumario/20250310" || paths[1] != "/sumario/20250308" {
		t.Fatalf("unexpected request order %v", paths)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("expected 2 matching entries, got %d", len(res.Documents))
	}
	first := res.Documents[0]
	if first.CategoryCode != "BDE" || first.URL != "https://gazette/1" || first.SourceID != "gazette" {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if first.Body != "V. Anuncios. BANCO DE ESPAÑA. Sanciones" {
		t.Fatalf("unexpected body %q", first.Body)
	}
	if res.Documents[1].CategoryCode != "" {
		t.Fatalf("unmapped department should carry no code, got %q", res.Documents[1].CategoryCode)
	}
}

func TestGazetteAllDaysFailing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g, _ := NewGazette(config.SourceConfig{Name: "gazette", BaseURL: srv.URL}, testDeps(srv.Client()))
	_, err := g.Fetch(context.Background(), testQuery(fixedNow.AddDate(0, 0, -1), domain.Day(fixedNow)))

	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Kind != domain.AdapterHTTP || ae.Source != "gazette" {
		t.Fatalf("expected http adapter error, got %v", err)
	}
}

func TestGazetteLookbackClamp(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	g, _ := NewGazette(config.SourceConfig{Name: "gazette", BaseURL: srv.URL, MaxLookbackDays: 5}, testDeps(srv.Client()))
	res, err := g.Fetch(context.Background(), testQuery(
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		domain.Day(fixedNow),
	))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Adjustments) == 0 {
		t.Fatal("expected a lookback adjustment")
	}
}

// staleQuery asks for January while every source below keeps 30 days back
// from fixedNow, so the floor is 2025-02-08.
func staleQuery() domain.ResolvedQuery {
	return testQuery(
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	)
}

func countingServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assertSkippedBeyondLookback(t *testing.T, res domain.FetchResult, hits int32) {
	t.Helper()
	if hits != 0 {
		t.Fatalf("expected no requests, got %d", hits)
	}
	if len(res.Documents) != 0 {
		t.Fatalf("expected no documents, got %+v", res.Documents)
	}
	if len(res.Adjustments) != 1 || !strings.Contains(res.Adjustments[0], "lookback limit") {
		t.Fatalf("unexpected adjustments %v", res.Adjustments)
	}
}

func TestGazetteWindowBeyondLookback(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := countingServer(t, &hits)
	g, _ := NewGazette(config.SourceConfig{Name: "gazette", BaseURL: srv.URL, MaxLookbackDays: 30}, testDeps(srv.Client()))

	res, err := g.Fetch(context.Background(), staleQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertSkippedBeyondLookback(t, res, hits.Load())
}

func TestGazetteDayCapCountsPublicationDays(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := countingServer(t, &hits)

	// 2025-03-03..2025-03-10 spans eight calendar days but only seven
	// publication days, since the 9th is a Sunday.
	g, _ := NewGazette(config.SourceConfig{
		Name: "gazette", BaseURL: srv.URL, Options: map[string]string{"maxDays": "7"},
	}, testDeps(srv.Client()))
	res, err := g.Fetch(context.Background(), testQuery(
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), domain.Day(fixedNow)))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 7 || len(res.Adjustments) != 0 {
		t.Fatalf("expected 7 requests and no note, got %d %v", hits.Load(), res.Adjustments)
	}

	hits.Store(0)
	g, _ = NewGazette(config.SourceConfig{
		Name: "gazette", BaseURL: srv.URL, Options: map[string]string{"maxDays": "2"},
	}, testDeps(srv.Client()))
	res, err = g.Fetch(context.Background(), testQuery(
		time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC), domain.Day(fixedNow)))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", hits.Load())
	}
	if len(res.Adjustments) != 1 || !strings.Contains(res.Adjustments[0], "latest 2 of 4") {
		t.Fatalf("unexpected adjustments %v", res.Adjustments)
	}
}

func TestOneOrManyDecoding(t *testing.T) {
	t.Parallel()

	var h gazetteHeading
	if err := h.Item.UnmarshalJSON([]byte(`{"titulo":"a"}`)); err != nil || len(h.Item) != 1 {
		t.Fatalf("single object: %v %v", h.Item, err)
	}
	if err := h.Item.UnmarshalJSON([]byte(`[{"titulo":"a"},{"titulo":"b"}]`)); err != nil || len(h.Item) != 2 {
		t.Fatalf("array: %v %v", h.Item, err)
	}
	if err := h.Item.UnmarshalJSON([]byte(`null`)); err != nil || h.Item != nil {
		t.Fatalf("null: %v %v", h.Item, err)
	}
}
