package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
)

func TestNewsAPIFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		q := r.URL.Query()
		if q.Get("q") != `"Acme"` || q.Get("from") != "2025-03-03" || q.Get("language") != "es" {
			t.Errorf("unexpected query %v", q)
		}
		w.Write([]byte(`{"status":"ok","totalResults":2,"articles":[
			{"title":"Acme recibe una demanda","description":"<p>La empresa <b>Acme</b> fue demandada.</p>","content":"La empresa Acme fue demandada por sus clientes [+1200 chars]","url":"https://news/1","publishedAt":"2025-03-09T08:00:00Z"},
			{"title":"Acme antiguo","description":"old","url":"https://news/2","publishedAt":"2025-02-01T08:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	n, err := NewNewsAPI(config.SourceConfig{
		Name: "newsapi", BaseURL: srv.URL, APIKey: "secret",
		Options: map[string]string{"language": "es", "maxPages": "3"},
	}, testDeps(srv.Client()))
	if err != nil {
		t.Fatalf("NewNewsAPI: %v", err)
	}

	res, err := n.Fetch(context.Background(), testQuery(
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), domain.Day(fixedNow)))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Documents) != 1 {
		t.Fatalf("expected the in-window article only, got %d", len(res.Documents))
	}
	doc := res.Documents[0]
	want := "La empresa Acme fue demandada.\nLa empresa Acme fue demandada por sus clientes"
	if doc.Body != want {
		t.Fatalf("unexpected body %q", doc.Body)
	}
	if !doc.PublishedAt.Equal(time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected published time %v", doc.PublishedAt)
	}
}

func TestNewsAPIMissingKey(t *testing.T) {
	t.Parallel()

	n, _ := NewNewsAPI(config.SourceConfig{Name: "newsapi", BaseURL: "http://unused"}, testDeps(nil))
	_, err := n.Fetch(context.Background(), testQuery(fixedNow, fixedNow))

	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Kind != domain.AdapterConfig {
		t.Fatalf("expected config adapter error, got %v", err)
	}
}

func TestNewsAPIErrorPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","code":"rateLimited","message":"too many requests"}`))
	}))
	defer srv.Close()

	n, _ := NewNewsAPI(config.SourceConfig{Name: "newsapi", BaseURL: srv.URL, APIKey: "k"}, testDeps(srv.Client()))
	_, err := n.Fetch(context.Background(), testQuery(fixedNow, fixedNow))

	var ae *domain.AdapterError
	if !errors.As(err, &ae) || ae.Kind != domain.AdapterHTTP {
		t.Fatalf("expected http adapter error, got %v", err)
	}
}

func TestNewsAPIWindowBeyondLookback(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := countingServer(t, &hits)
	n, _ := NewNewsAPI(config.SourceConfig{
		Name: "newsapi", BaseURL: srv.URL, APIKey: "secret", MaxLookbackDays: 30,
	}, testDeps(srv.Client()))

	res, err := n.Fetch(context.Background(), staleQuery())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertSkippedBeyondLookback(t, res, hits.Load())
}
