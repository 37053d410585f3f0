package ports

import (
	"context"
	"time"

	"RiskScanner/internal/domain"
)

// SourceAdapter fetches raw documents from exactly one provider. Failures are
// reported as *domain.AdapterError, never as panics.
type SourceAdapter interface {
	Name() domain.SourceID
	Fetch(ctx context.Context, q domain.ResolvedQuery) (domain.FetchResult, error)
}

// DocumentSource fans a query out over the active adapters.
type DocumentSource interface {
	SearchAll(ctx context.Context, q domain.ResolvedQuery) ([]domain.Document, []domain.SourceDiagnostic)
}

// Verdict is what a semantic classifier answers for one document.
type Verdict struct {
	Label      string
	Category   string
	Confidence float64
	Reason     string
}

// SemanticClassifier is one remote classification service (cloud or local).
type SemanticClassifier interface {
	Classify(ctx context.Context, doc domain.Document) (Verdict, error)
}

// CacheStore persists finished responses by normalized query key.
type CacheStore interface {
	Get(ctx context.Context, key string, now time.Time) (domain.Response, bool, error)
	Put(ctx context.Context, key string, resp domain.Response, createdAt time.Time, ttl time.Duration) error
}

// RunObserver receives every finished run, e.g. to feed a metrics sink.
type RunObserver interface {
	ObserveRun(ctx context.Context, resp domain.Response)
}

// Notifier streams alert digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
