package domain

import "time"

// SourceID labels an external document provider ("gazette", "newsapi", ...).
type SourceID = string

// Document is a raw item fetched from a provider. Treat it as immutable once built.
type Document struct {
	SourceID     SourceID  `json:"source"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	CategoryCode string    `json:"category_code,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	URL          string    `json:"url,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Text returns title and body joined, the input every text rule looks at.
func (d Document) Text() string {
	if d.Title == "" {
		return d.Body
	}
	if d.Body == "" {
		return d.Title
	}
	return d.Title + "\n" + d.Body
}

// FetchResult is what one adapter produced for a query.
type FetchResult struct {
	Documents []Document
	// Adjustments describes window clamping or similar source-constraint changes.
	Adjustments []string
}

// SourceDiagnostic records how each adapter fared during a run.
type SourceDiagnostic struct {
	Source      SourceID      `json:"source"`
	Count       int           `json:"count"`
	Elapsed     time.Duration `json:"elapsed"`
	Adjustments []string      `json:"adjustments,omitempty"`
	Err         *AdapterError `json:"error,omitempty"`
}

// Failed reports whether the adapter contributed no documents due to an error.
// A source cut off by the run's own deadline is cancelled, not failed.
func (d SourceDiagnostic) Failed() bool {
	return d.Err != nil && d.Err.Kind != AdapterCancelled
}

// Cancelled reports whether the run ended before the adapter answered.
func (d SourceDiagnostic) Cancelled() bool {
	return d.Err != nil && d.Err.Kind == AdapterCancelled
}
