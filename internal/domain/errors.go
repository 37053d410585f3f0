package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// InvalidQueryError rejects a query before any work starts.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

// AdapterErrorKind classifies adapter failures for diagnostics.
type AdapterErrorKind string

const (
	AdapterTimeout   AdapterErrorKind = "timeout"
	AdapterCancelled AdapterErrorKind = "cancelled"
	AdapterHTTP      AdapterErrorKind = "http"
	AdapterDecode    AdapterErrorKind = "decode"
	AdapterConfig    AdapterErrorKind = "config"
	AdapterPanic     AdapterErrorKind = "panic"
)

// AdapterError is the structured failure of one source. It never fails a run.
type AdapterError struct {
	Source SourceID
	Kind   AdapterErrorKind
	Err    error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

type adapterErrorWire struct {
	Source  SourceID         `json:"source"`
	Kind    AdapterErrorKind `json:"kind"`
	Message string           `json:"message,omitempty"`
}

// MarshalJSON flattens the cause into a message so cached responses round-trip.
func (e *AdapterError) MarshalJSON() ([]byte, error) {
	w := adapterErrorWire{Source: e.Source, Kind: e.Kind}
	if e.Err != nil {
		w.Message = e.Err.Error()
	}
	return json.Marshal(w)
}

func (e *AdapterError) UnmarshalJSON(data []byte) error {
	var w adapterErrorWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Source, e.Kind, e.Err = w.Source, w.Kind, nil
	if w.Message != "" {
		e.Err = errors.New(w.Message)
	}
	return nil
}

// NewAdapterError wraps err for source, picking a kind from the cause when
// kind is empty.
func NewAdapterError(source SourceID, kind AdapterErrorKind, err error) *AdapterError {
	if kind == "" {
		kind = AdapterHTTP
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			kind = AdapterTimeout
		case errors.Is(err, context.Canceled):
			kind = AdapterCancelled
		}
	}
	return &AdapterError{Source: source, Kind: kind, Err: err}
}

var (
	// ErrClassifierTimeout marks a remote tier that did not answer in time.
	ErrClassifierTimeout = errors.New("classifier timeout")
	// ErrServiceUnavailable marks a remote tier that is unreachable or misconfigured.
	ErrServiceUnavailable = errors.New("classifier service unavailable")
)
