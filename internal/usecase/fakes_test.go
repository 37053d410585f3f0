package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

var testDay = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

const filler = " La información se ha publicado en la edición de hoy y recoge los datos facilitados por la propia compañía a sus accionistas y a los medios."

// fakeAdapter returns fixed documents, optionally after a delay that honours
// cancellation.
type fakeAdapter struct {
	name  domain.SourceID
	docs  []domain.Document
	err   error
	delay time.Duration
	panic bool
	calls atomic.Int32
}

func (f *fakeAdapter) Name() domain.SourceID { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, _ domain.ResolvedQuery) (domain.FetchResult, error) {
	f.calls.Add(1)
	if f.panic {
		panic("adapter exploded")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.FetchResult{}, domain.NewAdapterError(f.name, "", ctx.Err())
		}
	}
	if f.err != nil {
		return domain.FetchResult{}, f.err
	}
	return domain.FetchResult{Documents: f.docs}, nil
}

type fakeTier struct {
	verdict ports.Verdict
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeTier) Classify(ctx context.Context, _ domain.Document) (ports.Verdict, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ports.Verdict{}, ctx.Err()
		}
	}
	if f.err != nil {
		return ports.Verdict{}, f.err
	}
	return f.verdict, nil
}

func doc(source domain.SourceID, title, body, code string, published time.Time) domain.Document {
	return domain.Document{SourceID: source, Title: title, Body: body, CategoryCode: code, PublishedAt: published}
}

func ambiguousCourtDoc(source domain.SourceID) domain.Document {
	return doc(source, "Acme ante el tribunal",
		"Un proveedor ha llevado a Acme SA ante el tribunal por el retraso en el pago de varias facturas del año pasado."+filler,
		"", testDay)
}
