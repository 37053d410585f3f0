package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
)

// Orchestrator fans a query out over the injected adapters. It knows the
// adapters only by name.
type Orchestrator struct {
	adapters []ports.SourceAdapter
	timeout  time.Duration
	limit    int
	logger   *slog.Logger
}

var _ ports.DocumentSource = (*Orchestrator)(nil)

// OrchestratorOptions bounds the fan-out.
type OrchestratorOptions struct {
	AdapterTimeout time.Duration
	MaxConcurrent  int
	Logger         *slog.Logger
}

// NewOrchestrator keeps adapters in the given order; that order decides how
// documents are concatenated.
func NewOrchestrator(adapters []ports.SourceAdapter, opts OrchestratorOptions) *Orchestrator {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = len(adapters)
	}
	return &Orchestrator{
		adapters: append([]ports.SourceAdapter(nil), adapters...),
		timeout:  opts.AdapterTimeout,
		limit:    limit,
		logger:   logging.OrDiscard(opts.Logger),
	}
}

// Sources lists adapter names in registration order.
func (o *Orchestrator) Sources() []domain.SourceID {
	names := make([]domain.SourceID, len(o.adapters))
	for i, a := range o.adapters {
		names[i] = a.Name()
	}
	return names
}

type fetchOutcome struct {
	docs []domain.Document
	diag domain.SourceDiagnostic
}

// SearchAll runs every adapter selected by q.Sources and waits for all of
// them. Failures and cancellations end up in the diagnostics only.
func (o *Orchestrator) SearchAll(ctx context.Context, q domain.ResolvedQuery) ([]domain.Document, []domain.SourceDiagnostic) {
	active := o.active(q.Sources)
	o.logger.Debug("search all", "company", q.CompanyName, "adapters", len(active),
		"from", q.Window.From.Format(time.DateOnly), "to", q.Window.To.Format(time.DateOnly))

	outcomes := make([]fetchOutcome, len(active))
	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	for i, adapter := range active {
		i, adapter := i, adapter
		g.Go(func() error {
			outcomes[i] = o.run(ctx, adapter, q)
			return nil
		})
	}
	_ = g.Wait()

	var (
		docs  []domain.Document
		diags = make([]domain.SourceDiagnostic, 0, len(outcomes))
	)
	for _, out := range outcomes {
		docs = append(docs, out.docs...)
		diags = append(diags, out.diag)
	}
	return docs, diags
}

func (o *Orchestrator) active(selected []domain.SourceID) []ports.SourceAdapter {
	if len(selected) == 0 {
		return o.adapters
	}
	out := make([]ports.SourceAdapter, 0, len(selected))
	for _, a := range o.adapters {
		if slices.Contains(selected, a.Name()) {
			out = append(out, a)
		}
	}
	return out
}

func (o *Orchestrator) run(ctx context.Context, adapter ports.SourceAdapter, q domain.ResolvedQuery) (out fetchOutcome) {
	name := adapter.Name()
	start := time.Now()
	out.diag.Source = name

	defer func() {
		if r := recover(); r != nil {
			out.docs = nil
			out.diag.Count = 0
			out.diag.Err = domain.NewAdapterError(name, domain.AdapterPanic, fmt.Errorf("panic: %v", r))
			o.logger.Error("adapter panicked", "source", name, "panic", r)
		}
		out.diag.Elapsed = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		out.diag.Err = domain.NewAdapterError(name, domain.AdapterCancelled, err)
		return out
	}

	fetchCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, err := adapter.Fetch(fetchCtx, q)
	out.diag.Adjustments = res.Adjustments
	for _, note := range res.Adjustments {
		o.logger.Info("source window adjusted", "source", name, "note", note)
	}

	// The run itself was cancelled or hit its deadline: whatever came back is
	// dropped and the source is reported as cancelled, not failed.
	if ctx.Err() != nil {
		out.diag.Err = domain.NewAdapterError(name, domain.AdapterCancelled, ctx.Err())
		o.logger.Info("adapter cancelled", "source", name)
		return out
	}
	if err != nil {
		out.diag.Err = asAdapterError(fetchCtx, name, err)
		o.logger.Warn("adapter failed", "source", name, "kind", out.diag.Err.Kind, "error", err)
		return out
	}
	if fetchCtx.Err() != nil {
		out.diag.Err = domain.NewAdapterError(name, domain.AdapterTimeout, fetchCtx.Err())
		o.logger.Warn("adapter exceeded its timeout", "source", name, "timeout", o.timeout)
		return out
	}

	out.docs = make([]domain.Document, 0, len(res.Documents))
	for _, d := range res.Documents {
		if d.SourceID == "" {
			d.SourceID = name
		}
		out.docs = append(out.docs, d)
	}
	out.diag.Count = len(out.docs)
	o.logger.Debug("adapter produced documents", "source", name, "count", out.diag.Count)
	return out
}

func asAdapterError(ctx context.Context, name domain.SourceID, err error) *domain.AdapterError {
	var ae *domain.AdapterError
	if errors.As(err, &ae) {
		if ae.Source == "" {
			ae.Source = name
		}
		return ae
	}
	if ctx.Err() != nil {
		return domain.NewAdapterError(name, "", fmt.Errorf("%w: %w", err, ctx.Err()))
	}
	return domain.NewAdapterError(name, domain.AdapterHTTP, err)
}
