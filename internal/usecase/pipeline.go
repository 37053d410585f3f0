package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"RiskScanner/internal/cache"
	"RiskScanner/internal/classify"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
)

const (
	defaultDeadline          = 90 * time.Second
	defaultRemoteConcurrency = 4
)

// PipelineDeps wires the driven components into the pipeline.
type PipelineDeps struct {
	Source     ports.DocumentSource
	Sources    []domain.SourceID // every configured source id
	Gate       *classify.Gate
	Escalation *classify.EscalationPolicy
	Chain      *classify.Chain
	Aggregator *Aggregator
	Cache      *cache.Cache
	Observer   ports.RunObserver

	Deadline          time.Duration
	RemoteConcurrency int
	Now               func() time.Time
	Logger            *slog.Logger
}

// Pipeline runs Query -> Cache -> Orchestrator -> Gate -> Escalation ->
// Tiers -> Aggregator.
type Pipeline struct {
	source     ports.DocumentSource
	known      []domain.SourceID
	gate       *classify.Gate
	escalation *classify.EscalationPolicy
	chain      *classify.Chain
	aggregator *Aggregator
	cache      *cache.Cache
	observer   ports.RunObserver

	deadline    time.Duration
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewPipeline fills optional dependencies with their defaults: the built-in
// gate, a chain with no remote tiers and max roll-up.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:      deps.Source,
		known:       deps.Sources,
		gate:        deps.Gate,
		escalation:  deps.Escalation,
		chain:       deps.Chain,
		aggregator:  deps.Aggregator,
		cache:       deps.Cache,
		observer:    deps.Observer,
		deadline:    deps.Deadline,
		concurrency: deps.RemoteConcurrency,
		now:         deps.Now,
		logger:      logging.OrDiscard(deps.Logger),
	}
	if p.gate == nil {
		p.gate = classify.MustDefaultGate()
	}
	if p.chain == nil {
		p.chain = classify.NewChain(nil, classify.ChainOptions{Logger: p.logger})
	}
	if p.aggregator == nil {
		p.aggregator = NewAggregator(RollupMax)
	}
	if p.deadline <= 0 {
		p.deadline = defaultDeadline
	}
	if p.concurrency <= 0 {
		p.concurrency = defaultRemoteConcurrency
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run validates q and returns its response, from cache when a live entry
// exists. Only an *domain.InvalidQueryError is ever returned as an error.
func (p *Pipeline) Run(ctx context.Context, q domain.Query) (domain.Response, error) {
	resolved, err := q.Resolve(p.now(), p.known)
	if err != nil {
		return domain.Response{}, err
	}

	if p.cache == nil {
		return p.execute(ctx, resolved)
	}
	resp, hit, err := p.cache.Lookup(ctx, resolved, q.ForceRefresh, p.execute)
	if err != nil {
		// execute never fails; this only guards the cache plumbing.
		p.logger.Error("cached run failed, executing directly", "error", err)
		return p.execute(ctx, resolved)
	}
	if hit {
		p.logger.Debug("cache hit", "run_id", resp.RunID, "company", resolved.CompanyName)
	}
	return resp, nil
}

// Sources lists the source ids a query may select.
func (p *Pipeline) Sources() []domain.SourceID {
	return append([]domain.SourceID(nil), p.known...)
}

func (p *Pipeline) execute(ctx context.Context, q domain.ResolvedQuery) (domain.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	started := time.Now()
	var timings domain.Timings

	var (
		docs  []domain.Document
		diags []domain.SourceDiagnostic
	)
	if p.source != nil {
		docs, diags = p.source.SearchAll(ctx, q)
	}
	timings.Fetch = time.Since(started)

	phase := time.Now()
	classified := make([]domain.ClassifiedDocument, len(docs))
	var escalated []int
	for i, doc := range docs {
		t0 := time.Now()
		out := p.gate.Classify(doc)
		switch {
		case !out.Ambiguous:
		case p.escalation.ShouldEscalate(doc):
			escalated = append(escalated, i)
			continue
		default:
			out.Result = classify.Fallback()
		}
		out.Result.Elapsed = time.Since(t0)
		classified[i] = domain.ClassifiedDocument{Document: doc, Classification: out.Result}
	}
	timings.Gate = time.Since(phase)

	phase = time.Now()
	p.classifyRemote(ctx, logger, docs, escalated, classified)
	timings.Remote = time.Since(phase)

	phase = time.Now()
	ordered, overall, stats := p.aggregator.Aggregate(classified, diags, len(escalated))
	timings.Aggregate = time.Since(phase)
	timings.Total = time.Since(started)
	stats.Timings = timings

	resp := domain.Response{
		RunID:       runID,
		Query:       q,
		SearchedAt:  p.now().UTC(),
		Documents:   ordered,
		Diagnostics: diags,
		OverallRisk: overall,
		Stats:       stats,
	}

	failed, cancelled := 0, 0
	for _, d := range diags {
		switch {
		case d.Cancelled():
			cancelled++
		case d.Failed():
			failed++
		}
	}
	logger.Info("run finished",
		"company", q.CompanyName,
		"documents", len(ordered),
		"escalated", len(escalated),
		"overall_risk", overall.String(),
		"sources_failed", failed,
		"sources_cancelled", cancelled,
		"gate_pct", stats.GateResolvedPct,
		"fetch", timings.Fetch,
		"remote", timings.Remote,
		"total", timings.Total,
	)

	if p.observer != nil {
		p.observer.ObserveRun(ctx, resp)
	}
	return resp, nil
}

// classifyRemote runs the tier chain for every escalated document
// concurrently. The chain degrades to its default once ctx expires, so every
// slot is always filled.
func (p *Pipeline) classifyRemote(ctx context.Context, logger *slog.Logger, docs []domain.Document, escalated []int, out []domain.ClassifiedDocument) {
	if len(escalated) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, idx := range escalated {
		idx := idx
		g.Go(func() error {
			t0 := time.Now()
			res, attempts := p.chain.Classify(ctx, docs[idx])
			res.Elapsed = time.Since(t0)
			out[idx] = domain.ClassifiedDocument{Document: docs[idx], Classification: res}
			logger.Debug("document escalated",
				"url", docs[idx].URL, "method", res.Method, "attempts", len(attempts), "elapsed", res.Elapsed)
			return nil
		})
	}
	_ = g.Wait()
}
