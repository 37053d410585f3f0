package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
)

// Runner is the part of the pipeline the watchlist drives.
type Runner interface {
	Run(ctx context.Context, q domain.Query) (domain.Response, error)
}

// Watchlist re-runs the pipeline for a fixed set of companies on every tick
// of its scheduler, keeping the cache warm and sending High-risk digests.
type Watchlist struct {
	driver    ports.Scheduler
	runner    Runner
	notifier  ports.Notifier
	companies []string
	daysBack  int
	logger    *slog.Logger
}

// WatchlistDeps wires a Watchlist.
type WatchlistDeps struct {
	Driver    ports.Scheduler
	Runner    Runner
	Notifier  ports.Notifier
	Companies []string
	DaysBack  int
	Logger    *slog.Logger
}

func NewWatchlist(deps WatchlistDeps) *Watchlist {
	return &Watchlist{
		driver:    deps.Driver,
		runner:    deps.Runner,
		notifier:  deps.Notifier,
		companies: deps.Companies,
		daysBack:  deps.DaysBack,
		logger:    logging.OrDiscard(deps.Logger),
	}
}

// Start registers the refresh job. It is a no-op without a driver, a runner
// or any company to watch.
func (w *Watchlist) Start(ctx context.Context) error {
	if w.driver == nil || w.runner == nil || len(w.companies) == 0 {
		return nil
	}
	return w.driver.Start(ctx, func(trigger time.Time) {
		w.Refresh(ctx, trigger)
	})
}

// Stop tears down the underlying scheduler.
func (w *Watchlist) Stop(ctx context.Context) error {
	if w.driver == nil {
		return nil
	}
	return w.driver.Stop(ctx)
}

// Refresh runs every watched company once with force_refresh. Failures are
// logged and never stop the remaining companies.
func (w *Watchlist) Refresh(ctx context.Context, trigger time.Time) {
	w.logger.Info("watchlist refresh", "companies", len(w.companies), "trigger", trigger.Format(time.RFC3339))

	var alerts []domain.Response
	for _, company := range w.companies {
		if ctx.Err() != nil {
			return
		}
		resp, err := w.runner.Run(ctx, domain.Query{
			CompanyName:  company,
			DaysBack:     w.daysBack,
			ForceRefresh: true,
		})
		if err != nil {
			w.logger.Warn("watchlist run failed", "company", company, "error", err)
			continue
		}
		if resp.HighRiskCount() > 0 {
			alerts = append(alerts, resp)
		}
	}

	if w.notifier == nil || len(alerts) == 0 {
		return
	}
	if err := w.notifier.PublishDigest(ctx, buildDigestMessage(alerts)); err != nil {
		w.logger.Warn("publish digest failed", "error", err)
	}
}

func buildDigestMessage(responses []domain.Response) string {
	var b strings.Builder
	for _, resp := range responses {
		fmt.Fprintf(&b, "%s: %d high-risk of %d (%s to %s)\n",
			resp.Query.CompanyName,
			resp.HighRiskCount(),
			len(resp.Documents),
			resp.Query.Window.From.Format(time.DateOnly),
			resp.Query.Window.To.Format(time.DateOnly))
		for _, d := range resp.Documents {
			if d.Classification.RiskLevel != domain.RiskHigh {
				continue
			}
			fmt.Fprintf(&b, "- [%s] %s\n%s %s\n",
				d.Classification.RiskCategory,
				d.Title,
				d.PublishedAt.Format(time.DateOnly),
				d.URL)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
