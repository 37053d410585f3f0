package app

import (
	"context"
	"log/slog"

	"RiskScanner/internal/domain"
	"RiskScanner/internal/ports"
)

// logObserver reports per-source outcomes of every run.
type logObserver struct {
	logger *slog.Logger
}

var _ ports.RunObserver = (*logObserver)(nil)

func newLogObserver(logger *slog.Logger) *logObserver {
	return &logObserver{logger: logger}
}

func (o *logObserver) ObserveRun(ctx context.Context, resp domain.Response) {
	for _, d := range resp.Diagnostics {
		attrs := []any{"run_id", resp.RunID, "source", d.Source, "count", d.Count, "elapsed", d.Elapsed}
		switch {
		case d.Failed():
			o.logger.WarnContext(ctx, "source failed", append(attrs, "kind", d.Err.Kind, "error", d.Err)...)
		case d.Cancelled():
			o.logger.InfoContext(ctx, "source cancelled", attrs...)
		default:
			o.logger.DebugContext(ctx, "source done", attrs...)
		}
	}
	for method, n := range resp.Stats.PerMethodCount {
		o.logger.DebugContext(ctx, "method count", "run_id", resp.RunID, "method", method, "count", n)
	}
}
