package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"RiskScanner/internal/cache"
	"RiskScanner/internal/classify"
	"RiskScanner/internal/config"
	"RiskScanner/internal/domain"
	"RiskScanner/internal/infrastructure/llm"
	"RiskScanner/internal/infrastructure/ml"
	"RiskScanner/internal/infrastructure/scheduler"
	"RiskScanner/internal/infrastructure/sources"
	"RiskScanner/internal/infrastructure/storage"
	"RiskScanner/internal/infrastructure/telegram"
	"RiskScanner/internal/logging"
	"RiskScanner/internal/ports"
	"RiskScanner/internal/scanner"
	"RiskScanner/internal/transport/httpapi"
	"RiskScanner/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	watchlist *usecase.Watchlist
	server    *http.Server
	closers   []func() error
	logger    *slog.Logger
}

// New builds every component from cfg. Misconfiguration of a single source
// or tier is an error here, so it surfaces at startup.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	registry := scanner.NewRegistry()
	sources.Register(registry, sources.Deps{Logger: baseLogger.With("component", "sources")})
	adapters, err := registry.Build(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("build sources: %w", err)
	}
	orchestrator := usecase.NewOrchestrator(adapters, usecase.OrchestratorOptions{
		AdapterTimeout: cfg.Pipeline.AdapterTimeout,
		MaxConcurrent:  cfg.Pipeline.MaxAdapters,
		Logger:         baseLogger.With("component", "orchestrator"),
	})

	escalation, err := classify.NewEscalationPolicy(cfg.Escalation)
	if err != nil {
		return nil, fmt.Errorf("escalation policy: %w", err)
	}
	tiers, err := buildTiers(cfg.Classifier.Tiers)
	if err != nil {
		return nil, err
	}
	chain := classify.NewChain(tiers, classify.ChainOptions{
		RemoteWeight: cfg.Classifier.RemoteWeight,
		GatePrior:    cfg.Classifier.GatePrior,
		Logger:       baseLogger.With("component", "tiers"),
	})

	rollup, err := usecase.ParseRollup(cfg.Pipeline.Rollup)
	if err != nil {
		return nil, err
	}

	store, err := a.buildStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:            orchestrator,
		Sources:           orchestrator.Sources(),
		Escalation:        escalation,
		Chain:             chain,
		Aggregator:        usecase.NewAggregator(rollup),
		Cache:             cache.New(store, cache.Options{TTL: cfg.Cache.TTL, Logger: baseLogger.With("component", "cache")}),
		Observer:          newLogObserver(baseLogger.With("component", "observer")),
		Deadline:          cfg.Pipeline.Deadline,
		RemoteConcurrency: cfg.Pipeline.RemoteConcurrency,
		Logger:            baseLogger.With("component", "pipeline"),
	})

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram, ""); tg.Configured() {
		notifier = tg
	}
	var driver ports.Scheduler
	if len(cfg.Watchlist.Companies) > 0 && cfg.Watchlist.Interval > 0 {
		driver = scheduler.NewTicker(cfg.Watchlist.Interval)
	}
	a.watchlist = usecase.NewWatchlist(usecase.WatchlistDeps{
		Driver:    driver,
		Runner:    a.pipeline,
		Notifier:  notifier,
		Companies: cfg.Watchlist.Companies,
		DaysBack:  cfg.Watchlist.DaysBack,
		Logger:    baseLogger.With("component", "watchlist"),
	})

	a.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(a.pipeline, httpapi.Options{
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			Logger:         baseLogger.With("component", "http"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("application built",
		"sources", strings.Join(orchestrator.Sources(), ","),
		"tiers", strings.Join(chain.Tiers(), ","),
		"cache", cfg.Cache.Driver,
		"watchlist", len(cfg.Watchlist.Companies))
	return a, nil
}

// Pipeline exposes the configured pipeline, e.g. for one-off runs.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Run serves HTTP and the watchlist until ctx is cancelled, then shuts both
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	if err := a.watchlist.Start(ctx); err != nil {
		return fmt.Errorf("start watchlist: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := a.watchlist.Stop(shutdownCtx); err != nil {
		a.logger.Warn("watchlist stop", "error", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}
	return nil
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close resource", "error", err)
		}
	}
	a.closers = nil
}

func (a *Application) buildStore(ctx context.Context, cfg config.CacheConfig) (ports.CacheStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "memory":
		return cache.NewMemoryStore(), nil
	case "sqlite":
		if cfg.DSN == "" {
			return nil, errors.New("cache: sqlite driver needs a dsn")
		}
		store, err := storage.OpenSQLiteStore(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
	return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
}

// buildTiers maps tier configs onto clients, keeping config order.
func buildTiers(cfgs []config.TierConfig) ([]classify.Tier, error) {
	tiers := make([]classify.Tier, 0, len(cfgs))
	for i, tc := range cfgs {
		name := tc.Name
		if name == "" {
			name = fmt.Sprintf("tier%d", i+1)
		}
		method := domain.Method(tc.Method)
		if method == "" {
			method = domain.MethodRemoteSecondary
			if i == 0 {
				method = domain.MethodRemotePrimary
			}
		}

		var client ports.SemanticClassifier
		switch strings.ToLower(tc.Kind) {
		case "chat":
			client = llm.NewChatClient(tc)
		case "classify", "":
			client = ml.NewClient(tc.Endpoint, tc.APIKey, tc.Timeout)
		default:
			return nil, fmt.Errorf("tier %s: unknown kind %q", name, tc.Kind)
		}
		tiers = append(tiers, classify.Tier{Name: name, Method: method, Timeout: tc.Timeout, Classifier: client})
	}
	return tiers, nil
}
