package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ThreatScanner/internal/collector"
	"ThreatScanner/internal/config"
	"ThreatScanner/internal/domain"
	"ThreatScanner/internal/extraction"
	"ThreatScanner/internal/infrastructure/collector/htmladvisory"
	"ThreatScanner/internal/infrastructure/collector/kevcatalog"
	"ThreatScanner/internal/infrastructure/remoteextract"
	"ThreatScanner/internal/infrastructure/scheduler"
	"ThreatScanner/internal/infrastructure/storage"
	"ThreatScanner/internal/logging"
	"ThreatScanner/internal/pir"
	"ThreatScanner/internal/ports"
	"ThreatScanner/internal/risk"
	"ThreatScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	feeds     ports.FeedRepository
	scheduler *usecase.Scheduler

	Orchestrator *usecase.Orchestrator
	RiskEngine   *risk.Engine
	Rescorer     *usecase.Rescorer
	Engine       *extraction.Engine
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	feedRepo := storage.NewFeedRepository(db)
	threatRepo := storage.NewThreatRepository(db)
	associationRepo := storage.NewAssociationRepository(db)
	assessmentRepo := storage.NewRiskAssessmentRepository(db)
	historyRepo := storage.NewRiskAssessmentHistoryRepository(db)

	registry := collector.NewRegistry()
	registry.Register(htmladvisory.NewScanner(nil))
	registry.Register(kevcatalog.NewClient(nil))

	var remote ports.RemoteExtractor
	if cfg.Extractor.Endpoint != "" {
		remote = remoteextract.NewClient(cfg.Extractor.Endpoint, cfg.Extractor.APIKey, cfg.Extractor.Timeout.Std())
	}

	engine := extraction.NewEngine(extraction.EngineDeps{
		Remote:          remote,
		RemoteTimeout:   cfg.Extractor.Timeout.Std(),
		FallbackEnabled: cfg.Extractor.FallbackEnabled,
		Logger:          baseLogger.With("component", "extraction"),
	})

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Feeds:          feedRepo,
		Threats:        threatRepo,
		Registry:       registry,
		Engine:         engine,
		MaxConcurrency: cfg.Collector.MaxConcurrentCollections,
		Logger:         baseLogger.With("component", "orchestrator"),
	})

	riskEngine := risk.NewEngine(risk.EngineDeps{
		Assessments: assessmentRepo,
		History:     historyRepo,
		Matcher:     pir.NewMatcher(baseLogger.With("component", "pir")),
		KEVFeedName: cfg.Risk.KEVFeedName,
		Logger:      baseLogger.With("component", "risk"),
	})
	rescorer := usecase.NewRescorer(associationRepo, storage.NewPIRRepository(db), riskEngine)

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.Interval.Std())
	sched := usecase.NewScheduler(driver, orchestrator, feedRepo, baseLogger.With("component", "scheduler"))

	return &Application{
		cfg:          cfg,
		logger:       baseLogger,
		db:           db,
		feeds:        feedRepo,
		scheduler:    sched,
		Orchestrator: orchestrator,
		RiskEngine:   riskEngine,
		Rescorer:     rescorer,
		Engine:       engine,
	}, nil
}

// Run seeds configured feeds, starts the scheduler and the metrics listener,
// and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if err := a.seedFeeds(ctx); err != nil {
		return err
	}

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", nil); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server error", "error", err)
		}
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	if err := a.scheduler.Stop(context.Background()); err != nil {
		a.logger.Error("stop scheduler", "error", err)
	}
	return a.db.Close()
}

// seedFeeds upserts configured feeds so new config entries become
// collectable without manual intervention. Existing status fields survive
// because only identity fields come from config.
func (a *Application) seedFeeds(ctx context.Context) error {
	for _, fc := range a.cfg.Feeds {
		existing, err := a.feeds.Get(ctx, fc.ID)
		feed := domain.Feed{
			ID:         fc.ID,
			Name:       fc.Name,
			SourceType: fc.SourceType,
			URL:        fc.URL,
			Priority:   domain.SourcePriority(fc.Priority),
			Frequency:  fc.Frequency.Std(),
			Enabled:    fc.Enabled,
		}
		if err == nil {
			feed.LastStatus = existing.LastStatus
			feed.LastCollectedAt = existing.LastCollectedAt
			feed.LastError = existing.LastError
			feed.LastRecordCount = existing.LastRecordCount
		}
		if err := a.feeds.Save(ctx, feed); err != nil {
			return fmt.Errorf("seed feed %s: %w", fc.Name, err)
		}
	}
	return nil
}
