// -----------------------------------------------------------------------
// Package app wires the application: storage, LLM providers, the vector
// index, the advisory pipeline, and the HTTP handlers
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
	"github.com/ternarybob/consilio/internal/handlers"
	"github.com/ternarybob/consilio/internal/interfaces"
	"github.com/ternarybob/consilio/internal/services/advisor"
	"github.com/ternarybob/consilio/internal/services/corpus"
	"github.com/ternarybob/consilio/internal/services/export"
	"github.com/ternarybob/consilio/internal/services/index"
	"github.com/ternarybob/consilio/internal/services/llm"
	"github.com/ternarybob/consilio/internal/services/pdf"
	"github.com/ternarybob/consilio/internal/services/ratelimit"
	"github.com/ternarybob/consilio/internal/services/retrieval"
	"github.com/ternarybob/consilio/internal/services/session"
	"github.com/ternarybob/consilio/internal/services/tools"
	"github.com/ternarybob/consilio/internal/services/usage"
	"github.com/ternarybob/consilio/internal/services/validation"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Core services
	LLMService interfaces.LLMService
	Index      *index.Index
	IndexStore *index.Store
	Ingestor   *corpus.Ingestor
	Planner    *retrieval.Planner
	Limiter    *ratelimit.Limiter
	Validator  *validation.InputValidationService
	Dispatcher *tools.Dispatcher
	Sessions   *session.Manager
	Accountant *usage.Accountant
	Advisor    *advisor.Advisor
	Exporter   *export.Exporter

	// Scheduled corpus staleness checks
	scheduler *cron.Cron

	// HTTP handlers
	AskHandler     *handlers.AskHandler
	IngestHandler  *handlers.IngestHandler
	StatusHandler  *handlers.StatusHandler
	UsageHandler   *handlers.UsageHandler
	SessionHandler *handlers.SessionHandler
}

// New initializes the application with all dependencies. The vector
// index is built or loaded before this returns, so a started server
// always answers against a consistent index.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}

	app.initHandlers()

	if err := app.startScheduler(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Int("chunks", app.Index.Len()).
		Int("tools", len(app.Dispatcher.Names())).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	badgerCfg := a.Config.Storage.Badger

	if badgerCfg.ResetOnStartup {
		a.Logger.Warn().Str("path", badgerCfg.Path).Msg("Resetting storage on startup")
		if err := os.RemoveAll(badgerCfg.Path); err != nil {
			return fmt.Errorf("failed to reset storage: %w", err)
		}
	}

	if err := index.EnsureDir(badgerCfg.Path); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	a.IndexStore = index.NewStore(badgerCfg.IndexPath(), badgerCfg.StagingPath(), a.Logger)

	accountant, err := usage.NewPersistentAccountant(a.Config.Pricing, badgerCfg.UsagePath(), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open usage store: %w", err)
	}
	a.Accountant = accountant

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", badgerCfg.Path).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices(ctx context.Context) error {
	llmService, err := llm.NewService(ctx, a.Config, a.Logger)
	if err != nil {
		return err
	}
	a.LLMService = llmService

	a.Index = index.New()
	extractor := pdf.NewExtractor(a.Logger)
	a.Ingestor = corpus.NewIngestor(a.Config, a.LLMService, extractor, a.IndexStore, a.Index, a.Logger)

	a.Planner = retrieval.NewPlanner(a.Config.Retrieval, a.LLMService, a.Index, a.Logger)

	limiter, err := ratelimit.NewLimiter(a.Config.RateLimit, a.Logger)
	if err != nil {
		return err
	}
	a.Limiter = limiter

	a.Validator = validation.NewInputValidationService(a.Config.Validation, a.Logger)
	a.Sessions = session.NewManager(a.Logger)

	a.Dispatcher = tools.NewDispatcher(a.Logger)
	a.Dispatcher.Register(tools.NewApexReviewer())
	a.Dispatcher.Register(tools.NewSOQLOptimizer())
	a.Dispatcher.Register(tools.NewLimitsCalculator())

	a.Exporter = export.NewExporter(a.Sessions, pdf.NewService(a.Logger), a.Logger)

	a.Advisor = advisor.NewAdvisor(
		a.LLMService,
		a.Planner,
		a.Limiter,
		a.Validator,
		a.Dispatcher,
		a.Sessions,
		a.Accountant,
		a.Logger,
	)

	return nil
}

// initIndex builds or loads the vector index. An unreadable corpus is
// fatal: serving answers against a partial corpus is worse than not
// starting.
func (a *App) initIndex(ctx context.Context) error {
	result, err := a.Ingestor.EnsureIndex(ctx, false)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Bool("rebuilt", result.Rebuilt).
		Int("documents", result.Documents).
		Int("chunks", result.Chunks).
		Dur("elapsed", result.Elapsed).
		Msg("Vector index ready")

	return nil
}

func (a *App) initHandlers() {
	a.AskHandler = handlers.NewAskHandler(a.Advisor, a.Logger)
	a.IngestHandler = handlers.NewIngestHandler(a.Ingestor, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.Config, a.Index, a.Accountant, a.Advisor, a.Logger)
	a.UsageHandler = handlers.NewUsageHandler(a.Accountant, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.Sessions, a.Exporter, a.Logger)
}

// startScheduler runs periodic corpus staleness checks when a schedule
// is configured. A changed fingerprint triggers a rebuild and swap.
func (a *App) startScheduler() error {
	schedule := a.Config.Corpus.Schedule
	if schedule == "" {
		return nil
	}

	a.scheduler = cron.New()
	_, err := a.scheduler.AddFunc(schedule, func() {
		result, err := a.Ingestor.EnsureIndex(context.Background(), false)
		if err != nil {
			a.Logger.Error().Err(err).Msg("Scheduled index check failed")
			return
		}
		if result.Rebuilt {
			a.Logger.Info().
				Int("chunks", result.Chunks).
				Msg("Index rebuilt after corpus change")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid corpus schedule %q: %w", schedule, err)
	}

	a.scheduler.Start()
	a.Logger.Info().Str("schedule", schedule).Msg("Corpus staleness checks scheduled")
	return nil
}

// Close releases application resources in reverse dependency order.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.Accountant != nil {
		if err := a.Accountant.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close usage store")
		}
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	a.Logger.Debug().Msg("Application closed")
	return nil
}
