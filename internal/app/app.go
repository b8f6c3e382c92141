package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/engel/internal/analysis"
	"github.com/ternarybob/engel/internal/common"
	"github.com/ternarybob/engel/internal/engine"
	"github.com/ternarybob/engel/internal/handlers"
	"github.com/ternarybob/engel/internal/httpclient"
	"github.com/ternarybob/engel/internal/interfaces"
	"github.com/ternarybob/engel/internal/relation"
	"github.com/ternarybob/engel/internal/scraping"
	"github.com/ternarybob/engel/internal/services/events"
	"github.com/ternarybob/engel/internal/storage"
)

// drainTimeout bounds how long Close waits for the active job to unwind
const drainTimeout = 10 * time.Second

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	HTTPClient     *http.Client

	// Remote site
	Scraper  *scraping.Client
	Source   *scraping.Source
	Executor *relation.Executor
	Runner   *relation.Runner
	Analyzer *analysis.Analyzer

	// Engine
	Coordinator *engine.Coordinator
	Scheduler   *engine.Scheduler
	Migrations  *engine.MigrationRunner
	Sink        *events.Sink

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	JobHandler       *handlers.JobHandler
	MigrationHandler *handlers.MigrationHandler
	ListHandler      *handlers.ListHandler
	SummaryHandler   *handlers.SummaryHandler
	WSHandler        *handlers.WebSocketHandler

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	// Initialize database
	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	logger.Info().
		Str("site", cfg.Site.BaseURL).
		Bool("session_cookie", cfg.Site.Cookie != "").
		Bool("analysis_enabled", cfg.Analysis.Enabled).
		Int("max_attempts", cfg.Relation.MaxAttempts).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes the engine in dependency order:
// HTTP client -> scraper/source -> executor/runner -> analyzer -> events -> scheduler/migrations
func (a *App) initServices() error {
	httpClient, err := httpclient.NewSiteClient(a.Config.Site)
	if err != nil {
		return fmt.Errorf("failed to create site client: %w", err)
	}
	a.HTTPClient = httpClient

	a.Scraper = scraping.NewClient(httpClient, a.Config.Site, a.Config.Scraping, a.Logger)
	a.Source = scraping.NewSource(a.Scraper, a.StorageManager.ListStorage(), a.Config.Scraping, a.Logger)
	a.Logger.Debug().Msg("Target source initialized")

	a.Executor = relation.NewExecutor(httpClient, a.Config.Site, a.Config.Relation, a.Logger)
	a.Runner = relation.NewRunner(a.Executor, a.Config.Relation, a.Logger)
	a.Logger.Debug().Msg("Relation runner initialized")

	a.Analyzer = analysis.NewAnalyzer(a.Source, a.Config.Analysis, a.Logger)

	a.EventService = events.NewService(a.Logger)
	if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
		return fmt.Errorf("failed to subscribe logger to events: %w", err)
	}
	a.Sink = events.NewSink(a.EventService)

	a.Coordinator = engine.NewCoordinator()
	a.Scheduler = engine.NewScheduler(a.ctx, a.Coordinator, engine.Dependencies{
		Identifier: a.Scraper,
		Source:     a.Source,
		Analyzer:   a.Analyzer,
		Resolver:   a.Scraper,
		Runner:     a.Runner,
		Summaries:  a.StorageManager.SummaryStorage(),
		Sink:       a.Sink,
	}, a.Config.Relation, a.Logger)

	a.Migrations = engine.NewMigrationRunner(
		a.ctx,
		a.Coordinator,
		a.Scraper,
		a.Runner,
		a.StorageManager.SummaryStorage(),
		a.Sink,
		a.Config.Migration,
		a.Logger,
	)
	a.Logger.Debug().Msg("Job scheduler and migration runner initialized")

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Coordinator, a.Logger)
	a.JobHandler = handlers.NewJobHandler(a.Scheduler, a.Coordinator, a.Logger)
	a.MigrationHandler = handlers.NewMigrationHandler(a.Migrations, a.Logger)
	a.ListHandler = handlers.NewListHandler(a.StorageManager.ListStorage(), a.Logger)
	a.SummaryHandler = handlers.NewSummaryHandler(a.StorageManager.SummaryStorage(), a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.ctx, a.EventService, a.Coordinator, a.Config, a.Logger)
}

// Close cancels the active operation, waits for the queue and any background
// migration to unwind and closes all application resources
func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Close()
	}

	if a.cancelCtx != nil {
		a.Logger.Info().Msg("Cancelling active operation")
		a.cancelCtx()
	}

	waitCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	if a.Scheduler != nil {
		if err := a.Scheduler.Wait(waitCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("Job queue did not drain before shutdown")
		}
	}
	if a.Migrations != nil {
		if err := a.Migrations.Wait(waitCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("Migration did not finish before shutdown")
		}
	}
	cancel()

	// Close event service
	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	// Close storage
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
