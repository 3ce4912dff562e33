// Package app wires every service and handler together and owns their
// startup and shutdown order.
package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/handlers"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/interfaces"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/cache"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/extract"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/fetch"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/plugin"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/ratelimit"
	"github.com/kruemmel-python/WebCrawler-Pro/internal/services/scheduler"
	badgerstore "github.com/kruemmel-python/WebCrawler-Pro/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB             *badgerstore.BadgerDB
	TaskStorage    interfaces.TaskStorage
	CaptureStorage interfaces.CaptureStorage

	// Services
	CacheService     *cache.Service
	RateLimitService *ratelimit.Service
	FetchService     *fetch.Service
	ExtractService   *extract.Service
	PluginLoader     *plugin.Loader
	Executor         *scheduler.Executor
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	TaskHandler    *handlers.TaskHandler
	FetchHandler   *handlers.FetchHandler
	CaptureHandler *handlers.CaptureHandler
	StatusHandler  *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := badgerstore.NewBadgerDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.DB = db
	app.TaskStorage = badgerstore.NewTaskStorage(db, logger)
	app.CaptureStorage = badgerstore.NewCaptureStorage(db, logger)

	app.CacheService = cache.NewService(cfg, logger)
	app.RateLimitService = ratelimit.NewService(cfg, logger)
	app.ExtractService = extract.NewService(cfg, logger)
	app.PluginLoader = plugin.NewLoader(cfg, logger)

	browser := fetch.NewBrowserFetcher(cfg, logger)
	app.FetchService = fetch.NewService(browser, app.CacheService, cfg, logger)

	app.Executor = scheduler.NewExecutor(
		app.TaskStorage,
		app.CaptureStorage,
		app.FetchService,
		app.ExtractService,
		app.PluginLoader,
		cfg,
		logger,
	)
	app.SchedulerService = scheduler.NewService(app.TaskStorage, app.Executor, cfg, logger)

	app.TaskHandler = handlers.NewTaskHandler(app.TaskStorage, app.SchedulerService, app.CacheService, logger)
	app.FetchHandler = handlers.NewFetchHandler(app.FetchService, logger)
	app.CaptureHandler = handlers.NewCaptureHandler(app.CaptureStorage, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.DB, app.SchedulerService, logger)

	logger.Info().Msg("Application initialized")
	return app, nil
}

// Start launches the scheduler dispatch loop.
func (a *App) Start(ctx context.Context) error {
	return a.SchedulerService.Start(ctx)
}

// Close shuts components down in reverse dependency order: scheduler
// first so no run starts against a closing store, then the browser, then
// the store.
func (a *App) Close() error {
	if err := a.SchedulerService.Stop(); err != nil {
		a.Logger.Warn().Err(err).Msg("Scheduler shutdown failed")
	}

	if err := a.FetchService.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Browser shutdown failed")
	}

	if err := a.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	a.Logger.Info().Msg("Application closed")
	return nil
}
