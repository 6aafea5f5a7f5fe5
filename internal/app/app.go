// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/melon-chart-api/internal/api"
	"github.com/JakeFAU/melon-chart-api/internal/catalog"
	"github.com/JakeFAU/melon-chart-api/internal/clock"
	"github.com/JakeFAU/melon-chart-api/internal/config"
	collyfetcher "github.com/JakeFAU/melon-chart-api/internal/fetcher/colly"
	"github.com/JakeFAU/melon-chart-api/internal/logging"
	"github.com/JakeFAU/melon-chart-api/internal/prefetch"
)

// App holds the shared, long-lived services for the application.
// It is built once at startup and handed to the commands that need it.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	catalog    *catalog.Service
	prefetcher *prefetch.Scheduler
	server     *api.Server
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetConfig returns the configuration the App was built from.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetCatalog exposes the cached catalog service.
func (a *App) GetCatalog() *catalog.Service {
	return a.catalog
}

// GetPrefetcher exposes the chart prefetch scheduler.
func (a *App) GetPrefetcher() *prefetch.Scheduler {
	return a.prefetcher
}

// GetServer returns the HTTP server wired to the catalog.
func (a *App) GetServer() *api.Server {
	return a.server
}

// NewApp creates the App from cfg. It fails fast when the configuration is
// invalid or a service cannot be constructed. The prefetcher is built but not
// started; the serve command owns its lifecycle.
func NewApp(_ context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(logging.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return newApp(cfg, logger)
}

func newApp(cfg config.Config, logger *zap.Logger) (*App, error) {
	logger.Info("initializing application services")

	fetcher, err := collyfetcher.New(collyfetcher.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		Timeout:        cfg.Upstream.Timeout,
		UserAgent:      cfg.Upstream.UserAgent,
		Referer:        cfg.Upstream.Referer,
		AcceptLanguage: cfg.Upstream.AcceptLanguage,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init fetcher: %w", err)
	}

	svc := catalog.New(fetcher, catalog.Config{
		ChartTTL: cfg.Cache.ChartTTL,
		SongTTL:  cfg.Cache.SongTTL,
		AlbumTTL: cfg.Cache.AlbumTTL,
	}, clock.New(), logger)

	scheduler := prefetch.New(svc, prefetch.Config{
		Enabled:  cfg.Prefetch.Enabled,
		Interval: cfg.Prefetch.Interval,
	}, logger)

	logger.Info("application services initialized",
		zap.String("upstream", cfg.Upstream.BaseURL),
		zap.Bool("prefetch", cfg.Prefetch.Enabled),
		zap.Duration("prefetch_interval", cfg.Prefetch.Interval),
	)

	return &App{
		cfg:        cfg,
		logger:     logger,
		catalog:    svc,
		prefetcher: scheduler,
		server:     api.NewServer(svc, scheduler, logger),
	}, nil
}

// Close stops background work, closes the caches and flushes the logger.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	a.prefetcher.Stop()
	a.catalog.Close()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
}
