package cli

import (
	"context"
	"errors"

	"budgetcal/internal/backend"
	"budgetcal/internal/cache"
	"budgetcal/internal/config"
	"budgetcal/internal/log"
	"budgetcal/internal/services"
	"budgetcal/internal/storage"
)

// App is the ledger stack assembled from configuration.
type App struct {
	Config  *config.Config
	KV      storage.KV
	Ledger  *services.LedgerService
	Caches  *cache.Manager
	Factory *backend.DefaultFactory
	Logger  *log.Logger

	cleanup backend.CleanupFunc
}

// OpenApp creates the configured KV backend and the services on top of it.
// Close releases everything.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	factory := backend.NewFactory(logger)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := factory.CreateKV(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	projectionCache := cache.NewLRUCache[*services.Projection](cfg.ProjectionCacheSize, cfg.ProjectionCacheTTL)
	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	caches.Register(projectionCache)
	if cfg.ProjectionCacheTTL > 0 {
		caches.StartCleanup(cfg.ProjectionCacheTTL)
	}

	projections := services.NewProjectionService(projectionCache, logger)
	ledgerSvc := services.NewLedgerService(storage.NewSnapshots(res.KV), projections, services.LedgerConfig{
		DefaultRollover: cfg.Rollover(),
		Location:        cfg.Location(),
	}, logger)

	logger.Info("Ledger ready",
		log.FieldOperation, log.OpStartup,
		"backend", bcfg.Type.String(),
		"timezone", cfg.Location().String(),
		log.FieldRollover, string(cfg.Rollover()))

	return &App{
		Config:  cfg,
		KV:      res.KV,
		Ledger:  ledgerSvc,
		Caches:  caches,
		Factory: factory,
		Logger:  logger,
		cleanup: res.Cleanup,
	}, nil
}

// Pinger returns the KV store as a storage.Pinger when it supports it.
func (a *App) Pinger() storage.Pinger {
	if p, ok := a.KV.(storage.Pinger); ok {
		return p
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Config.ProjectionCacheTTL > 0 {
		a.Caches.Stop()
	}
	if a.cleanup != nil {
		errs = append(errs, a.cleanup())
	}
	return errors.Join(errs...)
}
