package cli

import (
	"context"
	"fmt"

	"financas/internal/backend"
	"financas/internal/config"
	"financas/internal/ledger"
	"financas/internal/log"
	"financas/internal/services"
)

// App is the composition root shared by the binaries.
type App struct {
	Config  *config.Config
	Backend *backend.BackendResult
	Finance *services.FinanceService
	Imports *services.ImportService
}

// Bootstrap opens the configured backend and loads the finance state from it.
func Bootstrap(ctx context.Context, logger *log.Logger, cfg *config.Config) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend)).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	opts := ledger.DefaultOptions()
	opts.LegacyLabelMatching = cfg.LegacyLabelMatching
	finance, err := services.NewFinanceService(ctx, result.Store, services.FinanceOptions{
		Ledger:    opts,
		Publisher: result.Publisher(),
	})
	if err != nil {
		_ = result.Cleanup()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Backend: result,
		Finance: finance,
		Imports: services.NewImportService(finance, result.Statements),
	}, nil
}

// Close releases the backend resources.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}
