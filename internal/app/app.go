package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/hopstack-mcp/internal/catalog"
	"github.com/bobmcallan/hopstack-mcp/internal/common"
	"github.com/bobmcallan/hopstack-mcp/internal/config"
	"github.com/bobmcallan/hopstack-mcp/internal/handlers"
	"github.com/bobmcallan/hopstack-mcp/internal/mcp"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Catalog *catalog.Catalog

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	CatalogHandler *handlers.CatalogHandler
	MCPHandler     *mcp.Handler
}

// New loads the catalog from the configured sources and wires the handlers.
// The catalog is complete before anything can serve it.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	sources := cfg.CatalogSources()
	if len(sources) == 0 {
		logger.Warn().Msg("no catalog sources configured, starting with 0 tools")
	}

	loader := catalog.NewLoader(logger, catalog.WithRetries(cfg.Catalog.FetchRetries))
	cat, err := loader.Load(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to load tool catalog: %w", err)
	}

	return NewWithCatalog(cfg, cat, logger), nil
}

// NewWithCatalog wires the application around an already loaded catalog.
func NewWithCatalog(cfg *config.Config, cat *catalog.Catalog, logger *common.Logger) *App {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Catalog: cat,
	}

	a.initHandlers()

	logger.Info().
		Int("tools", cat.Len()).
		Int("categories", len(cat.Categories())).
		Str("mode", a.MCPHandler.Mode()).
		Msg("application initialization complete")

	return a
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	a.MCPHandler = mcp.NewHandler(a.Config, a.Catalog, a.Logger)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Catalog, a.MCPHandler)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.CatalogHandler = handlers.NewCatalogHandler(a.Logger, a.Catalog)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	return nil
}
