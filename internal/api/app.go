package api

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"

	"space-emissions/internal/config"
	"space-emissions/internal/methods"
	"space-emissions/internal/methods/plume"
	temismethod "space-emissions/internal/methods/temis"
	temisdata "space-emissions/internal/providers/temis"
	"space-emissions/internal/store"
)

// App encapsulates application dependencies
type App struct {
	router      *gin.Engine
	logger      *slog.Logger
	cfg         *config.Config
	store       *store.Store
	calculators map[string]methods.Calculator

	// progress tracks the completed fraction of runs that are still
	// executing, keyed by run id.
	progress sync.Map
}

// NewApp creates a new application with injected dependencies
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Set Gin mode from configuration
	gin.SetMode(cfg.Server.GinMode)

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())

	if err := os.MkdirAll(filepath.Dir(cfg.Data.Database), 0o755); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Data.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		return nil, err
	}

	app := &App{
		router:      router,
		logger:      logger,
		cfg:         cfg,
		store:       st,
		calculators: BuildCalculators(cfg, st, logger),
	}

	// Register routes
	app.registerRoutes()

	return app, nil
}

// BuildCalculators wires every available estimation method. The plume
// method reads its observations from the store, the monthly-mean method
// streams files from the TEMIS archive with a local cache.
func BuildCalculators(cfg *config.Config, st *store.Store, logger *slog.Logger) map[string]methods.Calculator {
	calculators := map[string]methods.Calculator{}
	for _, c := range []methods.Calculator{
		methods.NewRandomCalculator(),
		temismethod.NewCalculator(temisdata.NewClient(cfg.Data.TemisDir, logger), logger),
		plume.NewMultiSourceCalculator(st, plume.Options{
			PlumeWidth: cfg.Plume.Width,
			Decay:      cfg.Plume.Decay,
			Resolution: cfg.Plume.Resolution,
			Damping:    cfg.Plume.Damping,
		}, logger),
	} {
		calculators[c.Name()] = c
	}
	return calculators
}

// Run starts the HTTP server
func (app *App) Run(addr string) error {
	return app.router.Run(addr)
}
