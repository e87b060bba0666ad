package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"golang.org/x/time/rate"

	"airhealth/adapters/cache"
	"airhealth/adapters/jsonstore"
	"airhealth/adapters/postgres"
	"airhealth/app"
	"airhealth/internal"
	"airhealth/internal/aggregate"
	"airhealth/internal/config"
	apperrors "airhealth/internal/errors"
	"airhealth/internal/forecast"
	"airhealth/internal/observability"
	"airhealth/internal/stats"
	"airhealth/internal/testkit"
	"airhealth/ports"
)

// Container wires the analysis service and its collaborators from
// configuration: the observation source for the selected backend, the
// bundle cache, the statistical engines, and shared logging and metrics.
// Every entrypoint builds one container and serves what it needs.
type Container struct {
	Config  *config.Config
	Logger  *internal.Logger
	Metrics *observability.Metrics

	// DB is set only for the postgres backend.
	DB *sqlx.DB

	Source  ports.ObservationSource
	Cache   ports.BundleCache
	Service *app.AnalysisService
}

// New builds a fully wired container. Metrics registration happens here,
// so build at most one container per process.
func New(cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	c := &Container{Config: cfg, Logger: logger}
	if cfg.Metrics.Enabled {
		c.Metrics = observability.NewMetrics()
	}

	if err := c.initSource(); err != nil {
		return nil, err
	}
	if err := c.initCache(); err != nil {
		return nil, err
	}
	c.initService()
	return c, nil
}

func (c *Container) initSource() error {
	switch c.Config.Data.Backend {
	case config.BackendFile:
		c.Source = jsonstore.NewSource(c.Config.Data.ExposureFile, c.Config.Data.CasesFile)
		c.Logger.Info("Observation source: files %s and %s", c.Config.Data.ExposureFile, c.Config.Data.CasesFile)
	case config.BackendPostgres:
		db, err := sqlx.Connect("postgres", c.Config.Data.DatabaseURL)
		if err != nil {
			return apperrors.Wrap(err, "failed to connect to database")
		}
		c.DB = db
		c.Source = postgres.NewObservationRepository(db)
		c.Logger.Info("Observation source: postgres")
	case config.BackendSynth:
		gen := testkit.NewObservationGenerator(testkit.DefaultObservationConfig())
		c.Source = gen.Source()
		c.Logger.Info("Observation source: synthetic documents")
	default:
		return apperrors.ConfigInvalid(fmt.Sprintf("unknown data backend %q", c.Config.Data.Backend))
	}
	return nil
}

func (c *Container) initCache() error {
	fileCache, err := cache.NewFileCache(c.Config.Cache.Dir)
	if err != nil {
		return apperrors.Wrap(err, "failed to initialize bundle cache")
	}
	c.Cache = fileCache
	return nil
}

func (c *Container) initService() {
	cfg := c.Config.Analysis

	var limiter *rate.Limiter
	if cfg.ComputeRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ComputeRPS), cfg.ComputeBurst)
	}

	c.Service = app.NewAnalysisService(app.AnalysisServiceDeps{
		Source:     c.Source,
		Cache:      c.Cache,
		Aggregator: aggregate.New(cfg.TargetRegion, cfg.Provinces),
		Correlator: stats.NewCorrelationEngine(cfg.MinCommonWeeks),
		Lagger:     stats.NewLagEngine(cfg.MaxLag),
		Forecaster: forecast.NewEngine(cfg.ForecastWeeks, clockwork.NewRealClock()),
		Logger:     c.Logger.Named("analysis"),
		Metrics:    c.Metrics,
		Limiter:    limiter,
		FitTimeout: cfg.FitTimeout,
	})
}

// Shutdown releases held resources, currently just the database handle.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
