package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
	"airhealth/internal"
	"airhealth/internal/aggregate"
	apperrors "airhealth/internal/errors"
	"airhealth/internal/forecast"
	"airhealth/internal/observability"
	"airhealth/internal/stats"
	"airhealth/ports"
)

// AnalysisService orchestrates one year's full computation: load the
// observation documents, aggregate them to weekly series, run the
// correlation, lag, and forecast engines, attach the threshold table, and
// persist the bundle. Reads are cache-first unless the caller forces a
// recompute.
type AnalysisService struct {
	source     ports.ObservationSource
	cache      ports.BundleCache
	aggregator *aggregate.Aggregator
	correlator *stats.CorrelationEngine
	lagger     *stats.LagEngine
	forecaster *forecast.Engine
	clock      clockwork.Clock
	logger     *internal.Logger
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	fitTimeout time.Duration
}

// AnalysisServiceDeps carries the service collaborators. Clock, Logger and
// Metrics fall back to working defaults when nil; Limiter nil disables
// rate limiting.
type AnalysisServiceDeps struct {
	Source     ports.ObservationSource
	Cache      ports.BundleCache
	Aggregator *aggregate.Aggregator
	Correlator *stats.CorrelationEngine
	Lagger     *stats.LagEngine
	Forecaster *forecast.Engine
	Clock      clockwork.Clock
	Logger     *internal.Logger
	Metrics    *observability.Metrics
	Limiter    *rate.Limiter
	FitTimeout time.Duration
}

// NewAnalysisService creates the orchestrator.
func NewAnalysisService(deps AnalysisServiceDeps) *AnalysisService {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = internal.NewDefaultLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	if deps.FitTimeout <= 0 {
		deps.FitTimeout = 30 * time.Second
	}
	return &AnalysisService{
		source:     deps.Source,
		cache:      deps.Cache,
		aggregator: deps.Aggregator,
		correlator: deps.Correlator,
		lagger:     deps.Lagger,
		forecaster: deps.Forecaster,
		clock:      deps.Clock,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		limiter:    deps.Limiter,
		fitTimeout: deps.FitTimeout,
	}
}

// Compute returns the year's analysis bundle, serving the persisted slot
// when one exists and force is false. A fresh computation replaces the
// slot; a persist failure is logged but does not fail the request.
func (s *AnalysisService) Compute(ctx context.Context, year int, force bool) (*analysis.AnalysisBundle, error) {
	if s.limiter != nil && !s.limiter.Allow() {
		return nil, apperrors.RateLimited("compute is rate limited, retry shortly")
	}

	if !force {
		bundle, err := s.cache.Get(ctx, year)
		if err == nil {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			s.logger.Info("Serving year %d from cache (computed %s)", year, bundle.ComputedAt)
			bundle.Cached = true
			return bundle, nil
		}
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.Warn("Cache read for year %d failed, recomputing: %v", year, err)
		}
	}

	start := s.clock.Now()
	s.metrics.ComputeActive.Inc()
	defer s.metrics.ComputeActive.Dec()

	bundle, err := s.compute(ctx, year)
	if err != nil {
		s.metrics.ComputeRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.ComputeRuns.WithLabelValues("success").Inc()
	s.metrics.ComputeDuration.Observe(s.clock.Since(start).Seconds())
	s.logger.Info("Computed year %d in %s (%d correlations, %d forecasts)",
		year, s.clock.Since(start).Round(time.Millisecond), len(bundle.Correlations), len(bundle.Forecasts))

	if err := s.cache.Put(ctx, bundle); err != nil {
		s.logger.Warn("Failed to persist bundle for year %d: %v", year, err)
	}
	return bundle, nil
}

// ReadCached returns the persisted bundle for year without computing.
func (s *AnalysisService) ReadCached(ctx context.Context, year int) (*analysis.AnalysisBundle, error) {
	bundle, err := s.cache.Get(ctx, year)
	if err != nil {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		if errors.Is(err, ports.ErrCacheMiss) {
			return nil, apperrors.NotFound(fmt.Sprintf("analysis for year %d", year))
		}
		return nil, apperrors.CacheReadFailure(err)
	}
	s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	bundle.Cached = true
	return bundle, nil
}

// CachedYears lists the years with a persisted bundle, ascending.
func (s *AnalysisService) CachedYears(ctx context.Context) ([]int, error) {
	return s.cache.Years(ctx)
}

func (s *AnalysisService) compute(ctx context.Context, year int) (*analysis.AnalysisBundle, error) {
	runID := core.NewRunID()
	s.logger.Info("Computing analysis for year %d (run %s)", year, runID)

	var exposureDoc *ports.ExposureDocument
	var caseDoc *ports.CaseDocument

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exposureDoc, err = s.source.Exposure(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		caseDoc, err = s.source.Cases(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := s.aggregator.Aggregate(exposureDoc, caseDoc, year)
	s.logger.Info("Aggregated year %d: %d exposure weeks, %d case categories (dropped %d readings, skipped %d provinces)",
		year, len(agg.Exposure.Values), len(agg.Cases),
		agg.Diagnostics.DroppedReadings, agg.Diagnostics.SkippedProvinces)

	correlations := s.correlator.Compute(agg.Exposure, agg.Cases, agg.Groups)
	if correlations == nil {
		s.logger.Warn("Year %d has too few common weeks for correlation", year)
	}
	lags := s.lagger.Compute(agg.Exposure, agg.Cases, agg.Groups)

	forecasts := s.runForecasts(ctx, exposureDoc, caseDoc)

	return &analysis.AnalysisBundle{
		Year:              year,
		BundleID:          core.NewBundleID(),
		Correlations:      correlations,
		Forecasts:         forecasts,
		LagAnalysis:       lags,
		ThresholdAnalysis: ReferenceThresholds(),
		Diagnostics:       agg.Diagnostics,
		ComputedAt:        core.NewTimestamp(s.clock.Now().UTC()),
	}, nil
}

// runForecasts fits both targets concurrently. Each fit gets its own
// deadline; a timed-out or failed fit degrades to the seasonal fallback
// inside the engine, so this never returns an error.
func (s *AnalysisService) runForecasts(ctx context.Context, exposureDoc *ports.ExposureDocument, caseDoc *ports.CaseDocument) []analysis.ForecastResult {
	targets := []forecast.Target{
		{
			Name:    analysis.ExposureTarget,
			Kind:    forecast.KindExposure,
			History: s.aggregator.ExposureHistory(exposureDoc),
		},
		{
			Name:    series.TotalCategory,
			Kind:    forecast.KindCases,
			History: s.aggregator.CaseHistory(caseDoc, series.TotalCategory),
		},
	}

	results := make([]analysis.ForecastResult, len(targets))
	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			fitCtx, cancel := context.WithTimeout(ctx, s.fitTimeout)
			defer cancel()

			results[i] = s.forecaster.Forecast(fitCtx, target)
			if results[i].Model.Family == analysis.ModelSeasonalFallback {
				s.metrics.Fallbacks.WithLabelValues(kindLabel(target.Kind)).Inc()
				s.logger.Warn("Forecast for %s fell back to the seasonal curve: %s",
					target.Name, results[i].Model.FailureReason)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func kindLabel(kind forecast.Kind) string {
	if kind == forecast.KindCases {
		return "cases"
	}
	return "exposure"
}
