package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis service.
type Metrics struct {
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
	ComputeRuns  *prometheus.CounterVec // labels: outcome={success,error}
	Fallbacks    *prometheus.CounterVec // labels: target={exposure,cases}

	ComputeDuration prometheus.Histogram
	ComputeActive   prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airhealth",
			Name:      "cache_lookups_total",
			Help:      "Bundle cache lookups by result.",
		}, []string{"result"}),
		ComputeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airhealth",
			Name:      "compute_runs_total",
			Help:      "Full analysis computations by outcome.",
		}, []string{"outcome"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airhealth",
			Name:      "forecast_fallbacks_total",
			Help:      "Forecast fallback activations by target kind.",
		}, []string{"target"}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airhealth",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a complete aggregate-correlate-forecast run.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ComputeActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airhealth",
			Name:      "compute_active",
			Help:      "Number of computations currently in flight.",
		}),
	}

	prometheus.MustRegister(
		m.CacheLookups,
		m.ComputeRuns,
		m.Fallbacks,
		m.ComputeDuration,
		m.ComputeActive,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CacheLookups:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airhealth", Name: "cache_lookups_total"}, []string{"result"}),
		ComputeRuns:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airhealth", Name: "compute_runs_total"}, []string{"outcome"}),
		Fallbacks:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "airhealth", Name: "forecast_fallbacks_total"}, []string{"target"}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "airhealth", Name: "compute_duration_seconds"}),
		ComputeActive:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "airhealth", Name: "compute_active"}),
	}
}
