package analysis

import (
	"airhealth/domain/core"
)

// ExposureTarget labels the exposure series in forecast results.
const ExposureTarget = "PM2.5"

// CorrelationResult captures the Pearson relationship between weekly
// exposure and one disease category over their common weeks.
// INVARIANTS:
// - CILower <= R <= CIUpper, all three within [-1, 1]
// - PValue within [0, 1]
// - N >= 5 (results below the minimum sample are never emitted)
type CorrelationResult struct {
	Disease  string  `json:"disease"`
	R        float64 `json:"r"`         // Pearson r, rounded to 4 places
	CILower  float64 `json:"ci_lower"`  // 95% Fisher-transform CI, rounded to 4
	CIUpper  float64 `json:"ci_upper"`  // 95% Fisher-transform CI, rounded to 4
	PValue   float64 `json:"p_value"`   // Two-tailed Student-t, rounded to 6
	RSquared float64 `json:"r_squared"` // Rounded to 4
	N        int     `json:"n"`         // Valid pairs used
}

// LagPoint is the correlation measured at one tested lag offset.
type LagPoint struct {
	Lag    int     `json:"lag"`
	R      float64 `json:"r"`
	PValue float64 `json:"p_value"`
}

// LagResult records the full lag scan for one disease category plus the
// single offset maximizing |r|. Ties resolve to the smallest lag.
type LagResult struct {
	Disease      string     `json:"disease"`
	Correlations []LagPoint `json:"correlations"`
	OptimalLag   int        `json:"optimal_lag"`
	OptimalR     float64    `json:"optimal_r"`
}

// ForecastPoint is one projected week.
// Case-count targets keep 0 <= CILower <= Value <= CIUpper.
type ForecastPoint struct {
	Week    int     `json:"week"`
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
	CILower float64 `json:"ci_lower"`
	CIUpper float64 `json:"ci_upper"`
}

// ModelFamily identifies which forecasting strategy produced a series.
type ModelFamily string

const (
	ModelSARIMA           ModelFamily = "sarima"
	ModelHoltWinters      ModelFamily = "holt_winters"
	ModelSeasonalFallback ModelFamily = "seasonal_fallback"
)

// ModelDescriptor records the strategy branch that ran and its fitted
// parameters. FailureReason is set only when a fallback was triggered by a
// fit failure or an insufficient-history precondition.
type ModelDescriptor struct {
	Family        ModelFamily        `json:"family"`
	Order         []int              `json:"order,omitempty"`          // ARIMA (p,d,q)
	SeasonalOrder []int              `json:"seasonal_order,omitempty"` // ARIMA (P,D,Q,m)
	Smoothing     map[string]float64 `json:"smoothing,omitempty"`      // Holt-Winters coefficients
	AIC           *float64           `json:"aic,omitempty"`
	BIC           *float64           `json:"bic,omitempty"`
	Description   string             `json:"description"`
	FailureReason string             `json:"failure_reason,omitempty"`
}

// ForecastResult holds the projected points for one target series together
// with the model branch that produced them and the baseline week the
// projection starts from.
type ForecastResult struct {
	Target       string          `json:"target"` // ExposureTarget or a disease category
	Points       []ForecastPoint `json:"forecast"`
	Model        ModelDescriptor `json:"model"`
	BaselineWeek int             `json:"baseline_week"`
	BaselineYear int             `json:"baseline_year"`
}

// ThresholdTable is the static exposure-band reference attached to every
// bundle: band labels in display order plus representative average weekly
// cases per category for each band.
type ThresholdTable struct {
	Thresholds []string             `json:"thresholds"`
	AvgCases   map[string][]float64 `json:"avg_cases"`
}

// AggregationDiagnostics counts records the aggregator filtered out. The
// filtering itself is intentional; the counts exist so ingestion gaps stay
// visible instead of silently shrinking sample sizes.
type AggregationDiagnostics struct {
	DroppedReadings   int `json:"dropped_readings"`   // malformed dates or values
	SkippedProvinces  int `json:"skipped_provinces"`  // no data for the target year
	IgnoredCategories int `json:"ignored_categories"` // rows outside the declared group list
}

// AnalysisBundle is the complete output of one orchestration run. It is the
// only persisted entity; everything else is transient per run.
type AnalysisBundle struct {
	Year              int                    `json:"year"`
	BundleID          core.BundleID          `json:"bundle_id"`
	Correlations      []CorrelationResult    `json:"correlations"`
	Forecasts         []ForecastResult       `json:"forecasts"`
	LagAnalysis       []LagResult            `json:"lag_analysis"`
	ThresholdAnalysis ThresholdTable         `json:"threshold_analysis"`
	Diagnostics       AggregationDiagnostics `json:"diagnostics"`
	ComputedAt        core.Timestamp         `json:"computed_at"`

	// Cached is set on the read path only; persisted slots never carry it.
	Cached bool `json:"cached,omitempty"`
}
