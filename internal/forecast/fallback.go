package forecast

import (
	"math"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
)

// SeasonalFallback produces the deterministic seasonal curve used when no
// statistical model can run: a fixed baseline modulated by a sine wave
// peaking around week 23 of the cycle. Output depends only on the base
// constant and each target week, never on history.
type SeasonalFallback struct {
	base float64
}

func NewSeasonalFallback(base float64) *SeasonalFallback {
	return &SeasonalFallback{base: base}
}

func (f *SeasonalFallback) Name() string { return "seasonal_fallback" }

// Forecast fills every requested week. It cannot fail; reason records
// what pushed the chain here and travels in the descriptor.
func (f *SeasonalFallback) Forecast(weeks []core.YearWeek, reason string) ([]analysis.ForecastPoint, analysis.ModelDescriptor) {
	points := make([]analysis.ForecastPoint, len(weeks))
	for i, yw := range weeks {
		factor := 1 + 0.3*math.Sin(2*math.Pi*float64(yw.Week-10)/float64(seasonalPeriod))
		value := f.base * factor
		points[i] = analysis.ForecastPoint{
			Week:    yw.Week,
			Year:    yw.Year,
			Value:   value,
			CILower: value * 0.7,
			CIUpper: value * 1.3,
		}
	}

	desc := analysis.ModelDescriptor{
		Family:        analysis.ModelSeasonalFallback,
		Description:   "deterministic seasonal baseline curve",
		FailureReason: reason,
	}
	return points, desc
}
