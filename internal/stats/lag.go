package stats

import (
	"math"

	"airhealth/domain/analysis"
	"airhealth/domain/series"
)

// LagEngine searches a bounded range of weekly offsets for the delay at
// which exposure correlates most strongly with case counts.
type LagEngine struct {
	maxLag int
}

// NewLagEngine creates an engine testing lags 0 through maxLag weeks.
func NewLagEngine(maxLag int) *LagEngine {
	return &LagEngine{maxLag: maxLag}
}

// Compute correlates exposure at week i against cases at week i+lag for
// every lag up to maxLag, per category. The exposure weeks are the master
// index: case series are read over those same weeks with absent weeks as
// zero, not intersected. Requires maxLag+5 exposure weeks up front so the
// longest lag still has a viable sample.
func (e *LagEngine) Compute(exposure series.WeeklyExposureSeries, cases series.CaseSet, groups []string) []analysis.LagResult {
	weeks := exposure.Values.Weeks()
	if len(weeks) < e.maxLag+minValidPairs {
		return nil
	}

	exposureVals := make([]float64, len(weeks))
	for i, w := range weeks {
		exposureVals[i] = exposure.Values[w]
	}

	var results []analysis.LagResult
	for _, disease := range categoryOrder(groups) {
		cs, ok := cases[disease]
		if !ok {
			continue
		}

		caseVals := make([]float64, len(weeks))
		for i, w := range weeks {
			caseVals[i] = cs.Values[w]
		}

		var points []analysis.LagPoint
		bestLag, bestR := 0, 0.0
		for lag := 0; lag <= e.maxLag; lag++ {
			lagged := exposureVals
			aligned := caseVals
			if lag > 0 {
				lagged = exposureVals[:len(exposureVals)-lag]
				aligned = caseVals[lag:]
			}
			if len(lagged) < minValidPairs {
				continue
			}

			r, p := pearsonWithP(lagged, aligned)
			points = append(points, analysis.LagPoint{
				Lag:    lag,
				R:      roundTo(r, 4),
				PValue: roundTo(p, 6),
			})

			// Strictly greater keeps the earliest lag on ties.
			if math.Abs(r) > math.Abs(bestR) {
				bestR = r
				bestLag = lag
			}
		}

		if len(points) == 0 {
			continue
		}
		results = append(results, analysis.LagResult{
			Disease:      disease,
			Correlations: points,
			OptimalLag:   bestLag,
			OptimalR:     roundTo(bestR, 4),
		})
	}
	return results
}
