package stats

import (
	"math"

	"airhealth/domain/analysis"
	"airhealth/domain/series"
)

// minValidPairs is the smallest paired sample any single statistic may be
// computed from. Categories below it are omitted, never padded.
const minValidPairs = 5

// CorrelationEngine computes the Pearson correlation between weekly
// exposure and weekly case counts per disease category, with Fisher 95%
// confidence intervals and two-tailed significance.
type CorrelationEngine struct {
	minCommonWeeks int
}

// NewCorrelationEngine creates an engine that requires at least
// minCommonWeeks overlapping weeks before producing any results.
func NewCorrelationEngine(minCommonWeeks int) *CorrelationEngine {
	return &CorrelationEngine{minCommonWeeks: minCommonWeeks}
}

// Compute returns one CorrelationResult per qualifying category, ordered
// Total first and then the declared groups. When the exposure and Total
// case series share fewer than minCommonWeeks weeks the whole computation
// short-circuits to an empty list.
func (e *CorrelationEngine) Compute(exposure series.WeeklyExposureSeries, cases series.CaseSet, groups []string) []analysis.CorrelationResult {
	total, ok := cases[series.TotalCategory]
	if !ok {
		return nil
	}

	common := series.CommonWeeks(exposure.Values, total.Values)
	if len(common) < e.minCommonWeeks {
		return nil
	}

	exposureVals := make([]float64, len(common))
	for i, w := range common {
		exposureVals[i] = exposure.Values[w]
	}

	var results []analysis.CorrelationResult
	for _, disease := range categoryOrder(groups) {
		cs, ok := cases[disease]
		if !ok {
			continue
		}

		pairsX := make([]float64, 0, len(common))
		pairsY := make([]float64, 0, len(common))
		for i, w := range common {
			caseVal := cs.Values[w] // absent weeks read as 0 over the common index
			if math.IsNaN(exposureVals[i]) || math.IsNaN(caseVal) {
				continue
			}
			pairsX = append(pairsX, exposureVals[i])
			pairsY = append(pairsY, caseVal)
		}

		n := len(pairsX)
		if n < minValidPairs {
			continue
		}

		r, p := pearsonWithP(pairsX, pairsY)
		lower, upper := fisherCI(r, n)

		results = append(results, analysis.CorrelationResult{
			Disease:  disease,
			R:        roundTo(r, 4),
			CILower:  roundTo(lower, 4),
			CIUpper:  roundTo(upper, 4),
			PValue:   roundTo(p, 6),
			RSquared: roundTo(r*r, 4),
			N:        n,
		})
	}
	return results
}

// categoryOrder fixes the reporting order: the synthesized Total first,
// then the declared groups as the source metadata lists them.
func categoryOrder(groups []string) []string {
	order := make([]string, 0, len(groups)+1)
	order = append(order, series.TotalCategory)
	return append(order, groups...)
}
