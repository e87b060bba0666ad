package forecast

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/optimize"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
)

// HoltWintersStrategy fits triple exponential smoothing with additive
// trend and additive seasonality at period 52, optimizing the smoothing
// coefficients against one-step in-sample error. Intervals expand with
// the horizon from the residual spread since the model carries no native
// error distribution.
type HoltWintersStrategy struct {
	maxIterations int
}

func NewHoltWintersStrategy() *HoltWintersStrategy {
	return &HoltWintersStrategy{maxIterations: 100}
}

func (h *HoltWintersStrategy) Name() string { return "holt_winters" }

type hwState struct {
	level    float64
	trend    float64
	seasonal []float64
	resid    []float64
}

func (h *HoltWintersStrategy) Fit(history series.History, weeks []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor, error) {
	y := history.Values()
	m := seasonalPeriod
	if len(y) < 2*m {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("holt-winters: seasonal initialization needs two full cycles, have %d of %d points", len(y), 2*m)
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			st := h.smooth(y, logistic(u[0]), logistic(u[1]), logistic(u[2]))
			sse := sumSquares(st.resid)
			if math.IsNaN(sse) || math.IsInf(sse, 0) {
				return math.Inf(1)
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: h.maxIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 20},
	}

	initial := []float64{logit(0.3), logit(0.1), logit(0.1)}
	result, err := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("holt-winters optimization: %w", err)
	}

	alpha, beta, gamma := logistic(result.X[0]), logistic(result.X[1]), logistic(result.X[2])
	st := h.smooth(y, alpha, beta, gamma)
	if !finiteAll(st.level, st.trend) {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("holt-winters smoothing diverged")
	}

	sigma, err := stats.StandardDeviationPopulation(st.resid)
	if err != nil {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("holt-winters residuals: %w", err)
	}

	points := make([]analysis.ForecastPoint, len(weeks))
	for i, yw := range weeks {
		step := i + 1
		raw := st.level + float64(step)*st.trend + st.seasonal[(len(y)+i)%m]
		pred := math.Max(0, raw)
		width := 1.96 * sigma * math.Sqrt(float64(step))
		points[i] = analysis.ForecastPoint{
			Week:    yw.Week,
			Year:    yw.Year,
			Value:   pred,
			CILower: math.Max(0, pred-width),
			CIUpper: pred + width,
		}
	}

	desc := analysis.ModelDescriptor{
		Family: analysis.ModelHoltWinters,
		Smoothing: map[string]float64{
			"alpha": roundTo(alpha, 4),
			"beta":  roundTo(beta, 4),
			"gamma": roundTo(gamma, 4),
		},
		Description: fmt.Sprintf("Holt-Winters additive trend, additive seasonal, period %d", m),
	}
	return points, desc, nil
}

// smooth runs the additive recursions over the series and returns the
// final component state plus the one-step in-sample residuals.
func (h *HoltWintersStrategy) smooth(y []float64, alpha, beta, gamma float64) hwState {
	m := seasonalPeriod
	level, trend, seasonal := initialComponents(y, m)

	resid := make([]float64, 0, len(y)-m)
	for t := m; t < len(y); t++ {
		predicted := level + trend + seasonal[t%m]
		resid = append(resid, y[t]-predicted)

		prevLevel := level
		level = alpha*(y[t]-seasonal[t%m]) + (1-alpha)*(level+trend)
		trend = beta*(level-prevLevel) + (1-beta)*trend
		seasonal[t%m] = gamma*(y[t]-level) + (1-gamma)*seasonal[t%m]
	}

	return hwState{level: level, trend: trend, seasonal: seasonal, resid: resid}
}

// initialComponents seeds level from the first cycle's mean, trend from
// the averaged cycle-to-cycle shift, and seasonals from the detrended
// per-position means.
func initialComponents(y []float64, m int) (level, trend float64, seasonal []float64) {
	firstCycle, secondCycle := 0.0, 0.0
	for i := 0; i < m; i++ {
		firstCycle += y[i]
		secondCycle += y[i+m]
	}
	level = firstCycle / float64(m)
	trend = (secondCycle - firstCycle) / float64(m*m)

	seasonal = make([]float64, m)
	for i := 0; i < m; i++ {
		sum, count := 0.0, 0
		for j := i; j < len(y); j += m {
			cycle := j / m
			sum += y[j] - (level + trend*float64(cycle))
			count++
		}
		seasonal[i] = sum / float64(count)
	}
	return level, trend, seasonal
}

func logistic(u float64) float64 {
	return 1 / (1 + math.Exp(-u))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}
