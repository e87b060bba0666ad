package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
)

// minDifferencedObs is the smallest usable sample after applying both
// differencing passes: four ARMA coefficients need some room to estimate.
const minDifferencedObs = 10

// SARIMAStrategy fits a seasonal ARIMA(1,1,1)(1,1,1)[52] by conditional
// least squares and forecasts with model-native confidence intervals from
// the psi-weight representation. Parameters are unconstrained, mirroring
// a fit without stationarity or invertibility enforcement.
type SARIMAStrategy struct {
	maxIterations int
}

func NewSARIMAStrategy() *SARIMAStrategy {
	return &SARIMAStrategy{maxIterations: 100}
}

func (s *SARIMAStrategy) Name() string { return "sarima" }

func (s *SARIMAStrategy) Fit(history series.History, weeks []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor, error) {
	y := history.Values()
	w := doubleDifference(y)
	if len(w) < minDifferencedObs {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("sarima: %d observations after differencing, need %d", len(w), minDifferencedObs)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			ss := sumSquares(cssResiduals(w, x[0], x[1], x[2], x[3]))
			if math.IsNaN(ss) || math.IsInf(ss, 0) {
				return math.Inf(1)
			}
			return ss
		},
	}
	settings := &optimize.Settings{
		MajorIterations: s.maxIterations,
		Converger:       &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 20},
	}

	result, err := optimize.Minimize(problem, []float64{0.1, 0.1, 0.1, 0.1}, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("sarima optimization: %w", err)
	}
	phi, theta, sphi, stheta := result.X[0], result.X[1], result.X[2], result.X[3]
	if !finiteAll(phi, theta, sphi, stheta) {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("sarima optimization produced non-finite parameters")
	}

	eps := cssResiduals(w, phi, theta, sphi, stheta)
	n := float64(len(w))
	sigma2 := sumSquares(eps) / n
	if sigma2 <= 0 || math.IsNaN(sigma2) {
		return nil, analysis.ModelDescriptor{}, fmt.Errorf("sarima residual variance degenerate")
	}

	// Gaussian log-likelihood at the conditional optimum; five parameters
	// counting the innovation variance.
	ll := -n / 2 * (math.Log(2*math.Pi) + math.Log(sigma2) + 1)
	const k = 5
	aic := 2*k - 2*ll
	bic := k*math.Log(n) - 2*ll

	values := s.forecastValues(y, w, eps, phi, theta, sphi, stheta, len(weeks))
	halfwidths := s.intervalHalfwidths(phi, theta, sphi, stheta, sigma2, len(weeks))

	points := make([]analysis.ForecastPoint, len(weeks))
	for i, yw := range weeks {
		points[i] = analysis.ForecastPoint{
			Week:    yw.Week,
			Year:    yw.Year,
			Value:   values[i],
			CILower: values[i] - halfwidths[i],
			CIUpper: values[i] + halfwidths[i],
		}
	}

	desc := analysis.ModelDescriptor{
		Family:        analysis.ModelSARIMA,
		Order:         []int{1, 1, 1},
		SeasonalOrder: []int{1, 1, 1, seasonalPeriod},
		AIC:           &aic,
		BIC:           &bic,
		Description:   fmt.Sprintf("SARIMA(1,1,1)(1,1,1)[%d] fit by conditional least squares", seasonalPeriod),
	}
	return points, desc, nil
}

// doubleDifference applies (1-B)(1-B^52) to the series.
func doubleDifference(y []float64) []float64 {
	if len(y) <= seasonalPeriod+1 {
		return nil
	}
	first := make([]float64, len(y)-1)
	for i := range first {
		first[i] = y[i+1] - y[i]
	}
	out := make([]float64, len(first)-seasonalPeriod)
	for i := range out {
		out[i] = first[i+seasonalPeriod] - first[i]
	}
	return out
}

// cssResiduals runs the ARMA recursion with zero-initialized pre-sample
// values, the conditional convention.
func cssResiduals(w []float64, phi, theta, sphi, stheta float64) []float64 {
	eps := make([]float64, len(w))
	for t := range w {
		pred := 0.0
		if t >= 1 {
			pred += phi*w[t-1] + theta*eps[t-1]
		}
		if t >= seasonalPeriod {
			pred += sphi*w[t-seasonalPeriod] + stheta*eps[t-seasonalPeriod]
		}
		if t >= seasonalPeriod+1 {
			pred += -phi*sphi*w[t-seasonalPeriod-1] + theta*stheta*eps[t-seasonalPeriod-1]
		}
		eps[t] = w[t] - pred
	}
	return eps
}

// forecastValues extends the differenced recursion h steps with zero
// future innovations, then integrates back onto the original scale.
func (s *SARIMAStrategy) forecastValues(y, w, eps []float64, phi, theta, sphi, stheta float64, horizon int) []float64 {
	wAt := func(ext []float64, idx int) float64 {
		if idx < 0 {
			return 0
		}
		return ext[idx]
	}
	epsAt := func(idx int) float64 {
		if idx < 0 || idx >= len(eps) {
			return 0
		}
		return eps[idx]
	}

	wExt := append([]float64(nil), w...)
	for h := 0; h < horizon; h++ {
		t := len(w) + h
		pred := phi*wAt(wExt, t-1) + theta*epsAt(t-1)
		pred += sphi*wAt(wExt, t-seasonalPeriod) + stheta*epsAt(t-seasonalPeriod)
		pred += -phi*sphi*wAt(wExt, t-seasonalPeriod-1) + theta*stheta*epsAt(t-seasonalPeriod-1)
		wExt = append(wExt, pred)
	}

	yAt := func(ext []float64, idx int) float64 {
		if idx < 0 {
			return 0
		}
		return ext[idx]
	}
	yExt := append([]float64(nil), y...)
	out := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		idx := len(y) + h
		v := wExt[len(w)+h] + yAt(yExt, idx-1) + yAt(yExt, idx-seasonalPeriod) - yAt(yExt, idx-seasonalPeriod-1)
		yExt = append(yExt, v)
		out[h] = v
	}
	return out
}

// intervalHalfwidths derives 95% interval halfwidths from the psi-weight
// (moving-average) representation of the fully integrated model.
func (s *SARIMAStrategy) intervalHalfwidths(phi, theta, sphi, stheta, sigma2 float64, horizon int) []float64 {
	ar := polyMul(
		polyMul([]float64{1, -phi}, sparsePoly(-sphi, seasonalPeriod)),
		polyMul([]float64{1, -1}, sparsePoly(-1, seasonalPeriod)),
	)
	ma := polyMul([]float64{1, theta}, sparsePoly(stheta, seasonalPeriod))

	psi := make([]float64, horizon)
	psi[0] = 1
	for j := 1; j < horizon; j++ {
		v := 0.0
		if j < len(ma) {
			v = ma[j]
		}
		for i := 1; i <= j && i < len(ar); i++ {
			v -= ar[i] * psi[j-i]
		}
		psi[j] = v
	}

	z := distuv.UnitNormal.Quantile(0.975)
	sigma := math.Sqrt(sigma2)

	out := make([]float64, horizon)
	cum := 0.0
	for h := 0; h < horizon; h++ {
		cum += psi[h] * psi[h]
		out[h] = z * sigma * math.Sqrt(cum)
	}
	return out
}

// sparsePoly builds 1 + c*B^degree as a dense coefficient slice.
func sparsePoly(c float64, degree int) []float64 {
	p := make([]float64, degree+1)
	p[0] = 1
	p[degree] = c
	return p
}

func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, ai := range a {
		if ai == 0 {
			continue
		}
		for j, bj := range b {
			out[i+j] += ai * bj
		}
	}
	return out
}

func sumSquares(v []float64) float64 {
	ss := 0.0
	for _, x := range v {
		ss += x * x
	}
	return ss
}

func finiteAll(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
