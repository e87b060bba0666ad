package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// rClampLimit keeps |r| strictly inside (-1, 1) before the Fisher
// transform, since atanh(±1) diverges.
const rClampLimit = 0.999999

// pearson computes the Pearson correlation coefficient of two equal-length
// samples. A zero-variance input yields r = 0 rather than NaN so callers
// never have to scrub non-finite values out of a result bundle.
func pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	n := float64(len(x))
	sumX, sumY := 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/n, sumY/n

	numerator := 0.0
	sumXX, sumYY := 0.0, 0.0
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}

	denominator := math.Sqrt(sumXX * sumYY)
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// pearsonWithP computes r together with its two-tailed p-value from the
// Student-t distribution with n-2 degrees of freedom.
func pearsonWithP(x, y []float64) (r, p float64) {
	r = pearson(x, y)
	n := len(x)
	if n < 3 {
		return r, 1.0
	}
	if 1-r*r <= 0 {
		return r, 0.0
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return r, 2 * dist.CDF(-math.Abs(t))
}

// fisherCI computes the 95% confidence interval for r via the Fisher
// z-transform. Samples below four observations carry no interval
// information, so the bounds degrade to the full [-1, 1] range.
func fisherCI(r float64, n int) (lower, upper float64) {
	if n < 4 {
		return -1.0, 1.0
	}

	clamped := math.Max(-rClampLimit, math.Min(rClampLimit, r))
	z := math.Atanh(clamped)
	se := 1.0 / math.Sqrt(float64(n-3))
	zcrit := distuv.UnitNormal.Quantile(0.975)

	return math.Tanh(z - zcrit*se), math.Tanh(z + zcrit*se)
}

// roundTo rounds v to the given number of decimal places for display
// stability across recomputations.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
