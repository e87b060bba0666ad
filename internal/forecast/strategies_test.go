package forecast

import (
	"math"
	"testing"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
)

func forecastLabels(n int) []core.YearWeek {
	return nextWeeks(core.YearWeek{Year: 2025, Week: 12}, n)
}

// ============================================================================
// TEST: SARIMA strategy
// ============================================================================

func TestSARIMA_FitsThreeYearSeries(t *testing.T) {
	values := seasonalSignal(156, 30, 0.05, 8)
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	strategy := NewSARIMAStrategy()
	points, desc, err := strategy.Fit(hist, forecastLabels(8))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	if desc.Family != analysis.ModelSARIMA {
		t.Errorf("expected sarima family, got %s", desc.Family)
	}
	if len(desc.Order) != 3 || len(desc.SeasonalOrder) != 4 || desc.SeasonalOrder[3] != 52 {
		t.Errorf("descriptor must record (1,1,1)(1,1,1,52), got %v %v", desc.Order, desc.SeasonalOrder)
	}
	if desc.AIC == nil || desc.BIC == nil {
		t.Fatal("descriptor must carry AIC and BIC")
	}
	if math.IsNaN(*desc.AIC) || math.IsInf(*desc.AIC, 0) || math.IsNaN(*desc.BIC) || math.IsInf(*desc.BIC, 0) {
		t.Errorf("information criteria must be finite, got AIC=%v BIC=%v", *desc.AIC, *desc.BIC)
	}

	if len(points) != 8 {
		t.Fatalf("expected 8 points, got %d", len(points))
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	prevWidth := 0.0
	for i, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			t.Fatalf("point %d not finite: %v", i, p.Value)
		}
		if p.CILower > p.Value || p.Value > p.CIUpper {
			t.Errorf("point %d: CI must bracket the value: (%.2f, %.2f, %.2f)", i, p.CILower, p.Value, p.CIUpper)
		}
		if p.Value < lo-25 || p.Value > hi+25 {
			t.Errorf("point %d: %.2f strays far outside the observed range [%.2f, %.2f]", i, p.Value, lo, hi)
		}
		width := p.CIUpper - p.Value
		if width < prevWidth-1e-9 {
			t.Errorf("interval width must not shrink with horizon: step %d width %.4f < %.4f", i, width, prevWidth)
		}
		prevWidth = width
	}
}

func TestSARIMA_LabelsFollowRequestedWeeks(t *testing.T) {
	values := seasonalSignal(156, 30, 0.05, 8)
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	labels := nextWeeks(core.YearWeek{Year: 2025, Week: 50}, 6)
	points, _, err := NewSARIMAStrategy().Fit(hist, labels)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	for i, p := range points {
		if p.Week != labels[i].Week || p.Year != labels[i].Year {
			t.Errorf("point %d: expected %s, got %04d-W%02d", i, labels[i], p.Year, p.Week)
		}
	}
	// The final label crossed into the next year.
	if points[5].Year != 2026 || points[5].Week != 4 {
		t.Errorf("expected wrap to 2026-W04, got %04d-W%02d", points[5].Year, points[5].Week)
	}
}

func TestSARIMA_ConstantSeriesDegenerates(t *testing.T) {
	values := make([]float64, 156)
	for i := range values {
		values[i] = 42
	}
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	_, _, err := NewSARIMAStrategy().Fit(hist, forecastLabels(8))
	if err == nil {
		t.Fatal("constant series leaves zero residual variance and must error into the fallback")
	}
}

// ============================================================================
// TEST: Holt-Winters strategy
// ============================================================================

func TestHoltWinters_FitsAndFloorsAtZero(t *testing.T) {
	values := seasonalSignal(156, 120, 0.3, 40)
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	strategy := NewHoltWintersStrategy()
	points, desc, err := strategy.Fit(hist, forecastLabels(8))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	if desc.Family != analysis.ModelHoltWinters {
		t.Errorf("expected holt_winters family, got %s", desc.Family)
	}
	for _, name := range []string{"alpha", "beta", "gamma"} {
		v, ok := desc.Smoothing[name]
		if !ok {
			t.Fatalf("descriptor missing smoothing coefficient %s", name)
		}
		if v < 0 || v > 1 {
			t.Errorf("%s must lie in [0,1], got %v", name, v)
		}
	}

	prevWidth := 0.0
	for i, p := range points {
		if p.Value < 0 {
			t.Errorf("point %d: forecast below zero: %v", i, p.Value)
		}
		if p.CILower < 0 || p.CILower > p.Value || p.Value > p.CIUpper {
			t.Errorf("point %d: CI ordering violated: (%.2f, %.2f, %.2f)", i, p.CILower, p.Value, p.CIUpper)
		}
		width := p.CIUpper - p.Value
		if width < prevWidth-1e-9 {
			t.Errorf("interval must expand with horizon: step %d width %.4f < %.4f", i, width, prevWidth)
		}
		prevWidth = width
	}
}

func TestHoltWinters_TracksSeasonalContinuation(t *testing.T) {
	// Clean additive structure the model family captures exactly; the
	// forecast should continue the pattern rather than flatten out.
	n := 156
	values := make([]float64, n)
	for t := 0; t < n; t++ {
		values[t] = 200 + 0.5*float64(t) + 30*math.Sin(2*math.Pi*float64(t)/52)
	}
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	points, _, err := NewHoltWintersStrategy().Fit(hist, forecastLabels(8))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	for i, p := range points {
		step := float64(i + 1)
		truth := 200 + 0.5*(float64(n-1)+step) + 30*math.Sin(2*math.Pi*(float64(n-1)+step)/52)
		if math.Abs(p.Value-truth) > 0.3*truth {
			t.Errorf("step %d: forecast %.1f too far from continuation %.1f", i+1, p.Value, truth)
		}
	}
}

func TestHoltWinters_RejectsSingleCycle(t *testing.T) {
	values := seasonalSignal(80, 100, 0.2, 20)
	hist := syntheticHistory(core.YearWeek{Year: 2023, Week: 1}, values)

	_, _, err := NewHoltWintersStrategy().Fit(hist, forecastLabels(8))
	if err == nil {
		t.Fatal("fewer than two full cycles must fail into the fallback")
	}
}

// ============================================================================
// TEST: seasonal fallback
// ============================================================================

func TestSeasonalFallback_DependsOnlyOnWeekAndBase(t *testing.T) {
	fb := NewSeasonalFallback(100)
	weeks := forecastLabels(8)

	a, descA := fb.Forecast(weeks, "insufficient history")
	b, descB := fb.Forecast(weeks, "insufficient history")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fallback must be deterministic: point %d differs", i)
		}
	}
	if descA.FailureReason != "insufficient history" || descA.Family != descB.Family {
		t.Errorf("descriptor must carry the trigger reason and family")
	}

	for _, p := range a {
		want := 100 * (1 + 0.3*math.Sin(2*math.Pi*float64(p.Week-10)/52))
		if math.Abs(p.Value-want) > 1e-9 {
			t.Errorf("week %d: expected %.4f, got %.4f", p.Week, want, p.Value)
		}
		if math.Abs(p.CILower-want*0.7) > 1e-9 || math.Abs(p.CIUpper-want*1.3) > 1e-9 {
			t.Errorf("week %d: CI must be value×[0.7,1.3]", p.Week)
		}
	}
}
