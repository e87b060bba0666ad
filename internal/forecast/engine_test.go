package forecast

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
)

var testNow = time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)

func testClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(testNow)
}

// syntheticHistory builds len(values) consecutive weekly observations
// starting at start, using the same 52-week labeling the engine emits.
func syntheticHistory(start core.YearWeek, values []float64) series.History {
	hist := make(series.History, 0, len(values))
	cur := start
	for _, v := range values {
		hist = append(hist, series.Observation{Week: cur, Value: v})
		cur = nextWeeks(cur, 1)[0]
	}
	return hist
}

// seasonalSignal is a trend + 52-week sine + an off-period ripple, so the
// series is deterministic but never annihilated by differencing.
func seasonalSignal(n int, base, slope, amplitude float64) []float64 {
	out := make([]float64, n)
	for t := 0; t < n; t++ {
		ft := float64(t)
		out[t] = base + slope*ft +
			amplitude*math.Sin(2*math.Pi*ft/52) +
			2.0*math.Sin(2*math.Pi*ft/7.3)
	}
	return out
}

// ============================================================================
// TEST: week arithmetic
// ============================================================================

func TestNextWeeks_WrapsYearBoundary(t *testing.T) {
	weeks := nextWeeks(core.YearWeek{Year: 2025, Week: 50}, 5)

	want := []core.YearWeek{
		{Year: 2025, Week: 51},
		{Year: 2025, Week: 52},
		{Year: 2026, Week: 1},
		{Year: 2026, Week: 2},
		{Year: 2026, Week: 3},
	}
	for i, w := range want {
		if weeks[i] != w {
			t.Errorf("position %d: expected %s, got %s", i, w, weeks[i])
		}
	}
}

func TestPreviousWeek_CrossesYearBoundary(t *testing.T) {
	got := previousWeek(core.YearWeek{Year: 2025, Week: 1})
	if got.Year != 2024 || got.Week != 52 {
		t.Fatalf("expected 2024-W52, got %s", got)
	}
}

// ============================================================================
// TEST: engine branch selection
// ============================================================================

func TestEngine_ShortHistoryGoesStraightToFallback(t *testing.T) {
	engine := NewEngine(8, testClock())

	hist := syntheticHistory(core.YearWeek{Year: 2025, Week: 1}, []float64{12, 14, 16, 18, 20})
	res := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure, History: hist})

	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "insufficient history") {
		t.Errorf("expected insufficient-history reason, got %q", res.Model.FailureReason)
	}
	if len(res.Points) != 8 {
		t.Fatalf("expected 8 forecast points, got %d", len(res.Points))
	}

	// Baseline is the clock's current week for exposure targets.
	wantBaseline := core.WeekOf(testNow)
	if res.BaselineYear != wantBaseline.Year || res.BaselineWeek != wantBaseline.Week {
		t.Errorf("expected baseline %s, got %04d-W%02d", wantBaseline, res.BaselineYear, res.BaselineWeek)
	}
	wantFirst := nextWeeks(wantBaseline, 1)[0]
	if res.Points[0].Week != wantFirst.Week || res.Points[0].Year != wantFirst.Year {
		t.Errorf("first point must follow the baseline: expected %s, got %04d-W%02d", wantFirst, res.Points[0].Year, res.Points[0].Week)
	}
}

func TestEngine_CaseCutoffOneWeekBehindExposure(t *testing.T) {
	engine := NewEngine(8, testClock())

	exposure := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure})
	cases := engine.Forecast(context.Background(), Target{Name: "Respiratory", Kind: KindCases})

	wantCase := previousWeek(core.YearWeek{Year: exposure.BaselineYear, Week: exposure.BaselineWeek})
	if cases.BaselineYear != wantCase.Year || cases.BaselineWeek != wantCase.Week {
		t.Fatalf("case baseline must trail exposure by one week: exposure %04d-W%02d, cases %04d-W%02d",
			exposure.BaselineYear, exposure.BaselineWeek, cases.BaselineYear, cases.BaselineWeek)
	}
}

func TestEngine_FallbackValuesMatchSeasonalCurve(t *testing.T) {
	engine := NewEngine(4, testClock())

	res := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure})
	for _, p := range res.Points {
		factor := 1 + 0.3*math.Sin(2*math.Pi*float64(p.Week-10)/52)
		want := roundTo(30.0*factor, 2)
		if p.Value != want {
			t.Errorf("week %d: expected %.2f, got %.2f", p.Week, want, p.Value)
		}
		if p.CILower != roundTo(30.0*factor*0.7, 2) || p.CIUpper != roundTo(30.0*factor*1.3, 2) {
			t.Errorf("week %d: CI must be ±30%% of the value, got (%.2f, %.2f)", p.Week, p.CILower, p.CIUpper)
		}
	}

	again := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure})
	for i := range res.Points {
		if res.Points[i] != again.Points[i] {
			t.Fatalf("fallback must be reproducible: point %d differs", i)
		}
	}
}

func TestEngine_CaseFallbackRoundsToWholeCounts(t *testing.T) {
	engine := NewEngine(8, testClock())

	res := engine.Forecast(context.Background(), Target{Name: "Total", Kind: KindCases})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback, got %s", res.Model.Family)
	}
	for _, p := range res.Points {
		if p.Value != float64(int(p.Value)) {
			t.Errorf("case counts must be whole numbers, got %v", p.Value)
		}
		if p.CILower < 0 || p.CILower > p.Value || p.Value > p.CIUpper {
			t.Errorf("case CI ordering violated: (%.0f, %.0f, %.0f)", p.CILower, p.Value, p.CIUpper)
		}
	}
}

func TestEngine_PrimaryFailureRecordsReason(t *testing.T) {
	engine := NewEngine(8, testClock())

	// 60 points clear the global precondition but not the two full
	// seasonal cycles Holt-Winters initialization needs.
	values := seasonalSignal(60, 100, 0.2, 10)
	hist := syntheticHistory(core.YearWeek{Year: 2024, Week: 1}, values)

	res := engine.Forecast(context.Background(), Target{Name: "Respiratory", Kind: KindCases, History: hist})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback after primary failure, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "two full cycles") {
		t.Errorf("expected the primary's failure text, got %q", res.Model.FailureReason)
	}
}

func TestEngine_SARIMAImpossibleAfterDifferencing(t *testing.T) {
	engine := NewEngine(8, testClock())

	// 55 points pass the precondition but differencing leaves too few.
	values := seasonalSignal(55, 30, 0.1, 8)
	hist := syntheticHistory(core.YearWeek{Year: 2024, Week: 1}, values)

	res := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure, History: hist})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "differencing") {
		t.Errorf("expected differencing failure text, got %q", res.Model.FailureReason)
	}
}

// blockingStrategy never returns until released, standing in for a fit
// that outlives its timeout.
type blockingStrategy struct {
	release chan struct{}
}

func (b *blockingStrategy) Name() string { return "blocking" }

func (b *blockingStrategy) Fit(series.History, []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor, error) {
	<-b.release
	return nil, analysis.ModelDescriptor{}, nil
}

func TestEngine_ContextCancellationFallsBack(t *testing.T) {
	engine := NewEngine(8, testClock())
	stub := &blockingStrategy{release: make(chan struct{})}
	engine.exposurePrimary = stub
	defer close(stub.release)

	values := seasonalSignal(160, 30, 0.1, 8)
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := engine.Forecast(ctx, Target{Name: "PM2.5", Kind: KindExposure, History: hist})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("canceled fit must fall back, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "aborted") {
		t.Errorf("expected abort reason, got %q", res.Model.FailureReason)
	}
	if len(res.Points) != 8 {
		t.Fatalf("fallback must still fill the horizon, got %d points", len(res.Points))
	}
}

// nanStrategy claims success while emitting an unusable point.
type nanStrategy struct{}

func (nanStrategy) Name() string { return "nan" }

func (nanStrategy) Fit(_ series.History, weeks []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor, error) {
	points := make([]analysis.ForecastPoint, len(weeks))
	for i, yw := range weeks {
		points[i] = analysis.ForecastPoint{Week: yw.Week, Year: yw.Year, Value: 10, CILower: 5, CIUpper: 15}
	}
	points[len(points)-1].Value = math.NaN()
	return points, analysis.ModelDescriptor{Family: analysis.ModelSARIMA}, nil
}

func TestEngine_NonFiniteForecastFallsBack(t *testing.T) {
	engine := NewEngine(8, testClock())
	engine.exposurePrimary = nanStrategy{}

	values := seasonalSignal(160, 30, 0.1, 8)
	hist := syntheticHistory(core.YearWeek{Year: 2022, Week: 1}, values)

	res := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure, History: hist})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback on non-finite output, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "non-finite") {
		t.Errorf("expected non-finite reason, got %q", res.Model.FailureReason)
	}
}

func TestEngine_TruncatesHistoryAtCutoff(t *testing.T) {
	engine := NewEngine(8, testClock())

	// History runs 10 weeks past the clock. After truncation only 30
	// points remain, forcing the fallback despite 40 raw points.
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(20 + i)
	}
	cutoff := core.WeekOf(testNow)
	start := cutoff
	for i := 0; i < 29; i++ {
		start = previousWeek(start)
	}
	hist := syntheticHistory(start, values)

	res := engine.Forecast(context.Background(), Target{Name: "PM2.5", Kind: KindExposure, History: hist})
	if res.Model.Family != analysis.ModelSeasonalFallback {
		t.Fatalf("expected fallback, got %s", res.Model.Family)
	}
	if !strings.Contains(res.Model.FailureReason, "30 weekly points") {
		t.Errorf("expected 30 surviving points in the reason, got %q", res.Model.FailureReason)
	}
}
