package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/jonboulle/clockwork"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
)

// seasonalPeriod is the weekly cycle length shared by every model here.
// Output week labels follow the same 52-week convention when they wrap
// into the next year.
const seasonalPeriod = 52

// MinHistoryWeeks is the shortest history any statistical model may be
// fit on. Shorter histories go straight to the deterministic fallback.
const MinHistoryWeeks = 52

// Fallback baselines per target kind.
const (
	FallbackExposureBase = 30.0
	FallbackCaseBase     = 100.0
)

// Kind selects the primary model family and the output rounding rules
// for a forecast target.
type Kind int

const (
	KindExposure Kind = iota
	KindCases
)

// Target is one series to forecast: the exposure average or a single
// disease category's weekly counts.
type Target struct {
	Name    string
	Kind    Kind
	History series.History
}

// Strategy fits one model family and produces labeled forecast points.
// Implementations are pure: same history and labels, same output.
type Strategy interface {
	Name() string
	Fit(history series.History, weeks []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor, error)
}

// Engine runs the primary-then-fallback strategy chain for each target.
// There is no blending: the first strategy to succeed owns the result,
// and the descriptor records which one that was.
type Engine struct {
	horizon          int
	clock            clockwork.Clock
	exposurePrimary  Strategy
	casesPrimary     Strategy
	exposureFallback *SeasonalFallback
	casesFallback    *SeasonalFallback
}

// NewEngine creates a forecast engine producing horizon weekly points per
// target. The clock fixes the "current week" baseline so results are
// reproducible under test.
func NewEngine(horizon int, clock clockwork.Clock) *Engine {
	return &Engine{
		horizon:          horizon,
		clock:            clock,
		exposurePrimary:  NewSARIMAStrategy(),
		casesPrimary:     NewHoltWintersStrategy(),
		exposureFallback: NewSeasonalFallback(FallbackExposureBase),
		casesFallback:    NewSeasonalFallback(FallbackCaseBase),
	}
}

// Forecast produces the horizon-week projection for one target. History
// is truncated at the target's reporting cutoff first; case series are
// evaluated one week behind exposure to model surveillance lag. The
// context bounds fit time: on cancellation the engine falls back rather
// than blocking the caller.
func (e *Engine) Forecast(ctx context.Context, target Target) analysis.ForecastResult {
	cutoff := e.cutoff(target.Kind)
	hist := target.History.Truncate(cutoff)
	weeks := nextWeeks(cutoff, e.horizon)

	points, desc := e.run(ctx, target.Kind, hist, weeks)
	finalize(target.Kind, points)

	return analysis.ForecastResult{
		Target:       target.Name,
		Points:       points,
		Model:        desc,
		BaselineWeek: cutoff.Week,
		BaselineYear: cutoff.Year,
	}
}

// cutoff is the last week a target's history may contribute through.
func (e *Engine) cutoff(kind Kind) core.YearWeek {
	now := core.WeekOf(e.clock.Now().UTC())
	if kind == KindCases {
		return previousWeek(now)
	}
	return now
}

func (e *Engine) run(ctx context.Context, kind Kind, hist series.History, weeks []core.YearWeek) ([]analysis.ForecastPoint, analysis.ModelDescriptor) {
	fallback := e.fallbackFor(kind)

	if len(hist) < MinHistoryWeeks {
		reason := fmt.Sprintf("insufficient history: %d weekly points, need %d", len(hist), MinHistoryWeeks)
		return fallback.Forecast(weeks, reason)
	}

	primary := e.primaryFor(kind)

	type outcome struct {
		points []analysis.ForecastPoint
		desc   analysis.ModelDescriptor
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		points, desc, err := primary.Fit(hist, weeks)
		ch <- outcome{points: points, desc: desc, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return fallback.Forecast(weeks, out.err.Error())
		}
		if !pointsFinite(out.points) {
			return fallback.Forecast(weeks, fmt.Sprintf("%s produced non-finite forecasts", primary.Name()))
		}
		return out.points, out.desc
	case <-ctx.Done():
		// The abandoned fit finishes on its own iteration cap; its
		// result is discarded.
		return fallback.Forecast(weeks, fmt.Sprintf("%s fit aborted: %v", primary.Name(), ctx.Err()))
	}
}

func (e *Engine) primaryFor(kind Kind) Strategy {
	if kind == KindCases {
		return e.casesPrimary
	}
	return e.exposurePrimary
}

func (e *Engine) fallbackFor(kind Kind) *SeasonalFallback {
	if kind == KindCases {
		return e.casesFallback
	}
	return e.exposureFallback
}

// finalize applies the per-kind display rules: exposure keeps two
// decimals, case counts are whole and never negative.
func finalize(kind Kind, points []analysis.ForecastPoint) {
	for i := range points {
		p := &points[i]
		if kind == KindCases {
			p.Value = math.Max(0, math.Round(p.Value))
			p.CILower = math.Max(0, math.Round(p.CILower))
			p.CIUpper = math.Max(0, math.Round(p.CIUpper))
			continue
		}
		p.Value = roundTo(p.Value, 2)
		p.CILower = roundTo(p.CILower, 2)
		p.CIUpper = roundTo(p.CIUpper, 2)
	}
}

// nextWeeks lists the n week labels following from, wrapping week>52 to
// week 1 of the next year.
func nextWeeks(from core.YearWeek, n int) []core.YearWeek {
	out := make([]core.YearWeek, n)
	week, year := from.Week, from.Year
	for i := range out {
		week++
		if week > seasonalPeriod {
			week = 1
			year++
		}
		out[i] = core.YearWeek{Year: year, Week: week}
	}
	return out
}

func previousWeek(yw core.YearWeek) core.YearWeek {
	if yw.Week <= 1 {
		return core.YearWeek{Year: yw.Year - 1, Week: seasonalPeriod}
	}
	return core.YearWeek{Year: yw.Year, Week: yw.Week - 1}
}

func pointsFinite(points []analysis.ForecastPoint) bool {
	for _, p := range points {
		if !finiteAll(p.Value, p.CILower, p.CIUpper) {
			return false
		}
	}
	return true
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
