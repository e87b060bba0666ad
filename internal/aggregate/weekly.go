package aggregate

import (
	"math"
	"strconv"
	"time"

	"github.com/montanaflynn/stats"

	"airhealth/domain/analysis"
	"airhealth/domain/core"
	"airhealth/domain/series"
	"airhealth/ports"
)

// DefaultGroups is the category list assumed when a case document declares
// none.
var DefaultGroups = []string{"Respiratory", "Cardiovascular", "Skin", "Eye"}

const dateLayout = "2006-01-02"

// Aggregator projects raw observation documents onto a common weekly
// calendar for one target region.
type Aggregator struct {
	targetRegion string
	provinces    []string
}

// New creates an aggregator scoped to one region and its province list.
func New(targetRegion string, provinces []string) *Aggregator {
	return &Aggregator{targetRegion: targetRegion, provinces: provinces}
}

// Result bundles the weekly projections for one year together with the
// declared category order and the drop counters.
type Result struct {
	Exposure    series.WeeklyExposureSeries
	Cases       series.CaseSet
	Groups      []string
	Diagnostics analysis.AggregationDiagnostics
}

// DeclaredGroups resolves the tracked category list from document
// metadata, falling back to the standard group set.
func DeclaredGroups(doc *ports.CaseDocument) []string {
	if doc != nil && len(doc.Metadata.Groups) > 0 {
		return doc.Metadata.Groups
	}
	return DefaultGroups
}

// Aggregate builds the weekly exposure and case series for the target
// year. Weeks with no source data stay absent; rows the aggregator filters
// out are counted in Diagnostics rather than reported as errors.
func (a *Aggregator) Aggregate(exposure *ports.ExposureDocument, cases *ports.CaseDocument, year int) Result {
	groups := DeclaredGroups(cases)
	res := Result{Groups: groups}

	res.Exposure = a.aggregateExposure(exposure, year, &res.Diagnostics)
	res.Cases = a.aggregateCases(cases, year, groups, &res.Diagnostics)

	return res
}

// aggregateExposure averages all in-region readings per ISO week of the
// target year. A week with zero contributing readings gets no entry.
func (a *Aggregator) aggregateExposure(doc *ports.ExposureDocument, year int, diag *analysis.AggregationDiagnostics) series.WeeklyExposureSeries {
	out := series.WeeklyExposureSeries{
		Year:   year,
		Region: a.targetRegion,
		Values: series.WeeklyValues{},
	}
	if doc == nil {
		return out
	}

	weekly := make(map[int][]float64)
	for station, region := range doc.Metadata.StationRegions {
		if region != a.targetRegion {
			continue
		}
		for _, reading := range doc.Data[station] {
			t, err := time.Parse(dateLayout, reading.Date)
			if err != nil {
				diag.DroppedReadings++
				continue
			}
			if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
				diag.DroppedReadings++
				continue
			}
			if t.Year() != year {
				continue
			}
			_, week := t.ISOWeek()
			weekly[week] = append(weekly[week], reading.Value)
		}
	}

	for week, values := range weekly {
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		out.Values[week] = mean
	}
	return out
}

// aggregateCases sums per-category weekly counts across the in-scope
// provinces. The known-week set is built up front from the provinces'
// declared week lists, so every known week starts at an explicit zero and
// absent weeks never appear at all.
func (a *Aggregator) aggregateCases(doc *ports.CaseDocument, year int, groups []string, diag *analysis.AggregationDiagnostics) series.CaseSet {
	out := make(series.CaseSet, len(groups)+1)
	newSeries := func(category string) series.WeeklyCaseSeries {
		return series.WeeklyCaseSeries{Year: year, Category: category, Values: series.WeeklyValues{}}
	}
	out[series.TotalCategory] = newSeries(series.TotalCategory)
	for _, g := range groups {
		out[g] = newSeries(g)
	}
	if doc == nil {
		return out
	}

	declared := make(map[string]bool, len(groups))
	for _, g := range groups {
		declared[g] = true
	}

	yearKey := strconv.Itoa(year)
	type provinceData struct {
		weeks    []int
		diseases map[string][]float64
	}
	var inScope []provinceData

	for _, province := range a.provinces {
		years, ok := doc.Data[province]
		if !ok {
			diag.SkippedProvinces++
			continue
		}
		py, ok := years[yearKey]
		if !ok {
			diag.SkippedProvinces++
			continue
		}
		weeks := py.Weeks
		if len(weeks) == 0 {
			weeks = defaultWeekIndex()
		}
		for category := range py.Diseases {
			// The consolidated store carries its own derived Total row;
			// that is recomputed here, not an ingestion gap.
			if category == series.TotalCategory {
				continue
			}
			if !declared[category] {
				diag.IgnoredCategories++
			}
		}
		inScope = append(inScope, provinceData{weeks: weeks, diseases: py.Diseases})
	}

	// Known weeks first, then accumulation, so "zero cases" and "no data"
	// can never be confused by lazy insertion.
	for _, p := range inScope {
		for _, week := range p.weeks {
			if _, ok := out[series.TotalCategory].Values[week]; ok {
				continue
			}
			out[series.TotalCategory].Values[week] = 0
			for _, g := range groups {
				out[g].Values[week] = 0
			}
		}
	}

	for _, p := range inScope {
		for i, week := range p.weeks {
			for _, g := range groups {
				counts := p.diseases[g]
				if i >= len(counts) {
					continue
				}
				count := counts[i]
				if math.IsNaN(count) || math.IsInf(count, 0) {
					continue
				}
				out[g].Values[week] += count
				out[series.TotalCategory].Values[week] += count
			}
		}
	}

	return out
}

// ExposureHistory builds the full multi-year weekly exposure series for
// forecasting: chronological mean of all in-region readings per ISO week.
func (a *Aggregator) ExposureHistory(doc *ports.ExposureDocument) series.History {
	if doc == nil {
		return nil
	}
	weekly := make(map[core.YearWeek][]float64)
	for station, region := range doc.Metadata.StationRegions {
		if region != a.targetRegion {
			continue
		}
		for _, reading := range doc.Data[station] {
			t, err := time.Parse(dateLayout, reading.Date)
			if err != nil {
				continue
			}
			if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
				continue
			}
			weekly[core.WeekOf(t)] = append(weekly[core.WeekOf(t)], reading.Value)
		}
	}

	hist := make(series.History, 0, len(weekly))
	for yw, values := range weekly {
		mean, err := stats.Mean(values)
		if err != nil {
			continue
		}
		hist = append(hist, series.Observation{Week: yw, Value: mean})
	}
	hist.Sort()
	return hist
}

// CaseHistory builds the full multi-year weekly series for one category,
// summed across the in-scope provinces. The Total category sums every
// declared group.
func (a *Aggregator) CaseHistory(doc *ports.CaseDocument, category string) series.History {
	if doc == nil {
		return nil
	}
	groups := DeclaredGroups(doc)

	weekly := make(map[core.YearWeek]float64)
	for _, province := range a.provinces {
		for yearKey, py := range doc.Data[province] {
			year, err := strconv.Atoi(yearKey)
			if err != nil {
				continue
			}
			weeks := py.Weeks
			if len(weeks) == 0 {
				weeks = defaultWeekIndex()
			}
			for i, week := range weeks {
				var count float64
				if category == series.TotalCategory {
					for _, g := range groups {
						count += countAt(py.Diseases[g], i)
					}
				} else {
					count = countAt(py.Diseases[category], i)
				}
				weekly[core.YearWeek{Year: year, Week: week}] += count
			}
		}
	}

	hist := make(series.History, 0, len(weekly))
	for yw, value := range weekly {
		hist = append(hist, series.Observation{Week: yw, Value: value})
	}
	hist.Sort()
	return hist
}

func countAt(counts []float64, i int) float64 {
	if i < 0 || i >= len(counts) {
		return 0
	}
	c := counts[i]
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return 0
	}
	return c
}

func defaultWeekIndex() []int {
	weeks := make([]int, 53)
	for i := range weeks {
		weeks[i] = i + 1
	}
	return weeks
}
