package series

import (
	"sort"

	"airhealth/domain/core"
)

// TotalCategory is the synthesized category summing all tracked disease groups.
const TotalCategory = "Total"

// WeeklyValues maps an ISO week number to a value for one year.
// Weeks with no source data are absent from the map, never zero.
type WeeklyValues map[int]float64

// Weeks returns the known week numbers in ascending order.
func (v WeeklyValues) Weeks() []int {
	weeks := make([]int, 0, len(v))
	for w := range v {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks
}

// Clone returns a deep copy of the value map.
func (v WeeklyValues) Clone() WeeklyValues {
	out := make(WeeklyValues, len(v))
	for w, val := range v {
		out[w] = val
	}
	return out
}

// CommonWeeks returns the sorted intersection of the week sets of a and b.
// Every statistic pairing two weekly series is restricted to this set.
func CommonWeeks(a, b WeeklyValues) []int {
	common := make([]int, 0, len(a))
	for w := range a {
		if _, ok := b[w]; ok {
			common = append(common, w)
		}
	}
	sort.Ints(common)
	return common
}

// WeeklyExposureSeries holds the region-wide average exposure per ISO week
// for one year.
type WeeklyExposureSeries struct {
	Year   int
	Region string
	Values WeeklyValues
}

// WeeklyCaseSeries holds summed visit counts per ISO week for one disease
// category across the in-scope provinces for one year.
type WeeklyCaseSeries struct {
	Year     int
	Category string
	Values   WeeklyValues
}

// CaseSet groups the weekly case series for one year by disease category.
// TotalCategory is always present once aggregation has run.
type CaseSet map[string]WeeklyCaseSeries

// Total returns the synthesized total series.
func (cs CaseSet) Total() (WeeklyCaseSeries, bool) {
	s, ok := cs[TotalCategory]
	return s, ok
}

// Categories returns the category labels in ascending order.
func (cs CaseSet) Categories() []string {
	names := make([]string, 0, len(cs))
	for name := range cs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Observation is one weekly value in a chronological multi-year series.
type Observation struct {
	Week  core.YearWeek
	Value float64
}

// History is an ascending chronological weekly series spanning multiple
// years, used as forecasting input.
type History []Observation

// Values returns the observation values in series order.
func (h History) Values() []float64 {
	out := make([]float64, len(h))
	for i, obs := range h {
		out[i] = obs.Value
	}
	return out
}

// Last returns the final observation, if any.
func (h History) Last() (Observation, bool) {
	if len(h) == 0 {
		return Observation{}, false
	}
	return h[len(h)-1], true
}

// Truncate drops observations after cutoff, keeping the cutoff week itself.
func (h History) Truncate(cutoff core.YearWeek) History {
	out := make(History, 0, len(h))
	for _, obs := range h {
		if obs.Week == cutoff || obs.Week.Before(cutoff) {
			out = append(out, obs)
		}
	}
	return out
}

// Sort orders the history chronologically in place.
func (h History) Sort() {
	sort.Slice(h, func(i, j int) bool { return h[i].Week.Before(h[j].Week) })
}
