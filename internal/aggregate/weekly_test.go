package aggregate

import (
	"math"
	"testing"
	"time"

	"airhealth/domain/series"
	"airhealth/ports"
)

const testRegion = "เขตสุขภาพที่ 6"

var testProvinces = []string{"ชลบุรี", "ระยอง"}

// week1Monday is an ISO week-1 Monday, so week N of the test year starts
// exactly 7*(N-1) days later.
var week1Monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dateInWeek(week, dayOffset int) string {
	return week1Monday.AddDate(0, 0, (week-1)*7+dayOffset).Format("2006-01-02")
}

func exposureDoc(stations map[string]string, data map[string][]ports.ExposureReading) *ports.ExposureDocument {
	return &ports.ExposureDocument{
		Metadata: ports.ExposureMetadata{StationRegions: stations},
		Data:     data,
	}
}

// ============================================================================
// TEST: Exposure aggregation
// ============================================================================

func TestAggregate_ExposureWeeklyMeans(t *testing.T) {
	// Scenario: two in-region stations, readings spread over two weeks
	doc := exposureDoc(
		map[string]string{"44t": testRegion, "45t": testRegion, "99t": "เขตสุขภาพที่ 4"},
		map[string][]ports.ExposureReading{
			"44t": {
				{Date: dateInWeek(1, 0), Value: 10},
				{Date: dateInWeek(1, 2), Value: 30},
				{Date: dateInWeek(2, 0), Value: 40},
			},
			"45t": {
				{Date: dateInWeek(1, 1), Value: 20},
			},
			// Out-of-region station must not contribute.
			"99t": {
				{Date: dateInWeek(1, 0), Value: 500},
			},
		},
	)

	agg := New(testRegion, testProvinces)
	res := agg.Aggregate(doc, nil, 2024)

	if got := len(res.Exposure.Values); got != 2 {
		t.Fatalf("Expected 2 populated weeks, got %d", got)
	}
	if got := res.Exposure.Values[1]; math.Abs(got-20.0) > 1e-9 {
		t.Errorf("Week 1: expected mean 20.0, got %.4f", got)
	}
	if got := res.Exposure.Values[2]; math.Abs(got-40.0) > 1e-9 {
		t.Errorf("Week 2: expected mean 40.0, got %.4f", got)
	}
	if res.Exposure.Region != testRegion {
		t.Errorf("Expected region %q, got %q", testRegion, res.Exposure.Region)
	}
}

func TestAggregate_ExposureSkipsOtherYears(t *testing.T) {
	doc := exposureDoc(
		map[string]string{"44t": testRegion},
		map[string][]ports.ExposureReading{
			"44t": {
				{Date: "2023-06-15", Value: 80},
				{Date: dateInWeek(3, 0), Value: 25},
			},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(doc, nil, 2024)

	if got := len(res.Exposure.Values); got != 1 {
		t.Fatalf("Expected only the 2024 week, got %d weeks", got)
	}
	if _, ok := res.Exposure.Values[3]; !ok {
		t.Error("Expected week 3 to be populated")
	}
	if res.Diagnostics.DroppedReadings != 0 {
		t.Errorf("Other-year readings are filtered, not dropped; got %d drops", res.Diagnostics.DroppedReadings)
	}
}

func TestAggregate_MalformedDatesDropped(t *testing.T) {
	doc := exposureDoc(
		map[string]string{"44t": testRegion},
		map[string][]ports.ExposureReading{
			"44t": {
				{Date: "not-a-date", Value: 10},
				{Date: "2024-13-40", Value: 10},
				{Date: dateInWeek(1, 0), Value: 12},
			},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(doc, nil, 2024)

	if res.Diagnostics.DroppedReadings != 2 {
		t.Errorf("Expected 2 dropped readings, got %d", res.Diagnostics.DroppedReadings)
	}
	if got := res.Exposure.Values[1]; math.Abs(got-12.0) > 1e-9 {
		t.Errorf("Valid reading should survive: expected 12.0, got %.4f", got)
	}
}

func TestAggregate_EmptyWeeksAbsentNotZero(t *testing.T) {
	doc := exposureDoc(
		map[string]string{"44t": testRegion},
		map[string][]ports.ExposureReading{
			"44t": {{Date: dateInWeek(5, 0), Value: 33}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(doc, nil, 2024)

	if _, ok := res.Exposure.Values[4]; ok {
		t.Error("Week 4 has no readings and must be absent, not zero")
	}
	weeks := res.Exposure.Values.Weeks()
	if len(weeks) != 1 || weeks[0] != 5 {
		t.Errorf("Expected weeks [5], got %v", weeks)
	}
}

// ============================================================================
// TEST: Case aggregation
// ============================================================================

func caseDoc(groups []string, data map[string]map[string]ports.ProvinceYear) *ports.CaseDocument {
	return &ports.CaseDocument{
		Metadata: ports.CaseMetadata{Groups: groups},
		Data:     data,
	}
}

func TestAggregate_CaseAccumulationAcrossProvinces(t *testing.T) {
	// Scenario: two provinces report overlapping weeks; counts must sum
	// into each category and into Total.
	doc := caseDoc(
		[]string{"Respiratory", "Skin"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks: []int{1, 2},
				Diseases: map[string][]float64{
					"Respiratory": {4, 6},
					"Skin":        {1, 2},
				},
			}},
			"ระยอง": {"2024": {
				Weeks: []int{2, 3},
				Diseases: map[string][]float64{
					"Respiratory": {10, 20},
					"Skin":        {3, 5},
				},
			}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	total := res.Cases[series.TotalCategory].Values
	if got := total[1]; got != 5 {
		t.Errorf("Total week 1: expected 5, got %.1f", got)
	}
	if got := total[2]; got != 21 {
		t.Errorf("Total week 2: expected 8+13=21, got %.1f", got)
	}
	if got := total[3]; got != 25 {
		t.Errorf("Total week 3: expected 25, got %.1f", got)
	}

	resp := res.Cases["Respiratory"].Values
	if got := resp[2]; got != 16 {
		t.Errorf("Respiratory week 2: expected 6+10=16, got %.1f", got)
	}
	if got := len(res.Groups); got != 2 {
		t.Errorf("Expected 2 declared groups, got %d", got)
	}
}

func TestAggregate_ProvinceWithoutYearSkipped(t *testing.T) {
	doc := caseDoc(
		[]string{"Respiratory"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks:    []int{1},
				Diseases: map[string][]float64{"Respiratory": {7}},
			}},
			// ระยอง has data only for another year.
			"ระยอง": {"2023": {
				Weeks:    []int{1},
				Diseases: map[string][]float64{"Respiratory": {99}},
			}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	if res.Diagnostics.SkippedProvinces != 1 {
		t.Errorf("Expected 1 skipped province, got %d", res.Diagnostics.SkippedProvinces)
	}
	if got := res.Cases[series.TotalCategory].Values[1]; got != 7 {
		t.Errorf("Expected only in-year counts, got %.1f", got)
	}
}

func TestAggregate_UndeclaredCategoryIgnored(t *testing.T) {
	doc := caseDoc(
		[]string{"Respiratory"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks: []int{1},
				Diseases: map[string][]float64{
					"Respiratory": {3},
					"Dental":      {50},
				},
			}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	if res.Diagnostics.IgnoredCategories != 1 {
		t.Errorf("Expected 1 ignored category, got %d", res.Diagnostics.IgnoredCategories)
	}
	if _, ok := res.Cases["Dental"]; ok {
		t.Error("Undeclared category must not appear in the case set")
	}
	if got := res.Cases[series.TotalCategory].Values[1]; got != 3 {
		t.Errorf("Total must exclude undeclared categories: expected 3, got %.1f", got)
	}
}

func TestAggregate_StoredTotalIsNotAnIgnoredCategory(t *testing.T) {
	// Consolidated case stores ship a derived Total row alongside the
	// declared groups. It must neither double-count nor pollute the
	// ignored-category diagnostic.
	doc := caseDoc(
		[]string{"Respiratory"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks: []int{1},
				Diseases: map[string][]float64{
					"Respiratory": {3},
					"Total":       {3},
				},
			}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	if res.Diagnostics.IgnoredCategories != 0 {
		t.Errorf("Stored Total must not count as ignored, got %d", res.Diagnostics.IgnoredCategories)
	}
	if got := res.Cases[series.TotalCategory].Values[1]; got != 3 {
		t.Errorf("Total must be recomputed, not doubled: expected 3, got %.1f", got)
	}
}

func TestAggregate_KnownWeeksStartAtZero(t *testing.T) {
	// Scenario: a week is declared but one category's count array is too
	// short. The week must still exist with an explicit zero.
	doc := caseDoc(
		[]string{"Respiratory", "Skin"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks: []int{1, 2, 3},
				Diseases: map[string][]float64{
					"Respiratory": {5, 5, 5},
					"Skin":        {2}, // truncated
				},
			}},
		},
	)

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	skin := res.Cases["Skin"].Values
	if got, ok := skin[3]; !ok || got != 0 {
		t.Errorf("Declared week with missing count must be zero: got %v (present=%v)", got, ok)
	}
	if got := res.Cases[series.TotalCategory].Values[3]; got != 5 {
		t.Errorf("Total week 3: expected 5, got %.1f", got)
	}
	if _, ok := skin[4]; ok {
		t.Error("Undeclared week 4 must stay absent")
	}
}

func TestAggregate_DefaultGroupsWhenUndeclared(t *testing.T) {
	doc := caseDoc(nil, map[string]map[string]ports.ProvinceYear{
		"ชลบุรี": {"2024": {
			Weeks:    []int{1},
			Diseases: map[string][]float64{"Respiratory": {2}, "Eye": {1}},
		}},
	})

	res := New(testRegion, testProvinces).Aggregate(nil, doc, 2024)

	if len(res.Groups) != len(DefaultGroups) {
		t.Fatalf("Expected default group list, got %v", res.Groups)
	}
	if got := res.Cases[series.TotalCategory].Values[1]; got != 3 {
		t.Errorf("Total week 1: expected 3, got %.1f", got)
	}
	if got := res.Cases["Cardiovascular"].Values[1]; got != 0 {
		t.Errorf("Declared-but-unreported group must read zero, got %.1f", got)
	}
}

// ============================================================================
// TEST: Multi-year histories
// ============================================================================

func TestExposureHistory_ChronologicalAcrossYears(t *testing.T) {
	doc := exposureDoc(
		map[string]string{"44t": testRegion},
		map[string][]ports.ExposureReading{
			"44t": {
				{Date: "2024-01-08", Value: 30}, // 2024-W02
				{Date: "2023-01-02", Value: 10}, // 2023-W01
				{Date: "2023-01-03", Value: 20}, // 2023-W01
			},
		},
	)

	hist := New(testRegion, testProvinces).ExposureHistory(doc)

	if len(hist) != 2 {
		t.Fatalf("Expected 2 weekly points, got %d", len(hist))
	}
	if hist[0].Week.Year != 2023 || hist[0].Week.Week != 1 {
		t.Errorf("Expected first point 2023-W01, got %s", hist[0].Week)
	}
	if math.Abs(hist[0].Value-15.0) > 1e-9 {
		t.Errorf("2023-W01 mean: expected 15.0, got %.4f", hist[0].Value)
	}
	if hist[1].Week.Year != 2024 || hist[1].Week.Week != 2 {
		t.Errorf("Expected second point 2024-W02, got %s", hist[1].Week)
	}
}

func TestCaseHistory_TotalSumsDeclaredGroups(t *testing.T) {
	doc := caseDoc(
		[]string{"Respiratory", "Skin"},
		map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {
				"2023": {
					Weeks:    []int{52},
					Diseases: map[string][]float64{"Respiratory": {8}, "Skin": {2}},
				},
				"2024": {
					Weeks:    []int{1},
					Diseases: map[string][]float64{"Respiratory": {4}, "Skin": {1}},
				},
			},
			"ระยอง": {
				"2024": {
					Weeks:    []int{1},
					Diseases: map[string][]float64{"Respiratory": {6}, "Skin": {3}},
				},
			},
		},
	)

	agg := New(testRegion, testProvinces)

	total := agg.CaseHistory(doc, series.TotalCategory)
	if len(total) != 2 {
		t.Fatalf("Expected 2 weekly points, got %d", len(total))
	}
	if total[0].Week.Year != 2023 || total[0].Value != 10 {
		t.Errorf("2023-W52 total: expected 10, got %.1f at %s", total[0].Value, total[0].Week)
	}
	if total[1].Week.Year != 2024 || total[1].Value != 14 {
		t.Errorf("2024-W01 total: expected 4+1+6+3=14, got %.1f", total[1].Value)
	}

	skin := agg.CaseHistory(doc, "Skin")
	if skin[1].Value != 4 {
		t.Errorf("2024-W01 skin: expected 1+3=4, got %.1f", skin[1].Value)
	}
}
