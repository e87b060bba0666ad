package testkit

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"airhealth/domain/analysis"
	"airhealth/ports"
)

// ObservationConfig configures the synthetic observation generator.
type ObservationConfig struct {
	Region       string   `json:"region"`
	Provinces    []string `json:"provinces"`
	StationCount int      `json:"station_count"`
	Years        []int    `json:"years"`
	BaseExposure float64  `json:"base_exposure"`  // seasonal mean level
	Amplitude    float64  `json:"amplitude"`      // seasonal swing around the base
	CaseLagWeeks int      `json:"case_lag_weeks"` // weeks case counts trail exposure
	CasesPerUnit float64  `json:"cases_per_unit"` // case response per exposure unit
	NoiseLevel   float64  `json:"noise_level"`    // relative jitter on both series
	Seed         int64    `json:"seed"`
}

// DefaultObservationConfig returns two years of plausible upper-gulf data:
// a dry-season exposure peak and case counts trailing it by two weeks.
func DefaultObservationConfig() ObservationConfig {
	return ObservationConfig{
		Region:       "เขตสุขภาพที่ 6",
		Provinces:    []string{"ชลบุรี", "ระยอง"},
		StationCount: 4,
		Years:        []int{2024, 2025},
		BaseExposure: 32,
		Amplitude:    14,
		CaseLagWeeks: 2,
		CasesPerUnit: 3.5,
		NoiseLevel:   0.1,
		Seed:         42,
	}
}

// Case share of each declared group in the synthetic totals.
var groupShares = map[string]float64{
	"Respiratory":    0.45,
	"Cardiovascular": 0.25,
	"Skin":           0.18,
	"Eye":            0.12,
}

var groupOrder = []string{"Respiratory", "Cardiovascular", "Skin", "Eye"}

const weeksPerYear = 52

// ObservationGenerator produces deterministic observation documents shaped
// exactly like the ETL output. Case series are derived from the exposure
// signal with a configurable lag, so correlation and lag scans over the
// output recover known answers.
type ObservationGenerator struct {
	config ObservationConfig
	rng    *rand.Rand
}

// NewObservationGenerator creates a generator seeded from the config.
func NewObservationGenerator(config ObservationConfig) *ObservationGenerator {
	return &ObservationGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Documents generates both observation documents from one shared weekly
// signal. Calling it twice on one generator advances the RNG; build a fresh
// generator for reproducible output.
func (g *ObservationGenerator) Documents() (*ports.ExposureDocument, *ports.CaseDocument) {
	signal := g.weeklySignal()
	exposure := g.exposureDocument(signal)
	cases := g.caseDocument(signal)
	return exposure, cases
}

// Source wraps one generated document pair as an observation source for
// dev mode and tests that need the port rather than raw documents.
func (g *ObservationGenerator) Source() ports.ObservationSource {
	exposure, cases := g.Documents()
	return &StaticSource{ExposureDoc: exposure, CaseDoc: cases}
}

// weeklySignal lays out the exposure level for every generated week in
// chronological order: a yearly cycle peaking in the burning season around
// week 6, plus noise.
func (g *ObservationGenerator) weeklySignal() []float64 {
	total := len(g.config.Years) * weeksPerYear
	signal := make([]float64, total)
	for i := range signal {
		week := i%weeksPerYear + 1
		seasonal := g.config.BaseExposure + g.config.Amplitude*math.Cos(2*math.Pi*float64(week-6)/52)
		jitter := 1 + g.config.NoiseLevel*g.rng.NormFloat64()
		value := seasonal * jitter
		if value < 1 {
			value = 1
		}
		signal[i] = value
	}
	return signal
}

func (g *ObservationGenerator) exposureDocument(signal []float64) *ports.ExposureDocument {
	doc := &ports.ExposureDocument{
		Metadata: ports.ExposureMetadata{
			StationNames:     make(map[string]string),
			StationProvinces: make(map[string]string),
			StationRegions:   make(map[string]string),
		},
		Data: make(map[string][]ports.ExposureReading),
	}

	codes := make([]string, g.config.StationCount)
	for i := range codes {
		code := fmt.Sprintf("%02dt", 30+i)
		codes[i] = code
		doc.Metadata.Stations = append(doc.Metadata.Stations, code)
		doc.Metadata.StationNames[code] = fmt.Sprintf("Station %02d", i+1)
		doc.Metadata.StationProvinces[code] = g.config.Provinces[i%len(g.config.Provinces)]
		doc.Metadata.StationRegions[code] = g.config.Region
	}

	for yi, year := range g.config.Years {
		for week := 1; week <= weeksPerYear; week++ {
			target := signal[yi*weeksPerYear+week-1]
			monday := isoWeekStart(year, week)
			for day := 0; day < 7; day++ {
				date := monday.AddDate(0, 0, day).Format("2006-01-02")
				for _, code := range codes {
					value := target * (1 + g.config.NoiseLevel*0.5*g.rng.NormFloat64())
					if value < 0.5 {
						value = 0.5
					}
					doc.Data[code] = append(doc.Data[code], ports.ExposureReading{
						Date:  date,
						Value: math.Round(value*100) / 100,
					})
				}
			}
		}
	}

	first := isoWeekStart(g.config.Years[0], 1)
	last := isoWeekStart(g.config.Years[len(g.config.Years)-1], weeksPerYear).AddDate(0, 0, 6)
	doc.Metadata.MinDate = first.Format("2006-01-02")
	doc.Metadata.MaxDate = last.Format("2006-01-02")

	return doc
}

func (g *ObservationGenerator) caseDocument(signal []float64) *ports.CaseDocument {
	doc := &ports.CaseDocument{
		Metadata: ports.CaseMetadata{
			Description: "synthetic weekly surveillance counts",
			Source:      "testkit",
			Groups:      append([]string(nil), groupOrder...),
		},
		Data: make(map[string]map[string]ports.ProvinceYear),
	}

	provinceWeight := 1.0 / float64(len(g.config.Provinces))

	for _, province := range g.config.Provinces {
		doc.Data[province] = make(map[string]ports.ProvinceYear)
		for yi, year := range g.config.Years {
			weeks := make([]int, weeksPerYear)
			diseases := make(map[string][]float64, len(groupOrder))
			for _, group := range groupOrder {
				diseases[group] = make([]float64, weeksPerYear)
			}

			for week := 1; week <= weeksPerYear; week++ {
				weeks[week-1] = week

				// Cases respond to the exposure level CaseLagWeeks earlier.
				idx := yi*weeksPerYear + week - 1 - g.config.CaseLagWeeks
				if idx < 0 {
					idx = 0
				}
				driver := signal[idx] * g.config.CasesPerUnit * provinceWeight

				for _, group := range groupOrder {
					jitter := 1 + g.config.NoiseLevel*g.rng.NormFloat64()
					count := math.Round(driver * groupShares[group] * jitter)
					if count < 0 {
						count = 0
					}
					diseases[group][week-1] = count
				}
			}

			doc.Data[province][fmt.Sprintf("%d", year)] = ports.ProvinceYear{
				Weeks:    weeks,
				Diseases: diseases,
			}
		}
	}

	return doc
}

// isoWeekStart returns the Monday of the given ISO week.
func isoWeekStart(year, week int) time.Time {
	// January 4 is always inside ISO week 1.
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	firstMonday := jan4.AddDate(0, 0, 1-weekday)
	return firstMonday.AddDate(0, 0, (week-1)*7)
}

// StaticSource serves fixed documents through the observation port.
type StaticSource struct {
	ExposureDoc *ports.ExposureDocument
	CaseDoc     *ports.CaseDocument
	ExposureErr error
	CaseErr     error
}

var _ ports.ObservationSource = (*StaticSource)(nil)

func (s *StaticSource) Exposure(ctx context.Context) (*ports.ExposureDocument, error) {
	if s.ExposureErr != nil {
		return nil, s.ExposureErr
	}
	return s.ExposureDoc, nil
}

func (s *StaticSource) Cases(ctx context.Context) (*ports.CaseDocument, error) {
	if s.CaseErr != nil {
		return nil, s.CaseErr
	}
	return s.CaseDoc, nil
}

// MemoryCache implements BundleCache with in-memory slots. Like the file
// cache, every Get hands out an independent copy of the slot.
type MemoryCache struct {
	mu    sync.RWMutex
	slots map[int]analysis.AnalysisBundle

	GetErr error
	PutErr error
}

var _ ports.BundleCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{slots: make(map[int]analysis.AnalysisBundle)}
}

func (c *MemoryCache) Get(ctx context.Context, year int) (*analysis.AnalysisBundle, error) {
	if c.GetErr != nil {
		return nil, c.GetErr
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	bundle, ok := c.slots[year]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	out := bundle
	return &out, nil
}

func (c *MemoryCache) Put(ctx context.Context, bundle *analysis.AnalysisBundle) error {
	if c.PutErr != nil {
		return c.PutErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[bundle.Year] = *bundle
	return nil
}

func (c *MemoryCache) Years(ctx context.Context) ([]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	years := make([]int, 0, len(c.slots))
	for year := range c.slots {
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}
