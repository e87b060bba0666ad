package etl

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"airhealth/domain/series"
	"airhealth/internal"
	"airhealth/ports"
)

const weekCount = 53

// caseGroups maps the surveillance export's ICD row labels into the
// disease categories the store declares. Matching is by substring so
// row labels with extra qualifiers still land in the right bucket.
var caseGroups = []struct {
	name     string
	patterns []string
}{
	{"Respiratory", []string{
		"Chronic obstructive pulmonary disease (J44)",
		"Acute asthma (J45)",
		"Acute asthma (J44.2)",
	}},
	{"Cardiovascular", []string{
		"Acute ischemic heart diseases (I21)",
		"Other acute ischemic heart diseases (I24)",
		"Subsequent ST elevation (STEMI) and non-ST elevation (NSTEMI) myocardial infarction (I22)",
	}},
	{"Skin/Eye", []string{
		"Conjunctivitis (H10)",
		"Eczema (L30.9)",
		"Urticaria (L50)",
	}},
}

var (
	beYearPattern  = regexp.MustCompile(`\d{4}`)
	weekColPattern = regexp.MustCompile(`^w_(\d{2})_m$`)
)

// CaseConsolidator folds a directory of weekly surveillance CSVs, one
// per province and Buddhist-era year, into the normalized case store.
// Rows outside the tracked ICD groups are skipped; counts accumulate
// per week into their category and into the derived Total row.
type CaseConsolidator struct {
	dir    string
	logger *internal.Logger
}

// NewCaseConsolidator creates a consolidator over a CSV directory.
func NewCaseConsolidator(dir string, logger *internal.Logger) *CaseConsolidator {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &CaseConsolidator{dir: dir, logger: logger}
}

// Consolidate reads every CSV and assembles the case document. Files
// with unparsable names or contents are logged and skipped; the build
// fails only when no province data survives at all.
func (c *CaseConsolidator) Consolidate() (*ports.CaseDocument, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list case exports: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no case exports found in %s", c.dir)
	}

	data := make(map[string]map[string]ports.ProvinceYear)
	for _, path := range files {
		name := filepath.Base(path)
		province, year, ok := parseCaseFilename(name)
		if !ok {
			c.logger.Warn("Skipping %s: name does not follow <province>_<BE year>.csv", name)
			continue
		}
		if err := c.readFile(path, ensureProvinceYear(data, province, strconv.Itoa(year))); err != nil {
			c.logger.Warn("Skipping %s: %v", name, err)
			continue
		}
		c.logger.Info("Read %s: province %s, year %d", name, province, year)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("no usable case exports in %s", c.dir)
	}

	groups := make([]string, len(caseGroups))
	for i, g := range caseGroups {
		groups[i] = g.name
	}
	return &ports.CaseDocument{
		Metadata: ports.CaseMetadata{
			Description: "Weekly health data aggregated by province and disease group",
			Source:      "HDC",
			Groups:      groups,
		},
		Data: data,
	}, nil
}

// parseCaseFilename splits "<province>_<BE year>.csv" into province and
// CE year. The province may itself contain underscores (the year is the
// last segment), and the "csv.csv" double extension seen in real
// exports is tolerated.
func parseCaseFilename(name string) (string, int, bool) {
	clean := strings.ReplaceAll(name, "csv.csv", ".csv")
	clean = strings.TrimSuffix(clean, ".csv")
	idx := strings.LastIndex(clean, "_")
	if idx <= 0 {
		return "", 0, false
	}
	digits := beYearPattern.FindString(clean[idx+1:])
	if digits == "" {
		return "", 0, false
	}
	be, err := strconv.Atoi(digits)
	if err != nil {
		return "", 0, false
	}
	return clean[:idx], be - 543, true
}

func (c *CaseConsolidator) readFile(path string, target ports.ProvinceYear) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open export: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	if len(rows) < 2 {
		return fmt.Errorf("export has no data rows")
	}
	if len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}

	groupCol := -1
	weekCols := make(map[int]int, weekCount) // week number -> column index
	for j, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "group_name" {
			groupCol = j
			continue
		}
		if m := weekColPattern.FindStringSubmatch(h); m != nil {
			week, _ := strconv.Atoi(m[1])
			if week >= 1 && week <= weekCount {
				weekCols[week] = j
			}
		}
	}
	if groupCol < 0 {
		return fmt.Errorf("export has no group_name column")
	}
	if len(weekCols) == 0 {
		return fmt.Errorf("export has no weekly count columns")
	}

	for _, row := range rows[1:] {
		category, ok := categoryFor(cellAt(row, groupCol))
		if !ok {
			continue
		}
		for week, col := range weekCols {
			val := parseCount(cellAt(row, col))
			target.Diseases[category][week-1] += val
			target.Diseases[series.TotalCategory][week-1] += val
		}
	}
	return nil
}

// ensureProvinceYear returns the accumulation target for one province
// and year, creating the zeroed 53-week structure on first sight so a
// province split across several exports keeps accumulating.
func ensureProvinceYear(data map[string]map[string]ports.ProvinceYear, province, yearKey string) ports.ProvinceYear {
	years, ok := data[province]
	if !ok {
		years = make(map[string]ports.ProvinceYear)
		data[province] = years
	}
	py, ok := years[yearKey]
	if !ok {
		weeks := make([]int, weekCount)
		for i := range weeks {
			weeks[i] = i + 1
		}
		diseases := make(map[string][]float64, len(caseGroups)+1)
		for _, g := range caseGroups {
			diseases[g.name] = make([]float64, weekCount)
		}
		diseases[series.TotalCategory] = make([]float64, weekCount)
		py = ports.ProvinceYear{Weeks: weeks, Diseases: diseases}
		years[yearKey] = py
	}
	return py
}

func categoryFor(groupName string) (string, bool) {
	for _, g := range caseGroups {
		for _, pattern := range g.patterns {
			if strings.Contains(groupName, pattern) {
				return g.name, true
			}
		}
	}
	return "", false
}

// parseCount reads one weekly count cell. Blanks, thousands separators
// and garbage all coerce the way the upstream exports expect: anything
// unusable counts as zero.
func parseCount(cell string) float64 {
	cell = strings.ReplaceAll(cell, ",", "")
	if cell == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
