package etl

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"airhealth/internal"
	"airhealth/ports"
)

const dateLayout = "2006-01-02"

// Station metadata lives on a dedicated sheet of the measurement
// workbooks. The sheet has preamble rows above the real header, so the
// header row is located by its station-code cell rather than by position.
const (
	stationSheet     = "รายละเอียดจุดตรวจวัด"
	stationCodeCell  = "รหัสสถานี"
	stationAddrCell  = "ชื่อสถานี"
	stationPlaceCell = "รายละเอียดจุดติดตั้งสถานี"
)

// dateLayouts covers the cell formats seen across the measurement
// workbooks: ISO dates, ISO timestamps, slashed dates, and the m-d-yy
// form excelize renders for natively typed date cells.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"1/2/2006",
	"1-2-06",
	"2006/01/02",
}

// ExposureConsolidator folds a directory of yearly measurement workbooks
// (first sheet: a date column plus one column per station) into the
// normalized exposure store. Malformed dates and non-numeric cells are
// dropped, values keep one decimal place, and station metadata is taken
// from the newest workbook that carries the station sheet.
type ExposureConsolidator struct {
	dir    string
	logger *internal.Logger
}

// NewExposureConsolidator creates a consolidator over a workbook directory.
func NewExposureConsolidator(dir string, logger *internal.Logger) *ExposureConsolidator {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &ExposureConsolidator{dir: dir, logger: logger}
}

// Consolidate reads every workbook and assembles the exposure document.
// A workbook that cannot be read is logged and skipped; the build fails
// only when no usable readings survive at all.
func (c *ExposureConsolidator) Consolidate() (*ports.ExposureDocument, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("failed to list measurement workbooks: %w", err)
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no measurement workbooks found in %s", c.dir)
	}

	readings := make(map[string][]ports.ExposureReading)
	var minDate, maxDate time.Time

	for _, path := range files {
		kept, dropped, err := c.readWorkbook(path, readings, &minDate, &maxDate)
		if err != nil {
			c.logger.Warn("Skipping workbook %s: %v", filepath.Base(path), err)
			continue
		}
		c.logger.Info("Read %s: %d readings kept, %d cells dropped", filepath.Base(path), kept, dropped)
	}

	if len(readings) == 0 {
		return nil, fmt.Errorf("no usable readings in %s", c.dir)
	}

	stations := make([]string, 0, len(readings))
	for station := range readings {
		stations = append(stations, station)
	}
	sort.Strings(stations)
	for _, station := range stations {
		rs := readings[station]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Date < rs[j].Date })
	}

	names, provinces := c.stationMetadata(files)
	regions := make(map[string]string, len(provinces))
	for station, province := range provinces {
		regions[station] = RegionFor(province)
	}

	return &ports.ExposureDocument{
		Metadata: ports.ExposureMetadata{
			MinDate:          minDate.Format(dateLayout),
			MaxDate:          maxDate.Format(dateLayout),
			Stations:         stations,
			StationNames:     names,
			StationProvinces: provinces,
			StationRegions:   regions,
		},
		Data: readings,
	}, nil
}

// readWorkbook appends one workbook's readings. Returns counts of kept
// readings and dropped cells (bad dates, unparsable values).
func (c *ExposureConsolidator) readWorkbook(path string, readings map[string][]ports.ExposureReading, minDate, maxDate *time.Time) (int, int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return 0, 0, fmt.Errorf("sheet %s has no data rows", sheets[0])
	}

	dateCol, stationCols, err := measurementColumns(rows[0])
	if err != nil {
		return 0, 0, err
	}

	kept, dropped := 0, 0
	for _, row := range rows[1:] {
		t, ok := parseDate(cellAt(row, dateCol))
		if !ok {
			dropped++
			continue
		}
		date := t.Format(dateLayout)
		if minDate.IsZero() || t.Before(*minDate) {
			*minDate = t
		}
		if maxDate.IsZero() || t.After(*maxDate) {
			*maxDate = t
		}

		for col, station := range stationCols {
			raw := cellAt(row, col)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				dropped++
				continue
			}
			readings[station] = append(readings[station], ports.ExposureReading{
				Date:  date,
				Value: math.Round(v*10) / 10,
			})
			kept++
		}
	}
	return kept, dropped, nil
}

// measurementColumns locates the date column (exact "Date" first, then
// any header containing "date") and maps the remaining headers to
// station identifiers.
func measurementColumns(header []string) (int, map[int]string, error) {
	dateCol := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "Date" {
			dateCol = i
			break
		}
	}
	if dateCol < 0 {
		for i, h := range header {
			if strings.Contains(strings.ToLower(h), "date") {
				dateCol = i
				break
			}
		}
	}
	if dateCol < 0 {
		return 0, nil, fmt.Errorf("no date column in header")
	}

	stationCols := make(map[int]string)
	for i, h := range header {
		if i == dateCol {
			continue
		}
		station := strings.TrimSpace(h)
		if station == "" {
			continue
		}
		stationCols[i] = station
	}
	if len(stationCols) == 0 {
		return 0, nil, fmt.Errorf("no station columns in header")
	}
	return dateCol, stationCols, nil
}

// stationMetadata extracts station names and provinces from the newest
// workbook carrying the station sheet. Missing metadata degrades to
// empty maps so the readings still consolidate.
func (c *ExposureConsolidator) stationMetadata(files []string) (map[string]string, map[string]string) {
	for i := len(files) - 1; i >= 0; i-- {
		names, provinces, err := readStationSheet(files[i])
		if err != nil {
			c.logger.Debug("No station metadata in %s: %v", filepath.Base(files[i]), err)
			continue
		}
		c.logger.Info("Station metadata from %s: %d stations", filepath.Base(files[i]), len(names))
		return names, provinces
	}
	c.logger.Warn("No workbook carries the station metadata sheet; stations will have no region labels")
	return map[string]string{}, map[string]string{}
}

func readStationSheet(path string) (map[string]string, map[string]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(stationSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read station sheet: %w", err)
	}

	codeCol, addrCol, placeCol := -1, -1, -1
	headerIdx := -1
	for i, row := range rows {
		for j, cell := range row {
			switch strings.TrimSpace(cell) {
			case stationCodeCell:
				codeCol = j
				headerIdx = i
			case stationAddrCell:
				addrCol = j
			case stationPlaceCell:
				placeCol = j
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 || codeCol < 0 || addrCol < 0 {
		return nil, nil, fmt.Errorf("station sheet header row not found")
	}

	names := make(map[string]string)
	provinces := make(map[string]string)
	for _, row := range rows[headerIdx+1:] {
		code := cellAt(row, codeCol)
		if code == "" {
			continue
		}
		address := cellAt(row, addrCol)
		display := cellAt(row, placeCol)
		if display == "" {
			display = address
		}
		names[code] = display
		provinces[code] = provinceFromAddress(address)
	}
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("station sheet has no station rows")
	}
	return names, provinces, nil
}

// provinceFromAddress pulls the province out of a station address. Any
// Bangkok spelling normalizes to "Bangkok"; elsewhere the province is
// the first word after the "จ." marker.
func provinceFromAddress(address string) string {
	if strings.Contains(address, "กทม") || strings.Contains(address, "กรุงเทพ") {
		return "Bangkok"
	}
	if _, after, ok := strings.Cut(address, "จ."); ok {
		if fields := strings.Fields(after); len(fields) > 0 {
			return fields[0]
		}
	}
	return "Unknown"
}

func parseDate(cell string) (time.Time, bool) {
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
