package postgres

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmoiron/sqlx"

	apperrors "airhealth/internal/errors"
	"airhealth/ports"
)

// observationRepository materializes the two observation documents from
// relational tables. The assembled shapes match the JSON store exactly, so
// the aggregation layer cannot tell the backends apart.
type observationRepository struct {
	db *sqlx.DB
}

// NewObservationRepository creates a Postgres-backed observation source.
// The expected schema lives in schema.sql next to this file.
func NewObservationRepository(db *sqlx.DB) ports.ObservationSource {
	return &observationRepository{db: db}
}

// Exposure assembles the exposure document from stations and their dated
// readings.
func (r *observationRepository) Exposure(ctx context.Context) (*ports.ExposureDocument, error) {
	doc, err := r.loadExposure(ctx)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("exposure", err)
	}
	return doc, nil
}

// Cases assembles the case document from the declared group list and the
// weekly count rows.
func (r *observationRepository) Cases(ctx context.Context) (*ports.CaseDocument, error) {
	doc, err := r.loadCases(ctx)
	if err != nil {
		return nil, apperrors.DataSourceUnavailable("cases", err)
	}
	return doc, nil
}

func (r *observationRepository) loadExposure(ctx context.Context) (*ports.ExposureDocument, error) {
	doc := &ports.ExposureDocument{
		Metadata: ports.ExposureMetadata{
			StationNames:     make(map[string]string),
			StationProvinces: make(map[string]string),
			StationRegions:   make(map[string]string),
		},
		Data: make(map[string][]ports.ExposureReading),
	}

	stationQuery := `SELECT code, name, province, region FROM stations ORDER BY code`

	rows, err := r.db.QueryContext(ctx, stationQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, name, province, region string
		if err := rows.Scan(&code, &name, &province, &region); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		doc.Metadata.Stations = append(doc.Metadata.Stations, code)
		doc.Metadata.StationNames[code] = name
		doc.Metadata.StationProvinces[code] = province
		doc.Metadata.StationRegions[code] = region
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stations: %w", err)
	}

	readingQuery := `SELECT station_code, to_char(reading_date, 'YYYY-MM-DD'), value
		FROM exposure_readings
		ORDER BY station_code, reading_date`

	readingRows, err := r.db.QueryContext(ctx, readingQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposure readings: %w", err)
	}
	defer readingRows.Close()

	for readingRows.Next() {
		var code, date string
		var value float64
		if err := readingRows.Scan(&code, &date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan exposure reading: %w", err)
		}
		doc.Data[code] = append(doc.Data[code], ports.ExposureReading{Date: date, Value: value})

		// ISO dates compare lexicographically.
		if doc.Metadata.MinDate == "" || date < doc.Metadata.MinDate {
			doc.Metadata.MinDate = date
		}
		if date > doc.Metadata.MaxDate {
			doc.Metadata.MaxDate = date
		}
	}
	if err := readingRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exposure readings: %w", err)
	}

	return doc, nil
}

func (r *observationRepository) loadCases(ctx context.Context) (*ports.CaseDocument, error) {
	groups, err := r.declaredGroups(ctx)
	if err != nil {
		return nil, err
	}

	doc := &ports.CaseDocument{
		Metadata: ports.CaseMetadata{Source: "postgres", Groups: groups},
		Data:     make(map[string]map[string]ports.ProvinceYear),
	}

	countQuery := `SELECT province, year, week, group_name, count
		FROM weekly_case_counts
		ORDER BY province, year, week`

	rows, err := r.db.QueryContext(ctx, countQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly case counts: %w", err)
	}
	defer rows.Close()

	type provinceYear struct {
		province string
		year     int
	}
	accumulated := make(map[provinceYear]map[int]map[string]float64)

	for rows.Next() {
		var province, group string
		var year, week int
		var count float64
		if err := rows.Scan(&province, &year, &week, &group, &count); err != nil {
			return nil, fmt.Errorf("failed to scan case count: %w", err)
		}

		key := provinceYear{province: province, year: year}
		if accumulated[key] == nil {
			accumulated[key] = make(map[int]map[string]float64)
		}
		if accumulated[key][week] == nil {
			accumulated[key][week] = make(map[string]float64)
		}
		accumulated[key][week][group] += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case counts: %w", err)
	}

	for key, byWeek := range accumulated {
		weeks := make([]int, 0, len(byWeek))
		for week := range byWeek {
			weeks = append(weeks, week)
		}
		sort.Ints(weeks)

		diseases := make(map[string][]float64)
		for i, week := range weeks {
			for group, count := range byWeek[week] {
				if diseases[group] == nil {
					diseases[group] = make([]float64, len(weeks))
				}
				diseases[group][i] = count
			}
		}

		if doc.Data[key.province] == nil {
			doc.Data[key.province] = make(map[string]ports.ProvinceYear)
		}
		doc.Data[key.province][strconv.Itoa(key.year)] = ports.ProvinceYear{
			Weeks:    weeks,
			Diseases: diseases,
		}
	}

	return doc, nil
}

// declaredGroups reads the tracked disease categories in display order.
func (r *observationRepository) declaredGroups(ctx context.Context) ([]string, error) {
	groupQuery := `SELECT group_name FROM case_groups ORDER BY position`

	rows, err := r.db.QueryContext(ctx, groupQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query case groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan case group: %w", err)
		}
		groups = append(groups, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate case groups: %w", err)
	}

	return groups, nil
}
