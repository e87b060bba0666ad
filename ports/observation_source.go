package ports

import (
	"context"
)

// ObservationSource provides the two normalized input documents the
// analytics engine consumes. Implementations must return an error carrying
// the DATA_SOURCE_UNAVAILABLE code when a document is missing or
// unreadable; that condition is fatal for the requesting computation.
type ObservationSource interface {
	Exposure(ctx context.Context) (*ExposureDocument, error)
	Cases(ctx context.Context) (*CaseDocument, error)
}

// ExposureDocument mirrors the consolidated exposure store written by the
// offline ETL pipeline: station metadata plus per-station dated readings.
type ExposureDocument struct {
	Metadata ExposureMetadata             `json:"metadata"`
	Data     map[string][]ExposureReading `json:"data"`
}

// ExposureMetadata describes the stations behind the readings. Region
// labels drive in-scope station selection.
type ExposureMetadata struct {
	MinDate          string            `json:"minDate"`
	MaxDate          string            `json:"maxDate"`
	Stations         []string          `json:"stations"`
	StationNames     map[string]string `json:"stationNames"`
	StationProvinces map[string]string `json:"stationProvinces"`
	StationRegions   map[string]string `json:"stationRegions"`
}

// ExposureReading is one dated measurement from one station.
type ExposureReading struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// CaseDocument mirrors the consolidated weekly case store: declared disease
// groups plus per-province, per-year weekly count arrays.
type CaseDocument struct {
	Metadata CaseMetadata                       `json:"metadata"`
	Data     map[string]map[string]ProvinceYear `json:"data"` // province -> year key -> counts
}

// CaseMetadata declares the tracked disease groups. Categories outside
// Groups are ignored by aggregation.
type CaseMetadata struct {
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source,omitempty"`
	Groups      []string `json:"groups"`
}

// ProvinceYear carries one province's weekly counts for one year. Weeks is
// an explicit index list and is not assumed contiguous; Diseases arrays are
// positionally aligned with it.
type ProvinceYear struct {
	Weeks    []int                `json:"weeks"`
	Diseases map[string][]float64 `json:"diseases"`
}
