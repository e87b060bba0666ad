package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	apperrors "airhealth/internal/errors"
	"airhealth/ports"
)

// Source reads the two normalized observation documents the offline ETL
// pipeline produces. Files are re-read on every call so a refreshed
// document is picked up without a restart.
type Source struct {
	exposurePath string
	casesPath    string
}

// NewSource creates a file-backed observation source.
func NewSource(exposurePath, casesPath string) ports.ObservationSource {
	return &Source{exposurePath: exposurePath, casesPath: casesPath}
}

// Exposure loads the exposure-measurement store.
func (s *Source) Exposure(ctx context.Context) (*ports.ExposureDocument, error) {
	var doc ports.ExposureDocument
	if err := s.load(ctx, s.exposurePath, "exposure store", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Cases loads the case-count store.
func (s *Source) Cases(ctx context.Context) (*ports.CaseDocument, error) {
	var doc ports.CaseDocument
	if err := s.load(ctx, s.casesPath, "case store", &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *Source) load(ctx context.Context, path, document string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.DataSourceUnavailable(document, fmt.Errorf("read %s: %w", path, err))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.DataSourceUnavailable(document, fmt.Errorf("parse %s: %w", path, err))
	}
	return nil
}
