package etl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"airhealth/ports"
)

func TestWriteDocument_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "cases.json")
	doc := &ports.CaseDocument{
		Metadata: ports.CaseMetadata{Source: "HDC", Groups: []string{"Respiratory"}},
		Data: map[string]map[string]ports.ProvinceYear{
			"ชลบุรี": {"2024": {
				Weeks:    []int{1, 2},
				Diseases: map[string][]float64{"Respiratory": {3, 4}},
			}},
		},
	}

	if err := WriteDocument(path, doc); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var got ports.CaseDocument
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if diff := cmp.Diff(doc, &got); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDocument_ReplacesExistingAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exposure.json")

	first := &ports.ExposureDocument{Metadata: ports.ExposureMetadata{MinDate: "2023-01-01"}}
	second := &ports.ExposureDocument{Metadata: ports.ExposureMetadata{MinDate: "2024-01-01"}}
	if err := WriteDocument(path, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteDocument(path, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	var got ports.ExposureDocument
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("parse back: %v", err)
	}
	if got.Metadata.MinDate != "2024-01-01" {
		t.Errorf("Expected the second document, got MinDate %s", got.Metadata.MinDate)
	}

	// No temp debris left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("list dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Leftover temp file %s", e.Name())
		}
	}
}

func TestWriteDocument_RejectsUnencodable(t *testing.T) {
	if err := WriteDocument(filepath.Join(t.TempDir(), "bad.json"), make(chan int)); err == nil {
		t.Fatal("Expected an encoding error")
	}
}
