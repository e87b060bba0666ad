package etl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"airhealth/ports"
)

func writeWorkbook(t *testing.T, path string, build func(f *excelize.File)) {
	t.Helper()
	f := excelize.NewFile()
	build(f)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close workbook %s: %v", path, err)
	}
}

func setRow(t *testing.T, f *excelize.File, sheet, cell string, values []interface{}) {
	t.Helper()
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		t.Fatalf("set row %s!%s: %v", sheet, cell, err)
	}
}

// measurementFixture writes two yearly workbooks. The older one has
// malformed rows to drop; the newer one carries the station metadata
// sheet and a natively formatted m-d-yy date.
func measurementFixture(t *testing.T, dir string) {
	t.Helper()
	writeWorkbook(t, filepath.Join(dir, "PM2.5(2023).xlsx"), func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", []interface{}{"Date", "02T", " 03T "})
		setRow(t, f, "Sheet1", "A2", []interface{}{"2023-06-05", 18.44, 30})
		setRow(t, f, "Sheet1", "A3", []interface{}{"2023-06-06", nil, 41.27})
		setRow(t, f, "Sheet1", "A4", []interface{}{"not-a-date", 9, 9})
		setRow(t, f, "Sheet1", "A5", []interface{}{"2023-06-07", "bad", 25.19})
	})
	writeWorkbook(t, filepath.Join(dir, "PM2.5(2024).xlsx"), func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", []interface{}{"Date", "02T", "03T"})
		setRow(t, f, "Sheet1", "A2", []interface{}{"2024-01-10", 22.34, 37.12})
		setRow(t, f, "Sheet1", "A3", []interface{}{"1-15-24", 19.5, 28})

		if _, err := f.NewSheet(stationSheet); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		setRow(t, f, stationSheet, "A1", []interface{}{"ตารางแสดงรายละเอียดจุดตรวจวัดคุณภาพอากาศ"})
		setRow(t, f, stationSheet, "A2", []interface{}{nil, "ลำดับ", stationCodeCell, stationAddrCell, stationPlaceCell})
		setRow(t, f, stationSheet, "A3", []interface{}{nil, 1, "02T", "แขวงปทุมวัน กทม. 10330", "จุฬาลงกรณ์มหาวิทยาลัย"})
		setRow(t, f, stationSheet, "A4", []interface{}{nil, 2, "03T", "ต.บางปูใหม่ อ.เมือง จ.สมุทรปราการ 10280", ""})
	})
}

func TestExposureConsolidator_BuildsDocument(t *testing.T) {
	dir := t.TempDir()
	measurementFixture(t, dir)

	doc, err := NewExposureConsolidator(dir, quietLogger()).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	if diff := cmp.Diff([]string{"02T", "03T"}, doc.Metadata.Stations); diff != "" {
		t.Errorf("Stations mismatch (-want +got):\n%s", diff)
	}
	if doc.Metadata.MinDate != "2023-06-05" || doc.Metadata.MaxDate != "2024-01-15" {
		t.Errorf("Date range = %s..%s, want 2023-06-05..2024-01-15",
			doc.Metadata.MinDate, doc.Metadata.MaxDate)
	}

	// Malformed date row and the unparsable cell are gone; values keep
	// one decimal place; readings are chronological across workbooks.
	want02T := []ports.ExposureReading{
		{Date: "2023-06-05", Value: 18.4},
		{Date: "2024-01-10", Value: 22.3},
		{Date: "2024-01-15", Value: 19.5},
	}
	if diff := cmp.Diff(want02T, doc.Data["02T"]); diff != "" {
		t.Errorf("02T readings mismatch (-want +got):\n%s", diff)
	}
	want03T := []ports.ExposureReading{
		{Date: "2023-06-05", Value: 30},
		{Date: "2023-06-06", Value: 41.3},
		{Date: "2023-06-07", Value: 25.2},
		{Date: "2024-01-10", Value: 37.1},
		{Date: "2024-01-15", Value: 28},
	}
	if diff := cmp.Diff(want03T, doc.Data["03T"]); diff != "" {
		t.Errorf("03T readings mismatch (-want +got):\n%s", diff)
	}
}

func TestExposureConsolidator_ExtractsStationMetadata(t *testing.T) {
	dir := t.TempDir()
	measurementFixture(t, dir)

	doc, err := NewExposureConsolidator(dir, quietLogger()).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}

	if got := doc.Metadata.StationNames["02T"]; got != "จุฬาลงกรณ์มหาวิทยาลัย" {
		t.Errorf("02T display name = %q", got)
	}
	// No installation detail for 03T, so the address is the display name.
	if got := doc.Metadata.StationNames["03T"]; got != "ต.บางปูใหม่ อ.เมือง จ.สมุทรปราการ 10280" {
		t.Errorf("03T display name = %q", got)
	}
	if got := doc.Metadata.StationProvinces["02T"]; got != "Bangkok" {
		t.Errorf("02T province = %q, want Bangkok", got)
	}
	if got := doc.Metadata.StationProvinces["03T"]; got != "สมุทรปราการ" {
		t.Errorf("03T province = %q, want สมุทรปราการ", got)
	}
	if got := doc.Metadata.StationRegions["02T"]; got != "เขตสุขภาพที่ 13" {
		t.Errorf("02T region = %q, want เขตสุขภาพที่ 13", got)
	}
	if got := doc.Metadata.StationRegions["03T"]; got != "เขตสุขภาพที่ 6" {
		t.Errorf("03T region = %q, want เขตสุขภาพที่ 6", got)
	}
}

func TestExposureConsolidator_MissingMetadataDegrades(t *testing.T) {
	dir := t.TempDir()
	writeWorkbook(t, filepath.Join(dir, "PM2.5(2023).xlsx"), func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", []interface{}{"Date", "02T"})
		setRow(t, f, "Sheet1", "A2", []interface{}{"2023-06-05", 18.4})
	})

	doc, err := NewExposureConsolidator(dir, quietLogger()).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(doc.Data["02T"]) != 1 {
		t.Errorf("Expected readings despite missing metadata, got %v", doc.Data["02T"])
	}
	if len(doc.Metadata.StationRegions) != 0 {
		t.Errorf("Expected no region labels, got %v", doc.Metadata.StationRegions)
	}
}

func TestExposureConsolidator_SkipsUnreadableWorkbook(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "PM2.5(2020).xlsx"), []byte("not a workbook"), 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	writeWorkbook(t, filepath.Join(dir, "PM2.5(2023).xlsx"), func(f *excelize.File) {
		setRow(t, f, "Sheet1", "A1", []interface{}{"Date", "02T"})
		setRow(t, f, "Sheet1", "A2", []interface{}{"2023-06-05", 18.4})
	})

	doc, err := NewExposureConsolidator(dir, quietLogger()).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if len(doc.Data["02T"]) != 1 {
		t.Errorf("Expected the healthy workbook to consolidate, got %v", doc.Data["02T"])
	}
}

func TestExposureConsolidator_NoWorkbooksErrors(t *testing.T) {
	if _, err := NewExposureConsolidator(t.TempDir(), quietLogger()).Consolidate(); err == nil {
		t.Fatal("Expected error for an empty directory")
	}
}

func TestProvinceFromAddress(t *testing.T) {
	cases := []struct {
		address string
		want    string
	}{
		{"แขวงปทุมวัน กทม. 10330", "Bangkok"},
		{"เขตบางนา กรุงเทพมหานคร", "Bangkok"},
		{"ต.บางปูใหม่ อ.เมือง จ.สมุทรปราการ 10280", "สมุทรปราการ"},
		{"อ.เมือง จ.ชลบุรี", "ชลบุรี"},
		{"no province marker", "Unknown"},
		{"", "Unknown"},
	}
	for _, tc := range cases {
		if got := provinceFromAddress(tc.address); got != tc.want {
			t.Errorf("provinceFromAddress(%q) = %q, want %q", tc.address, got, tc.want)
		}
	}
}
