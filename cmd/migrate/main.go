package main

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"airhealth/adapters/postgres"
	"airhealth/ports"
)

// Loads the consolidated observation stores into the Postgres backend:
// applies the schema, then upserts stations, readings, declared groups,
// and weekly counts so DATA_BACKEND=postgres serves the same documents
// as the files.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [data_dir]")
	}
	databaseURL := os.Args[1]
	dataDir := "data"
	if len(os.Args) > 2 {
		dataDir = os.Args[2]
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(postgres.Schema()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Println("Schema applied")

	exposurePath := filepath.Join(dataDir, "pm25_consolidated.json")
	casesPath := filepath.Join(dataDir, "hdc_consolidated.json")

	var exposure ports.ExposureDocument
	if err := readDocument(exposurePath, &exposure); err != nil {
		log.Fatalf("Failed to read exposure store: %v", err)
	}
	stations, readings, err := loadExposure(db, &exposure)
	if err != nil {
		log.Fatalf("Failed to load exposure store: %v", err)
	}
	log.Printf("Loaded %d stations and %d readings from %s", stations, readings, exposurePath)

	var cases ports.CaseDocument
	if err := readDocument(casesPath, &cases); err != nil {
		log.Fatalf("Failed to read case store: %v", err)
	}
	groups, counts, err := loadCases(db, &cases)
	if err != nil {
		log.Fatalf("Failed to load case store: %v", err)
	}
	log.Printf("Loaded %d groups and %d weekly counts from %s", groups, counts, casesPath)
}

func readDocument(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func loadExposure(db *sqlx.DB, doc *ports.ExposureDocument) (int, int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	stations := 0
	for _, code := range doc.Metadata.Stations {
		_, err := tx.Exec(`INSERT INTO stations (code, name, province, region)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET name = $2, province = $3, region = $4`,
			code,
			doc.Metadata.StationNames[code],
			doc.Metadata.StationProvinces[code],
			doc.Metadata.StationRegions[code])
		if err != nil {
			return 0, 0, err
		}
		stations++
	}

	readings := 0
	for station, rs := range doc.Data {
		for _, r := range rs {
			_, err := tx.Exec(`INSERT INTO exposure_readings (station_code, reading_date, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (station_code, reading_date) DO UPDATE SET value = $3`,
				station, r.Date, r.Value)
			if err != nil {
				return 0, 0, err
			}
			readings++
		}
	}

	return stations, readings, tx.Commit()
}

func loadCases(db *sqlx.DB, doc *ports.CaseDocument) (int, int, error) {
	tx, err := db.Beginx()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	declared := make(map[string]bool, len(doc.Metadata.Groups))
	for i, group := range doc.Metadata.Groups {
		declared[group] = true
		_, err := tx.Exec(`INSERT INTO case_groups (position, group_name)
			VALUES ($1, $2)
			ON CONFLICT (position) DO UPDATE SET group_name = $2`,
			i+1, group)
		if err != nil {
			return 0, 0, err
		}
	}

	// Derived Total rows stay out of the relational form; the
	// aggregation layer recomputes them.
	counts := 0
	for province, years := range doc.Data {
		for yearKey, py := range years {
			year, err := strconv.Atoi(yearKey)
			if err != nil {
				log.Printf("Skipping %s year key %q: not an integer", province, yearKey)
				continue
			}
			for group, values := range py.Diseases {
				if !declared[group] {
					continue
				}
				for i, week := range py.Weeks {
					if i >= len(values) {
						break
					}
					_, err := tx.Exec(`INSERT INTO weekly_case_counts (province, year, week, group_name, count)
						VALUES ($1, $2, $3, $4, $5)
						ON CONFLICT (province, year, week, group_name) DO UPDATE SET count = $5`,
						province, year, week, group, values[i])
					if err != nil {
						return 0, 0, err
					}
					counts++
				}
			}
		}
	}

	return len(doc.Metadata.Groups), counts, tx.Commit()
}
