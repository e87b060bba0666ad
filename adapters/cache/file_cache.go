package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"airhealth/domain/analysis"
	"airhealth/ports"
)

// FileCache persists one analysis bundle per year as a JSON slot under a
// directory. Writes go through a temp file and rename so a reader never
// observes a partially written slot, and a mutex serializes writers in
// the same process.
type FileCache struct {
	dir string
	mu  sync.Mutex
}

// NewFileCache creates the cache directory if needed and returns the
// bundle cache backed by it.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &FileCache{dir: dir}, nil
}

var _ ports.BundleCache = (*FileCache)(nil)

// Get loads the slot for a year. Every failure mode short of a healthy
// slot reads as a cache miss: absent file, unreadable file, malformed
// JSON, or a slot whose stored year disagrees with its key.
func (c *FileCache) Get(ctx context.Context, year int) (*analysis.AnalysisBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.slotPath(year))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrCacheMiss
		}
		return nil, fmt.Errorf("cache slot for year %d unreadable: %v: %w", year, err, ports.ErrCacheMiss)
	}

	var bundle analysis.AnalysisBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("cache slot for year %d malformed: %v: %w", year, err, ports.ErrCacheMiss)
	}
	if bundle.Year != year {
		return nil, fmt.Errorf("cache slot for year %d holds year %d: %w", year, bundle.Year, ports.ErrCacheMiss)
	}
	return &bundle, nil
}

// Put persists a fresh bundle unconditionally, replacing any prior slot
// for the same year atomically.
func (c *FileCache) Put(ctx context.Context, bundle *analysis.AnalysisBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode bundle for year %d: %w", bundle.Year, err)
	}

	tmp, err := os.CreateTemp(c.dir, "slot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp slot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp slot: %w", err)
	}

	if err := os.Rename(tmpName, c.slotPath(bundle.Year)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to publish slot for year %d: %w", bundle.Year, err)
	}
	return nil
}

// Years lists the years that currently have a slot file, ascending.
func (c *FileCache) Years(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var years []int
	for _, entry := range entries {
		var year int
		if _, err := fmt.Sscanf(entry.Name(), "analysis_%d.json", &year); err != nil {
			continue
		}
		if entry.Name() != fmt.Sprintf("analysis_%d.json", year) {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

func (c *FileCache) slotPath(year int) string {
	return filepath.Join(c.dir, fmt.Sprintf("analysis_%d.json", year))
}
