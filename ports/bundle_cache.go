package ports

import (
	"context"
	"errors"

	"airhealth/domain/analysis"
)

// ErrCacheMiss is returned by Get when no usable slot exists for the
// requested year. Corrupt or unreadable slots surface as this same miss;
// the caller never sees a read failure.
var ErrCacheMiss = errors.New("cache miss")

// BundleCache is the keyed persisted store for computed analysis bundles.
// One slot per year. Writes replace the year's slot atomically; concurrent
// writers must be serialized by the implementation.
type BundleCache interface {
	// Get returns the persisted bundle for year, or ErrCacheMiss.
	Get(ctx context.Context, year int) (*analysis.AnalysisBundle, error)

	// Put persists the bundle unconditionally, replacing any prior slot
	// for the same year.
	Put(ctx context.Context, bundle *analysis.AnalysisBundle) error

	// Years lists the years with a persisted slot, ascending.
	Years(ctx context.Context) ([]int, error)
}
