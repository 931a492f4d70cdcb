// Package cache stores operation results keyed by operation signature.
//
// The cache is the only state shared between concurrent pipeline
// invocations. Both backends are write-once per key: the first Add wins and
// later Adds for the same key are ignored, so a write race between two
// workers that computed the same signature leaves one intact entry.
// Entries never expire within a cache lifetime.
package cache

import (
	"context"
	"fmt"
	"net/url"

	"github.com/solatis/cdiscengine/internal/core/db"
	"github.com/solatis/cdiscengine/internal/types"
)

// Cache is a write-once key-value store.
// A miss is reported with ok=false and a nil error.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (value V, ok bool, err error)
	Add(ctx context.Context, key string, value V) error
}

// Open returns the cache backend selected by cacheURL.
// memory:// (or an empty URL) yields a process-local cache; sqlite:// and
// postgres:// yield a SQL cache scoped to runID, migrated on open.
// The returned close function releases backend resources.
func Open[V any](cacheURL string, runID types.RunID) (Cache[V], func() error, error) {
	if cacheURL == "" {
		return NewMemory[V](), func() error { return nil }, nil
	}
	u, err := url.Parse(cacheURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	if u.Scheme == "memory" {
		return NewMemory[V](), func() error { return nil }, nil
	}

	database, err := db.Open(cacheURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.MigrateUp(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return NewSQL[V](queries, runID), database.Close, nil
}
