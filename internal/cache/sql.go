package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/cdiscengine/internal/types"
)

// Queries defines the named database operations the SQL cache needs.
// Implemented by *db.Queries.
type Queries interface {
	GetContext(ctx context.Context, name string, dest any, args ...any) error
	ExecContext(ctx context.Context, name string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, name string, dest any, args ...any) error
}

// SQL is a Cache persisted in the operation_cache table.
// Values are stored JSON-encoded; every row is scoped to one run so a new
// run never observes entries of an earlier one.
type SQL[V any] struct {
	queries Queries
	runID   types.RunID
}

// NewSQL creates a SQL-backed cache for runID.
func NewSQL[V any](queries Queries, runID types.RunID) *SQL[V] {
	return &SQL[V]{queries: queries, runID: runID}
}

// Get implements Cache.
func (s *SQL[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	var payload string
	err := s.queries.GetContext(ctx, "get-operation-result", &payload, string(s.runID), key)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	var v V
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return zero, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return v, true, nil
}

// Add implements Cache. INSERT ... ON CONFLICT DO NOTHING keeps the first writer.
func (s *SQL[V]) Add(ctx context.Context, key string, value V) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	_, err = s.queries.ExecContext(ctx, "add-operation-result",
		string(s.runID), key, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key holds an entry for this run.
func (s *SQL[V]) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	if err := s.queries.GetContext(ctx, "count-operation-result", &n, string(s.runID), key); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Keys lists this run's keys in sorted order.
func (s *SQL[V]) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.queries.SelectContext(ctx, "list-run-keys", &keys, string(s.runID)); err != nil {
		return nil, err
	}
	return keys, nil
}

// Purge deletes every entry of this run.
func (s *SQL[V]) Purge(ctx context.Context) error {
	_, err := s.queries.ExecContext(ctx, "delete-run-results", string(s.runID))
	return err
}
