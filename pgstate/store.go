// Package pgstate implements state.Store on Postgres, for deployments
// where runs resume on a different host than the one that started them.
// Schema is in schema.sql. Cache entries are content-addressed and
// immutable, so cache writes are insert-or-ignore; run-state writes upsert
// by run key.
package pgstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmalone87/gatepipe/state"
)

// Store is a Postgres-backed state.Store.
type Store struct {
	db *pgxpool.Pool
}

// New returns a store over the given pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetRun implements state.Store.
func (s *Store) GetRun(ctx context.Context, key string) (*state.RunRecord, error) {
	var rec state.RunRecord
	var items []byte
	err := s.db.QueryRow(ctx,
		"SELECT run_key, cache_key, items, version, stored_at FROM invoke_run_state WHERE run_key = $1",
		key,
	).Scan(&rec.Key, &rec.CacheKey, &items, &rec.Version, &rec.StoredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("get run state %q: %w", key, err)
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return nil, fmt.Errorf("decode run state %q items: %w", key, err)
	}
	return &rec, nil
}

// PutRun implements state.Store.
func (s *Store) PutRun(ctx context.Context, rec *state.RunRecord) error {
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode run state %q items: %w", rec.Key, err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO invoke_run_state (run_key, cache_key, items, version, stored_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_key) DO UPDATE
		 SET cache_key = EXCLUDED.cache_key, items = EXCLUDED.items,
		     version = EXCLUDED.version, stored_at = EXCLUDED.stored_at`,
		rec.Key, rec.CacheKey, items, rec.Version, rec.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("put run state %q: %w", rec.Key, err)
	}
	return nil
}

// GetCache implements state.Store.
func (s *Store) GetCache(ctx context.Context, cacheKey string) (*state.CacheEntry, error) {
	var entry state.CacheEntry
	var items []byte
	err := s.db.QueryRow(ctx,
		"SELECT cache_key, items, stored_at FROM invoke_cache WHERE cache_key = $1",
		cacheKey,
	).Scan(&entry.CacheKey, &items, &entry.StoredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("get cache entry %s: %w", cacheKey, err)
	}
	if err := json.Unmarshal(items, &entry.Items); err != nil {
		return nil, fmt.Errorf("decode cache entry %s items: %w", cacheKey, err)
	}
	return &entry, nil
}

// PutCache implements state.Store. Entries are immutable: a concurrent
// writer of the same key wrote the same bytes, so the insert is ignored on
// conflict.
func (s *Store) PutCache(ctx context.Context, entry *state.CacheEntry) error {
	items, err := json.Marshal(entry.Items)
	if err != nil {
		return fmt.Errorf("encode cache entry %s items: %w", entry.CacheKey, err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO invoke_cache (cache_key, items, stored_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (cache_key) DO NOTHING`,
		entry.CacheKey, items, entry.StoredAt,
	)
	if err != nil {
		return fmt.Errorf("put cache entry %s: %w", entry.CacheKey, err)
	}
	return nil
}

var _ state.Store = (*Store)(nil)
