// Package state persists invocation results in two overlapping tiers: a
// run-state record keyed by a caller-chosen logical key (resume a specific
// run without re-calling) and a content-addressed cache keyed by the
// derived cache key (dedup across runs). Entries are immutable once
// written; no eviction is needed for correctness.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups with no stored record.
var ErrNotFound = errors.New("state: not found")

// RunRecord is the run-state tier's record. CacheKey is the derived key of
// the call that produced Items; a run record is only reused when it
// matches the freshly derived key, which guards against a caller reusing a
// run key for a different logical request.
type RunRecord struct {
	Key      string    `json:"key"`
	CacheKey string    `json:"cache_key"`
	Items    []any     `json:"items"`
	Version  string    `json:"version,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

// CacheEntry is the content-addressed tier's record. An identical key
// implies an identical semantic request, so a hit never needs
// reconciliation.
type CacheEntry struct {
	CacheKey string    `json:"cache_key"`
	Items    []any     `json:"items"`
	StoredAt time.Time `json:"stored_at"`
}

// Store is a keyed blob store over both tiers. Writes replace whole
// entries; concurrent writers of the same content-addressed entry race
// benignly (the loser's bytes equal the winner's).
type Store interface {
	GetRun(ctx context.Context, key string) (*RunRecord, error)
	PutRun(ctx context.Context, rec *RunRecord) error
	GetCache(ctx context.Context, cacheKey string) (*CacheEntry, error)
	PutCache(ctx context.Context, entry *CacheEntry) error
}
