package state

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore keeps both tiers on the filesystem: one JSON file per key under
// <root>/runs and <root>/cache. Writes go through a temp file and rename,
// so readers never observe a partial entry.
type DirStore struct {
	runDir   string
	cacheDir string
}

// NewDirStore creates (if needed) the runs and cache directories under
// root and returns a store over them.
func NewDirStore(root string) (*DirStore, error) {
	s := &DirStore{
		runDir:   filepath.Join(root, "runs"),
		cacheDir: filepath.Join(root, "cache"),
	}
	for _, dir := range []string{s.runDir, s.cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
	}
	return s, nil
}

// GetRun implements Store.
func (s *DirStore) GetRun(ctx context.Context, key string) (*RunRecord, error) {
	var rec RunRecord
	if err := readJSON(s.runPath(key), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// PutRun implements Store. An existing record for the same key is replaced
// whole.
func (s *DirStore) PutRun(ctx context.Context, rec *RunRecord) error {
	return writeJSON(s.runPath(rec.Key), rec)
}

// GetCache implements Store.
func (s *DirStore) GetCache(ctx context.Context, cacheKey string) (*CacheEntry, error) {
	var entry CacheEntry
	if err := readJSON(s.cachePath(cacheKey), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PutCache implements Store.
func (s *DirStore) PutCache(ctx context.Context, entry *CacheEntry) error {
	return writeJSON(s.cachePath(entry.CacheKey), entry)
}

// runPath encodes the caller-chosen key so arbitrary strings map to safe
// file names.
func (s *DirStore) runPath(key string) string {
	return filepath.Join(s.runDir, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

// cachePath uses the derived key directly; it is always a hex digest.
func (s *DirStore) cachePath(cacheKey string) string {
	return filepath.Join(s.cacheDir, cacheKey+".json")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var _ Store = (*DirStore)(nil)
