// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists search results on disk so repeat screenings of
// the same chemical skip the network entirely.
//
// Each entry is one JSON file named by its fingerprint. Writes are
// staged to a temporary file in the cache directory and renamed into
// place, so a reader never observes a partially written entry and a
// crash mid-write leaves either the prior entry or nothing. Expiry is
// checked at read time; a periodic ClearExpired sweep is optional.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/chemscreen/pkg/types"
)

// ErrMiss is returned by Get when no valid entry exists for the key.
// Expired and corrupt entries read as misses.
var ErrMiss = errors.New("cache miss")

// entry is the on-disk envelope around a cached result.
type entry struct {
	Key        string             `json:"key"`
	CreatedAt  time.Time          `json:"created_at"`
	TTLSeconds int64              `json:"ttl_seconds"`
	Payload    types.SearchResult `json:"payload"`
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) >= time.Duration(e.TTLSeconds)*time.Second
}

// Store is a durable key→result cache rooted at one directory.
type Store struct {
	dir     string
	ttl     time.Duration
	enabled bool
	log     *zap.Logger

	// now is replaceable so tests can control expiry.
	now func() time.Time
}

// New creates a Store under cfg.Dir, creating the directory when the
// cache is enabled.
func New(cfg types.CacheConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		dir:     cfg.Dir,
		ttl:     cfg.TTL,
		enabled: cfg.Enabled,
		log:     log,
		now:     time.Now,
	}
	if s.ttl <= 0 {
		s.ttl = 24 * time.Hour
	}
	if s.enabled {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", s.dir, err)
		}
	}
	return s, nil
}

// Fingerprint derives the cache key for one chemical under one set of
// search parameters. Only the parameter fields that change the search
// participate; UseCache does not.
func Fingerprint(chem types.Chemical, params types.SearchParameters) string {
	cas := chem.CASNumber
	if cas == "" {
		cas = "no-cas"
	}
	parts := []string{
		strings.ToLower(strings.TrimSpace(chem.Name)),
		cas,
		strconv.Itoa(params.DateRangeYears),
		strconv.Itoa(params.MaxResults),
		strconv.FormatBool(params.IncludeReviews),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the cached result for key, or ErrMiss when the entry is
// absent, expired, or unreadable. Corrupt files are removed so the next
// write starts clean.
func (s *Store) Get(key string) (types.SearchResult, error) {
	if !s.enabled {
		return types.SearchResult{}, ErrMiss
	}

	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return types.SearchResult{}, ErrMiss
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Warn("removing corrupt cache entry", zap.String("key", key), zap.Error(err))
		os.Remove(path)
		return types.SearchResult{}, ErrMiss
	}

	if e.expired(s.now()) {
		return types.SearchResult{}, ErrMiss
	}

	result := e.Payload
	result.FromCache = true
	return result, nil
}

// Put stores result under key with the given TTL (the store default
// when ttl <= 0). Failed results are not cached: a transient error
// should not suppress the next real attempt. Concurrent writers for the
// same key race benignly; the last rename wins.
func (s *Store) Put(key string, result types.SearchResult, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if result.Failed() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	// A cached copy is indistinguishable from a fresh one on write.
	result.FromCache = false

	e := entry{
		Key:        key,
		CreatedAt:  s.now(),
		TTLSeconds: int64(ttl / time.Second),
		Payload:    result,
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry %s: %w", key, err)
	}

	return atomicWrite(s.path(key), data)
}

// atomicWrite stages data to a temp file in the destination directory
// and renames it into place.
func atomicWrite(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache entry: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// ClearExpired removes entries past their TTL and returns how many were
// deleted. Unreadable entries count as expired.
func (s *Store) ClearExpired() (int, error) {
	return s.sweep(func(e *entry) bool {
		return e == nil || e.expired(s.now())
	})
}

// Clear removes every cache entry and returns how many were deleted.
func (s *Store) Clear() (int, error) {
	return s.sweep(func(*entry) bool { return true })
}

func (s *Store) sweep(shouldDelete func(*entry) bool) (int, error) {
	if !s.enabled {
		return 0, nil
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing cache directory: %w", err)
	}

	count := 0
	for _, path := range paths {
		var parsed *entry
		if data, err := os.ReadFile(path); err == nil {
			var e entry
			if err := json.Unmarshal(data, &e); err == nil {
				parsed = &e
			}
		}
		if !shouldDelete(parsed) {
			continue
		}
		if err := os.Remove(path); err != nil {
			s.log.Warn("could not delete cache entry", zap.String("path", path), zap.Error(err))
			continue
		}
		count++
	}
	return count, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	TotalEntries   int   `json:"total_entries"`
	ExpiredEntries int   `json:"expired_entries"`
	TotalBytes     int64 `json:"total_bytes"`
}

// ReadStats walks the cache directory and reports entry counts and size.
func (s *Store) ReadStats() (Stats, error) {
	var stats Stats
	if !s.enabled {
		return stats, nil
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return stats, fmt.Errorf("listing cache directory: %w", err)
	}

	for _, path := range paths {
		stats.TotalEntries++
		if info, err := os.Stat(path); err == nil {
			stats.TotalBytes += info.Size()
		}

		data, err := os.ReadFile(path)
		if err != nil {
			stats.ExpiredEntries++
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || e.expired(s.now()) {
			stats.ExpiredEntries++
		}
	}
	return stats, nil
}
