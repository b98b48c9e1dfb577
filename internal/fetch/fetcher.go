// Package fetch retrieves item-level run snapshots from the run-storage
// collaborator, caching them for the lifetime of the process. Runs are
// immutable after creation, so cached snapshots can never go stale.
package fetch

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/evalview/evalview/internal/models"
)

// SnapshotQuerier is the external query collaborator: it accepts a list
// of run file paths and returns the parsed snapshots. Retry and backoff
// policy belongs to implementations, not to this layer.
type SnapshotQuerier interface {
	QuerySnapshots(ctx context.Context, filePaths []string) ([]models.RunSnapshot, error)
}

// Fetcher caches snapshot query results by canonical path-set key and
// de-duplicates concurrent requests for the same key, so a caller
// arriving while an identical fetch is outstanding reuses it instead of
// issuing a second query.
type Fetcher struct {
	querier SnapshotQuerier
	logger  *slog.Logger
	group   singleflight.Group

	// cache is append-only: keys are inserted once and never evicted or
	// overwritten within a session.
	mu    sync.RWMutex
	cache map[string][]models.RunSnapshot
}

// New creates a Fetcher over the given querier.
func New(querier SnapshotQuerier, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		querier: querier,
		logger:  logger,
		cache:   make(map[string][]models.RunSnapshot),
	}
}

// CanonicalPaths deduplicates and sorts a path list into the canonical
// form used for cache keys and collaborator queries.
func CanonicalPaths(filePaths []string) []string {
	seen := make(map[string]bool, len(filePaths))
	canonical := make([]string, 0, len(filePaths))
	for _, p := range filePaths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		canonical = append(canonical, p)
	}
	sort.Strings(canonical)
	return canonical
}

// CacheKey returns the cache key for a path set.
func CacheKey(filePaths []string) string {
	return strings.Join(CanonicalPaths(filePaths), "\x00")
}

// Fetch returns snapshots for the given run paths, in the order the
// snapshots come back from the collaborator. A failed query degrades to
// snapshots with empty row lists rather than an error, so aggregation
// for the affected model falls back to zero-item statistics without
// disturbing other models. Failed results are not cached; only real run
// content is immutable.
func (f *Fetcher) Fetch(ctx context.Context, filePaths []string) []models.RunSnapshot {
	canonical := CanonicalPaths(filePaths)
	if len(canonical) == 0 {
		return nil
	}
	key := strings.Join(canonical, "\x00")

	if snaps, ok := f.lookup(key); ok {
		return snaps
	}

	v, _, _ := f.group.Do(key, func() (any, error) {
		// A fetch for this key may have completed while we waited on the
		// singleflight lock.
		if snaps, ok := f.lookup(key); ok {
			return snaps, nil
		}

		snaps, err := f.querier.QuerySnapshots(ctx, canonical)
		if err != nil {
			f.logger.Warn("snapshot query failed, degrading to empty rows",
				"paths", len(canonical), "error", err)
			return emptySnapshots(canonical), nil
		}

		f.insert(key, snaps)
		return snaps, nil
	})
	return v.([]models.RunSnapshot)
}

// Size returns the number of cached path-set entries.
func (f *Fetcher) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

func (f *Fetcher) lookup(key string) ([]models.RunSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	snaps, ok := f.cache[key]
	return snaps, ok
}

func (f *Fetcher) insert(key string, snaps []models.RunSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cache[key]; ok {
		// Never overwrite an existing entry.
		return
	}
	f.cache[key] = snaps
}

// emptySnapshots builds one zero-row snapshot per requested path.
func emptySnapshots(filePaths []string) []models.RunSnapshot {
	snaps := make([]models.RunSnapshot, 0, len(filePaths))
	for _, p := range filePaths {
		snaps = append(snaps, models.RunSnapshot{Run: models.RunRef{FilePath: p}})
	}
	return snaps
}
