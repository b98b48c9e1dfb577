// Package runstore implements the run-storage collaborator: a directory
// of immutable run snapshot files, served as a run index and an
// item-level snapshot query interface.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/evalview/evalview/internal/models"
)

// ErrRunNotFound is returned when a queried file path matches no stored run.
var ErrRunNotFound = errors.New("run not found")

// View is one task+dataset combination present in the store.
type View struct {
	Task    string `json:"task"`
	Dataset string `json:"dataset"`
}

// FileStore reads run snapshot files (.json or .json.zst) from a
// directory. Files are schema-validated once at load; invalid files are
// skipped with a warning rather than failing the whole store.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu     sync.RWMutex
	snaps  map[string]models.RunSnapshot // keyed by RunRef.FilePath
	loaded bool
}

// NewFileStore creates a FileStore over dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger,
		snaps:  make(map[string]models.RunSnapshot),
	}
}

// load reads every snapshot file from the configured directory.
func (fs *FileStore) load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.snaps = make(map[string]models.RunSnapshot)

	if fs.dir == "" {
		fs.loaded = true
		return nil
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		if os.IsNotExist(err) {
			fs.loaded = true
			return nil
		}
		return fmt.Errorf("reading run directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !isSnapshotFile(e.Name()) {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		snap, err := readSnapshotFile(path)
		if err != nil {
			fs.logger.Warn("skipping run snapshot", "file", e.Name(), "error", err)
			continue
		}
		snap.Run.FilePath = e.Name()
		if snap.Run.RunName == "" {
			snap.Run.RunName = trimSnapshotExt(e.Name())
		}
		normalizeRun(&snap)
		fs.snaps[snap.Run.FilePath] = snap
	}

	fs.loaded = true
	return nil
}

func (fs *FileStore) ensureLoaded() error {
	fs.mu.RLock()
	if fs.loaded {
		fs.mu.RUnlock()
		return nil
	}
	fs.mu.RUnlock()
	return fs.load()
}

// Reload forces a fresh scan of the run directory.
func (fs *FileStore) Reload() error {
	fs.mu.Lock()
	fs.loaded = false
	fs.mu.Unlock()
	return fs.load()
}

// Runs returns the run references under a task+dataset view, newest
// first. Item rows are not included; those come through QuerySnapshots.
func (fs *FileStore) Runs(task, dataset string) []models.RunRef {
	if err := fs.ensureLoaded(); err != nil {
		fs.logger.Warn("run index unavailable", "error", err)
		return nil
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	refs := make([]models.RunRef, 0)
	for _, snap := range fs.snaps {
		if snap.Run.Task == task && snap.Run.Dataset == dataset {
			refs = append(refs, snap.Run)
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].Timestamp.Equal(refs[j].Timestamp) {
			return refs[i].Timestamp.After(refs[j].Timestamp)
		}
		return refs[i].FilePath < refs[j].FilePath
	})
	return refs
}

// Views lists every task+dataset combination in the store, sorted.
func (fs *FileStore) Views() []View {
	if err := fs.ensureLoaded(); err != nil {
		return nil
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	seen := make(map[View]bool)
	views := make([]View, 0)
	for _, snap := range fs.snaps {
		v := View{Task: snap.Run.Task, Dataset: snap.Run.Dataset}
		if !seen[v] {
			seen[v] = true
			views = append(views, v)
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Task != views[j].Task {
			return views[i].Task < views[j].Task
		}
		return views[i].Dataset < views[j].Dataset
	})
	return views
}

// Metrics returns the union of metric names declared by runs under a
// task+dataset view, sorted.
func (fs *FileStore) Metrics(task, dataset string) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, r := range fs.Runs(task, dataset) {
		for _, m := range r.MetricNames {
			if !seen[m] {
				seen[m] = true
				names = append(names, m)
			}
		}
	}
	sort.Strings(names)
	return names
}

// QuerySnapshots implements the snapshot query contract: it returns the
// stored snapshots for the given file paths. An unknown path fails the
// whole query; the fetch layer turns that into empty-row snapshots.
func (fs *FileStore) QuerySnapshots(_ context.Context, filePaths []string) ([]models.RunSnapshot, error) {
	if err := fs.ensureLoaded(); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	snaps := make([]models.RunSnapshot, 0, len(filePaths))
	for _, path := range filePaths {
		snap, ok := fs.snaps[path]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, path)
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func isSnapshotFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.zst")
}

func trimSnapshotExt(name string) string {
	name = strings.TrimSuffix(name, ".zst")
	return strings.TrimSuffix(name, ".json")
}

// readSnapshotFile reads, decompresses if needed, schema-checks, and
// parses one snapshot file.
func readSnapshotFile(path string) (models.RunSnapshot, error) {
	var snap models.RunSnapshot

	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}

	if strings.HasSuffix(path, ".zst") {
		r, err := zstd.NewReader(nil)
		if err != nil {
			return snap, fmt.Errorf("initializing zstd reader: %w", err)
		}
		defer r.Close()
		data, err = r.DecodeAll(data, nil)
		if err != nil {
			return snap, fmt.Errorf("decompressing: %w", err)
		}
	}

	if errs := ValidateSnapshotBytes(data); len(errs) > 0 {
		return snap, fmt.Errorf("schema validation failed: %s", strings.Join(errs, "; "))
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap, nil
}

// normalizeRun fills index-level fields computable from the rows:
// per-metric run averages and the item count. An error row contributes a
// zero score to the average; a row that simply omits a metric does not
// count toward it.
func normalizeRun(snap *models.RunSnapshot) {
	if snap.Run.TotalItems == 0 {
		snap.Run.TotalItems = len(snap.Rows)
	}
	if snap.Run.MetricAverages != nil {
		return
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, row := range snap.Rows {
		for _, name := range snap.Run.MetricNames {
			score, present := row.Score(name)
			switch {
			case row.Error:
				counts[name]++
			case present:
				sums[name] += score
				counts[name]++
			}
		}
	}

	snap.Run.MetricAverages = make(map[string]float64, len(counts))
	for name, n := range counts {
		if n > 0 {
			snap.Run.MetricAverages[name] = sums[name] / float64(n)
		}
	}
}
