package runstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
)

const fixtureSnapshot = `{
  "run": {
    "run_name": "%s",
    "model": "%s",
    "task": "chess",
    "dataset": "openings-v2",
    "timestamp": "%s",
    "metric_names": ["accuracy"],
    "avg_latency_ms": 120,
    "total_items": 2
  },
  "rows": [
    {"item_id": "it1", "scores": {"accuracy": 1}},
    {"item_id": "it2", "scores": {"accuracy": 0}}
  ]
}`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func writeZstFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("creating zstd writer: %v", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll([]byte(content), nil)
	if err := os.WriteFile(filepath.Join(dir, name), compressed, 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
}

func fixture(runName, model string, ts time.Time) string {
	return fmt.Sprintf(fixtureSnapshot, runName, model, ts.Format(time.RFC3339))
}

func TestFileStore_RunsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFixture(t, dir, "old.json", fixture("old", "ace", base.Add(-2*time.Hour)))
	writeFixture(t, dir, "new.json", fixture("new", "ace", base))
	writeZstFixture(t, dir, "mid.json.zst", fixture("mid", "ace", base.Add(-time.Hour)))

	store := NewFileStore(dir, nil)
	runs := store.Runs("chess", "openings-v2")
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3 (.json and .json.zst both load)", len(runs))
	}

	gotOrder := []string{runs[0].RunName, runs[1].RunName, runs[2].RunName}
	if !reflect.DeepEqual(gotOrder, []string{"new", "mid", "old"}) {
		t.Errorf("run order = %v, want newest first", gotOrder)
	}
	if runs[1].FilePath != "mid.json.zst" {
		t.Errorf("FilePath = %s, want the on-disk file name", runs[1].FilePath)
	}
}

func TestFileStore_RunNames(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "march-eval.json", fixture("placeholder", "ace", time.Now().UTC()))

	store := NewFileStore(dir, nil)
	runs := store.Runs("chess", "openings-v2")
	if len(runs) != 1 || runs[0].RunName != "placeholder" {
		t.Fatalf("runs = %+v, want the declared run name preserved", runs)
	}

	if got := trimSnapshotExt("march-eval.json.zst"); got != "march-eval" {
		t.Errorf("trimSnapshotExt = %q, want both extensions stripped", got)
	}
}

func TestFileStore_InvalidFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "good.json", fixture("good", "ace", time.Now().UTC()))
	writeFixture(t, dir, "bad.json", `{"rows": []}`)
	writeFixture(t, dir, "garbage.json", `not json at all`)
	writeFixture(t, dir, "notes.txt", `ignored entirely`)

	store := NewFileStore(dir, nil)
	runs := store.Runs("chess", "openings-v2")
	if len(runs) != 1 || runs[0].RunName != "good" {
		t.Errorf("runs = %+v, want only the valid snapshot", runs)
	}
}

func TestFileStore_MissingDirectoryIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	if runs := store.Runs("chess", "openings-v2"); len(runs) != 0 {
		t.Errorf("runs = %+v, want none for a missing directory", runs)
	}
}

func TestFileStore_MetricAverages(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "mixed.json", `{
	  "run": {
	    "run_name": "mixed",
	    "model": "ace",
	    "task": "chess",
	    "dataset": "openings-v2",
	    "timestamp": "2026-03-01T12:00:00Z",
	    "metric_names": ["accuracy"],
	    "avg_latency_ms": 120,
	    "total_items": 0
	  },
	  "rows": [
	    {"item_id": "it1", "scores": {"accuracy": 1.0}},
	    {"item_id": "it2", "scores": {"accuracy": 0.5}},
	    {"item_id": "it3", "scores": {}, "error": true},
	    {"item_id": "it4", "scores": {"accuracy": null}}
	  ]
	}`)

	store := NewFileStore(dir, nil)
	runs := store.Runs("chess", "openings-v2")
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}

	// Error rows count as zero; the null-score row does not count at all.
	want := (1.0 + 0.5 + 0.0) / 3.0
	got, ok := runs[0].MetricAverages["accuracy"]
	if !ok || math.Abs(got-want) > 1e-9 {
		t.Errorf("accuracy average = %f (present=%v), want %f", got, ok, want)
	}
	if runs[0].TotalItems != 4 {
		t.Errorf("TotalItems = %d, want filled from row count", runs[0].TotalItems)
	}
}

func TestFileStore_ViewsAndMetrics(t *testing.T) {
	dir := t.TempDir()
	ts := time.Now().UTC()
	writeFixture(t, dir, "a.json", fixture("a", "ace", ts))
	writeFixture(t, dir, "b.json", `{
	  "run": {
	    "run_name": "b",
	    "model": "ace",
	    "task": "chess",
	    "dataset": "endgames",
	    "timestamp": "2026-03-01T12:00:00Z",
	    "metric_names": ["depth", "accuracy"],
	    "avg_latency_ms": 90,
	    "total_items": 1
	  },
	  "rows": [{"item_id": "it1", "scores": {"depth": 0.4, "accuracy": 0.9}}]
	}`)

	store := NewFileStore(dir, nil)

	views := store.Views()
	wantViews := []View{
		{Task: "chess", Dataset: "endgames"},
		{Task: "chess", Dataset: "openings-v2"},
	}
	if !reflect.DeepEqual(views, wantViews) {
		t.Errorf("Views() = %+v, want %+v", views, wantViews)
	}

	metrics := store.Metrics("chess", "endgames")
	if !reflect.DeepEqual(metrics, []string{"accuracy", "depth"}) {
		t.Errorf("Metrics() = %v, want sorted union", metrics)
	}
}

func TestFileStore_QuerySnapshots(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.json", fixture("a", "ace", time.Now().UTC()))

	store := NewFileStore(dir, nil)
	ctx := context.Background()

	snaps, err := store.QuerySnapshots(ctx, []string{"a.json"})
	if err != nil {
		t.Fatalf("QuerySnapshots failed: %v", err)
	}
	if len(snaps) != 1 || len(snaps[0].Rows) != 2 {
		t.Fatalf("snapshots = %+v, want one snapshot with its rows", snaps)
	}

	// One unknown path fails the whole query.
	if _, err := store.QuerySnapshots(ctx, []string{"a.json", "ghost.json"}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("QuerySnapshots with unknown path = %v, want ErrRunNotFound", err)
	}
}

func TestValidateSnapshotBytes(t *testing.T) {
	testCases := []struct {
		name      string
		doc       string
		wantValid bool
	}{
		{"valid", fixture("ok", "ace", time.Now().UTC()), true},
		{"null score allowed", `{
		  "run": {"run_name": "n", "metric_names": [], "avg_latency_ms": 0, "total_items": 1},
		  "rows": [{"item_id": "it1", "scores": {"accuracy": null}}]
		}`, true},
		{"missing rows", `{"run": {"run_name": "n", "metric_names": [], "avg_latency_ms": 0, "total_items": 0}}`, false},
		{"missing run_name", `{"run": {"metric_names": [], "avg_latency_ms": 0, "total_items": 0}, "rows": []}`, false},
		{"row without item_id", `{
		  "run": {"run_name": "n", "metric_names": [], "avg_latency_ms": 0, "total_items": 1},
		  "rows": [{"scores": {}}]
		}`, false},
		{"string score", `{
		  "run": {"run_name": "n", "metric_names": [], "avg_latency_ms": 0, "total_items": 1},
		  "rows": [{"item_id": "it1", "scores": {"accuracy": "high"}}]
		}`, false},
		{"negative latency", `{
		  "run": {"run_name": "n", "metric_names": [], "avg_latency_ms": -5, "total_items": 0},
		  "rows": []
		}`, false},
		{"not json", `{{{{`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateSnapshotBytes([]byte(tc.doc))
			if valid := len(errs) == 0; valid != tc.wantValid {
				t.Errorf("valid = %v (errors %v), want %v", valid, errs, tc.wantValid)
			}
		})
	}
}
