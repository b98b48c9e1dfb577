package projectconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evalview/evalview/internal/models"
)

func TestNew_ReturnsAllDefaults(t *testing.T) {
	cfg := New()

	assertEqual(t, "Paths.Runs", "runs/", cfg.Paths.Runs)
	assertEqual(t, "Defaults.Metric", "", cfg.Defaults.Metric)
	assertEqualInt(t, "Defaults.K", models.DefaultK, cfg.Defaults.K)
	assertFloatPtr(t, "Defaults.Threshold", models.DefaultThreshold, cfg.Defaults.Threshold)
	assertEqualInt(t, "Server.Port", 3000, cfg.Server.Port)
	if cfg.Views != nil {
		t.Error("Views should be nil by default")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evalview.yaml", `
paths:
  runs: "eval-runs/"
defaults:
  metric: accuracy
  k: 3
  threshold: 0.6
server:
  port: 8080
views:
  - name: nightly
    params:
      task: chess
      dataset: openings-v2
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Paths.Runs", "eval-runs/", cfg.Paths.Runs)
	assertEqual(t, "Defaults.Metric", "accuracy", cfg.Defaults.Metric)
	assertEqualInt(t, "Defaults.K", 3, cfg.Defaults.K)
	assertFloatPtr(t, "Defaults.Threshold", 0.6, cfg.Defaults.Threshold)
	assertEqualInt(t, "Server.Port", 8080, cfg.Server.Port)
	if len(cfg.Views) != 1 || cfg.Views[0].Name != "nightly" {
		t.Errorf("Views = %+v, want the nightly preset", cfg.Views)
	}
}

func TestLoad_PartialConfig_PreservesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evalview.yaml", `
defaults:
  metric: accuracy
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Defaults.Metric", "accuracy", cfg.Defaults.Metric)
	// Everything else keeps its default.
	assertEqual(t, "Paths.Runs", "runs/", cfg.Paths.Runs)
	assertEqualInt(t, "Defaults.K", models.DefaultK, cfg.Defaults.K)
	assertFloatPtr(t, "Defaults.Threshold", models.DefaultThreshold, cfg.Defaults.Threshold)
	assertEqualInt(t, "Server.Port", 3000, cfg.Server.Port)
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	defaults := New()
	assertEqual(t, "Paths.Runs", defaults.Paths.Runs, cfg.Paths.Runs)
	assertEqualInt(t, "Defaults.K", defaults.Defaults.K, cfg.Defaults.K)
	assertEqualInt(t, "Server.Port", defaults.Server.Port, cfg.Server.Port)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evalview.yaml", `
defaults:
  metric: [not valid yaml
    this is broken
`)

	_, err := Load(dir)
	if err == nil {
		t.Fatal("Load() should return error for invalid YAML")
	}
}

func TestLoad_WalksUpDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".evalview.yaml", `
defaults:
  metric: found-it
`)

	child := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(child)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "Defaults.Metric", "found-it", cfg.Defaults.Metric)
	// Other defaults still populated
	assertEqualInt(t, "Defaults.K", models.DefaultK, cfg.Defaults.K)
}

func TestLoad_ExplicitZeroThreshold(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".evalview.yaml", `
defaults:
  threshold: 0
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	// threshold: 0 is explicit, not "unset": the pointer distinguishes it.
	assertFloatPtr(t, "Defaults.Threshold", 0, cfg.Defaults.Threshold)
}

func TestPreset(t *testing.T) {
	cfg := New()
	cfg.Defaults.Metric = "accuracy"
	cfg.Views = []ViewPreset{
		{
			Name: "nightly",
			Params: map[string]any{
				"task":    "chess",
				"dataset": "openings-v2",
				"k":       3,
			},
		},
		{
			Name: "deep",
			Params: map[string]any{
				"task":      "chess",
				"dataset":   "endgames",
				"metric":    "depth",
				"threshold": 0.5,
				"with_ci":   true,
				"seed":      42,
			},
		},
	}

	t.Run("backfills defaults", func(t *testing.T) {
		p, err := cfg.Preset("nightly")
		if err != nil {
			t.Fatalf("Preset() error: %v", err)
		}
		assertEqual(t, "Task", "chess", p.Task)
		assertEqual(t, "Metric", "accuracy", p.Metric)
		assertEqualInt(t, "K", 3, p.K)
		if p.Threshold != models.DefaultThreshold {
			t.Errorf("Threshold = %f, want backfilled default", p.Threshold)
		}
	})

	t.Run("full override", func(t *testing.T) {
		p, err := cfg.Preset("deep")
		if err != nil {
			t.Fatalf("Preset() error: %v", err)
		}
		assertEqual(t, "Metric", "depth", p.Metric)
		if p.Threshold != 0.5 || !p.WithCI || p.Seed != 42 {
			t.Errorf("params = %+v, want preset values decoded", p)
		}

		aggCtx := p.Context()
		if aggCtx.Dataset != "endgames" || aggCtx.K != models.DefaultK {
			t.Errorf("Context() = %+v", aggCtx)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		if _, err := cfg.Preset("nope"); err == nil {
			t.Fatal("Preset() should fail for an unknown name")
		}
	})

	t.Run("unknown parameter rejected", func(t *testing.T) {
		cfg := New()
		cfg.Views = []ViewPreset{{
			Name:   "typo",
			Params: map[string]any{"thresold": 0.5},
		}}
		if _, err := cfg.Preset("typo"); err == nil {
			t.Fatal("Preset() should reject unknown parameter names")
		}
	})
}

// --- test helpers ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

func assertFloatPtr(t *testing.T, field string, want float64, got *float64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s is nil, want *%v", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %v, want %v", field, *got, want)
	}
}
