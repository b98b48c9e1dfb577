// Package projectconfig provides the ProjectConfig struct and loader for
// .evalview.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/evalview/evalview/internal/models"
)

// Default values for project configuration. New() references them and
// no other code should duplicate them. K and threshold defaults live in
// the models package next to AggregationContext.
const (
	DefaultRunsDir = "runs/"

	DefaultServerPort = 3000
)

// PathsConfig holds directory paths.
type PathsConfig struct {
	Runs string `yaml:"runs,omitempty"`
}

// DefaultsConfig holds default aggregation parameters.
type DefaultsConfig struct {
	Metric    string   `yaml:"metric,omitempty"`
	K         int      `yaml:"k,omitempty"`
	Threshold *float64 `yaml:"threshold,omitempty"`
}

// ServerConfig holds API server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// ViewPreset is a saved comparison view. Params is a generic map in the
// YAML file and is decoded into typed PresetParams on demand, so presets
// can omit any subset of parameters.
type ViewPreset struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

// PresetParams are the typed aggregation parameters of a view preset.
type PresetParams struct {
	Task      string  `mapstructure:"task"`
	Dataset   string  `mapstructure:"dataset"`
	Metric    string  `mapstructure:"metric"`
	K         int     `mapstructure:"k"`
	Threshold float64 `mapstructure:"threshold"`
	WithCI    bool    `mapstructure:"with_ci"`
	Seed      int64   `mapstructure:"seed"`
}

// ProjectConfig is the top-level configuration loaded from .evalview.yaml.
type ProjectConfig struct {
	Paths    PathsConfig    `yaml:"paths,omitempty"`
	Defaults DefaultsConfig `yaml:"defaults,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Views    []ViewPreset   `yaml:"views,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	threshold := float64(models.DefaultThreshold)
	return &ProjectConfig{
		Paths: PathsConfig{
			Runs: DefaultRunsDir,
		},
		Defaults: DefaultsConfig{
			K:         models.DefaultK,
			Threshold: &threshold,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
	}
}

// Load finds .evalview.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults. If no config
// file is found, returns defaults with a nil error. Real I/O errors
// (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .evalview.yaml: %w", err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .evalview.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// Preset returns the named view preset decoded into typed parameters,
// with unset K and threshold backfilled from the config defaults.
func (c *ProjectConfig) Preset(name string) (*PresetParams, error) {
	for _, v := range c.Views {
		if v.Name != name {
			continue
		}
		params := PresetParams{
			Metric: c.Defaults.Metric,
			K:      c.Defaults.K,
		}
		if c.Defaults.Threshold != nil {
			params.Threshold = *c.Defaults.Threshold
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &params,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(v.Params); err != nil {
			return nil, fmt.Errorf("decoding view preset %q: %w", name, err)
		}
		return &params, nil
	}
	return nil, fmt.Errorf("view preset %q not found", name)
}

// Context builds an AggregationContext from typed preset parameters.
func (p *PresetParams) Context() models.AggregationContext {
	return models.AggregationContext{
		Task:      p.Task,
		Dataset:   p.Dataset,
		Metric:    p.Metric,
		K:         p.K,
		Threshold: p.Threshold,
		WithCI:    p.WithCI,
		Seed:      p.Seed,
	}.Normalize()
}

// findConfigFile walks up from dir looking for .evalview.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".evalview.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Paths.Runs != "" {
		dst.Paths.Runs = src.Paths.Runs
	}
	if src.Defaults.Metric != "" {
		dst.Defaults.Metric = src.Defaults.Metric
	}
	if src.Defaults.K != 0 {
		dst.Defaults.K = src.Defaults.K
	}
	if src.Defaults.Threshold != nil {
		dst.Defaults.Threshold = src.Defaults.Threshold
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if len(src.Views) > 0 {
		dst.Views = src.Views
	}
}
