// Package models defines the data types shared across the aggregation
// engine: run references, item-level rows, fetched snapshots, and the
// computed robustness statistics.
package models

import (
	"encoding/json"
	"time"
)

// RunRef identifies one completed evaluation run. A RunRef is immutable:
// its FilePath uniquely and permanently identifies the run's content, so
// anything fetched for that path can be cached indefinitely.
type RunRef struct {
	FilePath     string    `json:"file_path"`
	RunName      string    `json:"run_name,omitempty"`
	Model        string    `json:"model"`
	Task         string    `json:"task"`
	Dataset      string    `json:"dataset"`
	Timestamp    time.Time `json:"timestamp"`
	MetricNames  []string  `json:"metric_names"`
	AvgLatencyMs float64   `json:"avg_latency_ms"`
	TotalItems   int       `json:"total_items"`

	// MetricAverages holds the run-level average per metric, available
	// from the index without fetching item rows. Metric type detection
	// reads these.
	MetricAverages map[string]float64 `json:"metric_averages,omitempty"`
}

// HasMetric reports whether the run declared the given metric.
func (r RunRef) HasMetric(name string) bool {
	for _, m := range r.MetricNames {
		if m == name {
			return true
		}
	}
	return false
}

// ItemRow is one dataset item's outcome within one run. A metric absent
// from Scores means the run reported no score for it; Error means the
// task failed outright for this item, which counts as a sampled, failing
// score during aggregation.
type ItemRow struct {
	ItemID string             `json:"item_id"`
	Scores map[string]float64 `json:"scores"`
	Error  bool               `json:"error"`
}

// UnmarshalJSON accepts the wire shape, where a score may be JSON null.
// Null scores are dropped at ingestion so downstream code only ever sees
// present values (absence, not zero).
func (r *ItemRow) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemID string              `json:"item_id"`
		Scores map[string]*float64 `json:"scores"`
		Error  bool                `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ItemID = raw.ItemID
	r.Error = raw.Error
	r.Scores = make(map[string]float64, len(raw.Scores))
	for name, v := range raw.Scores {
		if v != nil {
			r.Scores[name] = *v
		}
	}
	return nil
}

// Score returns the row's score for the metric and whether it is present.
func (r ItemRow) Score(metric string) (float64, bool) {
	v, ok := r.Scores[metric]
	return v, ok
}

// RunSnapshot is the fetched item-level detail for one run. Snapshots are
// immutable once fetched; a fetch failure is represented by empty Rows.
type RunSnapshot struct {
	Run  RunRef    `json:"run"`
	Rows []ItemRow `json:"rows"`
}

// ModelRunSet is the outcome of run selection for one model. SelectedRuns
// holds at most K file paths; TotalAvailable reports how many runs existed
// so callers can surface a partial-selection warning when
// len(SelectedRuns) < K.
type ModelRunSet struct {
	Model          string   `json:"model"`
	SelectedRuns   []string `json:"selected_runs"`
	TotalAvailable int      `json:"total_available"`
}
