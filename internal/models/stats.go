package models

import "github.com/evalview/evalview/internal/statistics"

// AggregateStats holds the cross-run robustness statistics for one model
// under a fixed (task, dataset, metric, K, threshold) configuration.
//
// Consistency and Reliability are pointers so "undefined" serializes as
// JSON null rather than a misleading zero: Reliability is nil exactly
// when PassAtK is zero, and Consistency is nil when no item was sampled
// by at least two runs.
type AggregateStats struct {
	PassAtK      float64  `json:"pass_at_k"`
	PassHatK     float64  `json:"pass_hat_k"`
	MaxAtK       float64  `json:"max_at_k"`
	Consistency  *float64 `json:"consistency"`
	Reliability  *float64 `json:"reliability"`
	AvgScore     float64  `json:"avg_score"`
	AvgLatencyMs float64  `json:"avg_latency_ms"`

	// TotalItems counts items sampled by at least one selected run;
	// the CorrectDistribution buckets always sum to it.
	TotalItems          int   `json:"total_items"`
	FailedCount         int   `json:"failed_count"`
	CorrectDistribution []int `json:"correct_distribution"`

	SelectedCount  int `json:"selected_count"`
	TotalAvailable int `json:"total_available"`

	// NoData marks stats degraded by zero selected runs, zero items, or a
	// fetch failure. Numeric fields are zero but must not be read as real
	// scores.
	NoData bool `json:"no_data,omitempty"`

	// MaxAtKCI is a bootstrap confidence interval over per-item best
	// scores, populated only when requested.
	MaxAtKCI *statistics.ConfidenceInterval `json:"max_at_k_ci,omitempty"`
}

// RankedModel is one entry of the display ranking.
type RankedModel struct {
	Model    string  `json:"model"`
	AvgScore float64 `json:"avg_score"`
}

// Float returns a pointer to v, for building nullable statistics.
func Float(v float64) *float64 { return &v }
