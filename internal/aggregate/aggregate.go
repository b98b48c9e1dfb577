// Package aggregate implements the multi-run robustness statistics that
// power the model-comparison view: Pass@K, Pass^K, Max@K, Consistency,
// Reliability, and the per-item pass-count distribution, plus the stable
// per-model ranking and the generation-tagged recomputation engine.
package aggregate

import (
	"github.com/evalview/evalview/internal/metrics"
	"github.com/evalview/evalview/internal/models"
	"github.com/evalview/evalview/internal/statistics"
)

// Input carries everything the aggregator needs for one model.
type Input struct {
	RunSet    models.ModelRunSet
	Snapshots []models.RunSnapshot

	Metric    string
	Threshold float64 // effective threshold, already resolved for the metric type
	IsBoolean bool

	// WithCI attaches a bootstrap confidence interval over per-item best
	// scores. Seed keeps it deterministic.
	WithCI bool
	Seed   int64
}

// itemTally accumulates one item's samples across the selected runs.
type itemTally struct {
	sampled  int // n_i: runs that sampled this item
	passed   int // p_i: samples that passed
	best     float64
	hasScore bool
}

// Aggregate computes the cross-run robustness statistics for one model
// from its selected runs' snapshots.
//
// The item universe is the union of item IDs across all snapshots. A run
// that omits an item contributes no sample for it (absence is not
// failure), while a row with error=true counts as a sampled, failing
// score. Every ratio with an empty denominator resolves to null (for
// Consistency and Reliability) or zero plus the NoData flag, never to
// NaN: "no data" must not masquerade as "all failing".
func Aggregate(in Input) models.AggregateStats {
	stats := models.AggregateStats{
		SelectedCount:       len(in.RunSet.SelectedRuns),
		TotalAvailable:      in.RunSet.TotalAvailable,
		CorrectDistribution: []int{},
	}

	tallies := make(map[string]*itemTally)
	order := make([]string, 0)

	scoreSum := 0.0
	scoreCount := 0
	latencies := make([]float64, 0, len(in.Snapshots))

	for _, snap := range in.Snapshots {
		latencies = append(latencies, snap.Run.AvgLatencyMs)
		for _, row := range snap.Rows {
			tally := tallies[row.ItemID]
			if tally == nil {
				tally = &itemTally{}
				tallies[row.ItemID] = tally
				order = append(order, row.ItemID)
			}

			score, present := row.Score(in.Metric)
			if present {
				scoreSum += score
				scoreCount++
				if !tally.hasScore || score > tally.best {
					tally.best = score
					tally.hasScore = true
				}
			}

			switch {
			case row.Error:
				// Sampled and failing regardless of any reported score.
				tally.sampled++
				stats.FailedCount++
			case present:
				tally.sampled++
				if metrics.Passes(score, in.Threshold) {
					tally.passed++
				}
			}
		}
	}

	sampled := 0
	solvable := 0
	allPass := 0
	maxSampled := 0
	passSum := 0
	sampleSum := 0
	agreements := make([]float64, 0, len(order))
	bestScores := make([]float64, 0, len(order))

	for _, id := range order {
		tally := tallies[id]
		if tally.sampled == 0 {
			// Every row for this item omitted the metric: not sampled.
			continue
		}
		sampled++
		if tally.sampled > maxSampled {
			maxSampled = tally.sampled
		}
		if tally.passed >= 1 {
			solvable++
			passSum += tally.passed
			sampleSum += tally.sampled
		}
		if tally.passed == tally.sampled {
			allPass++
		}
		if tally.sampled >= 2 {
			frac := float64(tally.passed) / float64(tally.sampled)
			agreements = append(agreements, abs(2*frac-1))
		}
		if tally.hasScore {
			bestScores = append(bestScores, tally.best)
		}
	}

	stats.TotalItems = sampled
	stats.AvgLatencyMs = metrics.Mean(latencies)
	if scoreCount > 0 {
		stats.AvgScore = scoreSum / float64(scoreCount)
	}

	if sampled == 0 {
		stats.NoData = true
		return stats
	}

	stats.PassAtK = float64(solvable) / float64(sampled)
	stats.PassHatK = float64(allPass) / float64(sampled)
	stats.MaxAtK = metrics.Mean(bestScores)

	stats.CorrectDistribution = make([]int, maxSampled+1)
	for _, id := range order {
		tally := tallies[id]
		if tally.sampled > 0 {
			stats.CorrectDistribution[tally.passed]++
		}
	}

	if solvable > 0 {
		stats.Reliability = models.Float(float64(passSum) / float64(sampleSum))
	}
	if len(agreements) > 0 {
		stats.Consistency = models.Float(metrics.Mean(agreements))
	}

	if in.WithCI {
		ci := statistics.BootstrapCI(bestScores, statistics.DefaultConfidenceLevel, in.Seed)
		stats.MaxAtKCI = &ci
	}

	return stats
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
