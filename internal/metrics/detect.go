package metrics

import "math"

// booleanTolerance bounds how far an observed run average may sit from
// exactly 0 or 1 while the metric still counts as boolean.
const booleanTolerance = 1e-4

// BooleanThreshold is the effective pass threshold applied to boolean
// metrics: a score must be an exact pass, with headroom only for
// floating-point rounding.
const BooleanThreshold = 0.9999

// DetectBoolean classifies a metric from the run-level averages observed
// across the current task+dataset. A metric is boolean iff every average
// lies within booleanTolerance of 0 or 1. With no observed averages the
// metric defaults to boolean, which forces exact-match semantics rather
// than silently admitting near-misses.
func DetectBoolean(runAverages []float64) bool {
	for _, avg := range runAverages {
		if math.Abs(avg) > booleanTolerance && math.Abs(avg-1) > booleanTolerance {
			return false
		}
	}
	return true
}

// EffectiveThreshold resolves the pass threshold for a metric: boolean
// metrics always use BooleanThreshold; continuous metrics use the user
// threshold clamped to [0,1].
func EffectiveThreshold(isBoolean bool, userThreshold float64) float64 {
	if isBoolean {
		return BooleanThreshold
	}
	if userThreshold < 0 {
		return 0
	}
	if userThreshold > 1 {
		return 1
	}
	return userThreshold
}

// Passes reports whether a present score passes under the resolved
// threshold.
func Passes(score, threshold float64) bool {
	return score >= threshold
}
