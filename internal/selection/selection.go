// Package selection chooses which of a model's runs participate in
// aggregation: the newest K by default, or a user-pinned custom subset.
package selection

import (
	"sort"

	"github.com/evalview/evalview/internal/models"
)

// Select picks up to k runs for one model out of the runs available under
// the current task+dataset.
//
// When custom is non-empty it is treated as an explicit ordered pin list:
// paths no longer present in the run index are dropped, order is
// preserved, and the result is truncated to the first k. Otherwise the
// newest k runs by timestamp are taken. Fewer available runs than k is
// never an error; callers read TotalAvailable to surface a partial
// selection.
func Select(model string, runs []models.RunRef, custom []string, k int) models.ModelRunSet {
	if k < 1 {
		k = 1
	}

	set := models.ModelRunSet{
		Model:          model,
		TotalAvailable: len(runs),
	}

	if len(custom) > 0 {
		present := make(map[string]bool, len(runs))
		for _, r := range runs {
			present[r.FilePath] = true
		}
		for _, path := range custom {
			if !present[path] {
				continue
			}
			set.SelectedRuns = append(set.SelectedRuns, path)
			if len(set.SelectedRuns) == k {
				break
			}
		}
		return set
	}

	ordered := SortNewestFirst(runs)
	if len(ordered) > k {
		ordered = ordered[:k]
	}
	for _, r := range ordered {
		set.SelectedRuns = append(set.SelectedRuns, r.FilePath)
	}
	return set
}

// SortNewestFirst returns a copy of runs ordered by timestamp descending.
// The sort is stable so runs sharing a timestamp keep their index order,
// and repeated selection stays deterministic.
func SortNewestFirst(runs []models.RunRef) []models.RunRef {
	ordered := append([]models.RunRef(nil), runs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.After(ordered[j].Timestamp)
	})
	return ordered
}
