package aggregate

import (
	"sort"

	"github.com/evalview/evalview/internal/models"
)

// Rank orders models by average score descending for display. The sort
// is stable over modelOrder (first-discovery order), so repeated renders
// with identical input produce an identical ordering even among ties.
// Models missing from stats are skipped.
func Rank(modelOrder []string, stats map[string]models.AggregateStats) []models.RankedModel {
	ranked := make([]models.RankedModel, 0, len(modelOrder))
	for _, m := range modelOrder {
		s, ok := stats[m]
		if !ok {
			continue
		}
		ranked = append(ranked, models.RankedModel{Model: m, AvgScore: s.AvgScore})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AvgScore > ranked[j].AvgScore
	})
	return ranked
}
