package stats

import (
	"sort"

	"github.com/verte-zerg/signdrill/internal/model"
)

// WeakLetters returns up to top letters with the lowest first-attempt
// accuracy. Letters never missed on a first attempt are skipped.
func WeakLetters(aggs []model.LetterAggregate, top int) []model.Symbol {
	candidates := make([]model.LetterAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.FirstAttempts > 0 && agg.FirstCorrect < agg.FirstAttempts {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai := firstAccuracy(candidates[i])
		aj := firstAccuracy(candidates[j])
		if ai == aj {
			return candidates[i].Letter < candidates[j].Letter
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	out := make([]model.Symbol, 0, top)
	for i := 0; i < top; i++ {
		out = append(out, candidates[i].Letter)
	}
	return out
}

func firstAccuracy(agg model.LetterAggregate) float64 {
	if agg.FirstAttempts == 0 {
		return 1.0
	}
	return float64(agg.FirstCorrect) / float64(agg.FirstAttempts)
}
