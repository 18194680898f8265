package stats

import (
	"sort"

	"github.com/verte-zerg/signdrill/internal/model"
)

// Aggregate folds an attempt history into an Insights summary. Accuracy only
// considers first attempts. Empty input yields the zero summary.
func Aggregate(attempts []model.Attempt) model.Insights {
	if len(attempts) == 0 {
		return model.Insights{}
	}
	letters := map[model.Symbol]struct{}{}
	first, firstCorrect := 0, 0
	for _, a := range attempts {
		letters[a.Letter] = struct{}{}
		if a.AttemptNumber == 1 {
			first++
			if a.IsCorrect {
				firstCorrect++
			}
		}
	}
	return model.Insights{
		VocabularyCount:      len(letters),
		VocabularyPercentage: Percent(len(letters), model.AlphabetSize),
		AvgAccuracy:          Percent(firstCorrect, first),
		TotalTries:           len(attempts),
	}
}

// LetterBreakdown aggregates attempts per letter, sorted by letter.
func LetterBreakdown(attempts []model.Attempt) []model.LetterAggregate {
	byLetter := map[model.Symbol]*model.LetterAggregate{}
	for _, a := range attempts {
		agg, ok := byLetter[a.Letter]
		if !ok {
			agg = &model.LetterAggregate{Letter: a.Letter}
			byLetter[a.Letter] = agg
		}
		agg.Tries++
		if a.IsCorrect {
			agg.Correct++
		}
		if a.AttemptNumber == 1 {
			agg.FirstAttempts++
			if a.IsCorrect {
				agg.FirstCorrect++
			}
		}
	}
	out := make([]model.LetterAggregate, 0, len(byLetter))
	for _, agg := range byLetter {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Letter < out[j].Letter
	})
	return out
}

// FirstAttemptSeries returns first-attempt correctness (0 or 100) in
// chronological order. Input is expected newest-first, as the store returns it.
func FirstAttemptSeries(attempts []model.Attempt) []float64 {
	var out []float64
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		if a.AttemptNumber != 1 {
			continue
		}
		v := 0.0
		if a.IsCorrect {
			v = 100
		}
		out = append(out, v)
	}
	return out
}
