package pipeline

import (
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/signs"
)

// Score reports whether reconciled is an accepted sign of expected.
func Score(expected, reconciled model.Symbol) bool {
	return signs.IsAccepted(expected, reconciled)
}

// Classify applies the two-strikes policy. prior is the number of attempts
// already made on the letter before this one.
//
//	prior 0,  correct   -> correct
//	prior 0,  incorrect -> pending (retry)
//	prior 1+, correct   -> second-chance
//	prior 1+, incorrect -> failed
func Classify(prior int, correct bool) model.LetterStatus {
	switch {
	case prior == 0 && correct:
		return model.StatusCorrect
	case prior == 0:
		return model.StatusPending
	case correct:
		return model.StatusSecondChance
	default:
		return model.StatusFailed
	}
}
