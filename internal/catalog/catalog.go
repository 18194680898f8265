// Package catalog defines the lesson modules.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/verte-zerg/signdrill/internal/model"
)

// ErrModuleNotFound is returned for unknown module ids.
var ErrModuleNotFound = errors.New("module not found")

var modules = []model.Module{
	{ID: 1, Title: "Letter A - E", Description: "Learn the first 5 letters of the ASL alphabet", LetterSet: []model.Symbol{"A", "B", "C", "D", "E"}},
	{ID: 2, Title: "Letter F - J", Description: "Learn the next 5 letters of the ASL alphabet", LetterSet: []model.Symbol{"F", "G", "H", "I", "J"}},
	{ID: 3, Title: "Letter K - O", Description: "Learn the next 5 letters of the ASL alphabet", LetterSet: []model.Symbol{"K", "L", "M", "N", "O"}},
	{ID: 4, Title: "Letter P - T", Description: "Learn the next 5 letters of the ASL alphabet", LetterSet: []model.Symbol{"P", "Q", "R", "S", "T"}},
	{ID: 5, Title: "Letter U - Z", Description: "Learn the last 6 letters of the ASL alphabet", LetterSet: []model.Symbol{"U", "V", "W", "X", "Y", "Z"}},
	{ID: 6, Title: "Basics: CAT", Description: "Learn to spell CAT in ASL", LetterSet: []model.Symbol{"C", "A", "T"}},
	{ID: 7, Title: "Basics: DOG", Description: "Learn to spell DOG in ASL", LetterSet: []model.Symbol{"D", "O", "G"}},
	{ID: 8, Title: "Basics: HELP", Description: "Learn to spell HELP in ASL", LetterSet: []model.Symbol{"H", "E", "L", "P"}},
	{ID: 9, Title: "Basics: ORANGE", Description: "Learn to spell ORANGE in ASL", LetterSet: []model.Symbol{"O", "R", "A", "N", "G", "E"}},
}

// Modules returns a copy of the catalog with Completed unset.
func Modules() []model.Module {
	out := make([]model.Module, len(modules))
	for i, m := range modules {
		out[i] = clone(m)
	}
	return out
}

// Find returns the module with the given id.
func Find(id int) (model.Module, error) {
	for _, m := range modules {
		if m.ID == id {
			return clone(m), nil
		}
	}
	return model.Module{}, fmt.Errorf("%w: %d", ErrModuleNotFound, id)
}

// WithCompletion marks the modules listed in completed.
func WithCompletion(mods []model.Module, completed map[int]bool) []model.Module {
	out := make([]model.Module, len(mods))
	for i, m := range mods {
		m = clone(m)
		m.Completed = m.Completed || completed[m.ID]
		out[i] = m
	}
	return out
}

// CompletionPercent returns the rounded share of completed modules.
func CompletionPercent(mods []model.Module) int {
	if len(mods) == 0 {
		return 0
	}
	done := 0
	for _, m := range mods {
		if m.Completed {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(mods)) * 100))
}

func clone(m model.Module) model.Module {
	letters := make([]model.Symbol, len(m.LetterSet))
	copy(letters, m.LetterSet)
	m.LetterSet = letters
	return m
}
