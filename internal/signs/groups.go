// Package signs holds the manual alphabet, the confusable-sign table, and
// the detector label decoding.
package signs

import "github.com/verte-zerg/signdrill/internal/model"

// groups maps an expected letter to the letters accepted in its place.
// Entries are authored by hand to absorb the detector's known confusions and
// are intentionally not symmetric (see D and X).
var groups = map[model.Symbol][]model.Symbol{
	// Fist-based signs.
	"A": {"A", "S", "M", "N", "T"},
	"S": {"A", "S", "M", "N", "T"},
	"M": {"A", "S", "M", "N", "T"},
	"N": {"A", "S", "M", "N", "T"},
	"T": {"A", "S", "M", "N", "T"},

	// Flat hand.
	"B": {"B", "C"},
	"C": {"B", "C"},

	// Pointing finger; D is also close to X.
	"D": {"D", "G", "H", "X"},
	"G": {"D", "G", "H", "X"},
	"H": {"D", "G", "H", "X"},

	// Pinky.
	"I": {"I", "J"},
	"J": {"I", "J"},

	// Two fingers.
	"K": {"K", "V", "U"},
	"V": {"K", "V", "U"},
	"U": {"K", "V", "U"},

	// Curved fingers.
	"E": {"E", "O"},
	"O": {"E", "O"},

	// Thumb touching; X also reads as D.
	"F": {"F", "X"},
	"X": {"F", "X", "D", "G", "H"},

	// Thumb extended.
	"L": {"L", "Y"},
	"Y": {"L", "Y"},

	"P": {"P", "Q"},
	"Q": {"P", "Q"},

	"R": {"R"},
	"W": {"W"},
	"Z": {"Z"},
}

// Accepted returns the letters accepted for expected. Letters without a
// configured group accept only themselves. The returned slice is a copy.
func Accepted(expected model.Symbol) []model.Symbol {
	group, ok := groups[expected]
	if !ok {
		return []model.Symbol{expected}
	}
	out := make([]model.Symbol, len(group))
	copy(out, group)
	return out
}

// IsAccepted reports whether detected counts as a correct sign of expected.
func IsAccepted(expected, detected model.Symbol) bool {
	if expected == detected {
		return true
	}
	for _, s := range groups[expected] {
		if s == detected {
			return true
		}
	}
	return false
}

// Alphabet returns the 26 letters in order.
func Alphabet() []model.Symbol {
	out := make([]model.Symbol, 0, model.AlphabetSize)
	for r := 'A'; r <= 'Z'; r++ {
		out = append(out, model.Symbol(string(r)))
	}
	return out
}
