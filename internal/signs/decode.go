package signs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/signdrill/internal/model"
)

// LabelPrefix is the prefix the detector service puts on its class labels.
const LabelPrefix = "ASL_"

// ErrUnknownLabel is returned when a label does not name a single letter.
var ErrUnknownLabel = errors.New("unknown sign label")

// Decode turns a detector label into a Symbol. Surrounding space is trimmed,
// case is folded, and an optional LabelPrefix is removed; what remains must
// be exactly one letter A-Z. Bare letters decode to themselves.
func Decode(label string) (model.Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = strings.TrimPrefix(s, LabelPrefix)
	if !IsLetter(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return model.Symbol(s), nil
}

// IsLetter reports whether s is a single upper-case letter A-Z.
func IsLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}
