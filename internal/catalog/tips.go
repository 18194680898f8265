package catalog

import "github.com/verte-zerg/signdrill/internal/model"

var tips = map[model.Symbol]string{
	"A": "Closed fist, thumb resting against the side of the index finger.",
	"B": "Flat hand, fingers together and straight, thumb folded across the palm.",
	"C": "Curve the fingers and thumb into a C shape.",
	"D": "Index finger up, other fingers curl to touch the thumb.",
	"E": "Fingertips bent down to rest on the thumb tucked across the palm.",
	"F": "Index finger and thumb touch in a circle, other fingers spread up.",
	"G": "Index finger and thumb point sideways, parallel.",
	"H": "Index and middle fingers point sideways together.",
	"I": "Pinky up, other fingers closed over the thumb.",
	"J": "Pinky up, then trace a J in the air.",
	"K": "Index and middle fingers up in a V, thumb touching the middle finger.",
	"L": "Index finger up and thumb out, forming an L.",
	"M": "Thumb tucked under the first three fingers.",
	"N": "Thumb tucked under the first two fingers.",
	"O": "All fingertips curve to meet the thumb in an O.",
	"P": "Like K, pointed downward.",
	"Q": "Like G, pointed downward.",
	"R": "Cross the middle finger over the index finger.",
	"S": "Closed fist, thumb across the front of the fingers.",
	"T": "Thumb tucked between the index and middle fingers.",
	"U": "Index and middle fingers up together.",
	"V": "Index and middle fingers up and spread.",
	"W": "Index, middle, and ring fingers up and spread.",
	"X": "Index finger bent into a hook.",
	"Y": "Thumb and pinky out, other fingers closed.",
	"Z": "Index finger traces a Z in the air.",
}

// Tip returns a handshape hint for the learning card.
func Tip(letter model.Symbol) string {
	if tip, ok := tips[letter]; ok {
		return tip
	}
	return "Watch the reference sign and mirror the handshape."
}
