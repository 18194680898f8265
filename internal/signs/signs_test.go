package signs

import (
	"errors"
	"testing"

	"github.com/verte-zerg/signdrill/internal/model"
)

func TestIsAcceptedReflexive(t *testing.T) {
	for _, s := range Alphabet() {
		if !IsAccepted(s, s) {
			t.Fatalf("expected %s to accept itself", s)
		}
		found := false
		for _, a := range Accepted(s) {
			if a == s {
				found = true
			}
		}
		if !found {
			t.Fatalf("group for %s does not contain itself: %v", s, Accepted(s))
		}
	}
}

func TestIsAcceptedAsymmetricGroups(t *testing.T) {
	cases := []struct {
		expected model.Symbol
		detected model.Symbol
		want     bool
	}{
		{"F", "X", true},
		{"X", "F", true},
		{"X", "D", true},
		{"D", "X", true},
		{"D", "F", false},
		{"F", "D", false},
		{"A", "T", true},
		{"B", "D", false},
		{"R", "U", false},
		{"Z", "Z", true},
	}
	for _, tc := range cases {
		if got := IsAccepted(tc.expected, tc.detected); got != tc.want {
			t.Fatalf("IsAccepted(%s, %s) = %v, want %v", tc.expected, tc.detected, got, tc.want)
		}
	}
}

func TestAcceptedDefaultsToSingleton(t *testing.T) {
	got := Accepted("?")
	if len(got) != 1 || got[0] != "?" {
		t.Fatalf("expected singleton group, got %v", got)
	}
	if IsAccepted("?", "A") {
		t.Fatalf("unconfigured symbol should only accept itself")
	}
}

func TestAcceptedReturnsCopy(t *testing.T) {
	got := Accepted("B")
	got[0] = "Z"
	if Accepted("B")[0] != "B" {
		t.Fatalf("Accepted leaked the underlying table")
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		label string
		want  model.Symbol
	}{
		{"ASL_A", "A"},
		{"asl_q", "Q"},
		{" B ", "B"},
		{"Z", "Z"},
	}
	for _, tc := range cases {
		got, err := Decode(tc.label)
		if err != nil {
			t.Fatalf("decode %q: %v", tc.label, err)
		}
		if got != tc.want {
			t.Fatalf("decode %q: expected %s, got %s", tc.label, tc.want, got)
		}
	}
}

func TestDecodeRejectsNonLetters(t *testing.T) {
	for _, label := range []string{"", "ASL_", "UNKNOWN", "ASL_AB", "7"} {
		if _, err := Decode(label); !errors.Is(err, ErrUnknownLabel) {
			t.Fatalf("decode %q: expected ErrUnknownLabel, got %v", label, err)
		}
	}
}
