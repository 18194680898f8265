package stats

import (
	"testing"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
)

func TestStarsThresholds(t *testing.T) {
	cases := map[int]int{100: 5, 99: 4, 80: 4, 79: 3, 60: 3, 40: 2, 39: 1, 0: 1}
	for acc, want := range cases {
		if got := Stars(acc); got != want {
			t.Fatalf("Stars(%d) = %d, want %d", acc, got, want)
		}
	}
}

func TestCompletion(t *testing.T) {
	progress := []model.LetterProgress{
		{Letter: "A", Status: model.StatusCorrect, Attempts: 1},
		{Letter: "B", Status: model.StatusSecondChance, Attempts: 2},
		{Letter: "C", Status: model.StatusFailed, Attempts: 2},
	}
	got := Completion(progress, 95*time.Second+400*time.Millisecond)
	if got.Accuracy != 67 || got.CorrectLetters != 2 || got.TotalLetters != 3 {
		t.Fatalf("unexpected accuracy: %+v", got)
	}
	if got.Stars != 3 || got.TotalTries != 5 || got.TimeSpent != 95 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "0 minutes 0 seconds",
		61:  "1 minute 1 second",
		125: "2 minutes 5 seconds",
	}
	for secs, want := range cases {
		if got := FormatDuration(secs); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", secs, got, want)
		}
	}
}

func TestTip(t *testing.T) {
	if Tip(80) == Tip(79) || Tip(60) == Tip(59) {
		t.Fatalf("expected tip to change at thresholds")
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{0, 100, 100, 0}, 2)
	want := []float64{0, 50, 100, 50}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected moving average: %v", got)
		}
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := Sparkline([]float64{50, 50, 50}); got != "+++" {
		t.Fatalf("unexpected flat sparkline: %q", got)
	}
}
