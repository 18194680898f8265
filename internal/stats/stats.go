// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Percent returns round(100 * num / den), or 0 when den is 0.
func Percent(num, den int) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(float64(num) / float64(den) * 100))
}

// Stars maps session accuracy to a 1-5 star rating.
func Stars(accuracy int) int {
	switch {
	case accuracy >= 100:
		return 5
	case accuracy >= 80:
		return 4
	case accuracy >= 60:
		return 3
	case accuracy >= 40:
		return 2
	default:
		return 1
	}
}

// Completion computes the end-of-session report. Letters finished as
// correct or second-chance count toward accuracy.
func Completion(progress []model.LetterProgress, elapsed time.Duration) model.CompletionStats {
	out := model.CompletionStats{TotalLetters: len(progress)}
	for _, p := range progress {
		if p.Status == model.StatusCorrect || p.Status == model.StatusSecondChance {
			out.CorrectLetters++
		}
		out.TotalTries += p.Attempts
	}
	out.Accuracy = Percent(out.CorrectLetters, out.TotalLetters)
	out.Stars = Stars(out.Accuracy)
	if elapsed > 0 {
		out.TimeSpent = int(elapsed / time.Second)
	}
	return out
}

// FormatDuration renders seconds as "N minute(s) M second(s)".
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	mins := seconds / 60
	secs := seconds % 60
	return fmt.Sprintf("%d %s %d %s", mins, plural(mins, "minute"), secs, plural(secs, "second"))
}

// Tip returns feedback text for a session accuracy.
func Tip(accuracy int) string {
	switch {
	case accuracy >= 80:
		return "Great job! You're mastering ASL signs quickly!"
	case accuracy >= 60:
		return "Good progress! Focus on hand positioning for better accuracy."
	default:
		return "Keep practicing! Pay attention to finger placement and hand orientation."
	}
}

// StarString renders a rating as filled and empty stars.
func StarString(stars int) string {
	if stars < 0 {
		stars = 0
	}
	if stars > 5 {
		stars = 5
	}
	return strings.Repeat("★", stars) + strings.Repeat("☆", 5-stars)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
