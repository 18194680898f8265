package stats

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/signdrill/internal/model"
)

// AttemptSource lists a user's attempts newest-first.
type AttemptSource interface {
	ListAttempts(ctx context.Context, userID string) ([]model.Attempt, error)
}

// Report contains precomputed data for insights rendering.
type Report struct {
	Attempts []model.Attempt
	Insights model.Insights
	Letters  []model.LetterAggregate
	Weak     []model.Symbol
	Trend    []float64
}

// BuildReport loads the attempt history and derives the report from it.
func BuildReport(ctx context.Context, src AttemptSource, userID string, trendWindow, weakTop int) (Report, error) {
	attempts, err := src.ListAttempts(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	return NewReport(attempts, trendWindow, weakTop), nil
}

// NewReport derives a report from attempts ordered newest-first.
func NewReport(attempts []model.Attempt, trendWindow, weakTop int) Report {
	letters := LetterBreakdown(attempts)
	return Report{
		Attempts: attempts,
		Insights: Aggregate(attempts),
		Letters:  letters,
		Weak:     WeakLetters(letters, weakTop),
		Trend:    MovingAverage(FirstAttemptSeries(attempts), trendWindow),
	}
}

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))

// RenderSummary prints the headline insights.
func RenderSummary(w io.Writer, r Report, useColor bool) error {
	title := "Insights"
	if useColor {
		title = headingStyle.Render(title)
	}
	lines := []string{
		title,
		fmt.Sprintf("Vocabulary: %d%% (%d of %d letters)", r.Insights.VocabularyPercentage, r.Insights.VocabularyCount, model.AlphabetSize),
		fmt.Sprintf("Avg Accuracy: %d%% (first attempts)", r.Insights.AvgAccuracy),
		fmt.Sprintf("Total Tries: %d", r.Insights.TotalTries),
	}
	if len(r.Trend) > 1 {
		lines = append(lines, fmt.Sprintf("Trend: [%s]", Sparkline(r.Trend)))
	}
	if len(r.Weak) > 0 {
		names := make([]string, len(r.Weak))
		for i, l := range r.Weak {
			names[i] = string(l)
		}
		lines = append(lines, fmt.Sprintf("Focus on: %s", strings.Join(names, ", ")))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderLetterTable prints per-letter aggregates, weakest first.
func RenderLetterTable(w io.Writer, aggs []model.LetterAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	rows := make([]model.LetterAggregate, len(aggs))
	copy(rows, aggs)
	sortByFirstAccuracy(rows)

	if _, err := fmt.Fprintln(w, "Per-Letter"); err != nil {
		return err
	}
	headers := []string{"Letter", "First-Try", "Tries", "Correct"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		first := "-"
		if r.FirstAttempts > 0 {
			first = fmt.Sprintf("%d%%", Percent(r.FirstCorrect, r.FirstAttempts))
		}
		tableRows = append(tableRows, []string{
			string(r.Letter),
			first,
			fmt.Sprintf("%d", r.Tries),
			fmt.Sprintf("%d", r.Correct),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range formatTable(headers, tableRows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// RenderCompletion prints an end-of-session report.
func RenderCompletion(w io.Writer, c model.CompletionStats) error {
	lines := []string{
		"Progress Report",
		StarString(c.Stars),
		fmt.Sprintf("Overall Accuracy: %d%%", c.Accuracy),
		fmt.Sprintf("Total Tries: %d", c.TotalTries),
		fmt.Sprintf("Time Spent: %s", FormatDuration(c.TimeSpent)),
		fmt.Sprintf("Tip: %s", Tip(c.Accuracy)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func sortByFirstAccuracy(rows []model.LetterAggregate) {
	sort.Slice(rows, func(i, j int) bool {
		return lessFirst(rows[i], rows[j])
	})
}

func lessFirst(a, b model.LetterAggregate) bool {
	fa, fb := firstAccuracy(a), firstAccuracy(b)
	if fa == fb {
		return a.Letter < b.Letter
	}
	return fa < fb
}
