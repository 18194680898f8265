package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
)

type fakeCompleter struct {
	calls []int
	err   error
}

func (f *fakeCompleter) MarkModuleCompleted(_ context.Context, _ string, moduleID int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, moduleID)
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newMachine(t *testing.T, letters []model.Symbol, completer ModuleCompleter) (*Machine, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	m, err := New("u1", model.Module{ID: 7, Title: "Test", LetterSet: letters}, completer, WithClock(clock.now), WithSessionID("s1"))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	return m, clock
}

func capture(t *testing.T, m *Machine, correct bool) Step {
	t.Helper()
	tk, err := m.BeginCapture()
	if err != nil {
		t.Fatalf("begin capture: %v", err)
	}
	step, err := m.Apply(tk, pipeline.Outcome{Expected: tk.Letter, IsCorrect: correct}, nil)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return step
}

func TestNewRejectsEmptyModule(t *testing.T) {
	if _, err := New("u1", model.Module{ID: 1}, nil); !errors.Is(err, ErrEmptyModule) {
		t.Fatalf("expected ErrEmptyModule, got %v", err)
	}
}

func TestLearningCursorIsBounded(t *testing.T) {
	m, _ := newMachine(t, []model.Symbol{"A", "B", "C"}, nil)
	if m.Mode() != ModeLearning || m.Cursor() != 0 {
		t.Fatalf("unexpected initial state: %s %d", m.Mode(), m.Cursor())
	}
	_ = m.Previous()
	if m.Cursor() != 0 {
		t.Fatalf("cursor wrapped backwards")
	}
	if err := m.StartQuiz(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected quiz to require the last letter, got %v", err)
	}
	for i := 0; i < 5; i++ {
		_ = m.Next()
	}
	if m.Cursor() != 2 || m.CurrentLetter() != "C" {
		t.Fatalf("cursor should stop at last letter, got %d", m.Cursor())
	}
	if _, err := m.BeginCapture(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected capture to be rejected while learning, got %v", err)
	}
	if err := m.StartQuiz(); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if m.Mode() != ModeTesting || m.Cursor() != 0 || m.StartedAt().IsZero() {
		t.Fatalf("unexpected testing state: %s %d %v", m.Mode(), m.Cursor(), m.StartedAt())
	}
	if err := m.Next(); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("expected Next to be rejected while testing, got %v", err)
	}
}

func TestTwoStrikesAndCompletion(t *testing.T) {
	completer := &fakeCompleter{}
	m, clock := newMachine(t, []model.Symbol{"A", "B"}, completer)
	_ = m.Next()
	if err := m.StartQuiz(); err != nil {
		t.Fatalf("start quiz: %v", err)
	}

	step := capture(t, m, true)
	if step.Status != model.StatusCorrect || !step.Advanced || m.CurrentLetter() != "B" {
		t.Fatalf("unexpected step for A: %+v", step)
	}

	step = capture(t, m, false)
	if step.Status != model.StatusPending || step.Advanced || m.CurrentLetter() != "B" {
		t.Fatalf("first miss should stay on B: %+v", step)
	}

	clock.t = clock.t.Add(75 * time.Second)
	step = capture(t, m, true)
	if step.Status != model.StatusSecondChance || !step.Completed {
		t.Fatalf("expected second-chance completion: %+v", step)
	}
	if m.Mode() != ModeComplete {
		t.Fatalf("expected complete mode, got %s", m.Mode())
	}
	got := m.Stats()
	if got.Accuracy != 100 || got.Stars != 5 || got.TimeSpent != 75 || got.TotalTries != 3 {
		t.Fatalf("unexpected stats: %+v", got)
	}

	done, err := m.Continue(context.Background())
	if err != nil || !done {
		t.Fatalf("continue: done=%v err=%v", done, err)
	}
	if len(completer.calls) != 1 || completer.calls[0] != 7 || !m.Module().Completed {
		t.Fatalf("expected module 7 to be marked completed, got %v", completer.calls)
	}
}

func TestFailedLetterAndContinueWithoutPerfectScore(t *testing.T) {
	completer := &fakeCompleter{}
	m, _ := newMachine(t, []model.Symbol{"A"}, completer)
	if err := m.StartQuiz(); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	capture(t, m, false)
	step := capture(t, m, false)
	if step.Status != model.StatusFailed || !step.Completed {
		t.Fatalf("expected failed completion: %+v", step)
	}
	if s := m.Stats(); s.Accuracy != 0 || s.Stars != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	done, err := m.Continue(context.Background())
	if err != nil || done {
		t.Fatalf("module must not be completed below 100%%: done=%v err=%v", done, err)
	}
	if len(completer.calls) != 0 {
		t.Fatalf("completer should not be called")
	}
}

func TestSingleCaptureInFlight(t *testing.T) {
	m, _ := newMachine(t, []model.Symbol{"A"}, nil)
	_ = m.StartQuiz()
	tk, err := m.BeginCapture()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := m.BeginCapture(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !m.Busy() {
		t.Fatalf("expected machine to be busy")
	}
	_, err = m.Apply(tk, pipeline.Outcome{}, pipeline.ErrDetectionFailed)
	if !errors.Is(err, pipeline.ErrDetectionFailed) {
		t.Fatalf("expected detection error to pass through, got %v", err)
	}
	if m.Busy() || m.Progress()[0].Attempts != 0 || m.Progress()[0].Status != model.StatusPending {
		t.Fatalf("detection failure must not count: %+v", m.Progress()[0])
	}
	if _, err := m.BeginCapture(); err != nil {
		t.Fatalf("expected retry after failure, got %v", err)
	}
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	m, _ := newMachine(t, []model.Symbol{"A", "B"}, nil)
	_ = m.Next()
	_ = m.StartQuiz()
	tk, err := m.BeginCapture()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	before := m.Context().SessionID
	m.TryAgain()
	if m.Context().SessionID == before {
		t.Fatalf("expected a new session id")
	}
	if _, err := m.Apply(tk, pipeline.Outcome{IsCorrect: true}, nil); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if m.Mode() != ModeLearning || m.Cursor() != 0 || !m.StartedAt().IsZero() {
		t.Fatalf("try again should reset to learning: %s %d", m.Mode(), m.Cursor())
	}
	for _, p := range m.Progress() {
		if p.Status != model.StatusPending || p.Attempts != 0 {
			t.Fatalf("progress not reset: %+v", p)
		}
	}
}

func TestExitDiscardsState(t *testing.T) {
	m, _ := newMachine(t, []model.Symbol{"A"}, nil)
	_ = m.StartQuiz()
	tk, _ := m.BeginCapture()
	m.Exit()
	if !m.Exited() || m.Mode() != ModeLearning {
		t.Fatalf("unexpected state after exit")
	}
	if _, err := m.Apply(tk, pipeline.Outcome{IsCorrect: true}, nil); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale after exit, got %v", err)
	}
}

func TestRequestCarriesAttemptNumber(t *testing.T) {
	m, _ := newMachine(t, []model.Symbol{"A"}, nil)
	_ = m.StartQuiz()
	capture(t, m, false)
	tk, _ := m.BeginCapture()
	req := m.Request(tk, []byte{1})
	if req.AttemptNumber != 2 || req.Expected != "A" || req.ModuleID != 7 || req.UserID != "u1" {
		t.Fatalf("unexpected request: %+v", req)
	}
}
