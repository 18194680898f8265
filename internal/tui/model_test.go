package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
	"github.com/verte-zerg/signdrill/internal/session"
)

type fakeCapturer struct {
	err      error
	deadline *bool
}

func (f fakeCapturer) Capture(ctx context.Context) ([]byte, error) {
	if f.deadline != nil {
		_, *f.deadline = ctx.Deadline()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte{0xFF, 0xD8, 0xFF}, nil
}

// scriptedScorer answers each capture with the next detected letter.
type scriptedScorer struct {
	detected  []model.Symbol
	requests  []pipeline.Request
	deadlines []bool
}

func (s *scriptedScorer) Run(ctx context.Context, req pipeline.Request) (pipeline.Outcome, error) {
	s.requests = append(s.requests, req)
	_, hasDeadline := ctx.Deadline()
	s.deadlines = append(s.deadlines, hasDeadline)
	d := s.detected[0]
	s.detected = s.detected[1:]
	return pipeline.Outcome{
		Expected:  req.Expected,
		Detected:  d,
		IsCorrect: pipeline.Score(req.Expected, d),
		Persisted: true,
	}, nil
}

type recordingCompleter struct {
	modules []int
}

func (r *recordingCompleter) MarkModuleCompleted(_ context.Context, _ string, moduleID int) error {
	r.modules = append(r.modules, moduleID)
	return nil
}

func newTestModel(t *testing.T, scorer Scorer, capturer fakeCapturer, completer session.ModuleCompleter) *Model {
	t.Helper()
	mod := model.Module{ID: 6, Title: "Basics: CAT", LetterSet: []model.Symbol{"C", "A", "T"}}
	machine, err := session.New("alice", mod, completer, session.WithSessionID("s1"))
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewModel(machine, scorer, capturer, logger, time.Second)
}

func press(m *Model, k string) tea.Cmd {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// runCapture executes the batched capture command and feeds its result back.
func runCapture(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatalf("expected capture command")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("expected batch message")
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if res, ok := c().(resultMsg); ok {
			m.Update(res)
			return
		}
	}
	t.Fatalf("capture produced no result")
}

func startQuiz(t *testing.T, m *Model) {
	t.Helper()
	press(m, "enter")
	if m.machine.Mode() != session.ModeLearning {
		t.Fatalf("quiz must not start before the last letter")
	}
	press(m, "right")
	press(m, "right")
	press(m, "right")
	if m.machine.Cursor() != 2 {
		t.Fatalf("expected cursor clamped at 2, got %d", m.machine.Cursor())
	}
	press(m, "enter")
	if m.machine.Mode() != session.ModeTesting {
		t.Fatalf("expected testing mode, got %s", m.machine.Mode())
	}
}

func TestLearningViewShowsCardAndTip(t *testing.T) {
	m := newTestModel(t, &scriptedScorer{}, fakeCapturer{}, nil)
	view := m.View()
	if !strings.Contains(view, "Letter 1 of 3") || !strings.Contains(view, "Basics: CAT") {
		t.Fatalf("learning view missing card:\n%s", view)
	}
	press(m, "left")
	if m.machine.Cursor() != 0 {
		t.Fatalf("expected cursor to stay at 0")
	}
}

func TestQuizToCompletion(t *testing.T) {
	scorer := &scriptedScorer{detected: []model.Symbol{"C", "S", "T"}}
	completer := &recordingCompleter{}
	m := newTestModel(t, scorer, fakeCapturer{}, completer)
	startQuiz(t, m)

	runCapture(t, m, press(m, "space"))
	if !strings.Contains(m.status, "Correct!") {
		t.Fatalf("expected correct status, got %q", m.status)
	}

	// A accepts S.
	runCapture(t, m, press(m, "space"))
	if m.machine.Cursor() != 2 {
		t.Fatalf("expected cursor on T, got %d", m.machine.Cursor())
	}

	runCapture(t, m, press(m, "space"))
	if m.machine.Mode() != session.ModeComplete {
		t.Fatalf("expected complete mode, got %s", m.machine.Mode())
	}
	if !strings.Contains(m.View(), "Progress Report") {
		t.Fatalf("expected completion report:\n%s", m.View())
	}
	if len(scorer.requests) != 3 || scorer.requests[1].Expected != "A" || scorer.requests[1].UserID != "alice" {
		t.Fatalf("unexpected requests: %+v", scorer.requests)
	}

	cmd := press(m, "c")
	if cmd == nil || !m.Completed() {
		t.Fatalf("expected continue to complete module and quit")
	}
	if len(completer.modules) != 1 || completer.modules[0] != 6 {
		t.Fatalf("expected module 6 marked completed, got %v", completer.modules)
	}
}

func TestSecondChanceThenFailure(t *testing.T) {
	scorer := &scriptedScorer{detected: []model.Symbol{"W", "W"}}
	m := newTestModel(t, scorer, fakeCapturer{}, nil)
	startQuiz(t, m)

	runCapture(t, m, press(m, "space"))
	if m.machine.Cursor() != 0 || !strings.Contains(m.status, "One more try") {
		t.Fatalf("expected retry on first miss, cursor=%d status=%q", m.machine.Cursor(), m.status)
	}
	if !strings.Contains(m.renderFooter(), "attempt 2") {
		t.Fatalf("footer missing attempt count: %s", m.renderFooter())
	}
	runCapture(t, m, press(m, "space"))
	if m.machine.Cursor() != 1 || !strings.Contains(m.status, "Moving on") {
		t.Fatalf("expected advance after second miss, cursor=%d status=%q", m.machine.Cursor(), m.status)
	}
	if scorer.requests[1].AttemptNumber != 2 {
		t.Fatalf("expected attempt number 2, got %d", scorer.requests[1].AttemptNumber)
	}
}

func TestCaptureIgnoredWhileBusy(t *testing.T) {
	m := newTestModel(t, &scriptedScorer{detected: []model.Symbol{"C"}}, fakeCapturer{}, nil)
	startQuiz(t, m)
	first := press(m, "space")
	if first == nil || !m.machine.Busy() {
		t.Fatalf("expected capture in flight")
	}
	if second := press(m, "space"); second != nil {
		t.Fatalf("expected second capture to be ignored")
	}
	runCapture(t, m, first)
	if m.machine.Busy() {
		t.Fatalf("expected capture slot to be released")
	}
}

func TestCaptureFailureKeepsLetter(t *testing.T) {
	m := newTestModel(t, &scriptedScorer{}, fakeCapturer{err: errors.New("no camera")}, nil)
	startQuiz(t, m)
	runCapture(t, m, press(m, "space"))
	if m.machine.Cursor() != 0 || m.machine.Progress()[0].Attempts != 0 {
		t.Fatalf("capture failure must not change progress")
	}
	if !strings.Contains(m.status, "Detection failed") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestStaleResultAfterExitIsDiscarded(t *testing.T) {
	m := newTestModel(t, &scriptedScorer{detected: []model.Symbol{"C"}}, fakeCapturer{}, nil)
	startQuiz(t, m)
	cmd := press(m, "space")
	if quit := press(m, "q"); quit == nil {
		t.Fatalf("expected quit command")
	}
	runCapture(t, m, cmd)
	if m.machine.Mode() != session.ModeLearning || m.machine.Progress()[0].Attempts != 0 {
		t.Fatalf("stale result must not change the reset session")
	}
}

func TestTryAgainRestartsLearning(t *testing.T) {
	m := newTestModel(t, &scriptedScorer{detected: []model.Symbol{"W", "W", "W", "W", "W", "W"}}, fakeCapturer{}, nil)
	startQuiz(t, m)
	for i := 0; i < 6; i++ {
		runCapture(t, m, press(m, "space"))
	}
	if m.machine.Mode() != session.ModeComplete {
		t.Fatalf("expected complete mode, got %s", m.machine.Mode())
	}
	if !strings.Contains(m.View(), "Score 100% to complete this module.") {
		t.Fatalf("expected completion hint:\n%s", m.View())
	}
	press(m, "r")
	if m.machine.Mode() != session.ModeLearning || m.machine.Cursor() != 0 {
		t.Fatalf("expected fresh learning session")
	}
}

func TestCaptureTimeoutBoundsOnlyTheCamera(t *testing.T) {
	scorer := &scriptedScorer{detected: []model.Symbol{"C"}}
	var captureDeadline bool
	m := newTestModel(t, scorer, fakeCapturer{deadline: &captureDeadline}, nil)
	startQuiz(t, m)

	runCapture(t, m, press(m, "space"))
	if !captureDeadline {
		t.Fatalf("expected the capture call to carry a deadline")
	}
	if len(scorer.deadlines) != 1 || scorer.deadlines[0] {
		t.Fatalf("expected the scorer to run without an outer deadline, got %v", scorer.deadlines)
	}
	if len(scorer.requests[0].Image) == 0 {
		t.Fatalf("expected the captured image in the request")
	}
}
