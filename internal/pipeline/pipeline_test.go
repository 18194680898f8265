package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/signs"
)

type fakeDetector struct {
	result model.DetectionResult
	err    error
	calls  int
}

func (f *fakeDetector) Detect(context.Context, []byte) (model.DetectionResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeVerifier struct {
	result model.VerificationResult
	err    error
	got    model.VerificationRequest
	calls  int
}

func (f *fakeVerifier) Verify(_ context.Context, req model.VerificationRequest) (model.VerificationResult, error) {
	f.calls++
	f.got = req
	return f.result, f.err
}

type fakeSink struct {
	attempts []model.Attempt
	err      error
}

func (f *fakeSink) AppendAttempt(_ context.Context, a model.Attempt) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReconcile(t *testing.T) {
	ok := model.DetectionResult{Success: true, Label: "ASL_A", Confidence: 0.8}

	if _, err := Reconcile(model.DetectionResult{Success: false, Label: "ASL_A"}, &model.VerificationResult{Success: true, Letter: "B"}); !errors.Is(err, ErrDetectionFailed) {
		t.Fatalf("expected ErrDetectionFailed, got %v", err)
	}

	got, err := Reconcile(ok, &model.VerificationResult{Success: true, Letter: "B"})
	if err != nil || got != "B" {
		t.Fatalf("expected verification to override with B, got %q err=%v", got, err)
	}

	got, err = Reconcile(ok, nil)
	if err != nil || got != "A" {
		t.Fatalf("expected A, got %q err=%v", got, err)
	}

	got, err = Reconcile(ok, &model.VerificationResult{Success: false, Letter: "B"})
	if err != nil || got != "A" {
		t.Fatalf("failed verification must not override, got %q err=%v", got, err)
	}

	got, err = Reconcile(ok, &model.VerificationResult{Success: true})
	if err != nil || got != "A" {
		t.Fatalf("empty verification letter must not override, got %q err=%v", got, err)
	}

	_, err = Reconcile(model.DetectionResult{Success: true, Label: "UNKNOWN"}, nil)
	if !errors.Is(err, ErrDetectionFailed) || !errors.Is(err, signs.ErrUnknownLabel) {
		t.Fatalf("expected undecodable label to fail as unknown label, got %v", err)
	}
}

func TestClassifyTwoStrikes(t *testing.T) {
	cases := []struct {
		prior   int
		correct bool
		want    model.LetterStatus
	}{
		{0, true, model.StatusCorrect},
		{0, false, model.StatusPending},
		{1, true, model.StatusSecondChance},
		{1, false, model.StatusFailed},
		{3, false, model.StatusFailed},
	}
	for _, tc := range cases {
		if got := Classify(tc.prior, tc.correct); got != tc.want {
			t.Fatalf("Classify(%d, %v) = %s, want %s", tc.prior, tc.correct, got, tc.want)
		}
	}
}

func TestScoreUsesConfusableGroups(t *testing.T) {
	if !Score("A", "S") {
		t.Fatalf("expected S to be accepted for A")
	}
	if Score("D", "F") {
		t.Fatalf("expected F to be rejected for D")
	}
}

func TestRunVerificationOverridesAndPersists(t *testing.T) {
	det := &fakeDetector{result: model.DetectionResult{Success: true, Label: "ASL_A", Confidence: 0.6, Landmarks: "Thumb: (0.1, 0.2)"}}
	ver := &fakeVerifier{result: model.VerificationResult{Success: true, Letter: "b", Confidence: 0.95}}
	sink := &fakeSink{}
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := New(det, sink, WithVerifier(ver), WithLogger(quietLogger()), WithClock(func() time.Time { return fixed }))

	out, err := p.Run(context.Background(), Request{
		UserID:        "u1",
		ModuleID:      1,
		Expected:      "B",
		AttemptNumber: 1,
		Image:         []byte{0xFF, 0xD8, 0xFF},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ver.got.Predicted != "A" || ver.got.Landmarks == "" {
		t.Fatalf("unexpected verification request: %+v", ver.got)
	}
	if out.Detected != "B" || !out.IsCorrect || !out.Verified || out.Confidence != 0.95 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if !out.Persisted || len(sink.attempts) != 1 {
		t.Fatalf("expected one persisted attempt, got %+v", sink.attempts)
	}
	a := sink.attempts[0]
	if a.UserID != "u1" || a.ModuleID != 1 || a.Letter != "B" || a.Detected != "B" || !a.IsCorrect || a.AttemptNumber != 1 || !a.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected attempt record: %+v", a)
	}
}

func TestRunSkipsVerificationWithoutLandmarks(t *testing.T) {
	det := &fakeDetector{result: model.DetectionResult{Success: true, Label: "ASL_C"}}
	ver := &fakeVerifier{result: model.VerificationResult{Success: true, Letter: "Z"}}
	p := New(det, &fakeSink{}, WithVerifier(ver), WithLogger(quietLogger()))

	out, err := p.Run(context.Background(), Request{Expected: "B", AttemptNumber: 1, Image: []byte{1}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if ver.calls != 0 {
		t.Fatalf("expected verifier to be skipped")
	}
	if out.Detected != "C" || !out.IsCorrect {
		t.Fatalf("expected C accepted for B, got %+v", out)
	}
}

func TestRunFallsBackWhenVerificationFails(t *testing.T) {
	det := &fakeDetector{result: model.DetectionResult{Success: true, Label: "ASL_R", Landmarks: "x"}}
	for _, ver := range []*fakeVerifier{
		{err: errors.New("timeout")},
		{result: model.VerificationResult{Success: false, Error: "boom"}},
		{result: model.VerificationResult{Success: true, Letter: "??"}},
	} {
		p := New(det, nil, WithVerifier(ver), WithLogger(quietLogger()))
		out, err := p.Run(context.Background(), Request{Expected: "R", AttemptNumber: 2, Image: []byte{1}})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if out.Detected != "R" || out.Verified || out.Persisted {
			t.Fatalf("expected detector fallback, got %+v", out)
		}
	}
}

func TestRunDetectionFailureIsNotPersisted(t *testing.T) {
	sink := &fakeSink{}
	for _, det := range []*fakeDetector{
		{result: model.DetectionResult{Success: false, Error: "No hand detected"}},
		{err: errors.New("connection refused")},
	} {
		p := New(det, sink, WithLogger(quietLogger()))
		_, err := p.Run(context.Background(), Request{Expected: "A", AttemptNumber: 1, Image: []byte{1}})
		if !errors.Is(err, ErrDetectionFailed) {
			t.Fatalf("expected ErrDetectionFailed, got %v", err)
		}
	}
	if len(sink.attempts) != 0 {
		t.Fatalf("expected no attempts persisted, got %d", len(sink.attempts))
	}
}

func TestRunPersistFailureDoesNotFail(t *testing.T) {
	det := &fakeDetector{result: model.DetectionResult{Success: true, Label: "ASL_W"}}
	p := New(det, &fakeSink{err: errors.New("disk full")}, WithLogger(quietLogger()))
	out, err := p.Run(context.Background(), Request{Expected: "W", AttemptNumber: 1, Image: []byte{1}})
	if err != nil {
		t.Fatalf("persistence failure must not surface: %v", err)
	}
	if !out.IsCorrect || out.Persisted {
		t.Fatalf("unexpected outcome: %+v", out)
	}
}
