package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/observe"
	"github.com/verte-zerg/signdrill/internal/signs"
)

// Detector classifies a captured JPEG image.
type Detector interface {
	Detect(ctx context.Context, image []byte) (model.DetectionResult, error)
}

// Verifier double-checks a detection with an AI vision model.
type Verifier interface {
	Verify(ctx context.Context, req model.VerificationRequest) (model.VerificationResult, error)
}

// AttemptSink persists attempts.
type AttemptSink interface {
	AppendAttempt(ctx context.Context, attempt model.Attempt) error
}

// Request describes one capture to score.
type Request struct {
	UserID        string
	ModuleID      int
	Expected      model.Symbol
	AttemptNumber int
	Image         []byte
}

// Outcome is the scored result of a capture.
type Outcome struct {
	Expected   model.Symbol
	Detected   model.Symbol
	IsCorrect  bool
	Confidence float64
	Verified   bool
	Persisted  bool
}

// Pipeline runs capture -> detect -> verify -> score -> persist.
type Pipeline struct {
	detector Detector
	verifier Verifier
	sink     AttemptSink
	logger   *slog.Logger
	metrics  *observe.Metrics
	now      func() time.Time
	timeout  time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVerifier enables AI verification for detections that carry landmarks.
func WithVerifier(v Verifier) Option {
	return func(p *Pipeline) {
		p.verifier = v
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithCallTimeout bounds each external call separately.
func WithCallTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithClock overrides the timestamp source for attempts.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New builds a Pipeline. sink may be nil, in which case attempts are not
// persisted.
func New(detector Detector, sink AttemptSink, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector: detector,
		sink:     sink,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run scores one capture. It returns ErrDetectionFailed (possibly wrapped)
// when no letter could be produced; nothing is persisted in that case.
// Verification and persistence failures are logged and never returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	out, err := p.run(ctx, req)
	result := "scored"
	if err != nil {
		result = "detect_failed"
	}
	p.metrics.RecordCapture(ctx, result, time.Since(start))
	return out, err
}

func (p *Pipeline) run(ctx context.Context, req Request) (Outcome, error) {
	if p.detector == nil {
		return Outcome{}, fmt.Errorf("%w: no detector configured", ErrDetectionFailed)
	}
	log := p.logger.With("module_id", req.ModuleID, "letter", string(req.Expected), "attempt", req.AttemptNumber)

	callCtx, cancel := p.callContext(ctx)
	det, err := p.detector.Detect(callCtx, req.Image)
	cancel()
	if err != nil {
		log.Warn("detector call failed", "err", err)
		return Outcome{}, errors.Join(ErrDetectionFailed, err)
	}
	if !det.Success {
		log.Info("no sign detected", "reason", det.Error)
		return Outcome{}, ErrDetectionFailed
	}

	ver := p.verify(ctx, log, det, req.Image)
	letter, err := Reconcile(det, ver)
	if err != nil {
		log.Info("detection produced no letter", "label", det.Label, "err", err)
		return Outcome{}, err
	}

	out := Outcome{
		Expected:   req.Expected,
		Detected:   letter,
		IsCorrect:  Score(req.Expected, letter),
		Confidence: det.Confidence,
		Verified:   ver != nil,
	}
	if out.Verified && ver.Confidence > 0 {
		out.Confidence = ver.Confidence
	}
	log.Debug("attempt scored",
		"detected", string(letter),
		"correct", out.IsCorrect,
		"accepted_similar", out.IsCorrect && letter != req.Expected,
	)
	p.metrics.RecordAttempt(ctx, out.IsCorrect)

	out.Persisted = p.persist(ctx, log, req, out)
	return out, nil
}

// verify returns nil when verification was skipped or failed.
func (p *Pipeline) verify(ctx context.Context, log *slog.Logger, det model.DetectionResult, image []byte) *model.VerificationResult {
	if p.verifier == nil || det.Landmarks == "" || len(image) == 0 {
		p.metrics.RecordVerification(ctx, "skipped")
		return nil
	}
	predicted, _ := signs.Decode(det.Label)
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	res, err := p.verifier.Verify(callCtx, model.VerificationRequest{
		Image:     image,
		Landmarks: det.Landmarks,
		Predicted: predicted,
	})
	if err == nil && res.Success {
		letter, derr := signs.Decode(string(res.Letter))
		if derr != nil {
			res.Success = false
			res.Error = derr.Error()
		}
		res.Letter = letter
	}
	if err != nil || !res.Success {
		reason := res.Error
		if err != nil {
			reason = err.Error()
		}
		log.Info("verification failed, using detector result", "reason", reason)
		p.metrics.RecordVerification(ctx, "failed")
		return nil
	}
	log.Debug("verification result", "letter", string(res.Letter), "model", string(predicted))
	p.metrics.RecordVerification(ctx, "used")
	return &res
}

func (p *Pipeline) persist(ctx context.Context, log *slog.Logger, req Request, out Outcome) bool {
	if p.sink == nil {
		return false
	}
	callCtx, cancel := p.callContext(ctx)
	defer cancel()
	err := p.sink.AppendAttempt(callCtx, model.Attempt{
		UserID:        req.UserID,
		ModuleID:      req.ModuleID,
		Letter:        req.Expected,
		Detected:      out.Detected,
		IsCorrect:     out.IsCorrect,
		AttemptNumber: req.AttemptNumber,
		CreatedAt:     p.now(),
	})
	if err != nil {
		log.Error("failed to log attempt", "err", err)
		p.metrics.RecordPersistFailure(ctx)
		return false
	}
	return true
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}
