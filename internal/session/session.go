// Package session drives a lesson through its learning, testing, and
// complete modes.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
	"github.com/verte-zerg/signdrill/internal/stats"
)

// Mode is the phase of a session.
type Mode string

const (
	ModeLearning Mode = "learning"
	ModeTesting  Mode = "testing"
	ModeComplete Mode = "complete"
)

var (
	// ErrWrongMode is returned when an action is not valid in the current mode.
	ErrWrongMode = errors.New("action not allowed in current mode")
	// ErrBusy is returned when a capture is already in flight.
	ErrBusy = errors.New("capture already in progress")
	// ErrStale is returned for capture results that belong to an earlier
	// session run. They are discarded.
	ErrStale = errors.New("stale capture result")
	// ErrEmptyModule is returned for modules without letters.
	ErrEmptyModule = errors.New("module has no letters")
)

// ModuleCompleter records module completion.
type ModuleCompleter interface {
	MarkModuleCompleted(ctx context.Context, userID string, moduleID int) error
}

// Context identifies the user and the current run of a session.
type Context struct {
	UserID    string
	SessionID string
}

// Ticket identifies one in-flight capture.
type Ticket struct {
	SessionID     string
	Seq           uint64
	Letter        model.Symbol
	AttemptNumber int
}

// Step describes what applying a capture result did.
type Step struct {
	Status    model.LetterStatus
	Advanced  bool
	Completed bool
	Outcome   pipeline.Outcome
}

// Machine is the per-lesson state machine. It is not safe for concurrent
// use; the caller serializes access (Bubble Tea's update loop, for one).
type Machine struct {
	sc        Context
	module    model.Module
	completer ModuleCompleter
	now       func() time.Time

	mode      Mode
	cursor    int
	progress  []model.LetterProgress
	startedAt time.Time
	inFlight  *Ticket
	seq       uint64
	stats     model.CompletionStats
	exited    bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithSessionID fixes the initial session id.
func WithSessionID(id string) Option {
	return func(m *Machine) {
		m.sc.SessionID = id
	}
}

// New creates a Machine in learning mode. completer may be nil, in which case
// completion is only reflected on the in-memory module.
func New(userID string, module model.Module, completer ModuleCompleter, opts ...Option) (*Machine, error) {
	if len(module.LetterSet) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrEmptyModule, module.ID)
	}
	m := &Machine{
		sc:        Context{UserID: userID},
		module:    module,
		completer: completer,
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	if m.sc.SessionID == "" {
		m.sc.SessionID = uuid.NewString()
	}
	m.reset()
	return m, nil
}

func (m *Machine) reset() {
	m.mode = ModeLearning
	m.cursor = 0
	m.startedAt = time.Time{}
	m.inFlight = nil
	m.stats = model.CompletionStats{}
	m.progress = make([]model.LetterProgress, len(m.module.LetterSet))
	for i, l := range m.module.LetterSet {
		m.progress[i] = model.LetterProgress{Letter: l, Status: model.StatusPending}
	}
}

// Context returns the session context.
func (m *Machine) Context() Context { return m.sc }

// Module returns the module being practiced.
func (m *Machine) Module() model.Module { return m.module }

// Mode returns the current mode.
func (m *Machine) Mode() Mode { return m.mode }

// Cursor returns the index of the current letter.
func (m *Machine) Cursor() int { return m.cursor }

// Busy reports whether a capture is in flight.
func (m *Machine) Busy() bool { return m.inFlight != nil }

// Exited reports whether Exit was called.
func (m *Machine) Exited() bool { return m.exited }

// StartedAt returns when testing began, or the zero time.
func (m *Machine) StartedAt() time.Time { return m.startedAt }

// CurrentLetter returns the letter under the cursor.
func (m *Machine) CurrentLetter() model.Symbol {
	return m.module.LetterSet[m.cursor]
}

// Progress returns a copy of the per-letter progress.
func (m *Machine) Progress() []model.LetterProgress {
	out := make([]model.LetterProgress, len(m.progress))
	copy(out, m.progress)
	return out
}

// Stats returns the completion report. It is zero until the session completes.
func (m *Machine) Stats() model.CompletionStats { return m.stats }

// Next moves the learning cursor forward. It stops at the last letter.
func (m *Machine) Next() error {
	if m.mode != ModeLearning {
		return ErrWrongMode
	}
	if m.cursor < len(m.module.LetterSet)-1 {
		m.cursor++
	}
	return nil
}

// Previous moves the learning cursor back. It stops at the first letter.
func (m *Machine) Previous() error {
	if m.mode != ModeLearning {
		return ErrWrongMode
	}
	if m.cursor > 0 {
		m.cursor--
	}
	return nil
}

// AtLastLetter reports whether the cursor is on the final letter.
func (m *Machine) AtLastLetter() bool {
	return m.cursor == len(m.module.LetterSet)-1
}

// StartQuiz switches from learning to testing. It is only allowed on the
// last letter.
func (m *Machine) StartQuiz() error {
	if m.mode != ModeLearning || !m.AtLastLetter() {
		return ErrWrongMode
	}
	m.mode = ModeTesting
	m.cursor = 0
	m.startedAt = m.now()
	return nil
}

// BeginCapture reserves the single capture slot for the current letter.
func (m *Machine) BeginCapture() (Ticket, error) {
	if m.mode != ModeTesting {
		return Ticket{}, ErrWrongMode
	}
	if m.inFlight != nil {
		return Ticket{}, ErrBusy
	}
	m.seq++
	t := Ticket{
		SessionID:     m.sc.SessionID,
		Seq:           m.seq,
		Letter:        m.CurrentLetter(),
		AttemptNumber: m.progress[m.cursor].Attempts + 1,
	}
	m.inFlight = &t
	return t, nil
}

// Request builds the pipeline request for a ticket.
func (m *Machine) Request(t Ticket, image []byte) pipeline.Request {
	return pipeline.Request{
		UserID:        m.sc.UserID,
		ModuleID:      m.module.ID,
		Expected:      t.Letter,
		AttemptNumber: t.AttemptNumber,
		Image:         image,
	}
}

// Apply folds a pipeline result into the session. Results for a ticket that
// is no longer in flight return ErrStale and change nothing. A detection
// failure frees the capture slot and leaves progress untouched.
func (m *Machine) Apply(t Ticket, out pipeline.Outcome, runErr error) (Step, error) {
	if m.inFlight == nil || *m.inFlight != t {
		return Step{}, ErrStale
	}
	m.inFlight = nil
	if runErr != nil {
		return Step{}, runErr
	}

	p := &m.progress[m.cursor]
	status := pipeline.Classify(p.Attempts, out.IsCorrect)
	p.Attempts++
	p.Status = status
	step := Step{Status: status, Outcome: out}
	if !status.Terminal() {
		return step, nil
	}

	step.Advanced = true
	if m.cursor < len(m.progress)-1 {
		m.cursor++
		return step, nil
	}
	m.mode = ModeComplete
	m.stats = stats.Completion(m.progress, m.now().Sub(m.startedAt))
	step.Completed = true
	return step, nil
}

// TryAgain restarts the session in learning mode with fresh progress.
// In-flight captures become stale.
func (m *Machine) TryAgain() {
	m.sc.SessionID = uuid.NewString()
	m.reset()
}

// Continue marks the module completed when the session scored 100%.
// It reports whether the module is now completed.
func (m *Machine) Continue(ctx context.Context) (bool, error) {
	if m.mode != ModeComplete {
		return false, ErrWrongMode
	}
	if m.stats.Accuracy != 100 {
		return m.module.Completed, nil
	}
	if m.completer != nil {
		if err := m.completer.MarkModuleCompleted(ctx, m.sc.UserID, m.module.ID); err != nil {
			return false, fmt.Errorf("mark module completed: %w", err)
		}
	}
	m.module.Completed = true
	return true, nil
}

// Exit abandons the session. In-memory progress is dropped and in-flight
// captures become stale; attempts already persisted are kept.
func (m *Machine) Exit() {
	m.exited = true
	m.sc.SessionID = uuid.NewString()
	m.reset()
}
