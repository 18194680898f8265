// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/signdrill/internal/capture"
	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/pipeline"
	"github.com/verte-zerg/signdrill/internal/session"
	"github.com/verte-zerg/signdrill/internal/stats"
)

// Scorer runs one capture through detection and scoring.
type Scorer interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Outcome, error)
}

type resultMsg struct {
	ticket  session.Ticket
	outcome pipeline.Outcome
	err     error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	letterStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0")).Padding(1, 4).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	tipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	secondStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cursorStyle  = pendingStyle.Copy().Underline(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Model implements the Bubble Tea practice UI.
type Model struct {
	machine  *session.Machine
	scorer   Scorer
	capturer capture.Capturer
	logger   *slog.Logger
	timeout  time.Duration

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	progress progress.Model

	width  int
	height int

	status         string
	statusStyle    lipgloss.Style
	completeResult string
	completed      bool
}

// NewModel constructs the practice UI. timeout bounds one capture including
// detection and verification.
func NewModel(machine *session.Machine, scorer Scorer, capturer capture.Capturer, logger *slog.Logger, timeout time.Duration) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		machine:  machine,
		scorer:   scorer,
		capturer: capturer,
		logger:   logger,
		timeout:  timeout,
		keys:     newKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
	}
	m.syncKeys()
	return m
}

// Completed reports whether the module was marked completed during the run.
func (m *Model) Completed() bool {
	return m.completed
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case spinner.TickMsg:
		if !m.machine.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case resultMsg:
		m.applyResult(msg)
		m.syncKeys()
		return m, nil
	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		m.syncKeys()
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.machine.Exit()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	switch m.machine.Mode() {
	case session.ModeLearning:
		switch {
		case key.Matches(msg, m.keys.Prev):
			_ = m.machine.Previous()
		case key.Matches(msg, m.keys.Next):
			_ = m.machine.Next()
		case key.Matches(msg, m.keys.Quiz):
			if err := m.machine.StartQuiz(); err == nil {
				m.setStatus("Sign the letter shown, then press space.", pendingStyle)
			}
		}
	case session.ModeTesting:
		if key.Matches(msg, m.keys.Capture) {
			return m.startCapture()
		}
	case session.ModeComplete:
		switch {
		case key.Matches(msg, m.keys.TryAgain):
			m.machine.TryAgain()
			m.setStatus("", pendingStyle)
		case key.Matches(msg, m.keys.Continue):
			return m.continueModule()
		}
	}
	return nil
}

func (m *Model) startCapture() tea.Cmd {
	ticket, err := m.machine.BeginCapture()
	if err != nil {
		return nil
	}
	m.setStatus("Checking your sign...", pendingStyle)
	req := m.machine.Request(ticket, nil)
	run := func() tea.Msg {
		image, err := m.captureImage()
		if err != nil {
			return resultMsg{ticket: ticket, err: fmt.Errorf("%w: %v", pipeline.ErrDetectionFailed, err)}
		}
		req.Image = image
		// The scorer bounds detection, verification and persistence separately.
		out, err := m.scorer.Run(context.Background(), req)
		return resultMsg{ticket: ticket, outcome: out, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *Model) captureImage() ([]byte, error) {
	ctx := context.Background()
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.capturer.Capture(ctx)
}

func (m *Model) applyResult(msg resultMsg) {
	step, err := m.machine.Apply(msg.ticket, msg.outcome, msg.err)
	switch {
	case errors.Is(err, session.ErrStale):
		m.logger.Debug("discarded stale capture result", "letter", msg.ticket.Letter, "seq", msg.ticket.Seq)
		return
	case err != nil:
		m.logger.Warn("capture failed", "letter", msg.ticket.Letter, "err", err)
		m.setStatus("Detection failed. Make sure your hand is visible and try again.", failedStyle)
		return
	}

	out := step.Outcome
	switch step.Status {
	case model.StatusCorrect:
		m.setStatus(fmt.Sprintf("Correct! Detected %s.", out.Detected), correctStyle)
	case model.StatusSecondChance:
		m.setStatus(fmt.Sprintf("Got it on the second try (detected %s).", out.Detected), secondStyle)
	case model.StatusFailed:
		m.setStatus(fmt.Sprintf("Missed %s (detected %s). Moving on.", out.Expected, out.Detected), failedStyle)
	default:
		m.setStatus(fmt.Sprintf("Not quite, detected %s. One more try.", out.Detected), secondStyle)
	}
}

func (m *Model) continueModule() tea.Cmd {
	done, err := m.machine.Continue(context.Background())
	if err != nil {
		m.logger.Error("failed to mark module completed", "module_id", m.machine.Module().ID, "err", err)
		m.setStatus("Could not save module completion.", failedStyle)
		return nil
	}
	m.completed = done
	return tea.Quit
}

func (m *Model) setStatus(text string, style lipgloss.Style) {
	m.status = text
	m.statusStyle = style
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.machine.Mode() {
	case session.ModeLearning:
		content = m.renderLearning()
	case session.ModeTesting:
		content = m.renderTesting()
	default:
		content = m.renderComplete()
	}
	helpView := m.help.View(m.keys)
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + helpView
	}
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(helpView) - 1
	if bodyHeight < 1 {
		return content
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer) + "\n" + helpView
}

func (m *Model) renderLearning() string {
	mod := m.machine.Module()
	letters := mod.LetterSet
	letter := m.machine.CurrentLetter()
	lines := []string{
		titleStyle.Render(mod.Title),
		fmt.Sprintf("Letter %d of %d", m.machine.Cursor()+1, len(letters)),
		letterStyle.Render(string(letter)),
		tipStyle.Render(catalog.Tip(letter)),
	}
	if m.machine.AtLastLetter() {
		lines = append(lines, "", "Press enter to start the quiz.")
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderTesting() string {
	mod := m.machine.Module()
	lines := []string{
		titleStyle.Render(mod.Title + " quiz"),
		renderLetterStrip(m.machine.Progress(), m.machine.Cursor()),
		m.progress.ViewAs(m.fractionDone()),
		letterStyle.Render(string(m.machine.CurrentLetter())),
	}
	status := m.status
	if m.machine.Busy() {
		status = m.spinner.View() + " " + status
	}
	if status != "" {
		lines = append(lines, m.statusStyle.Render(status))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderComplete() string {
	c := m.machine.Stats()
	lines := []string{
		titleStyle.Render("Progress Report"),
		secondStyle.Render(stats.StarString(c.Stars)),
		renderLetterStrip(m.machine.Progress(), -1),
		fmt.Sprintf("Overall Accuracy: %d%% (%d of %d letters)", c.Accuracy, c.CorrectLetters, c.TotalLetters),
		fmt.Sprintf("Total Tries: %d", c.TotalTries),
		fmt.Sprintf("Time Spent: %s", stats.FormatDuration(c.TimeSpent)),
		tipStyle.Render(stats.Tip(c.Accuracy)),
	}
	if c.Accuracy < 100 {
		lines = append(lines, "", pendingStyle.Render("Score 100% to complete this module."))
	}
	if m.status != "" {
		lines = append(lines, m.statusStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) fractionDone() float64 {
	prog := m.machine.Progress()
	if len(prog) == 0 {
		return 0
	}
	done := 0
	for _, p := range prog {
		if p.Status.Terminal() {
			done++
		}
	}
	return float64(done) / float64(len(prog))
}

func (m *Model) renderFooter() string {
	mod := m.machine.Module()
	segments := []string{
		fmt.Sprintf("Module %d", mod.ID),
		string(m.machine.Mode()),
	}
	if m.machine.Mode() == session.ModeTesting {
		prog := m.machine.Progress()
		cur := prog[m.machine.Cursor()]
		segments = append(segments, fmt.Sprintf("Letter %d of %d", m.machine.Cursor()+1, len(prog)))
		if cur.Attempts > 0 {
			segments = append(segments, fmt.Sprintf("attempt %d", cur.Attempts+1))
		}
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

// renderLetterStrip shows each letter colored by status. cursor < 0 hides
// the cursor.
func renderLetterStrip(prog []model.LetterProgress, cursor int) string {
	parts := make([]string, 0, len(prog))
	for i, p := range prog {
		style := pendingStyle
		switch p.Status {
		case model.StatusCorrect:
			style = correctStyle
		case model.StatusSecondChance:
			style = secondStyle
		case model.StatusFailed:
			style = failedStyle
		default:
			if i == cursor {
				style = cursorStyle
			}
		}
		parts = append(parts, style.Render(string(p.Letter)))
	}
	return strings.Join(parts, " ")
}
