// Package statsui provides the Bubble Tea insights browser.
package statsui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/signdrill/internal/catalog"
	"github.com/verte-zerg/signdrill/internal/model"
	"github.com/verte-zerg/signdrill/internal/stats"
)

const (
	tabOverview = iota
	tabLetters
	tabModules
)

const (
	trendWindow = 5
	weakTop     = 5
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	doneStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
)

// Loader supplies a user's history.
type Loader interface {
	ListAttempts(ctx context.Context, userID string) ([]model.Attempt, error)
	CompletedModules(ctx context.Context, userID string) (map[int]bool, error)
}

// Model implements the Bubble Tea insights UI.
type Model struct {
	loader Loader
	userID string
	tip    string

	moduleFilter int
	report       stats.Report
	modules      []model.Module
	errMsg       string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	letterTable table.Model

	width  int
	height int

	filterMode  bool
	filterInput textinput.Model
	filterError string
}

// NewModel constructs an insights UI for userID. tip is shown on the
// overview tab when non-empty.
func NewModel(loader Loader, userID, tip string) *Model {
	m := &Model{
		loader: loader,
		userID: userID,
		tip:    tip,
		tabs:   []string{"Overview", "Letters", "Modules"},
	}
	m.filterInput = newFilterInput("Module id (empty for all): ")
	m.letterTable = buildLetterTable(nil, 0, 1)
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.refreshReport()
	return m
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
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if m.activeTab == tabLetters {
			m.letterTable.Focus()
		} else {
			m.letterTable.Blur()
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "r":
			m.refreshReport()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabLetters {
				m.letterTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabLetters {
				m.letterTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabLetters {
				var cmd tea.Cmd
				m.letterTable, cmd = m.letterTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 2
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.letterTable.SetWidth(m.width)
	m.letterTable.SetHeight(maxInt(1, vpHeight-1))
	promptWidth := lipgloss.Width(m.filterInput.Prompt)
	m.filterInput.Width = maxInt(4, m.width-promptWidth-2)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabLetters {
		m.letterTable.Focus()
	} else {
		m.letterTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	scope := "all modules"
	if m.moduleFilter > 0 {
		scope = fmt.Sprintf("module %d", m.moduleFilter)
	}
	summary := truncateLine(fmt.Sprintf("User: %s  Scope: %s", m.userID, scope), m.width)
	return tabs + "\n" + padLines(headerStyle.Render(summary), m.width)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down  Filter: /  Reload: r  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		lines := []string{"Filter by module (enter to apply, esc to cancel)", m.filterInput.View()}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return fitLines(strings.Join(lines, "\n"), m.width, height)
	}
	if m.activeTab == tabLetters {
		if len(m.report.Letters) == 0 {
			return fitLines("No attempts found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.letterTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	var (
		attempts []model.Attempt
		done     map[int]bool
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		attempts, err = m.loader.ListAttempts(ctx, m.userID)
		return err
	})
	g.Go(func() error {
		var err error
		done, err = m.loader.CompletedModules(ctx, m.userID)
		return err
	})
	if err := g.Wait(); err != nil {
		m.errMsg = err.Error()
		m.renderTabContents()
		return
	}
	m.errMsg = ""
	m.report = stats.NewReport(filterByModule(attempts, m.moduleFilter), trendWindow, weakTop)
	m.modules = catalog.WithCompletion(catalog.Modules(), done)
	m.letterTable.SetRows(letterRows(m.report.Letters))
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load insights.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.modules, m.tip, width))
	m.viewports[tabModules].SetContent(renderModules(m.modules, width))
}

func renderOverview(r stats.Report, mods []model.Module, tip string, width int) string {
	if len(r.Attempts) == 0 {
		if tip != "" {
			return "No attempts found.\n\n" + tip
		}
		return "No attempts found."
	}
	cards := []string{
		metricCard("Vocabulary", fmt.Sprintf("%d%% (%d/%d)", r.Insights.VocabularyPercentage, r.Insights.VocabularyCount, model.AlphabetSize)),
		metricCard("Avg Accuracy", fmt.Sprintf("%d%%", r.Insights.AvgAccuracy)),
		metricCard("Total Tries", strconv.Itoa(r.Insights.TotalTries)),
		metricCard("Modules", fmt.Sprintf("%d%%", catalog.CompletionPercent(mods))),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		summary = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	lines := []string{summary, ""}
	if spark := stats.Sparkline(r.Trend); spark != "" {
		lines = append(lines, headerStyle.Render("First-try trend")+" ["+spark+"]")
	}
	if len(r.Weak) > 0 {
		weak := make([]string, len(r.Weak))
		for i, l := range r.Weak {
			weak[i] = string(l)
		}
		lines = append(lines, "Focus on: "+strings.Join(weak, ", "))
	}
	if tip != "" {
		lines = append(lines, "", tip)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func renderModules(mods []model.Module, width int) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("Completed: %d%%", catalog.CompletionPercent(mods)))}
	for _, mod := range mods {
		mark := "[ ]"
		if mod.Completed {
			mark = doneStyle.Render("[x]")
		}
		letters := make([]string, len(mod.LetterSet))
		for i, l := range mod.LetterSet {
			letters[i] = string(l)
		}
		line := fmt.Sprintf("%s %d  %s  %s", mark, mod.ID, mod.Title, strings.Join(letters, " "))
		lines = append(lines, truncateLine(line, width))
	}
	return strings.Join(lines, "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func letterColumns() []table.Column {
	return []table.Column{
		{Title: "Letter", Width: 6},
		{Title: "First-Try", Width: 9},
		{Title: "Tries", Width: 6},
		{Title: "Correct", Width: 7},
	}
}

func letterRows(aggs []model.LetterAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, table.Row{
			string(agg.Letter),
			fmt.Sprintf("%d%%", stats.Percent(agg.FirstCorrect, agg.FirstAttempts)),
			strconv.Itoa(agg.Tries),
			strconv.Itoa(agg.Correct),
		})
	}
	return rows
}

func buildLetterTable(aggs []model.LetterAggregate, width, height int) table.Model {
	t := table.New(
		table.WithColumns(letterColumns()),
		table.WithRows(letterRows(aggs)),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(letterTableStyles())
	return t
}

func letterTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	if m.moduleFilter > 0 {
		m.filterInput.SetValue(strconv.Itoa(m.moduleFilter))
	} else {
		m.filterInput.SetValue("")
	}
	return m, m.filterInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		id, err := parseModuleFilter(m.filterInput.Value())
		if err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.moduleFilter = id
		m.filterMode = false
		m.filterError = ""
		m.filterInput.Blur()
		m.refreshReport()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func parseModuleFilter(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid module id (use a number)")
	}
	if _, err := catalog.Find(id); err != nil {
		return 0, err
	}
	return id, nil
}

func filterByModule(attempts []model.Attempt, moduleID int) []model.Attempt {
	if moduleID <= 0 {
		return attempts
	}
	out := make([]model.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.ModuleID == moduleID {
			out = append(out, a)
		}
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
