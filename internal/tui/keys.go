package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/verte-zerg/signdrill/internal/session"
)

type keyMap struct {
	Prev     key.Binding
	Next     key.Binding
	Quiz     key.Binding
	Capture  key.Binding
	TryAgain key.Binding
	Continue key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Quiz:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start quiz")),
		Capture:  key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "capture")),
		TryAgain: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "try again")),
		Continue: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "continue")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("esc", "q", "ctrl+c"), key.WithHelp("q", "exit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Quiz, k.Capture, k.TryAgain, k.Continue, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Quiz},
		{k.Capture},
		{k.TryAgain, k.Continue},
		{k.Help, k.Quit},
	}
}

// syncKeys enables the bindings valid in the current mode so help only lists
// those.
func (m *Model) syncKeys() {
	mode := m.machine.Mode()
	m.keys.Prev.SetEnabled(mode == session.ModeLearning)
	m.keys.Next.SetEnabled(mode == session.ModeLearning)
	m.keys.Quiz.SetEnabled(mode == session.ModeLearning && m.machine.AtLastLetter())
	m.keys.Capture.SetEnabled(mode == session.ModeTesting && !m.machine.Busy())
	m.keys.TryAgain.SetEnabled(mode == session.ModeComplete)
	m.keys.Continue.SetEnabled(mode == session.ModeComplete)
}
