// Package tui is the interactive chat screen.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type Chat struct {
	cfg Config
}

func NewChat(cfg Config) *Chat {
	return &Chat{cfg: cfg}
}

// Run blocks until the user quits. In-flight requests are cancelled on exit.
func (c *Chat) Run() error {
	m := newModel(c.cfg)
	defer m.cancel()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
