package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) execute(line string) (model, tea.Cmd) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return m, nil
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "stats":
		m.side = sideDashboard
		m.layout()
		m.refresh()

	case "policies":
		if m.policies == nil {
			m.status = "Policies are not available"
			return m, nil
		}
		m.status = "Loading policies..."
		ctx, lister := m.ctx, m.policies
		return m, func() tea.Msg {
			items, err := lister.List(ctx)
			return policiesMsg{items: items, err: err}
		}

	case "suggest":
		prompt := strings.Join(args, " ")
		if prompt == "" {
			prompt = strings.TrimSpace(m.input.Value())
		}
		if prompt == "" {
			m.status = "Usage: :suggest <prompt>"
			return m, nil
		}
		m.status = "Fetching suggestions..."
		ctx, svc := m.ctx, m.service
		return m, func() tea.Msg {
			items, err := svc.GetSuggestions(ctx, prompt)
			return suggestionsMsg{prompt: prompt, items: items, err: err}
		}

	case "use":
		n, err := strconv.Atoi(strings.Join(args, ""))
		if err != nil || n < 1 || n > len(m.suggestions) {
			m.status = fmt.Sprintf("Usage: :use <1-%d>", len(m.suggestions))
			return m, nil
		}
		m.input.SetValue(m.suggestions[n-1])
		m.input.CursorEnd()
		m.status = ""

	case "compliance":
		switch strings.Join(args, "") {
		case "on":
			m.opts.ComplianceEnabled = true
		case "off":
			m.opts.ComplianceEnabled = false
		default:
			m.status = "Usage: :compliance on|off"
			return m, nil
		}
		m.status = "Compliance checks " + onOff(m.opts.ComplianceEnabled)

	case "cp", "tradeoff":
		v, err := strconv.ParseFloat(strings.Join(args, ""), 64)
		if err != nil || v < 0 || v > 1 {
			m.status = "Usage: :cp <0-1>"
			return m, nil
		}
		m.opts.Tradeoff = v
		m.status = fmt.Sprintf("Cost/performance tradeoff set to %.2f", v)

	case "clear":
		m.ctrl.Clear()
		m.status = ""
		m.refresh()

	case "logout":
		if err := m.service.Logout(); err != nil {
			m.status = errorStatus(err)
			return m, nil
		}
		m.cancel()
		return m, tea.Quit

	case "help", "h":
		m.showInfo(helpText)

	case "quit", "q":
		m.cancel()
		return m, tea.Quit

	default:
		m.status = fmt.Sprintf("Unknown command: %s", command)
	}

	return m, nil
}
