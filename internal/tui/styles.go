package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jasperwreed/guidera-chat/internal/chat"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

var (
	accent = lipgloss.Color("#7D56F4")
	muted  = lipgloss.Color("#626262")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF00"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00BFFF"))

	barStyle = lipgloss.NewStyle().
			Foreground(accent)

	statusColors = map[models.ComplianceStatus]lipgloss.Color{
		models.CompliancePassed:  lipgloss.Color("#04B575"),
		models.ComplianceWarning: lipgloss.Color("#FFB300"),
		models.ComplianceFailed:  lipgloss.Color("#FF5F87"),
	}

	levelColors = map[chat.Level]lipgloss.Color{
		chat.LevelSuccess: lipgloss.Color("#04B575"),
		chat.LevelWarning: lipgloss.Color("#FFB300"),
		chat.LevelError:   lipgloss.Color("#FF5F87"),
	}
)

func badge(status models.ComplianceStatus) string {
	color, ok := statusColors[status]
	if !ok {
		return ""
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(color).
		Padding(0, 1).
		Render(string(status))
}

func noticeStyle(level chat.Level) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(levelColors[level])
}
