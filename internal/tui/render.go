package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jasperwreed/guidera-chat/internal/analytics"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

const emptyHistory = "No messages yet. Type a prompt and press enter, or :help for commands."

func renderHistory(msgs []models.Message, width int, spin string) string {
	if len(msgs) == 0 {
		return helpStyle.Render(emptyHistory)
	}

	wrap := lipgloss.NewStyle().Width(max(width, 20))
	var b strings.Builder
	for _, msg := range msgs {
		stamp := helpStyle.Render(msg.Timestamp.Format("15:04:05"))
		if msg.Role == models.RoleUser {
			b.WriteString(userStyle.Render("You") + " " + stamp + "\n")
			b.WriteString(wrap.Render(msg.Content))
			b.WriteString("\n\n")
			continue
		}

		header := assistantStyle.Render("Guidera") + " " + stamp
		if msg.Model != "" {
			header += " " + helpStyle.Render(msg.Model)
		}
		if c := msg.ComplianceCheck; c != nil {
			header += " " + badge(c.Status)
		}
		b.WriteString(header + "\n")

		if msg.Pending {
			b.WriteString(spin + " Analyzing content...\n\n")
			continue
		}
		b.WriteString(wrap.Render(msg.Content))
		b.WriteString("\n")
		if line := metricsLine(msg); line != "" {
			b.WriteString(helpStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func metricsLine(msg models.Message) string {
	var parts []string
	if m := msg.PerformanceMetrics; m != nil {
		parts = append(parts,
			fmt.Sprintf("saved $%.2f", m.CostSaved),
			fmt.Sprintf("%s tokens", humanize.Comma(int64(m.TokensUsed))),
			fmt.Sprintf("%dms", m.ProcessingTimeMs),
		)
	}
	if p := msg.PlagiarismCheck; p != nil {
		parts = append(parts, fmt.Sprintf("plagiarism %.0f%%", p.Percentage))
	}
	return strings.Join(parts, " · ")
}

// renderDashboard draws the analytics panel for the current history.
func renderDashboard(msgs []models.Message, width int) string {
	snap := analytics.Aggregate(msgs)
	barWidth := max(width-24, 4)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Analytics") + "\n\n")
	fmt.Fprintf(&b, "Requests:     %d\n", snap.TotalRequests)
	fmt.Fprintf(&b, "Cost saved:   $%s\n", humanize.CommafWithDigits(snap.TotalCostSaved, 2))
	fmt.Fprintf(&b, "Compliance:   %d (%.0f%%)\n", snap.ComplianceChecks, analytics.ComplianceRate(snap))
	fmt.Fprintf(&b, "Redactions:   %d\n", snap.RedactionCount)
	fmt.Fprintf(&b, "Plagiarism:   %d\n", snap.PlagiarismChecks)

	if shares := analytics.ModelShares(snap); len(shares) > 0 {
		b.WriteString("\n" + titleStyle.Render("Models") + "\n")
		for _, s := range shares {
			fmt.Fprintf(&b, "%s\n  %s %.0f%%\n", s.Model, bar(s.Percent/100, barWidth), s.Percent)
		}
	}

	if points := snap.CostSavingsOverTime; len(points) > 0 {
		b.WriteString("\n" + titleStyle.Render("Cumulative savings") + "\n")
		if len(points) > 10 {
			points = points[len(points)-10:]
		}
		top := points[len(points)-1].CumulativeSaving
		for _, p := range points {
			frac := 0.0
			if top > 0 {
				frac = p.CumulativeSaving / top
			}
			fmt.Fprintf(&b, "%-11s %s $%.2f\n", p.Label, bar(frac, barWidth-8), p.CumulativeSaving)
		}
	}
	return b.String()
}

func renderPolicies(policies []models.CompliancePolicy) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Policies") + "\n\n")
	if len(policies) == 0 {
		b.WriteString("No policies configured.\nAdd one with: guidera policy add\n")
		return b.String()
	}
	var current models.PolicyDirection
	for _, p := range policies {
		if p.Direction != current {
			current = p.Direction
			fmt.Fprintf(&b, "%s:\n", current)
		}
		fmt.Fprintf(&b, "  • %s\n", p.Description)
	}
	return b.String()
}

func renderSuggestions(prompt string, items []string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Suggestions") + "\n")
	b.WriteString(helpStyle.Render(prompt) + "\n\n")
	if len(items) == 0 {
		b.WriteString("No suggestions returned.\n")
		return b.String()
	}
	for i, s := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("\n" + helpStyle.Render(":use <n> copies a suggestion into the input") + "\n")
	return b.String()
}

const helpText = `Commands (press : with an empty input):

  :stats             - Show the analytics dashboard
  :policies          - List compliance policies
  :suggest [prompt]  - Ask for alternative prompts
  :use <n>           - Copy suggestion n into the input
  :compliance on|off - Toggle compliance checks
  :cp <0-1>          - Set the cost/performance tradeoff
  :clear             - Clear chat history
  :logout            - Forget the session and quit
  :help              - Show this help
  :q                 - Quit

Keys:
  enter              - Send prompt
  tab                - Toggle dashboard
  pgup/pgdown        - Scroll history
  esc                - Close panel
  ctrl+c             - Quit
`

func bar(frac float64, width int) string {
	if width < 1 {
		width = 1
	}
	frac = min(max(frac, 0), 1)
	n := int(frac*float64(width) + 0.5)
	return barStyle.Render(strings.Repeat("█", n)) + helpStyle.Render(strings.Repeat("░", width-n))
}
