package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shayc/council/pkg/models"
)

// Status icons.
const (
	iconPending   = "○"
	iconReady     = "◎"
	iconInjecting = "↑"
	iconWaiting   = "…"
	iconComplete  = "✓"
	iconFailed    = "✗"
	iconTimeout   = "⏱"
)

var (
	cardBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(18)

	cardName = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	roleTag  = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))

	statusActive   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	statusDone     = lipgloss.NewStyle().Foreground(lipgloss.Color("28"))
	statusFailed   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusNeutral  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusTimedOut = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// renderCard renders one agent's card.
func renderCard(row *agentRow) string {
	var b strings.Builder
	b.WriteString(cardName.Render(row.name))
	if row.role == models.RoleJudge {
		b.WriteString(" ")
		b.WriteString(roleTag.Render("judge"))
	}
	b.WriteString("\n")
	b.WriteString(StatusLine(row.status))
	if row.err != "" {
		b.WriteString("\n")
		b.WriteString(statusFailed.Render(truncate(row.err, 14)))
	}
	return cardBorder.Render(b.String())
}

// StatusLine renders an agent status as a colored icon plus label.
func StatusLine(s models.AgentStatus) string {
	switch s {
	case models.StatusPending:
		return statusNeutral.Render(iconPending + " pending")
	case models.StatusReady:
		return statusNeutral.Render(iconReady + " ready")
	case models.StatusInjecting:
		return statusActive.Render(iconInjecting + " injecting")
	case models.StatusWaiting:
		return statusActive.Render(iconWaiting + " waiting")
	case models.StatusComplete:
		return statusDone.Render(iconComplete + " complete")
	case models.StatusFailed:
		return statusFailed.Render(iconFailed + " failed")
	case models.StatusTimeout:
		return statusTimedOut.Render(iconTimeout + " timeout")
	default:
		return statusNeutral.Render(string(s))
	}
}

// truncate shortens s to at most n runes with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
