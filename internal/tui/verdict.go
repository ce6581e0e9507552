package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shayc/council/pkg/models"
)

var (
	verdictTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	winnerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	tableHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	tableCell    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	rawStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// RenderVerdict renders the run's final verdict: a score table, ranking,
// winner, and summary when parsed, or the raw text when not.
func RenderVerdict(v *models.Verdict, width int) string {
	var b strings.Builder
	b.WriteString(verdictTitle.Render("Verdict"))
	b.WriteString("\n\n")

	if !v.Parsed {
		b.WriteString(mutedStyle.Render("(unstructured result)"))
		b.WriteString("\n")
		b.WriteString(rawStyle.Render(clipLines(v.Raw, 40)))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(ScoreTable(v))
	b.WriteString("\n")

	if len(v.Ranking) > 0 {
		b.WriteString(tableHeader.Render("Ranking: "))
		b.WriteString(tableCell.Render(strings.Join(v.Ranking, " > ")))
		b.WriteString("\n")
	}
	if v.Winner != "" {
		b.WriteString(winnerStyle.Render("Winner: " + v.Winner))
		b.WriteString("\n")
	}
	if v.Summary != "" {
		b.WriteString("\n")
		summary := v.Summary
		if width > 4 {
			summary = lipgloss.NewStyle().Width(width - 2).Render(summary)
		}
		b.WriteString(rawStyle.Render(summary))
		b.WriteString("\n")
	}
	return b.String()
}

// ScoreTable renders the per-agent criterion scores as an aligned table,
// best total first.
func ScoreTable(v *models.Verdict) string {
	sorted := &models.Verdict{Scores: append([]models.ModelScore(nil), v.Scores...)}
	sorted.SortScores()

	nameWidth := len("Agent")
	for _, s := range sorted.Scores {
		if len(s.Name) > nameWidth {
			nameWidth = len(s.Name)
		}
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s", nameWidth, "Agent")
	for _, c := range models.Criteria {
		header += fmt.Sprintf("  %s", c[:3])
	}
	header += "  Total"
	b.WriteString(tableHeader.Render(header))
	b.WriteString("\n")

	for _, s := range sorted.Scores {
		row := fmt.Sprintf("%-*s", nameWidth, s.Name)
		for _, n := range []int{s.Accuracy, s.Depth, s.Clarity, s.Reasoning, s.Relevance} {
			row += fmt.Sprintf("  %3d", n)
		}
		row += fmt.Sprintf("  %2d/50", s.Total)
		b.WriteString(tableCell.Render(row))
		b.WriteString("\n")
	}
	return b.String()
}

// clipLines keeps at most n lines of s.
func clipLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[:n], "\n") + "\n..."
}
