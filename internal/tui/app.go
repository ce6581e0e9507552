// Package tui provides the terminal user interface for a council run.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shayc/council/internal/orchestrator"
	"github.com/shayc/council/pkg/models"
)

// EventMsg wraps one orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// RunDoneMsg signals that the run finished, with or without a verdict.
type RunDoneMsg struct {
	Verdict *models.Verdict
	Err     error
}

// LogMsg adds a line to the activity log.
type LogMsg struct {
	Message string
}

// agentRow is the TUI's view of one agent in the run.
type agentRow struct {
	id      string
	name    string
	role    models.Role
	status  models.AgentStatus
	err     string
	started time.Time
}

// App is the main bubbletea model for a council run.
type App struct {
	prompt string

	agents  []*agentRow
	logs    []string
	spin    spinner.Model
	width   int
	height  int
	started time.Time

	quitting bool
	done     bool
	verdict  *models.Verdict
	runErr   error
}

// New creates an App for the given prompt.
func New(prompt string) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{
		prompt:  prompt,
		spin:    s,
		started: time.Now(),
	}
}

// NewProgram creates a bubbletea program for the app. The returned program
// receives orchestrator updates via Send().
func NewProgram(prompt string) (*tea.Program, *App) {
	app := New(prompt)
	p := tea.NewProgram(app, tea.WithAltScreen())
	return p, app
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case EventMsg:
		a.handleEvent(msg.Event)

	case RunDoneMsg:
		a.done = true
		a.verdict = msg.Verdict
		a.runErr = msg.Err

	case LogMsg:
		a.appendLog(msg.Message)
	}

	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.viewHeader())
	b.WriteString("\n\n")
	b.WriteString(a.viewAgents())
	b.WriteString("\n")

	if a.done {
		b.WriteString(a.viewResult())
	} else {
		b.WriteString(fmt.Sprintf("%s collecting responses (%s)\n",
			a.spin.View(), formatDuration(time.Since(a.started))))
	}

	b.WriteString("\n")
	b.WriteString(a.viewLogs())
	b.WriteString("\n")
	b.WriteString(a.viewFooter())
	return b.String()
}

// handleEvent updates agent rows and the log from one orchestrator event.
func (a *App) handleEvent(ev orchestrator.Event) {
	switch ev.Type {
	case orchestrator.EventRunStarted:
		a.appendLog(ev.Message)

	case orchestrator.EventAgentStatus:
		row := a.findOrCreateRow(ev.AgentID, ev.AgentName, ev.Role)
		row.status = ev.Status
		if ev.Err != nil {
			row.err = ev.Err.Error()
			a.appendLog(fmt.Sprintf("%s: %v", ev.AgentName, ev.Err))
		}

	case orchestrator.EventProgress, orchestrator.EventCouncilSettled:
		a.appendLog(ev.Message)

	case orchestrator.EventRunFailed:
		if ev.Err != nil {
			a.appendLog(ev.Err.Error())
		}
	}
}

// findOrCreateRow finds an agent row by (id, role) or appends a new one.
func (a *App) findOrCreateRow(id, name string, role models.Role) *agentRow {
	for _, row := range a.agents {
		if row.id == id && row.role == role {
			return row
		}
	}
	row := &agentRow{
		id:      id,
		name:    name,
		role:    role,
		status:  models.StatusPending,
		started: time.Now(),
	}
	a.agents = append(a.agents, row)
	return row
}

// appendLog keeps the most recent activity lines.
func (a *App) appendLog(line string) {
	if line == "" {
		return
	}
	a.logs = append(a.logs, fmt.Sprintf("%s %s", time.Now().Format("15:04:05"), line))
	if len(a.logs) > 200 {
		a.logs = a.logs[len(a.logs)-200:]
	}
}

// viewHeader renders the title and truncated prompt.
func (a *App) viewHeader() string {
	title := headerStyle.Render("Council")
	prompt := a.prompt
	max := a.width - 12
	if max > 0 && len(prompt) > max {
		prompt = prompt[:max-3] + "..."
	}
	return title + " " + promptStyle.Render(prompt)
}

// viewAgents renders one card per agent, side by side.
func (a *App) viewAgents() string {
	if len(a.agents) == 0 {
		return mutedStyle.Render("discovering agents...") + "\n"
	}
	cards := make([]string, 0, len(a.agents))
	for _, row := range a.agents {
		cards = append(cards, renderCard(row))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n"
}

// viewResult renders the verdict once the run has finished.
func (a *App) viewResult() string {
	if a.runErr != nil {
		return errStyle.Render("run failed: "+a.runErr.Error()) + "\n"
	}
	if a.verdict == nil {
		return ""
	}
	return RenderVerdict(a.verdict, a.width)
}

// viewLogs renders the last few activity lines.
func (a *App) viewLogs() string {
	n := 5
	if len(a.logs) < n {
		n = len(a.logs)
	}
	if n == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range a.logs[len(a.logs)-n:] {
		b.WriteString(mutedStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// viewFooter renders the help line.
func (a *App) viewFooter() string {
	if a.done {
		return mutedStyle.Render("Press q to exit")
	}
	return mutedStyle.Render("q to abort")
}

// Shared styles.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// formatDuration renders a duration as mm:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
