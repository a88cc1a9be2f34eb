// Package tui renders a live terminal monitor for a running mining job.
package tui

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cyclemine/internal/api"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA"))

	foundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Padding(1, 0, 0, 0)
)

type tickMsg time.Time

// Model is the bubbletea model for the mining monitor.
type Model struct {
	src     api.StatusSource
	spinner spinner.Model

	status     api.Status
	copyNotice string
	quitting   bool
}

// NewModel builds the monitor around a status source.
func NewModel(src api.StatusSource) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	return Model{src: src, spinner: sp}
}

// Run starts the monitor and blocks until the user quits or the job ends.
func Run(src api.StatusSource) error {
	_, err := tea.NewProgram(NewModel(src), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.src.RequestStop()
			return m, tea.Quit
		case "c":
			m.copyNotice = m.copyLatestSolution()
			return m, nil
		}

	case tickMsg:
		m.status = m.src.Status()
		if !m.status.Running {
			return m, tea.Quit
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// copyLatestSolution puts the most recent solution on the clipboard as JSON.
func (m Model) copyLatestSolution() string {
	sols := m.src.Solutions()
	if len(sols) == 0 {
		return "no solution to copy"
	}
	data, err := json.Marshal(sols[len(sols)-1])
	if err != nil {
		return "marshal failed"
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		return "clipboard unavailable"
	}
	return "solution copied to clipboard"
}

func (m Model) View() string {
	if m.quitting {
		return "stopping job...\n"
	}

	s := m.status
	rows := []string{
		row("Plugin", s.PluginName),
		row("Job", fmt.Sprintf("%d (%s)", s.JobID, s.RunID)),
		row("Graph rate", fmt.Sprintf("%.2f graphs/s", s.GraphsPerSec)),
		row("Candidates pushed", fmt.Sprintf("%d", s.Stats.CandidatesPushed)),
		row("Solutions popped", fmt.Sprintf("%d", s.Stats.SolutionsPopped)),
		row("Solutions accepted", fmt.Sprintf("%d", s.Stats.SolutionsAccepted)),
		row("Uptime", s.Stats.Uptime.Truncate(time.Second).String()),
	}
	if s.SolutionFound {
		rows = append(rows, foundStyle.Render("solution found"))
	}
	if s.LastError != "" {
		rows = append(rows, labelStyle.Render("error: ")+s.LastError)
	}

	view := titleStyle.Render("cyclemine") + " " + m.spinner.View() + "\n" +
		panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	if m.copyNotice != "" {
		view += "\n" + copyNoticeStyle.Render(m.copyNotice)
	}
	view += helpStyle.Render("\nc: copy latest solution  q: stop and quit")
	return view
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-19s", label)) + valueStyle.Render(value)
}
