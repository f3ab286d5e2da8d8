package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/spottet/internal/engine/discovery"
	"github.com/rendis/spottet/internal/tui/styles"
)

// ProgressModel is shown while the user is located and the first nearby
// search runs.
type ProgressModel struct {
	engine    Engine
	progress  progress.Model
	snap      discovery.Snapshot
	startTime time.Time
	done      bool
	width     int
	height    int
}

type progressTickMsg time.Time

func NewProgressModel(engine Engine) ProgressModel {
	return ProgressModel{
		engine: engine,
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
		snap:      engine.Snapshot(),
		startTime: time.Now(),
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc", "enter":
			return m, navigateToExplorer
		}
	case SnapshotMsg:
		m.snap = msg.Snapshot
		if startupFinished(m.snap.State) && !m.done {
			m.done = true
			return m, tea.Tick(600*time.Millisecond, func(time.Time) tea.Msg {
				return NavigateToExplorer{}
			})
		}
		return m, nil
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	}

	pModel, cmd := m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func navigateToExplorer() tea.Msg {
	return NavigateToExplorer{}
}

func startupFinished(s discovery.State) bool {
	switch s {
	case discovery.StateReady, discovery.StateError, discovery.StateSearchingText:
		return true
	}
	return false
}

// stepFraction maps the startup state onto the progress bar.
func stepFraction(s discovery.State) float64 {
	switch s {
	case discovery.StateLocatingUser:
		return 0.2
	case discovery.StateSearchingNearby:
		return 0.6
	case discovery.StateIdle:
		return 0
	}
	return 1
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("spottet: finding drinking fountains"))
	b.WriteString("\n\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(40).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	b.WriteString(m.progress.ViewAs(stepFraction(m.snap.State)))
	b.WriteString("\n\n")

	if msg := m.snap.Status.Message; msg != "" {
		style := lipgloss.NewStyle().Foreground(styles.Warning)
		if m.snap.Status.Kind == discovery.StatusError {
			style = styles.ErrorText
		}
		b.WriteString(style.Render(msg))
		b.WriteString("\n\n")
	}

	if m.done {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
			Render(fmt.Sprintf("%d fountains found", len(m.snap.Fountains))))
		b.WriteString("\n")
	}
	b.WriteString(styles.StatusBar.Render("enter skip to list • q quit"))

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)
	stats := m.engine.Stats()

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	row("Step:", stateBadge(m.snap))
	if m.snap.HasReference {
		row("Position:", m.snap.Reference.String())
	}
	row("Fountains:", fmt.Sprintf("%d", len(m.snap.Fountains)))
	row("Searches:", fmt.Sprintf("%d", stats.SearchesIssued.Load()))
	row("Candidates:", fmt.Sprintf("%d", stats.CandidatesSeen.Load()))

	if failed := stats.SearchesFailed.Load(); failed > 0 {
		sb.WriteString(statLabel.Render("Failed:"))
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Render(fmt.Sprintf("%d", failed)))
		sb.WriteString("\n")
	}

	sb.WriteString(statLabel.Render("Elapsed:"))
	sb.WriteString(statVal.Render(elapsed.String()))
	return sb.String()
}

// NavigateToExplorer signals transition to the fountain list.
type NavigateToExplorer struct{}
