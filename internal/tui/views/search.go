package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/spottet/internal/engine/storage"
	"github.com/rendis/spottet/internal/tui/styles"
)

// RecentSource lists remembered text searches.
type RecentSource interface {
	RecentSearches(ctx context.Context) ([]storage.RecentSearch, error)
}

// SearchModel takes a free-text query, or one picked from recent searches.
type SearchModel struct {
	input  textinput.Model
	source RecentSource
	recent []storage.RecentSearch
	cursor int // -1 while typing, otherwise index into recent
	err    string
}

type recentLoadedMsg struct {
	entries []storage.RecentSearch
	err     error
}

func NewSearchModel(source RecentSource) SearchModel {
	ti := textinput.New()
	ti.Placeholder = "park, street or neighbourhood"
	ti.CharLimit = 100
	ti.Width = 50
	ti.Focus()

	return SearchModel{
		input:  ti,
		source: source,
		cursor: -1,
	}
}

func (m SearchModel) Init() tea.Cmd {
	source := m.source
	load := func() tea.Msg {
		if source == nil {
			return recentLoadedMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		entries, err := source.RecentSearches(ctx)
		return recentLoadedMsg{entries: entries, err: err}
	}
	return tea.Batch(textinput.Blink, load)
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recentLoadedMsg:
		m.recent = msg.entries
		if msg.err != nil {
			m.err = fmt.Sprintf("Recent searches unavailable: %v", msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, navigateToExplorer
		case "up":
			if m.cursor >= 0 {
				m.cursor--
			}
			m.syncFocus()
			return m, nil
		case "down":
			if m.cursor < len(m.recent)-1 {
				m.cursor++
			}
			m.syncFocus()
			return m, nil
		case "enter":
			query := strings.TrimSpace(m.input.Value())
			if m.cursor >= 0 && m.cursor < len(m.recent) {
				query = m.recent[m.cursor].Query
			}
			if query == "" {
				m.err = "Type something to search for"
				return m, nil
			}
			return m, func() tea.Msg { return SubmitSearchMsg{Query: query} }
		}
	}

	if m.cursor >= 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.err = ""
	return m, cmd
}

func (m *SearchModel) syncFocus() {
	if m.cursor < 0 {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Search fountains"))
	b.WriteString("\n\n")

	labelStyle := styles.InactiveItem
	if m.cursor < 0 {
		labelStyle = styles.ActiveItem
	}
	b.WriteString(labelStyle.Render("Where: "))
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Secondary).Render("Recent"))
	b.WriteString("\n")
	if len(m.recent) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No recent searches"))
		b.WriteString("\n")
	}
	for i, r := range m.recent {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		ago := lipgloss.NewStyle().Foreground(styles.Muted).Render("  " + timeAgo(r.SearchedAt))
		b.WriteString(fmt.Sprintf("%s%s%s\n", cursor, style.Render(r.Query), ago))
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render(m.err))
		b.WriteString("\n")
	}

	b.WriteString(styles.StatusBar.Render("enter search • ↑↓ recent • esc back"))
	return styles.Border.Render(b.String())
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// NavigateToSearch opens the search view.
type NavigateToSearch struct{}

// SubmitSearchMsg asks the app to run a text search.
type SubmitSearchMsg struct {
	Query string
}
