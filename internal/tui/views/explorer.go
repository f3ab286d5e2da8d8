package views

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/spottet/internal/engine/discovery"
	"github.com/rendis/spottet/internal/engine/fountains"
	"github.com/rendis/spottet/internal/model"
	"github.com/rendis/spottet/internal/tui/components"
	"github.com/rendis/spottet/internal/tui/styles"
)

// Engine is the part of the orchestrator the views read from. Calls that
// change state are issued from tea.Cmds, never from Update.
type Engine interface {
	Snapshot() discovery.Snapshot
	FitAll() orb.Bound
	Visible(bound orb.Bound) []model.Fountain
	ReportWorking(id string, working bool) (model.Fountain, error)
	Stats() *discovery.Stats
}

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusMap
)

// ExplorerModel lists fountains by distance next to the map and a detail card.
type ExplorerModel struct {
	engine Engine
	layer  *components.MarkerLayer

	snap          discovery.Snapshot
	filtered      []model.Fountain
	favoritesOnly bool
	cursorID      string

	table   table.Model
	filter  textinput.Model
	mapView components.MapView
	focus   focusArea
	width   int
	height  int
	notice  string
}

// SnapshotMsg carries a new orchestrator snapshot into the program.
type SnapshotMsg struct {
	Snapshot discovery.Snapshot
}

type workingReportedMsg struct {
	Fountain model.Fountain
	Err      error
}

// SearchDoneMsg reports the outcome of a text search.
type SearchDoneMsg struct {
	Query   string
	Applied bool
	Err     error
}

func NewExplorerModel(engine Engine, layer *components.MarkerLayer) ExplorerModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	m := ExplorerModel{
		engine:  engine,
		layer:   layer,
		filter:  filter,
		mapView: components.NewMapView(40, 12),
	}
	m.setSnapshot(engine.Snapshot())
	return m
}

func (m ExplorerModel) Init() tea.Cmd {
	return nil
}

func (m ExplorerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		return m, nil

	case workingReportedMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("Could not update: %v", msg.Err)
		} else if msg.Fountain.IsWorking {
			m.notice = fmt.Sprintf("%s marked as working", msg.Fountain.Name)
		} else {
			m.notice = fmt.Sprintf("%s reported broken", msg.Fountain.Name)
		}
		return m, nil

	case SearchDoneMsg:
		switch {
		case msg.Err != nil:
			m.notice = fmt.Sprintf("Search %q failed: %v", msg.Query, msg.Err)
		case !msg.Applied:
			m.notice = fmt.Sprintf("Search %q was replaced by a newer one", msg.Query)
		default:
			m.notice = fmt.Sprintf("Search %q done", msg.Query)
			m.mapView.FitAll()
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "q":
				return m, tea.Quit
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "s":
				return m, func() tea.Msg { return NavigateToSearch{} }
			case "m":
				m.focus = focusMap
				m.table.SetStyles(m.unfocusedTableStyles())
				return m, nil
			case "v":
				m.favoritesOnly = !m.favoritesOnly
				m.applyFilter()
				return m, nil
			case "enter":
				return m, m.clickCurrent()
			case "f":
				return m, m.favoriteCurrent()
			case "w":
				return m, m.toggleWorkingCurrent()
			case "c":
				m.copyShareText()
				return m, nil
			case "a":
				m.mapView.FitAll()
				return m, nil
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusMap:
			switch key {
			case "esc", "m", "q":
				m.focus = focusTable
				m.table.SetStyles(m.focusedTableStyles())
				return m, nil
			case "+", "=":
				m.mapView.ZoomIn()
			case "-":
				m.mapView.ZoomOut()
			case "a", "0":
				m.mapView.FitAll()
			case "up", "k":
				m.mapView.Pan(1, 0)
			case "down", "j":
				m.mapView.Pan(-1, 0)
			case "left", "h":
				m.mapView.Pan(0, -1)
			case "right", "l":
				m.mapView.Pan(0, 1)
			case "u":
				if m.snap.HasReference {
					m.mapView.CenterOn(m.snap.Reference)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		if c := m.table.Cursor(); c >= 0 && c < len(m.filtered) {
			m.cursorID = m.filtered[c].ID
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}
	return m, cmd
}

func (m *ExplorerModel) setSnapshot(s discovery.Snapshot) {
	m.snap = s
	m.mapView.SetMarkers(m.layer.Markers())
	m.mapView.SetSelected(s.Selected)
	if s.HasReference {
		m.mapView.SetUser(s.Reference)
	}
	m.mapView.SetBound(m.engine.FitAll())
	m.applyFilter()
}

// current is the fountain under the table cursor.
func (m ExplorerModel) current() (model.Fountain, bool) {
	for _, f := range m.filtered {
		if f.ID == m.cursorID {
			return f, true
		}
	}
	return model.Fountain{}, false
}

func (m ExplorerModel) clickCurrent() tea.Cmd {
	f, ok := m.current()
	if !ok {
		return nil
	}
	layer := m.layer
	return func() tea.Msg {
		layer.Click(f.ID)
		return nil
	}
}

func (m ExplorerModel) favoriteCurrent() tea.Cmd {
	f, ok := m.current()
	if !ok {
		return nil
	}
	layer := m.layer
	return func() tea.Msg {
		layer.RequestFavorite(f.ID)
		return nil
	}
}

func (m ExplorerModel) toggleWorkingCurrent() tea.Cmd {
	f, ok := m.current()
	if !ok {
		return nil
	}
	engine := m.engine
	return func() tea.Msg {
		updated, err := engine.ReportWorking(f.ID, !f.IsWorking)
		return workingReportedMsg{Fountain: updated, Err: err}
	}
}

func (m *ExplorerModel) copyShareText() {
	f, ok := m.current()
	if !ok {
		return
	}
	share := fountains.ShareText(f)
	text := share.Text + "\n" + share.URL
	cmd := exec.Command("pbcopy")
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		m.notice = "Share: " + share.URL
		return
	}
	m.notice = "Share link copied to clipboard"
}

func (m *ExplorerModel) applyFilter() {
	set := m.snap.Fountains
	if m.favoritesOnly {
		set = fountains.Favorites(set)
	}
	set = fountains.Filter(set, m.filter.Value())
	m.filtered = fountains.SortedByDistance(set)

	cursor := 0
	for i, f := range m.filtered {
		if f.ID == m.cursorID {
			cursor = i
			break
		}
	}
	m.buildTable(m.filtered)
	if len(m.filtered) > 0 {
		m.table.SetCursor(cursor)
		m.cursorID = m.filtered[cursor].ID
	} else {
		m.cursorID = ""
	}
}

func (m *ExplorerModel) buildTable(set []model.Fountain) {
	nameW := 26
	distW := 8
	statusW := 8
	hoursW := 14
	if w := m.tableWidth(); w > 64 {
		nameW += w - 64
	}

	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Name", Width: nameW},
		{Title: "Distance", Width: distW},
		{Title: "Status", Width: statusW},
		{Title: "Hours", Width: hoursW},
	}

	rows := make([]table.Row, len(set))
	for i, f := range set {
		fav := " "
		if f.IsFavorite {
			fav = "★"
		}
		status := "broken"
		if f.IsWorking {
			status = "working"
		}
		rows[i] = table.Row{
			fav,
			truncate(f.Name, nameW),
			fmt.Sprintf("%.1f km", f.DistanceKm),
			status,
			truncate(f.Hours, hoursW),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(m.tableHeight()),
	)
	if m.focus == focusMap {
		t.SetStyles(m.unfocusedTableStyles())
	} else {
		t.SetStyles(m.focusedTableStyles())
	}
	m.table = t
}

func (m ExplorerModel) focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func (m ExplorerModel) unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ExplorerModel) tableWidth() int {
	if m.width <= 0 {
		return 64
	}
	return m.width * 11 / 20
}

func (m ExplorerModel) tableHeight() int {
	h := m.height/2 - 4
	if h < 5 {
		h = 5
	}
	return h
}

func (m *ExplorerModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	mapW := m.width - m.tableWidth() - 6
	if mapW < 20 {
		mapW = 20
	}
	m.mapView.SetSize(mapW, m.tableHeight()+1)
	m.applyFilter()
}

func (m ExplorerModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Fountains: %d", len(m.snap.Fountains))
	b.WriteString(styles.Title.Render(title))
	if len(m.filtered) != len(m.snap.Fountains) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	b.WriteString("  ")
	b.WriteString(stateBadge(m.snap))
	b.WriteString("\n\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	if m.favoritesOnly {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).Render("  ★ favorites only"))
	}
	b.WriteString("\n")

	mapBorder := styles.Muted
	if m.focus == focusMap {
		mapBorder = styles.Primary
	}
	visible := len(m.engine.Visible(m.mapView.Bound()))
	mapLabel := lipgloss.NewStyle().Bold(true).Foreground(mapBorder).
		Render(fmt.Sprintf("Map (%d in view)", visible))
	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(mapBorder).
		Render(m.mapView.View())

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.table.View(), "  ", mapLabel+"\n"+mapBox))
	b.WriteString("\n\n")

	b.WriteString(m.viewCard())
	b.WriteString("\n")

	if msg := m.snap.Status.Message; msg != "" {
		style := lipgloss.NewStyle().Foreground(styles.Warning)
		if m.snap.Status.Kind == discovery.StatusError {
			style = styles.ErrorText
		}
		b.WriteString(style.Render(msg))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.notice))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • enter select • f favorite • w working • c share • v favorites • / filter • s search • m map • q quit"
	case focusFilter:
		statusText = "type to filter • esc back"
	case focusMap:
		statusText = "arrows pan • +/- zoom • a fit all • u center on me • esc back"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m ExplorerModel) viewCard() string {
	f, ok := m.current()
	if !ok {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No fountain selected")
	}

	label := styles.Label
	var lines []string
	name := lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(f.Name)
	if f.ID == m.snap.Selected {
		name += lipgloss.NewStyle().Foreground(styles.Primary).Render("  ◉ on map")
	}
	lines = append(lines, name)

	row := func(l, v string) {
		if v != "" {
			lines = append(lines, label.Render(l)+styles.Value.Render(v))
		}
	}
	row("Address", f.Address)
	row("Distance", fmt.Sprintf("%.1f km", f.DistanceKm))
	row("Hours", f.Hours)
	if f.Rating > 0 {
		row("Rating", fmt.Sprintf("%.1f", f.Rating))
	}
	if f.IsWorking {
		row("Status", styles.WorkingBadge.Render("working"))
	} else {
		row("Status", styles.BrokenBadge.Render("reported broken"))
	}
	if f.HasPhoto {
		row("Photo", "yes")
	}
	row("Directions", fountains.DirectionsURL(f))

	return styles.Border.Render(strings.Join(lines, "\n"))
}

func stateBadge(s discovery.Snapshot) string {
	style := lipgloss.NewStyle().Foreground(styles.Muted)
	label := s.State.String()
	switch s.State {
	case discovery.StateLocatingUser:
		label = "locating you..."
		style = style.Foreground(styles.Secondary)
	case discovery.StateSearchingNearby:
		label = "searching nearby..."
		style = style.Foreground(styles.Secondary)
	case discovery.StateSearchingText:
		label = fmt.Sprintf("searching %q...", s.Query)
		style = style.Foreground(styles.Secondary)
	case discovery.StateError:
		style = styles.ErrorText
	case discovery.StateReady:
		style = style.Foreground(styles.Success)
	}
	out := style.Render("● " + label)
	if s.UsingFallback {
		out += lipgloss.NewStyle().Foreground(styles.Warning).Render("  (approximate position)")
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
