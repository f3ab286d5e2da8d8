package tui

import (
	"context"
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/spottet/internal/engine/discovery"
	"github.com/rendis/spottet/internal/tui/components"
	"github.com/rendis/spottet/internal/tui/views"
)

type viewID int

const (
	viewProgress viewID = iota
	viewExplorer
	viewSearch
)

// Searcher runs text searches for the search view.
type Searcher interface {
	SearchText(ctx context.Context, query string) (bool, error)
}

// History remembers text searches.
type History interface {
	views.RecentSource
	RecordSearch(ctx context.Context, query string) error
}

// App is the root bubbletea model.
type App struct {
	ctx      context.Context
	engine   views.Engine
	searcher Searcher
	history  History
	layer    *components.MarkerLayer
	logger   *log.Logger

	currentView viewID
	width       int
	height      int
	progress    views.ProgressModel
	explorer    views.ExplorerModel
	search      views.SearchModel
}

func NewApp(ctx context.Context, orch *discovery.Orchestrator, layer *components.MarkerLayer, history History, logger *log.Logger) App {
	return App{
		ctx:         ctx,
		engine:      orch,
		searcher:    orch,
		history:     history,
		layer:       layer,
		logger:      logger,
		currentView: viewProgress,
		progress:    views.NewProgressModel(orch),
		explorer:    views.NewExplorerModel(orch, layer),
	}
}

func (a App) Init() tea.Cmd {
	return a.progress.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, a.broadcast(msg)
	case views.SnapshotMsg, views.SearchDoneMsg:
		return a, a.broadcast(msg)
	case views.NavigateToExplorer:
		a.currentView = viewExplorer
		return a, a.sizeCmd()
	case views.NavigateToSearch:
		a.currentView = viewSearch
		a.search = views.NewSearchModel(a.history)
		return a, a.search.Init()
	case views.SubmitSearchMsg:
		a.currentView = viewExplorer
		return a, a.runSearch(msg.Query)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewProgress:
		var m tea.Model
		m, cmd = a.progress.Update(msg)
		a.progress = m.(views.ProgressModel)
	case viewExplorer:
		var m tea.Model
		m, cmd = a.explorer.Update(msg)
		a.explorer = m.(views.ExplorerModel)
	case viewSearch:
		var m tea.Model
		m, cmd = a.search.Update(msg)
		a.search = m.(views.SearchModel)
	}

	return a, cmd
}

// broadcast hands msg to the progress and explorer views so whichever is
// shown next is already current.
func (a *App) broadcast(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	var m tea.Model
	var cmd tea.Cmd

	m, cmd = a.progress.Update(msg)
	a.progress = m.(views.ProgressModel)
	cmds = append(cmds, cmd)

	m, cmd = a.explorer.Update(msg)
	a.explorer = m.(views.ExplorerModel)
	cmds = append(cmds, cmd)

	return tea.Batch(cmds...)
}

func (a App) runSearch(query string) tea.Cmd {
	ctx, searcher, history, logger := a.ctx, a.searcher, a.history, a.logger
	return func() tea.Msg {
		if history != nil {
			if err := history.RecordSearch(ctx, query); err != nil {
				logger.Printf("ERROR recording search query=%q err=%v", query, err)
			}
		}
		applied, err := searcher.SearchText(ctx, query)
		return views.SearchDoneMsg{Query: query, Applied: applied, Err: err}
	}
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewProgress:
		content = a.progress.View()
	case viewExplorer:
		content = a.explorer.View()
	case viewSearch:
		content = a.search.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly shown views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the orchestrator and the TUI. Orchestrator snapshots are fed to
// the program as SnapshotMsg.
func Run(ctx context.Context, orch *discovery.Orchestrator, layer *components.MarkerLayer, history History, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewApp(ctx, orch, layer, history, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	orch.OnChange(func(s discovery.Snapshot) {
		p.Send(views.SnapshotMsg{Snapshot: s})
	})

	go func() {
		if err := orch.Start(ctx); err != nil {
			logger.Printf("ERROR start err=%v", err)
		}
	}()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
