package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/atm/internal/logger"
	"github.com/tgienger/atm/internal/models"
	"github.com/tgienger/atm/internal/storage"
	"github.com/tgienger/atm/internal/ui/views"
)

// lastProjectKey prefixes the per-directory setting that remembers the open project
const lastProjectKey = "last_project_id"

// Settings persists small UI preferences
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Currently active view
type View int

const (
	ViewProjects View = iota
	ViewTasks
)

type App struct {
	store       *storage.Storage
	settings    Settings
	currentView View
	projectList *views.ProjectListView
	taskList    *views.TaskListView
	width       int
	height      int
}

// NewApp creates a new application
func NewApp(store *storage.Storage, settings Settings) *App {
	return &App{
		store:       store,
		settings:    settings,
		currentView: ViewProjects,
		projectList: views.NewProjectListView(store),
	}
}

// Run starts the full-screen interface and blocks until it exits
func Run(store *storage.Storage, settings Settings) error {
	_, err := tea.NewProgram(NewApp(store, settings), tea.WithAltScreen()).Run()
	return err
}

func (a *App) Init() tea.Cmd {
	// Reopen the last project unless it has been deleted since
	if id, err := a.settings.GetSetting(a.lastProjectSetting()); err == nil && id != "" {
		if project, err := a.store.Projects().Get(id); err == nil {
			return a.openProject(*project)
		}
	}

	return a.projectList.Init()
}

func (a *App) openProject(project models.Project) tea.Cmd {
	a.currentView = ViewTasks
	a.taskList = views.NewTaskListView(a.store, project)
	a.saveSetting(project.ID)

	return tea.Batch(
		a.taskList.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

// lastProjectSetting is the settings key for the current working directory
func (a *App) lastProjectSetting() string {
	return lastProjectKey + ":" + a.store.Dir()
}

func (a *App) saveSetting(projectID string) {
	if err := a.settings.SetSetting(a.lastProjectSetting(), projectID); err != nil {
		logger.WithComponent("ui").WithError(err).Warn("Failed to save last project")
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// The project list persists behind the task view
		a.projectList.Update(msg)

	case views.SelectedProject:
		return a, a.openProject(msg.Project)

	case views.BackToProjects:
		a.currentView = ViewProjects
		a.saveSetting("")
		return a, tea.Batch(
			a.projectList.Init(),
			func() tea.Msg {
				return tea.WindowSizeMsg{Width: a.width, Height: a.height}
			},
		)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewProjects:
		_, cmd = a.projectList.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	}
	return a.projectList.View()
}
