package ui

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/storage"
	"github.com/tgienger/atm/internal/ui/views"
)

type memorySettings map[string]string

func (m memorySettings) GetSetting(key string) (string, error) { return m[key], nil }

func (m memorySettings) SetSetting(key, value string) error {
	m[key] = value
	return nil
}

func openStore(t *testing.T) *storage.Storage {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	store, err := storage.Open(t.TempDir(), storage.WithLogger(logrus.NewEntry(l)))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestApp_RemembersOpenProject(t *testing.T) {
	store := openStore(t)
	project, err := store.Projects().Create(storage.ProjectDraft{ID: "p", Name: "Project"})
	require.NoError(t, err)
	settings := memorySettings{}

	app := NewApp(store, settings)
	app.Init()
	assert.Equal(t, ViewProjects, app.currentView)

	app.Update(views.SelectedProject{Project: *project})
	assert.Equal(t, ViewTasks, app.currentView)
	assert.Equal(t, "p", settings[app.lastProjectSetting()])

	// a fresh session reopens the project
	reopened := NewApp(store, settings)
	reopened.Init()
	assert.Equal(t, ViewTasks, reopened.currentView)

	reopened.Update(views.BackToProjects{})
	assert.Equal(t, ViewProjects, reopened.currentView)
	assert.Empty(t, settings[reopened.lastProjectSetting()])
}

func TestApp_IgnoresDeletedLastProject(t *testing.T) {
	store := openStore(t)
	settings := memorySettings{}
	app := NewApp(store, settings)
	settings[app.lastProjectSetting()] = "gone"

	app.Init()
	assert.Equal(t, ViewProjects, app.currentView)
}

func TestApp_WindowSizeReachesTaskView(t *testing.T) {
	store := openStore(t)
	project, err := store.Projects().Create(storage.ProjectDraft{Name: "Sized"})
	require.NoError(t, err)

	app := NewApp(store, memorySettings{})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	app.Update(views.SelectedProject{Project: *project})

	assert.Contains(t, app.View(), "Sized")
}
