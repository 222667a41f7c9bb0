package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/config"
	"github.com/tgienger/atm/internal/models"
	"github.com/tgienger/atm/internal/recommend"
	"github.com/tgienger/atm/internal/search"
	"github.com/tgienger/atm/internal/storage"
)

// isolate keeps user configuration and ATM_* variables out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{config.EnvLogLevel, config.EnvLogFile, config.EnvBackend, config.EnvGlobalDirectory} {
		t.Setenv(key, "")
	}
}

func noUI(*storage.Storage, *config.Config) error { return nil }

// execute runs the command line against dir and returns what it printed
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(noUI)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"-C", dir}, args...))
	err := root.Execute()
	return buf.String(), err
}

// mustExecute runs the command line and decodes its JSON output into out
func mustExecute(t *testing.T, dir string, out any, args ...string) {
	t.Helper()
	output, err := execute(t, dir, args...)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal([]byte(output), out), "output is not valid JSON: %s", output)
	}
}

func TestProjectsCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	var created models.Project
	mustExecute(t, dir, &created, "projects", "create", "--id", "web", "--name", "Website", "-d", "marketing")
	assert.Equal(t, "web", created.ID)
	assert.Equal(t, "marketing", created.Description)

	var updated models.Project
	mustExecute(t, dir, &updated, "projects", "update", "--id", "web", "--name", "Site")
	assert.Equal(t, "Site", updated.Name)
	assert.Equal(t, "marketing", updated.Description)

	var listed []models.Project
	mustExecute(t, dir, &listed, "projects", "list")
	require.Len(t, listed, 1)
	assert.Equal(t, "Site", listed[0].Name)

	_, err := execute(t, dir, "projects", "delete", "--id", "web")
	assert.ErrorIs(t, err, storage.ErrConfirmationRequired)

	mustExecute(t, dir, nil, "projects", "delete", "--id", "web", "--confirm")
	_, err = execute(t, dir, "projects", "get", "--id", "web")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestProjectsCreate_RequiresName(t *testing.T) {
	isolate(t)
	_, err := execute(t, t.TempDir(), "projects", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "name" not set`)
}

func TestTasksCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	mustExecute(t, dir, nil, "projects", "create", "--id", "p", "--name", "P")

	var a, b, c models.Task
	mustExecute(t, dir, &a, "tasks", "create", "--id", "A", "-n", "A", "-p", "p", "--tags", "api,backend")
	mustExecute(t, dir, &b, "tasks", "create", "--id", "B", "-n", "B", "-p", "p", "--parent", "A", "--complexity", "4")
	mustExecute(t, dir, &c, "tasks", "create", "--id", "C", "-n", "C", "-p", "p", "--parent", "B", "--depends-on", "A")
	assert.Equal(t, []string{"api", "backend"}, a.Tags)
	require.NotNil(t, b.Complexity)
	assert.Equal(t, 4, *b.Complexity)
	assert.Equal(t, 2, c.Level)
	assert.Equal(t, []string{"A"}, c.DependsOn)

	var ancestors []models.Task
	mustExecute(t, dir, &ancestors, "tasks", "ancestors", "--id", "C")
	require.Len(t, ancestors, 2)
	assert.Equal(t, "A", ancestors[0].ID)
	assert.Equal(t, "B", ancestors[1].ID)

	var level struct {
		Level int `json:"level"`
	}
	mustExecute(t, dir, &level, "tasks", "level", "--id", "C")
	assert.Equal(t, 2, level.Level)

	_, err := execute(t, dir, "tasks", "move", "--id", "A", "--parent", "C")
	assert.ErrorIs(t, err, storage.ErrCycle)

	var moved models.Task
	mustExecute(t, dir, &moved, "tasks", "move", "--id", "C", "--parent", "")
	assert.Equal(t, 0, moved.Level)

	var roots []models.Task
	mustExecute(t, dir, &roots, "tasks", "list", "-p", "p", "--roots")
	require.Len(t, roots, 2)

	var tagged []models.Task
	mustExecute(t, dir, &tagged, "tasks", "list", "--tag", "back*")
	require.Len(t, tagged, 1)
	assert.Equal(t, "A", tagged[0].ID)

	var done models.Task
	mustExecute(t, dir, &done, "tasks", "update", "--id", "B", "--completed")
	assert.Equal(t, models.StatusDone, done.Status)

	var tree []models.TaskNode
	mustExecute(t, dir, &tree, "tasks", "tree", "-p", "p")
	require.Len(t, tree, 2)
	assert.Equal(t, "A", tree[0].Task.ID)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, "B", tree[0].Children[0].Task.ID)

	mustExecute(t, dir, nil, "tasks", "delete", "--id", "A", "--confirm")
	var remaining []models.Task
	mustExecute(t, dir, &remaining, "tasks", "list")
	require.Len(t, remaining, 1)
	assert.Equal(t, "C", remaining[0].ID)
	assert.Empty(t, remaining[0].DependsOn)
}

func TestTasksList_RootsAndParentAreExclusive(t *testing.T) {
	isolate(t)
	_, err := execute(t, t.TempDir(), "tasks", "list", "--roots", "--parent", "x")
	assert.Error(t, err)
}

func TestTasksNextAndAnalyze(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	mustExecute(t, dir, nil, "projects", "create", "--id", "p", "--name", "P")
	mustExecute(t, dir, nil, "tasks", "create", "--id", "schema", "-n", "Schema", "-p", "p", "--priority", "8", "--completed")
	mustExecute(t, dir, nil, "tasks", "create", "--id", "api", "-n", "API", "-p", "p", "--depends-on", "schema", "--tags", "backend")
	mustExecute(t, dir, nil, "tasks", "create", "--id", "ui", "-n", "UI", "-p", "p", "--priority", "9", "--depends-on", "api")
	mustExecute(t, dir, nil, "tasks", "create", "--id", "docs", "-n", "Docs", "-p", "p", "--priority", "3", "--complexity", "9")

	var next recommend.Result
	mustExecute(t, dir, &next, "tasks", "next", "-p", "p", "--preferred-tags", "back*")
	require.Len(t, next.Recommendations, 2)
	assert.Equal(t, "api", next.Recommendations[0].Task.ID)
	assert.Equal(t, 65, next.Recommendations[0].Score)
	assert.Equal(t, "docs", next.Recommendations[1].Task.ID)
	assert.Equal(t, 1, next.Waiting)

	mustExecute(t, dir, &next, "tasks", "next", "--max", "1", "--consider-complexity=false")
	require.Len(t, next.Recommendations, 1)
	assert.Equal(t, 2, next.Ready)

	_, err := execute(t, dir, "tasks", "next", "-p", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = execute(t, dir, "tasks", "next", "--max", "11")
	assert.ErrorIs(t, err, recommend.ErrInvalidOptions)

	var report recommend.ComplexityReport
	mustExecute(t, dir, &report, "tasks", "analyze", "-p", "p")
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "docs", report.Findings[0].Task.ID)
	assert.Equal(t, []string{"Design Docs", "Implement Docs", "Test Docs", "Handle edge cases of Docs"}, report.Findings[0].Suggestions)

	mustExecute(t, dir, &report, "tasks", "analyze", "--threshold", "9")
	assert.Empty(t, report.Findings)

	_, err = execute(t, dir, "tasks", "analyze", "--id", "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// a dependency cycle built through updates is reported, not recommended
	mustExecute(t, dir, nil, "tasks", "update", "--id", "api", "--depends-on", "schema,ui")
	mustExecute(t, dir, &next, "tasks", "next")
	assert.Equal(t, [][]string{{"api", "ui"}}, next.Cycles)
	require.Len(t, next.Recommendations, 1)
	assert.Equal(t, "docs", next.Recommendations[0].Task.ID)
}

func TestMemoriesCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	var m models.Memory
	mustExecute(t, dir, &m, "memories", "create", "-t", "Prefers tabs", "-c", "Indent with tabs",
		"--category", "preferences", "--metadata", `{"confidence": 0.9, "sources": ["chat"]}`)
	confidence, ok := m.Metadata["confidence"].Float()
	require.True(t, ok)
	assert.Equal(t, 0.9, confidence)

	mustExecute(t, dir, nil, "memories", "create", "-t", "Deploys", "-c", "Frozen on Fridays", "--category", "process")

	var results []search.Result
	mustExecute(t, dir, &results, "memories", "search", "tabs")
	require.Len(t, results, 1)
	assert.Equal(t, m.ID, results[0].Memory.ID)

	var listed []models.Memory
	mustExecute(t, dir, &listed, "memories", "list", "--category", "process")
	require.Len(t, listed, 1)
	assert.Equal(t, "Deploys", listed[0].Title)

	var categories []string
	mustExecute(t, dir, &categories, "memories", "categories")
	assert.Equal(t, []string{"preferences", "process"}, categories)

	_, err := execute(t, dir, "memories", "list", "--limit", "0")
	assert.Error(t, err)

	_, err = execute(t, dir, "memories", "create", "-t", "x", "-c", "y", "--metadata", "[1]")
	assert.Error(t, err)

	_, err = execute(t, dir, "memories", "delete", "--id", m.ID)
	assert.ErrorIs(t, err, storage.ErrConfirmationRequired)
}

func TestMigrateStatus(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	root := filepath.Join(dir, storage.ConfigDirName, "tasks")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "projects.json"), []byte(`{"projects": [{"id": "p", "name": "P"}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tasks.json"), []byte(`{
		"tasks": [{"id": "t", "name": "T", "projectId": "p"}],
		"subtasks": [{"id": "s", "name": "S", "taskId": "t", "projectId": "p"}]
	}`), 0o644))

	var out migrateOutput
	mustExecute(t, dir, &out, "migrate", "status")
	assert.Equal(t, 1, out.Migrated.SubtasksMigrated)
	assert.False(t, out.Status.NeedsMigration)
	assert.Equal(t, storage.SchemaVersion, out.Status.SchemaVersion)
	assert.Equal(t, dir, out.WorkingDirectory.Path)
	assert.Equal(t, config.WorkingDirectoryDescription(nil), out.WorkingDirectory.Description)
	assert.Equal(t, "file", out.Backend.Kind)
	assert.Contains(t, out.Backend.Documents, "tasks/tasks.json")
}

func TestMigrateStatus_ListsSQLiteDocuments(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	var out migrateOutput
	mustExecute(t, dir, &out, "--backend", "sqlite", "migrate", "status")
	assert.Equal(t, "sqlite", out.Backend.Kind)
	assert.Equal(t, filepath.Join(dir, storage.ConfigDirName, "atm.db"), out.Backend.Location)
	assert.Equal(t, []string{"memories/memories.json", "tasks/projects.json", "tasks/tasks.json"}, out.Backend.Documents)
}

func TestMigrateStatus_GlobalWorkingDirectory(t *testing.T) {
	isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	var out migrateOutput
	mustExecute(t, t.TempDir(), &out, "--global", "migrate", "status")
	assert.Equal(t, home, out.WorkingDirectory.Path)
	assert.Contains(t, out.WorkingDirectory.Description, "global mode")
}

func TestSQLiteBackendFlag(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	mustExecute(t, dir, nil, "--backend", "sqlite", "projects", "create", "-n", "Stored in sqlite")
	assert.FileExists(t, filepath.Join(dir, storage.ConfigDirName, "atm.db"))

	var listed []models.Project
	mustExecute(t, dir, &listed, "--backend", "sqlite", "projects", "list")
	require.Len(t, listed, 1)

	_, err := execute(t, dir, "--backend", "postgres", "projects", "list")
	assert.Error(t, err)
}

func TestBackendFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvBackend, config.BackendSQLite)
	dir := t.TempDir()

	mustExecute(t, dir, nil, "projects", "create", "-n", "Env backend")
	assert.FileExists(t, filepath.Join(dir, storage.ConfigDirName, "atm.db"))
}

func TestDefaultCommandRunsUI(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	var got string
	root := newRootCmd(func(store *storage.Storage, _ *config.Config) error {
		got = store.Dir()
		return nil
	})
	root.SetOut(io.Discard)
	root.SetArgs([]string{"-C", dir})
	require.NoError(t, root.Execute())
	assert.Equal(t, dir, got)
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Equal(t, "atm dev (commit: none, built: unknown)\n", out)
}
