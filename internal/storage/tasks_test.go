package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/models"
)

func newProject(t *testing.T, s *Storage, id string) string {
	t.Helper()
	p, err := s.Projects().Create(ProjectDraft{ID: id, Name: "Project " + id})
	require.NoError(t, err)
	return p.ID
}

func newTask(t *testing.T, s *Storage, draft TaskDraft) *models.Task {
	t.Helper()
	task, err := s.Tasks().Create(draft)
	require.NoError(t, err)
	return task
}

func taskIDs(tasks []models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestTasks_CreateDefaults(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")

	task := newTask(t, s, TaskDraft{Name: " Write docs ", ProjectID: pid, Tags: []string{"docs", " docs", ""}})
	assert.Equal(t, "Write docs", task.Name)
	assert.Equal(t, 0, task.Level)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.False(t, task.Completed)
	assert.Equal(t, models.DefaultPriority, task.Priority)
	assert.Equal(t, []string{"docs"}, task.Tags)
	assert.Equal(t, []string{}, task.DependsOn)
	assert.Nil(t, task.Complexity)

	done := newTask(t, s, TaskDraft{Name: "Shipped", ProjectID: pid, Completed: true})
	assert.Equal(t, models.StatusDone, done.Status)
	assert.True(t, done.Completed)
}

func TestTasks_CreateValidation(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")
	other := newProject(t, s, "q")
	existing := newTask(t, s, TaskDraft{ID: "t", Name: "Existing", ProjectID: pid})
	foreign := newTask(t, s, TaskDraft{Name: "Foreign", ProjectID: other})

	zero, eleven := 0, 11
	negative := -1.0

	tests := []struct {
		name  string
		draft TaskDraft
		err   error
	}{
		{"empty name", TaskDraft{Name: " ", ProjectID: pid}, ErrValidation},
		{"unknown project", TaskDraft{Name: "x", ProjectID: "missing"}, ErrNotFound},
		{"unknown parent", TaskDraft{Name: "x", ProjectID: pid, ParentID: "missing"}, ErrNotFound},
		{"parent in another project", TaskDraft{Name: "x", ProjectID: pid, ParentID: foreign.ID}, ErrCrossProject},
		{"priority too high", TaskDraft{Name: "x", ProjectID: pid, Priority: 11}, ErrValidation},
		{"priority negative", TaskDraft{Name: "x", ProjectID: pid, Priority: -2}, ErrValidation},
		{"complexity zero", TaskDraft{Name: "x", ProjectID: pid, Complexity: &zero}, ErrValidation},
		{"complexity too high", TaskDraft{Name: "x", ProjectID: pid, Complexity: &eleven}, ErrValidation},
		{"negative hours", TaskDraft{Name: "x", ProjectID: pid, EstimatedHours: &negative}, ErrValidation},
		{"unknown status", TaskDraft{Name: "x", ProjectID: pid, Status: "paused"}, ErrValidation},
		{"completed but not done", TaskDraft{Name: "x", ProjectID: pid, Completed: true, Status: models.StatusBlocked}, ErrValidation},
		{"duplicate id", TaskDraft{ID: existing.ID, Name: "x", ProjectID: pid}, ErrValidation},
		{"self dependency", TaskDraft{ID: "self", Name: "x", ProjectID: pid, DependsOn: []string{"self"}}, ErrValidation},
		{"missing dependency", TaskDraft{Name: "x", ProjectID: pid, DependsOn: []string{"ghost"}}, ErrDanglingReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Tasks().Create(tt.draft)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	all, err := s.Tasks().List(TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "failed creates must not store anything")
}

func TestTasks_CrossProjectIsValidationError(t *testing.T) {
	assert.ErrorIs(t, ErrCrossProject, ErrValidation)

	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")
	other := newProject(t, s, "q")
	newTask(t, s, TaskDraft{ID: "foreign", Name: "F", ProjectID: other})

	_, err := s.Tasks().Create(TaskDraft{Name: "x", ProjectID: pid, ParentID: "foreign"})
	require.ErrorIs(t, err, ErrCrossProject)
	assert.Contains(t, err.Error(), `parent "foreign"`)
	assert.Contains(t, err.Error(), fmt.Sprintf("project %q", other))
}

func TestTasks_ThreeLevelsDeep(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")

	a := newTask(t, s, TaskDraft{ID: "A", Name: "A", ProjectID: pid})
	b := newTask(t, s, TaskDraft{ID: "B", Name: "B", ProjectID: pid, ParentID: a.ID})
	c := newTask(t, s, TaskDraft{ID: "C", Name: "C", ProjectID: pid, ParentID: b.ID})

	assert.Equal(t, 0, a.Level)
	assert.Equal(t, 1, b.Level)
	assert.Equal(t, 2, c.Level)

	for id, want := range map[string]int{"A": 0, "B": 1, "C": 2} {
		level, err := s.Tasks().ComputeLevel(id)
		require.NoError(t, err)
		assert.Equal(t, want, level, id)
	}
}

func TestTasks_List(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	p1 := newProject(t, s, "p1")
	p2 := newProject(t, s, "p2")

	newTask(t, s, TaskDraft{ID: "r1", Name: "Root 1", ProjectID: p1, Tags: []string{"backend"}})
	newTask(t, s, TaskDraft{ID: "r2", Name: "Root 2", ProjectID: p1, Tags: []string{"frontend"}})
	newTask(t, s, TaskDraft{ID: "c1", Name: "Child of 1", ProjectID: p1, ParentID: "r1", Completed: true, Tags: []string{"backend-db"}})
	newTask(t, s, TaskDraft{ID: "o1", Name: "Other", ProjectID: p2})

	root := ""
	parent := "r1"
	tests := []struct {
		name   string
		filter TaskFilter
		want   []string
	}{
		{"everything in insertion order", TaskFilter{}, []string{"r1", "r2", "c1", "o1"}},
		{"hierarchical", TaskFilter{Hierarchical: true}, []string{"r1", "c1", "r2", "o1"}},
		{"one project", TaskFilter{ProjectID: p1}, []string{"r1", "r2", "c1"}},
		{"roots only", TaskFilter{ProjectID: p1, ParentID: &root}, []string{"r1", "r2"}},
		{"children of r1", TaskFilter{ParentID: &parent}, []string{"c1"}},
		{"exclude completed", TaskFilter{ProjectID: p1, ExcludeCompleted: true}, []string{"r1", "r2"}},
		{"tag glob", TaskFilter{Tag: "backend*"}, []string{"r1", "c1"}},
		{"exact tag", TaskFilter{Tag: "frontend"}, []string{"r2"}},
		{"tag without match", TaskFilter{Tag: "ops"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Tasks().List(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, taskIDs(got))
		})
	}

	_, err := s.Tasks().List(TaskFilter{ProjectID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Tasks().List(TaskFilter{Tag: "[unclosed"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTasks_Update(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")
	dep := newTask(t, s, TaskDraft{ID: "dep", Name: "Dependency", ProjectID: pid})
	task := newTask(t, s, TaskDraft{ID: "t", Name: "Task", ProjectID: pid, Tags: []string{"a"}})

	name := "Renamed"
	priority := 9
	hours := 2.5
	updated, err := s.Tasks().Update(task.ID, TaskUpdate{
		Name:           &name,
		Priority:       &priority,
		DependsOn:      []string{dep.ID},
		EstimatedHours: &hours,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 9, updated.Priority)
	assert.Equal(t, []string{"dep"}, updated.DependsOn)
	assert.Equal(t, []string{"a"}, updated.Tags, "nil tags leave tags unchanged")
	assert.Equal(t, 2.5, *updated.EstimatedHours)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	cleared, err := s.Tasks().Update(task.ID, TaskUpdate{Tags: []string{}})
	require.NoError(t, err)
	assert.Equal(t, []string{}, cleared.Tags)
	assert.True(t, cleared.UpdatedAt.After(updated.UpdatedAt))
}

func TestTasks_UpdateCompletionAndStatus(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")
	task := newTask(t, s, TaskDraft{Name: "Task", ProjectID: pid})

	yes, no := true, false
	done, blocked := models.StatusDone, models.StatusBlocked

	got, err := s.Tasks().Update(task.ID, TaskUpdate{Completed: &yes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, got.Status)

	got, err = s.Tasks().Update(task.ID, TaskUpdate{Completed: &no})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	got, err = s.Tasks().Update(task.ID, TaskUpdate{Status: &blocked})
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.Equal(t, models.StatusBlocked, got.Status)

	got, err = s.Tasks().Update(task.ID, TaskUpdate{Status: &done})
	require.NoError(t, err)
	assert.True(t, got.Completed)

	_, err = s.Tasks().Update(task.ID, TaskUpdate{Completed: &no, Status: &done})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTasks_UpdateValidation(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	pid := newProject(t, s, "p")
	task := newTask(t, s, TaskDraft{ID: "t", Name: "Task", ProjectID: pid})

	empty := " "
	high := 12
	unknown := models.Status("later")

	tests := []struct {
		name string
		upd  TaskUpdate
		err  error
	}{
		{"empty name", TaskUpdate{Name: &empty}, ErrValidation},
		{"priority out of range", TaskUpdate{Priority: &high}, ErrValidation},
		{"complexity out of range", TaskUpdate{Complexity: &high}, ErrValidation},
		{"unknown status", TaskUpdate{Status: &unknown}, ErrValidation},
		{"self dependency", TaskUpdate{DependsOn: []string{"t"}}, ErrValidation},
		{"missing dependency", TaskUpdate{DependsOn: []string{"ghost"}}, ErrDanglingReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Tasks().Update(task.ID, tt.upd)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	got, err := s.Tasks().Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, *task, *got, "rejected updates must not change the task")

	_, err = s.Tasks().Update("missing", TaskUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTasks_DeleteRemovesSubtreeAndPrunesDependencies(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	pid := newProject(t, s, "p")

	newTask(t, s, TaskDraft{ID: "A", Name: "A", ProjectID: pid})
	newTask(t, s, TaskDraft{ID: "B", Name: "B", ProjectID: pid, ParentID: "A"})
	newTask(t, s, TaskDraft{ID: "C", Name: "C", ProjectID: pid, ParentID: "B"})
	newTask(t, s, TaskDraft{ID: "D", Name: "D", ProjectID: pid, DependsOn: []string{"C", "A"}})
	newTask(t, s, TaskDraft{ID: "E", Name: "E", ProjectID: pid, ParentID: "A"})

	before := readDoc(t, dir, TasksDocument)
	assert.ErrorIs(t, s.Tasks().Delete("B", false), ErrConfirmationRequired)
	assert.Equal(t, before, readDoc(t, dir, TasksDocument))

	require.NoError(t, s.Tasks().Delete("B", true))

	all, err := s.Tasks().List(TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D", "E"}, taskIDs(all))

	d, err := s.Tasks().Get("D")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, d.DependsOn)

	_, err = s.Tasks().Get("C")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Tasks().Delete("C", true), ErrNotFound)
}
