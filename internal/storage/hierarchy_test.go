package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/models"
)

// seedChain creates A -> B -> C plus a second root D in project p
func seedChain(t *testing.T, s *Storage) {
	t.Helper()
	pid := newProject(t, s, "p")
	newTask(t, s, TaskDraft{ID: "A", Name: "A", ProjectID: pid})
	newTask(t, s, TaskDraft{ID: "B", Name: "B", ProjectID: pid, ParentID: "A"})
	newTask(t, s, TaskDraft{ID: "C", Name: "C", ProjectID: pid, ParentID: "B"})
	newTask(t, s, TaskDraft{ID: "D", Name: "D", ProjectID: pid})
}

func TestHierarchy_Navigation(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	seedChain(t, s)
	newTask(t, s, TaskDraft{ID: "B2", Name: "B2", ProjectID: "p", ParentID: "A"})

	ancestors, err := s.Tasks().Ancestors("C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, taskIDs(ancestors))

	ancestors, err = s.Tasks().Ancestors("A")
	require.NoError(t, err)
	assert.Empty(t, ancestors)

	children, err := s.Tasks().Children("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "B2"}, taskIDs(children))

	children, err = s.Tasks().Children("C")
	require.NoError(t, err)
	assert.Empty(t, children)

	descendants, err := s.Tasks().Descendants("A")
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "B2"}, taskIDs(descendants))

	for _, call := range []func(string) ([]models.Task, error){
		s.Tasks().Ancestors, s.Tasks().Children, s.Tasks().Descendants,
	} {
		_, err := call("missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = s.Tasks().ComputeLevel("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHierarchy_MoveRejectsCycles(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	seedChain(t, s)
	before := readDoc(t, dir, TasksDocument)

	_, err := s.Tasks().Move("A", "C")
	assert.ErrorIs(t, err, ErrCycle)
	_, err = s.Tasks().Move("A", "B")
	assert.ErrorIs(t, err, ErrCycle)
	_, err = s.Tasks().Move("A", "A")
	assert.ErrorIs(t, err, ErrCycle)

	assert.Equal(t, before, readDoc(t, dir, TasksDocument))
}

func TestHierarchy_MoveErrors(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	seedChain(t, s)
	other := newProject(t, s, "q")
	newTask(t, s, TaskDraft{ID: "X", Name: "X", ProjectID: other})

	_, err := s.Tasks().Move("missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Tasks().Move("B", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Tasks().Move("B", "X")
	assert.ErrorIs(t, err, ErrCrossProject)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `task "B"`)
	assert.Contains(t, err.Error(), `parent "X"`)
}

func TestHierarchy_MoveRelevelsSubtree(t *testing.T) {
	dir := t.TempDir()
	s := openTestStorage(t, dir)
	seedChain(t, s)

	b, err := s.Tasks().Get("B")
	require.NoError(t, err)

	moved, err := s.Tasks().Move("B", "D")
	require.NoError(t, err)
	assert.Equal(t, "D", moved.ParentID)
	assert.Equal(t, 1, moved.Level)
	assert.True(t, moved.UpdatedAt.After(b.UpdatedAt))

	c, err := s.Tasks().Get("C")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Level)

	// promote C to a root; its level drops to zero
	c2, err := s.Tasks().Move("C", "")
	require.NoError(t, err)
	assert.Equal(t, 0, c2.Level)
	assert.True(t, c2.IsRoot())

	// a deeper move recomputes every level below the moved task
	_, err = s.Tasks().Move("D", "C")
	require.NoError(t, err)
	for id, want := range map[string]int{"C": 0, "D": 1, "B": 2} {
		task, err := s.Tasks().Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, task.Level, id)
	}

	// the stored document carries the same levels
	reopened := openTestStorage(t, dir)
	b, err = reopened.Tasks().Get("B")
	require.NoError(t, err)
	assert.Equal(t, 2, b.Level)
	assert.Equal(t, MigrationResult{}, reopened.LastMigration())
}

func TestHierarchy_MoveToSameParentIsNoop(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	seedChain(t, s)
	b, err := s.Tasks().Get("B")
	require.NoError(t, err)

	same, err := s.Tasks().Move("B", "A")
	require.NoError(t, err)
	assert.Equal(t, *b, *same)
}

func TestHierarchy_Tree(t *testing.T) {
	s := openTestStorage(t, t.TempDir())
	seedChain(t, s)
	other := newProject(t, s, "q")
	newTask(t, s, TaskDraft{ID: "X", Name: "X", ProjectID: other})

	tree, err := s.Tasks().Tree("p")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "A", tree[0].Task.ID)
	assert.Equal(t, "D", tree[1].Task.ID)
	assert.Empty(t, tree[1].Children)

	var visited []string
	tree[0].Walk(func(n *models.TaskNode) {
		visited = append(visited, n.Task.ID)
		for _, child := range n.Children {
			assert.Equal(t, n.Task.Level+1, child.Task.Level)
		}
	})
	assert.Equal(t, []string{"A", "B", "C"}, visited)

	_, err = s.Tasks().Tree("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestForest_ComputeLevelDetectsCycles(t *testing.T) {
	tasks := []models.Task{
		{ID: "a", ParentID: "c"},
		{ID: "b", ParentID: "a"},
		{ID: "c", ParentID: "b"},
	}
	f := newForest(tasks)
	_, err := f.computeLevel(&tasks[0])
	assert.Error(t, err)

	_, err = f.ancestorsOf("a")
	assert.ErrorIs(t, err, ErrCorruptData)
}
