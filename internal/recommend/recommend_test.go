package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/models"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type taskOption func(*models.Task)

func dependsOn(ids ...string) taskOption {
	return func(t *models.Task) { t.DependsOn = ids }
}

func status(s models.Status) taskOption {
	return func(t *models.Task) {
		t.Status = s
		t.Completed = s == models.StatusDone
	}
}

func complexity(c int) taskOption {
	return func(t *models.Task) { t.Complexity = &c }
}

func tags(values ...string) taskOption {
	return func(t *models.Task) { t.Tags = values }
}

func parent(id string) taskOption {
	return func(t *models.Task) { t.ParentID = id }
}

func project(id string) taskOption {
	return func(t *models.Task) { t.ProjectID = id }
}

func task(id string, priority int, opts ...taskOption) models.Task {
	t := models.Task{ID: id, Name: id, ProjectID: "p", Priority: priority, Status: models.StatusPending}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// fixture stamps creation times in slice order
func fixture(tasks ...models.Task) []models.Task {
	for i := range tasks {
		tasks[i].CreatedAt = epoch.Add(time.Duration(i) * time.Minute)
	}
	return tasks
}

func recommendedIDs(r Result) []string {
	out := []string{}
	for _, rec := range r.Recommendations {
		out = append(out, rec.Task.ID)
	}
	return out
}

func TestNext_OnlyReadyTasks(t *testing.T) {
	tasks := fixture(
		task("A", 5, status(models.StatusDone)),
		task("B", 5, dependsOn("A")),
		task("C", 9, dependsOn("B")),
		task("D", 9, dependsOn("missing")),
		task("E", 3),
		task("P", 10),
		task("Q", 5, parent("P")),
	)

	result, err := Next(tasks, Options{Max: 5})
	require.NoError(t, err)

	// P waits for its open child Q; ties fall back to creation order
	assert.Equal(t, []string{"B", "Q", "E"}, recommendedIDs(result))
	assert.Equal(t, 3, result.Ready)
	assert.Equal(t, 2, result.Waiting)
	assert.Empty(t, result.Cycles)
	assert.Contains(t, result.Recommendations[0].Reasons, "all 1 dependencies done")
}

func TestNext_Max(t *testing.T) {
	tasks := fixture(task("A", 1), task("B", 2), task("C", 3), task("D", 4))

	result, err := Next(tasks, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "C", "B"}, recommendedIDs(result))
	assert.Equal(t, 4, result.Ready)

	for _, n := range []int{-1, MaxRecommendations + 1} {
		_, err := Next(tasks, Options{Max: n})
		assert.ErrorIs(t, err, ErrInvalidOptions)
	}
}

func TestNext_ComplexityAndTags(t *testing.T) {
	tasks := fixture(
		task("X", 5, complexity(9)),
		task("Y", 5, complexity(2)),
		task("Z", 5, tags("Backend", "api")),
	)

	result, err := Next(tasks, Options{ConsiderComplexity: true, PreferredTags: []string{"back*", "api"}})
	require.NoError(t, err)
	require.Equal(t, []string{"Z", "Y", "X"}, recommendedIDs(result))
	assert.Equal(t, []int{80, 77, 56}, scores(result))
	assert.Contains(t, result.Recommendations[0].Reasons, `matches preferred tag "back*"`)
	assert.Contains(t, result.Recommendations[2].Reasons, "complex, consider breaking it down")

	result, err = Next(tasks, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, recommendedIDs(result))
	assert.Equal(t, []int{50, 50, 50}, scores(result))
}

func scores(r Result) []int {
	out := []int{}
	for _, rec := range r.Recommendations {
		out = append(out, rec.Score)
	}
	return out
}

func TestNext_BlockedAndInProgress(t *testing.T) {
	tasks := fixture(
		task("blocked", 9, status(models.StatusBlocked)),
		task("started", 5, status(models.StatusInProgress)),
		task("fresh", 6),
	)

	result, err := Next(tasks, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"started", "fresh"}, recommendedIDs(result))
	assert.Contains(t, result.Recommendations[0].Reasons, "already in progress")

	opts := DefaultOptions()
	opts.ExcludeBlocked = false
	result, err = Next(tasks, opts)
	require.NoError(t, err)
	// the penalty ties blocked with fresh; its higher priority breaks the tie
	assert.Equal(t, []string{"started", "blocked", "fresh"}, recommendedIDs(result))
	assert.Equal(t, []int{70, 60, 60}, scores(result))
	assert.Contains(t, result.Recommendations[1].Reasons, "marked blocked")
}

func TestNext_SkipsTasksOnCycles(t *testing.T) {
	tasks := fixture(
		task("A", 5, dependsOn("B")),
		task("B", 5, dependsOn("A")),
		task("C", 5, dependsOn("C")),
		task("D", 5, dependsOn("A")),
		task("E", 5),
	)

	result, err := Next(tasks, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"E"}, recommendedIDs(result))
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}}, result.Cycles)
	assert.Equal(t, 1, result.Waiting)
}

func TestNext_ProjectFilterResolvesDependenciesEverywhere(t *testing.T) {
	tasks := fixture(
		task("shared", 5, project("lib"), status(models.StatusDone)),
		task("app", 5, project("app"), dependsOn("shared")),
		task("other", 9, project("lib")),
	)

	result, err := Next(tasks, Options{ProjectID: "app"})
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, recommendedIDs(result))
}

func TestNext_EmptyInput(t *testing.T) {
	result, err := Next(nil, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.Recommendations)
	assert.NotNil(t, result.Recommendations)
	assert.Zero(t, result.Ready)
}

func TestDependencyCycles(t *testing.T) {
	tasks := []models.Task{
		task("d", 5, dependsOn("b")),
		task("b", 5, dependsOn("c", "unknown")),
		task("c", 5, dependsOn("d")),
		task("a", 5, dependsOn("b")),
		task("x", 5, dependsOn("y")),
		task("y", 5),
	}
	assert.Equal(t, [][]string{{"b", "c", "d"}}, DependencyCycles(tasks))
	assert.Empty(t, DependencyCycles(tasks[3:]))
}
