package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/atm/internal/models"
)

func node(id string, completed bool, children ...*models.TaskNode) *models.TaskNode {
	return &models.TaskNode{
		Task:     models.Task{ID: id, Name: id, Completed: completed},
		Children: children,
	}
}

// A
// ├─ B
// │  └─ C
// └─ D
// E
func sampleForest(bDone, dDone, eDone bool) []*models.TaskNode {
	return []*models.TaskNode{
		node("A", false,
			node("B", bDone, node("C", false)),
			node("D", dDone),
		),
		node("E", eDone),
	}
}

func rowIDs(rows []treeRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.task.ID
	}
	return ids
}

func TestFlattenTree(t *testing.T) {
	rows := flattenTree(sampleForest(false, false, false), nil, false)

	require.Equal(t, []string{"A", "B", "C", "D", "E"}, rowIDs(rows))

	guides := make([]string, len(rows))
	depths := make([]int, len(rows))
	for i, r := range rows {
		guides[i] = r.guide
		depths[i] = r.depth
	}
	assert.Equal(t, []string{"", "├─ ", "│  └─ ", "└─ ", ""}, guides)
	assert.Equal(t, []int{0, 1, 2, 1, 0}, depths)
	assert.Equal(t, 2, rows[0].children)
	assert.Equal(t, 0, rows[4].children)
}

func TestFlattenTree_Collapsed(t *testing.T) {
	rows := flattenTree(sampleForest(false, false, false), map[string]bool{"A": true, "E": true}, false)

	assert.Equal(t, []string{"A", "E"}, rowIDs(rows))
	assert.True(t, rows[0].collapsed)
	assert.Equal(t, 2, rows[0].children)
	// a leaf cannot be collapsed
	assert.False(t, rows[1].collapsed)
}

func TestFlattenTree_HideCompleted(t *testing.T) {
	rows := flattenTree(sampleForest(true, true, true), nil, true)

	// B stays because C is still open; D and E are gone
	require.Equal(t, []string{"A", "B", "C"}, rowIDs(rows))
	assert.Equal(t, "└─ ", rows[1].guide)
	assert.Equal(t, "   └─ ", rows[2].guide)
	assert.Equal(t, 1, rows[0].children)

	all := flattenTree(sampleForest(true, true, true), nil, false)
	assert.Len(t, all, 5)
}

func TestTreeStats(t *testing.T) {
	total, done := treeStats(sampleForest(true, false, true))
	assert.Equal(t, 5, total)
	assert.Equal(t, 2, done)
}

func TestPreviousSibling(t *testing.T) {
	rows := flattenTree(sampleForest(false, false, false), nil, false)

	tests := []struct {
		name  string
		index int
		want  string
		found bool
	}{
		{name: "first root", index: 0},
		{name: "first child", index: 1},
		{name: "only grandchild", index: 2},
		{name: "second child skips nested rows", index: 3, want: "B", found: true},
		{name: "second root", index: 4, want: "A", found: true},
		{name: "out of range", index: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := previousSibling(rows, tt.index)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got.task.ID)
		})
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"api", "ui"}, parseTags(" api, ,ui ,"))
	assert.Equal(t, []string{}, parseTags(""))
}

func TestNextStatus(t *testing.T) {
	assert.Equal(t, models.StatusInProgress, nextStatus(models.StatusPending))
	assert.Equal(t, models.StatusPending, nextStatus(models.StatusDone))
	assert.Equal(t, models.StatusPending, nextStatus("unknown"))
}
