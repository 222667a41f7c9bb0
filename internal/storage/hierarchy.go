package storage

import (
	"fmt"

	"github.com/tgienger/atm/internal/models"
)

// forest indexes a task slice for hierarchy queries. It holds pointers into
// the slice, so mutations through it land in the slice; it must be rebuilt
// after tasks are added or removed.
type forest struct {
	tasks    []models.Task
	byID     map[string]int
	children map[string][]int // parent id -> child positions, in slice order
	roots    []int
}

func newForest(tasks []models.Task) *forest {
	f := &forest{
		tasks:    tasks,
		byID:     make(map[string]int, len(tasks)),
		children: make(map[string][]int),
	}
	for i := range tasks {
		f.byID[tasks[i].ID] = i
		if tasks[i].ParentID == "" {
			f.roots = append(f.roots, i)
		} else {
			f.children[tasks[i].ParentID] = append(f.children[tasks[i].ParentID], i)
		}
	}
	return f
}

func (f *forest) get(id string) (*models.Task, bool) {
	i, ok := f.byID[id]
	if !ok {
		return nil, false
	}
	return &f.tasks[i], true
}

// computeLevel counts parent hops from t to its root
func (f *forest) computeLevel(t *models.Task) (int, error) {
	level := 0
	cur := t
	for cur.ParentID != "" {
		parent, ok := f.get(cur.ParentID)
		if !ok {
			return 0, fmt.Errorf("task %q: parent %q does not exist", cur.ID, cur.ParentID)
		}
		level++
		if level > len(f.tasks) {
			return 0, fmt.Errorf("task %q: parent chain contains a cycle", t.ID)
		}
		cur = parent
	}
	return level, nil
}

// childrenOf returns the direct children of id in stored order
func (f *forest) childrenOf(id string) []*models.Task {
	idx := f.children[id]
	out := make([]*models.Task, len(idx))
	for i, pos := range idx {
		out[i] = &f.tasks[pos]
	}
	return out
}

// ancestorsOf returns the chain from the root down to the parent of id
func (f *forest) ancestorsOf(id string) ([]*models.Task, error) {
	t, ok := f.get(id)
	if !ok {
		return nil, notFound("task", id)
	}
	var chain []*models.Task
	for cur := t; cur.ParentID != ""; {
		parent, ok := f.get(cur.ParentID)
		if !ok {
			return nil, corrupt(TasksDocument, fmt.Errorf("task %q: parent %q does not exist", cur.ID, cur.ParentID))
		}
		if len(chain) >= len(f.tasks) {
			return nil, corrupt(TasksDocument, fmt.Errorf("task %q: parent chain contains a cycle", id))
		}
		chain = append(chain, parent)
		cur = parent
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// descendantsOf returns the whole subtree below id, depth-first
func (f *forest) descendantsOf(id string) []*models.Task {
	var out []*models.Task
	var walk func(string)
	walk = func(parent string) {
		for _, pos := range f.children[parent] {
			out = append(out, &f.tasks[pos])
			walk(f.tasks[pos].ID)
		}
	}
	walk(id)
	return out
}

// subtreeIDs returns id and every descendant id
func (f *forest) subtreeIDs(id string) map[string]bool {
	ids := map[string]bool{id: true}
	for _, d := range f.descendantsOf(id) {
		ids[d.ID] = true
	}
	return ids
}

// relevel sets the level of id and recursively of its subtree
func (f *forest) relevel(id string, level int) {
	t, ok := f.get(id)
	if !ok {
		return
	}
	t.Level = level
	for _, pos := range f.children[id] {
		f.relevel(f.tasks[pos].ID, level+1)
	}
}

// preorder returns slice positions depth-first, roots and siblings in stored order
func (f *forest) preorder() []int {
	out := make([]int, 0, len(f.tasks))
	var walk func(pos int)
	walk = func(pos int) {
		out = append(out, pos)
		for _, child := range f.children[f.tasks[pos].ID] {
			walk(child)
		}
	}
	for _, r := range f.roots {
		walk(r)
	}
	return out
}

// tree assembles the nested view of one project's tasks
func (f *forest) tree(projectID string) []*models.TaskNode {
	var build func(pos int) *models.TaskNode
	build = func(pos int) *models.TaskNode {
		node := &models.TaskNode{Task: f.tasks[pos].Clone(), Children: []*models.TaskNode{}}
		for _, child := range f.children[f.tasks[pos].ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	nodes := []*models.TaskNode{}
	for _, r := range f.roots {
		if f.tasks[r].ProjectID == projectID {
			nodes = append(nodes, build(r))
		}
	}
	return nodes
}

// normalizeTasks fills defaults missing from older documents and recomputes
// every stored level from the parent links. It reports whether anything changed.
func normalizeTasks(tasks []models.Task) (bool, error) {
	changed := false
	for i := range tasks {
		if applyTaskDefaults(&tasks[i]) {
			changed = true
		}
	}

	f := newForest(tasks)
	for i := range tasks {
		t := &tasks[i]
		level, err := f.computeLevel(t)
		if err != nil {
			return false, err
		}
		if t.ParentID != "" {
			parent, _ := f.get(t.ParentID)
			if parent.ProjectID != t.ProjectID {
				return false, fmt.Errorf("task %q is in project %q but its parent %q is in %q",
					t.ID, t.ProjectID, parent.ID, parent.ProjectID)
			}
		}
		if t.Level != level {
			t.Level = level
			changed = true
		}
	}
	return changed, nil
}

// applyTaskDefaults fills zero values written by older versions and keeps
// Completed and Status in step. It reports whether t changed.
func applyTaskDefaults(t *models.Task) bool {
	changed := false
	if t.Status == "" {
		t.Status = models.StatusPending
		if t.Completed {
			t.Status = models.StatusDone
		}
		changed = true
	}
	if t.Completed != (t.Status == models.StatusDone) {
		if t.Completed {
			t.Status = models.StatusDone
		} else {
			t.Completed = true
		}
		changed = true
	}
	if t.Priority == 0 {
		t.Priority = models.DefaultPriority
		changed = true
	}
	if t.Tags == nil {
		t.Tags = []string{}
		changed = true
	}
	if t.DependsOn == nil {
		t.DependsOn = []string{}
		changed = true
	}
	return changed
}
