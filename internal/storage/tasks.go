package storage

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/tgienger/atm/internal/models"
)

// TaskDraft holds the caller-supplied fields of a new task
type TaskDraft struct {
	ID             string // optional; generated when empty
	Name           string
	Details        string
	ProjectID      string
	ParentID       string // empty for a root task
	DependsOn      []string
	Priority       int           // 0 means DefaultPriority
	Complexity     *int          // optional, 1-10
	Status         models.Status // empty means pending, or done when Completed
	Completed      bool
	Tags           []string
	EstimatedHours *float64
}

// TaskUpdate lists the fields to change; nil fields are left alone.
// The parent is changed only through Move.
type TaskUpdate struct {
	Name           *string
	Details        *string
	Completed      *bool
	Status         *models.Status
	Priority       *int
	Complexity     *int
	Tags           []string // nil leaves tags unchanged; an empty slice clears them
	DependsOn      []string // nil leaves dependencies unchanged; an empty slice clears them
	EstimatedHours *float64
}

// TaskFilter selects tasks for List
type TaskFilter struct {
	// ProjectID limits the result to one project; empty means every project
	ProjectID string
	// ParentID limits the result to direct children of a task.
	// A pointer to "" selects root tasks; nil applies no parent filter.
	ParentID *string
	// ExcludeCompleted drops completed tasks
	ExcludeCompleted bool
	// Hierarchical orders the result depth-first (parents before children)
	// instead of insertion order
	Hierarchical bool
	// Tag is a glob pattern; a task matches when any of its tags matches
	Tag string
}

// TaskRepository owns the tasks document and the hierarchy operations on it
type TaskRepository struct {
	s     *Storage
	items []models.Task
}

// Create stores a new task, computing its level from the parent
func (r *TaskRepository) Create(draft TaskDraft) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, invalid("task name is required")
	}
	if !r.s.projects.exists(draft.ProjectID) {
		return nil, notFound("project", draft.ProjectID)
	}

	f := newForest(r.items)
	id := draft.ID
	if id == "" {
		id = r.s.newID()
	} else if _, exists := f.get(id); exists {
		return nil, invalid("task id %q already exists", id)
	}

	level := 0
	if draft.ParentID != "" {
		parent, ok := f.get(draft.ParentID)
		if !ok {
			return nil, notFound("parent task", draft.ParentID)
		}
		if parent.ProjectID != draft.ProjectID {
			return nil, crossProject("new task", draft.ProjectID, parent)
		}
		level = parent.Level + 1
	}

	status := draft.Status
	if status == "" {
		status = models.StatusPending
		if draft.Completed {
			status = models.StatusDone
		}
	}
	if !status.Valid() {
		return nil, invalid("unknown status %q", status)
	}
	if draft.Completed && status != models.StatusDone {
		return nil, invalid("a completed task must have status %q", models.StatusDone)
	}

	priority := draft.Priority
	if priority == 0 {
		priority = models.DefaultPriority
	}

	now := r.s.clock()
	t := models.Task{
		ID:             id,
		Name:           name,
		Details:        draft.Details,
		ProjectID:      draft.ProjectID,
		ParentID:       draft.ParentID,
		Level:          level,
		Completed:      status == models.StatusDone,
		Status:         status,
		Priority:       priority,
		Complexity:     draft.Complexity,
		Tags:           normalizeSet(draft.Tags),
		DependsOn:      normalizeSet(draft.DependsOn),
		EstimatedHours: draft.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := validateTaskFields(&t); err != nil {
		return nil, err
	}
	if err := checkDependencies(f, t.ID, t.DependsOn); err != nil {
		return nil, err
	}

	next := append(r.clone(), t.Clone())
	if err := r.commit(next); err != nil {
		return nil, err
	}
	r.s.log.WithField("task", id).WithField("level", level).Debug("task created")
	return &t, nil
}

// Get returns a task by id
func (r *TaskRepository) Get(id string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := newForest(r.items).get(id)
	if !ok {
		return nil, notFound("task", id)
	}
	out := t.Clone()
	return &out, nil
}

// List returns the tasks matching filter
func (r *TaskRepository) List(filter TaskFilter) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if filter.ProjectID != "" && !r.s.projects.exists(filter.ProjectID) {
		return nil, notFound("project", filter.ProjectID)
	}

	var tagMatcher glob.Glob
	if filter.Tag != "" {
		g, err := glob.Compile(filter.Tag)
		if err != nil {
			return nil, invalid("tag pattern %q: %v", filter.Tag, err)
		}
		tagMatcher = g
	}

	order := make([]int, len(r.items))
	for i := range order {
		order[i] = i
	}
	if filter.Hierarchical {
		order = newForest(r.items).preorder()
	}

	out := []models.Task{}
	for _, pos := range order {
		t := &r.items[pos]
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.ParentID != nil && t.ParentID != *filter.ParentID {
			continue
		}
		if filter.ExcludeCompleted && t.Completed {
			continue
		}
		if tagMatcher != nil && !matchesAny(tagMatcher, t.Tags) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

// Update merges the given fields, re-validates the task and refreshes UpdatedAt
func (r *TaskRepository) Update(id string, upd TaskUpdate) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	next := r.clone()
	f := newForest(next)
	t, ok := f.get(id)
	if !ok {
		return nil, notFound("task", id)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("task name is required")
		}
		t.Name = name
	}
	if upd.Details != nil {
		t.Details = *upd.Details
	}
	if err := applyCompletion(t, upd.Completed, upd.Status); err != nil {
		return nil, err
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Complexity != nil {
		v := *upd.Complexity
		t.Complexity = &v
	}
	if upd.Tags != nil {
		t.Tags = normalizeSet(upd.Tags)
	}
	if upd.DependsOn != nil {
		deps := normalizeSet(upd.DependsOn)
		if err := checkDependencies(f, id, deps); err != nil {
			return nil, err
		}
		t.DependsOn = deps
	}
	if upd.EstimatedHours != nil {
		v := *upd.EstimatedHours
		t.EstimatedHours = &v
	}
	if err := validateTaskFields(t); err != nil {
		return nil, err
	}
	t.UpdatedAt = r.s.touch(t.UpdatedAt)

	out := t.Clone()
	if err := r.commit(next); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a task and its whole subtree. Dependencies on removed tasks
// are dropped from the remaining tasks.
func (r *TaskRepository) Delete(id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f := newForest(r.items)
	if _, ok := f.get(id); !ok {
		return notFound("task", id)
	}
	removed, err := r.removeWhere(f.subtreeIDs(id))
	if err != nil {
		return err
	}
	r.s.log.WithField("task", id).WithField("removed", removed).Debug("task subtree deleted")
	return nil
}

// ComputeLevel walks the parent links of a task up to its root and returns the hop count
func (r *TaskRepository) ComputeLevel(id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f := newForest(r.items)
	t, ok := f.get(id)
	if !ok {
		return 0, notFound("task", id)
	}
	level, err := f.computeLevel(t)
	if err != nil {
		return 0, corrupt(TasksDocument, err)
	}
	return level, nil
}

// Children returns the direct children of a task in insertion order
func (r *TaskRepository) Children(id string) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f := newForest(r.items)
	if _, ok := f.get(id); !ok {
		return nil, notFound("task", id)
	}
	return clones(f.childrenOf(id)), nil
}

// Ancestors returns the chain of tasks above id, root first, ending with its parent
func (r *TaskRepository) Ancestors(id string) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	chain, err := newForest(r.items).ancestorsOf(id)
	if err != nil {
		return nil, err
	}
	return clones(chain), nil
}

// Descendants returns every task below id, depth-first
func (r *TaskRepository) Descendants(id string) ([]models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f := newForest(r.items)
	if _, ok := f.get(id); !ok {
		return nil, notFound("task", id)
	}
	return clones(f.descendantsOf(id)), nil
}

// Move re-parents a task; an empty newParentID makes it a root task.
// Levels of the task and its whole subtree are recomputed.
func (r *TaskRepository) Move(id, newParentID string) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	next := r.clone()
	f := newForest(next)
	t, ok := f.get(id)
	if !ok {
		return nil, notFound("task", id)
	}

	level := 0
	if newParentID != "" {
		if newParentID == id {
			return nil, invalidMove(id, newParentID)
		}
		parent, ok := f.get(newParentID)
		if !ok {
			return nil, notFound("parent task", newParentID)
		}
		if f.subtreeIDs(id)[newParentID] {
			return nil, invalidMove(id, newParentID)
		}
		if parent.ProjectID != t.ProjectID {
			return nil, crossProject(fmt.Sprintf("task %q", id), t.ProjectID, parent)
		}
		level = parent.Level + 1
	}

	if t.ParentID == newParentID {
		out := t.Clone()
		return &out, nil
	}

	t.ParentID = newParentID
	t.UpdatedAt = r.s.touch(t.UpdatedAt)
	f.relevel(id, level)

	out := t.Clone()
	if err := r.commit(next); err != nil {
		return nil, err
	}
	r.s.log.WithField("task", id).WithField("parent", newParentID).Debug("task moved")
	return &out, nil
}

// Tree returns the nested task hierarchy of a project
func (r *TaskRepository) Tree(projectID string) ([]*models.TaskNode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.projects.exists(projectID) {
		return nil, notFound("project", projectID)
	}
	return newForest(r.items).tree(projectID), nil
}

// removeProject drops every task of a project; callers hold the lock
func (r *TaskRepository) removeProject(projectID string) (int, error) {
	ids := map[string]bool{}
	for _, t := range r.items {
		if t.ProjectID == projectID {
			ids[t.ID] = true
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return r.removeWhere(ids)
}

// removeWhere deletes the given tasks and prunes dependencies on them
func (r *TaskRepository) removeWhere(ids map[string]bool) (int, error) {
	next := make([]models.Task, 0, len(r.items))
	for _, t := range r.items {
		if ids[t.ID] {
			continue
		}
		if pruned, ok := pruneDependencies(t.DependsOn, ids); ok {
			t = t.Clone()
			t.DependsOn = pruned
			t.UpdatedAt = r.s.touch(t.UpdatedAt)
		}
		next = append(next, t)
	}
	removed := len(r.items) - len(next)
	if err := r.commit(next); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *TaskRepository) clone() []models.Task {
	out := make([]models.Task, len(r.items))
	for i := range r.items {
		out[i] = r.items[i].Clone()
	}
	return out
}

// commit persists next and only then makes it the in-memory state
func (r *TaskRepository) commit(next []models.Task) error {
	if err := r.s.tasksDoc.persist(&tasksFile{SchemaVersion: SchemaVersion, Tasks: next}); err != nil {
		return err
	}
	r.items = next
	return nil
}

func invalidMove(id, parentID string) error {
	return fmt.Errorf("%w: cannot move task %q below %q", ErrCycle, id, parentID)
}

// applyCompletion keeps Completed and Status in step when either is updated
func crossProject(what, projectID string, parent *models.Task) error {
	return fmt.Errorf("%w: %s in project %q cannot have parent %q from project %q",
		ErrCrossProject, what, projectID, parent.ID, parent.ProjectID)
}

func applyCompletion(t *models.Task, completed *bool, status *models.Status) error {
	switch {
	case completed != nil && status != nil:
		if !status.Valid() {
			return invalid("unknown status %q", *status)
		}
		if *completed != (*status == models.StatusDone) {
			return invalid("completed=%t conflicts with status %q", *completed, *status)
		}
		t.Completed, t.Status = *completed, *status
	case status != nil:
		if !status.Valid() {
			return invalid("unknown status %q", *status)
		}
		t.Status = *status
		t.Completed = *status == models.StatusDone
	case completed != nil:
		t.Completed = *completed
		if *completed {
			t.Status = models.StatusDone
		} else if t.Status == models.StatusDone {
			t.Status = models.StatusPending
		}
	}
	return nil
}

func validateTaskFields(t *models.Task) error {
	if t.Priority < models.MinPriority || t.Priority > models.MaxPriority {
		return invalid("priority %d is outside %d-%d", t.Priority, models.MinPriority, models.MaxPriority)
	}
	if t.Complexity != nil && (*t.Complexity < models.MinPriority || *t.Complexity > models.MaxPriority) {
		return invalid("complexity %d is outside %d-%d", *t.Complexity, models.MinPriority, models.MaxPriority)
	}
	if t.EstimatedHours != nil && *t.EstimatedHours < 0 {
		return invalid("estimated hours must not be negative")
	}
	return nil
}

func checkDependencies(f *forest, id string, deps []string) error {
	for _, dep := range deps {
		if dep == id {
			return invalid("task %q cannot depend on itself", id)
		}
		if _, ok := f.get(dep); !ok {
			return fmt.Errorf("%w: task %q depends on %q which does not exist", ErrDanglingReference, id, dep)
		}
	}
	return nil
}

func pruneDependencies(deps []string, removed map[string]bool) ([]string, bool) {
	kept := make([]string, 0, len(deps))
	for _, d := range deps {
		if !removed[d] {
			kept = append(kept, d)
		}
	}
	return kept, len(kept) != len(deps)
}

// normalizeSet trims entries, drops blanks and duplicates, keeping first-seen order
func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func matchesAny(g glob.Glob, values []string) bool {
	for _, v := range values {
		if g.Match(v) {
			return true
		}
	}
	return false
}

func clones(tasks []*models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
