package storage

import (
	"strings"

	"github.com/tgienger/atm/internal/models"
)

// ProjectDraft holds the caller-supplied fields of a new project
type ProjectDraft struct {
	ID          string // optional; generated when empty
	Name        string
	Description string
}

// ProjectUpdate lists the fields to change; nil fields are left alone
type ProjectUpdate struct {
	Name        *string
	Description *string
}

// ProjectRepository owns the projects document
type ProjectRepository struct {
	s     *Storage
	items []models.Project
}

// Create stores a new project
func (r *ProjectRepository) Create(draft ProjectDraft) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return nil, invalid("project name is required")
	}
	id := draft.ID
	if id == "" {
		id = r.s.newID()
	} else if r.index(id) >= 0 {
		return nil, invalid("project id %q already exists", id)
	}

	now := r.s.clock()
	p := models.Project{
		ID:          id,
		Name:        name,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	next := append(r.clone(), p)
	if err := r.commit(next); err != nil {
		return nil, err
	}
	r.s.log.WithField("project", id).Debug("project created")
	return &p, nil
}

// Get returns a project by id
func (r *ProjectRepository) Get(id string) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil, notFound("project", id)
	}
	p := r.items[i]
	return &p, nil
}

// List returns all projects in creation order
func (r *ProjectRepository) List() []models.Project {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.clone()
}

// Update changes the given fields and refreshes UpdatedAt
func (r *ProjectRepository) Update(id string, upd ProjectUpdate) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil, notFound("project", id)
	}

	next := r.clone()
	p := &next[i]
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("project name is required")
		}
		p.Name = name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	p.UpdatedAt = r.s.touch(p.UpdatedAt)

	if err := r.commit(next); err != nil {
		return nil, err
	}
	out := next[i]
	return &out, nil
}

// Delete removes a project together with all of its tasks
func (r *ProjectRepository) Delete(id string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return notFound("project", id)
	}

	// Tasks go first so a failure never leaves tasks pointing at a missing project
	removed, err := r.s.tasks.removeProject(id)
	if err != nil {
		return err
	}

	next := r.clone()
	next = append(next[:i], next[i+1:]...)
	if err := r.commit(next); err != nil {
		return err
	}
	r.s.log.WithField("project", id).WithField("tasks", removed).Debug("project deleted")
	return nil
}

// exists reports whether id names a project; callers hold the lock
func (r *ProjectRepository) exists(id string) bool {
	return r.index(id) >= 0
}

func (r *ProjectRepository) index(id string) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *ProjectRepository) clone() []models.Project {
	return append([]models.Project{}, r.items...)
}

// commit persists next and only then makes it the in-memory state
func (r *ProjectRepository) commit(next []models.Project) error {
	if err := r.s.projectsDoc.persist(&projectsFile{Projects: next}); err != nil {
		return err
	}
	r.items = next
	return nil
}
