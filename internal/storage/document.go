package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/tgienger/atm/internal/models"
)

// Document names relative to the backend root
const (
	ProjectsDocument = "tasks/projects.json"
	TasksDocument    = "tasks/tasks.json"
	MemoriesDocument = "memories/memories.json"
)

// SchemaVersion is written to the tasks document once it holds only hierarchical tasks
const SchemaVersion = 2

type projectsFile struct {
	Projects []models.Project `json:"projects"`
}

type tasksFile struct {
	SchemaVersion int                    `json:"schemaVersion,omitempty"`
	Tasks         []models.Task          `json:"tasks"`
	Subtasks      []models.LegacySubtask `json:"subtasks,omitempty"`
	// Projects is only present in the legacy combined layout
	Projects []models.Project `json:"projects,omitempty"`
}

type memoriesFile struct {
	Memories []models.Memory `json:"memories"`
}

// document loads and persists one collection through a Backend
type document[T any] struct {
	backend Backend
	name    string
	empty   func() *T
	check   func(*T) error
}

// load returns the stored collection, creating an empty document when none exists
func (d *document[T]) load() (*T, error) {
	v, err := d.read()
	if errors.Is(err, fs.ErrNotExist) {
		v = d.empty()
		if err := d.persist(v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return v, err
}

// read parses the stored collection without creating anything
func (d *document[T]) read() (*T, error) {
	data, err := d.backend.Read(d.name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("storage: read %s: %w", d.name, err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, corrupt(d.name, errors.New("expected a JSON object"))
	}

	v := d.empty()
	if err := json.Unmarshal(trimmed, v); err != nil {
		return nil, corrupt(d.name, err)
	}
	if d.check != nil {
		if err := d.check(v); err != nil {
			return nil, corrupt(d.name, err)
		}
	}
	return v, nil
}

// persist rewrites the whole document
func (d *document[T]) persist(v *T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", d.name, err)
	}
	data = append(data, '\n')
	if err := d.backend.Write(d.name, data); err != nil {
		return fmt.Errorf("storage: persist %s: %w", d.name, err)
	}
	return nil
}

func newProjectsDocument(b Backend) *document[projectsFile] {
	return &document[projectsFile]{
		backend: b,
		name:    ProjectsDocument,
		empty:   func() *projectsFile { return &projectsFile{Projects: []models.Project{}} },
		check: func(f *projectsFile) error {
			if f.Projects == nil {
				f.Projects = []models.Project{}
			}
			return uniqueIDs("project", len(f.Projects), func(i int) string { return f.Projects[i].ID })
		},
	}
}

func newTasksDocument(b Backend) *document[tasksFile] {
	return &document[tasksFile]{
		backend: b,
		name:    TasksDocument,
		empty: func() *tasksFile {
			return &tasksFile{SchemaVersion: SchemaVersion, Tasks: []models.Task{}}
		},
		check: func(f *tasksFile) error {
			if f.Tasks == nil {
				f.Tasks = []models.Task{}
			}
			if err := uniqueIDs("task", len(f.Tasks), func(i int) string { return f.Tasks[i].ID }); err != nil {
				return err
			}
			if err := uniqueIDs("subtask", len(f.Subtasks), func(i int) string { return f.Subtasks[i].ID }); err != nil {
				return err
			}
			for i := range f.Tasks {
				if err := checkStoredTask(&f.Tasks[i]); err != nil {
					return err
				}
			}
			return uniqueIDs("project", len(f.Projects), func(i int) string { return f.Projects[i].ID })
		},
	}
}

func newMemoriesDocument(b Backend) *document[memoriesFile] {
	return &document[memoriesFile]{
		backend: b,
		name:    MemoriesDocument,
		empty:   func() *memoriesFile { return &memoriesFile{Memories: []models.Memory{}} },
		check: func(f *memoriesFile) error {
			if f.Memories == nil {
				f.Memories = []models.Memory{}
			}
			return uniqueIDs("memory", len(f.Memories), func(i int) string { return f.Memories[i].ID })
		},
	}
}

func uniqueIDs(kind string, n int, id func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if v == "" {
			return fmt.Errorf("%s at index %d has an empty id", kind, i)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("duplicate %s id %q", kind, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// checkStoredTask rejects field values no write path could have produced.
// Zero priority and empty status are missing fields, filled in on load.
func checkStoredTask(t *models.Task) error {
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("task %q has unknown status %q", t.ID, t.Status)
	}
	if t.Priority != 0 && (t.Priority < models.MinPriority || t.Priority > models.MaxPriority) {
		return fmt.Errorf("task %q has priority %d outside %d-%d", t.ID, t.Priority, models.MinPriority, models.MaxPriority)
	}
	if t.Complexity != nil && (*t.Complexity < models.MinPriority || *t.Complexity > models.MaxPriority) {
		return fmt.Errorf("task %q has complexity %d outside %d-%d", t.ID, *t.Complexity, models.MinPriority, models.MaxPriority)
	}
	if t.EstimatedHours != nil && *t.EstimatedHours < 0 {
		return fmt.Errorf("task %q has negative estimated hours", t.ID)
	}
	return nil
}
