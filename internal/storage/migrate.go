package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/tgienger/atm/internal/models"
)

// MigrationResult describes what one Open changed while migrating legacy data
type MigrationResult struct {
	SubtasksMigrated int `json:"subtasksMigrated"`
	// SubtasksSkipped counts legacy records whose id already exists as a task
	SubtasksSkipped int `json:"subtasksSkipped"`
	// ProjectsMoved counts legacy embedded projects appended to the projects document
	ProjectsMoved int `json:"projectsMoved"`
	// ProjectsSkipped counts legacy embedded projects whose id already exists
	ProjectsSkipped int `json:"projectsSkipped"`
}

func (r MigrationResult) changedTasks() bool {
	return r.SubtasksMigrated > 0 || r.SubtasksSkipped > 0 || r.ProjectsMoved > 0 || r.ProjectsSkipped > 0
}

// MigrationStatus describes the tasks document as currently stored
type MigrationStatus struct {
	NeedsMigration bool `json:"needsMigration"`
	SubtaskCount   int  `json:"subtaskCount"`
	SchemaVersion  int  `json:"schemaVersion"`
}

// MigrationStatus inspects the stored tasks document. After a successful
// Open it reports no pending migration unless another writer has since
// stored legacy records.
func (s *Storage) MigrationStatus() (MigrationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.tasksDoc.read()
	if errors.Is(err, fs.ErrNotExist) {
		return MigrationStatus{SchemaVersion: SchemaVersion}, nil
	}
	if err != nil {
		return MigrationStatus{}, err
	}
	return MigrationStatus{
		NeedsMigration: len(doc.Subtasks) > 0 || len(doc.Projects) > 0,
		SubtaskCount:   len(doc.Subtasks),
		SchemaVersion:  doc.SchemaVersion,
	}, nil
}

// migrate folds legacy records of the tasks document into the current shape.
// Levels of the existing tasks must already be correct. On error neither
// document is modified.
func migrate(projects *projectsFile, tasks *tasksFile, now time.Time) (MigrationResult, error) {
	var result MigrationResult

	var movedProjects []models.Project
	if len(tasks.Projects) > 0 {
		known := make(map[string]bool, len(projects.Projects))
		for _, p := range projects.Projects {
			known[p.ID] = true
		}
		for _, p := range tasks.Projects {
			if !known[p.ID] {
				movedProjects = append(movedProjects, p)
				known[p.ID] = true
			}
		}
		result.ProjectsMoved = len(movedProjects)
		result.ProjectsSkipped = len(tasks.Projects) - len(movedProjects)
	}

	migrated, skipped, err := migrateSubtasks(tasks.Tasks, tasks.Subtasks, now)
	if err != nil {
		return MigrationResult{}, err
	}
	result.SubtasksMigrated = len(migrated) - len(tasks.Tasks)
	result.SubtasksSkipped = skipped

	projects.Projects = append(projects.Projects, movedProjects...)
	tasks.Projects = nil
	tasks.Tasks = migrated
	tasks.Subtasks = nil
	return result, nil
}

// migrateSubtasks returns a new task slice holding the existing tasks followed
// by one task per legacy subtask. A subtask may hang below another legacy
// subtask regardless of their order in the list.
func migrateSubtasks(existing []models.Task, subtasks []models.LegacySubtask, now time.Time) ([]models.Task, int, error) {
	out := make([]models.Task, len(existing), len(existing)+len(subtasks))
	copy(out, existing)
	if len(subtasks) == 0 {
		return out, 0, nil
	}

	type parentInfo struct {
		level     int
		projectID string
	}
	parents := make(map[string]parentInfo, len(existing)+len(subtasks))
	for _, t := range existing {
		parents[t.ID] = parentInfo{level: t.Level, projectID: t.ProjectID}
	}

	skipped := 0
	pending := subtasks
	for len(pending) > 0 {
		var blocked []models.LegacySubtask
		progress := false
		for _, st := range pending {
			if _, exists := parents[st.ID]; exists {
				// Already migrated by an earlier run that did not clear the list
				skipped++
				progress = true
				continue
			}
			parent, ok := parents[st.TaskID]
			if !ok {
				blocked = append(blocked, st)
				continue
			}
			task := taskFromLegacy(st, parent.level+1, parent.projectID, now)
			out = append(out, task)
			parents[task.ID] = parentInfo{level: task.Level, projectID: task.ProjectID}
			progress = true
		}
		if !progress {
			st := blocked[0]
			return nil, 0, fmt.Errorf("%w: legacy subtask %q references task %q which does not exist",
				ErrDanglingReference, st.ID, st.TaskID)
		}
		pending = blocked
	}
	return out, skipped, nil
}

// taskFromLegacy converts a legacy subtask. The parent's project wins over
// the one recorded on the subtask so the hierarchy stays within one project.
func taskFromLegacy(st models.LegacySubtask, level int, projectID string, now time.Time) models.Task {
	t := models.Task{
		ID:        st.ID,
		Name:      st.Name,
		Details:   st.Details,
		ProjectID: projectID,
		ParentID:  st.TaskID,
		Level:     level,
		Completed: st.Completed,
		Status:    models.StatusPending,
		Priority:  models.DefaultPriority,
		Tags:      []string{},
		DependsOn: []string{},
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	if st.Completed {
		t.Status = models.StatusDone
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	return t
}
