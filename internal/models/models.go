package models

import "time"

// Status is the workflow state of a task
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in display order
var Statuses = []Status{StatusPending, StatusInProgress, StatusBlocked, StatusDone}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority and complexity bounds
const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5
)

// Project represents a task management project
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Task represents a single task at any depth of a project's hierarchy
type Task struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Details        string    `json:"details"`
	ProjectID      string    `json:"projectId"`
	ParentID       string    `json:"parentId,omitempty"` // empty for root tasks
	Level          int       `json:"level"`
	Completed      bool      `json:"completed"`
	Status         Status    `json:"status"`
	Priority       int       `json:"priority"`
	Complexity     *int      `json:"complexity,omitempty"`
	Tags           []string  `json:"tags"`
	DependsOn      []string  `json:"dependsOn"`
	EstimatedHours *float64  `json:"estimatedHours,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsRoot reports whether the task has no parent
func (t *Task) IsRoot() bool {
	return t.ParentID == ""
}

// Clone returns a deep copy of the task
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string{}, t.Tags...)
	c.DependsOn = append([]string{}, t.DependsOn...)
	if t.Complexity != nil {
		v := *t.Complexity
		c.Complexity = &v
	}
	if t.EstimatedHours != nil {
		v := *t.EstimatedHours
		c.EstimatedHours = &v
	}
	return c
}

// TaskNode is a task with its children attached, used for tree display
type TaskNode struct {
	Task     Task        `json:"task"`
	Children []*TaskNode `json:"children"`
}

// Walk visits the node and its descendants depth-first
func (n *TaskNode) Walk(fn func(node *TaskNode)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// LegacySubtask is the flat pre-hierarchy subtask record.
// It only appears in task documents written before schema version 2.
type LegacySubtask struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Details   string    `json:"details"`
	TaskID    string    `json:"taskId"`
	ProjectID string    `json:"projectId"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Memory is a free-form note kept for later recall
type Memory struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	Content   string                   `json:"content"`
	Category  string                   `json:"category,omitempty"`
	Metadata  map[string]MetadataValue `json:"metadata"`
	CreatedAt time.Time                `json:"createdAt"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// RecommendedTitleLength is the soft limit for memory titles
const RecommendedTitleLength = 50

// Clone returns a deep copy of the memory
func (m Memory) Clone() Memory {
	c := m
	if m.Metadata != nil {
		c.Metadata = make(map[string]MetadataValue, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v.Clone()
		}
	}
	return c
}
