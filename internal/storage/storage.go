// Package storage persists projects, hierarchical tasks and memories as JSON
// documents.
//
// A Storage is opened on an absolute working directory. Opening loads every
// collection, migrates legacy flat subtasks into the task hierarchy and
// normalizes stored hierarchy levels; only then are the repositories
// returned by Projects, Tasks and Memories usable. Every mutating repository
// call rewrites the whole affected document before returning.
//
// Documents live below <dir>/.agentic-tools-mcp:
//
//	tasks/projects.json     {"projects": [...]}
//	tasks/tasks.json        {"schemaVersion": 2, "tasks": [...]}
//	memories/memories.json  {"memories": [...]}
//
// A Storage serializes its own calls with a mutex. Separate Storage values
// on the same directory are not coordinated: the last write wins.
package storage

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tgienger/atm/internal/db"
	"github.com/tgienger/atm/internal/logger"
)

// ConfigDirName is the subdirectory of the working directory holding all documents
const ConfigDirName = ".agentic-tools-mcp"

// Storage is the entry point to the repositories of one working directory
type Storage struct {
	mu      sync.Mutex
	dir     string
	root    string
	backend Backend
	log     *logrus.Entry
	now     func() time.Time
	newID   func() string

	projectsDoc *document[projectsFile]
	tasksDoc    *document[tasksFile]
	memoriesDoc *document[memoriesFile]

	projects *ProjectRepository
	tasks    *TaskRepository
	memories *MemoryRepository

	lastMigration MigrationResult
}

type options struct {
	backend Backend
	sqlite  bool
	log     *logrus.Entry
	now     func() time.Time
	newID   func() string
}

// Option customizes Open
type Option func(*options)

// WithBackend stores documents in b instead of files below the working directory
func WithBackend(b Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithSQLite stores documents in <dir>/.agentic-tools-mcp/atm.db
func WithSQLite() Option {
	return func(o *options) { o.sqlite = true }
}

// WithLogger sets the log entry used for debug output
func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator replaces the UUID generator used for new entities
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// Open initializes storage for an absolute working directory:
// load every document, migrate legacy data, then expose the repositories.
func Open(dir string, opts ...Option) (*Storage, error) {
	if !filepath.IsAbs(dir) {
		return nil, invalid("working directory %q must be an absolute path", dir)
	}

	o := options{
		log:   logger.WithComponent("storage"),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}

	dir = filepath.Clean(dir)
	root := filepath.Join(dir, ConfigDirName)

	backend := o.backend
	if backend == nil {
		if o.sqlite {
			database, err := db.Open(filepath.Join(root, db.FileName))
			if err != nil {
				return nil, fmt.Errorf("storage: open sqlite backend: %w", err)
			}
			backend = NewSQLiteBackend(database)
		} else {
			backend = NewFileBackend(root)
		}
	}

	s := &Storage{
		dir:         dir,
		root:        root,
		backend:     backend,
		log:         o.log.WithField("dir", dir),
		now:         o.now,
		newID:       o.newID,
		projectsDoc: newProjectsDocument(backend),
		tasksDoc:    newTasksDocument(backend),
		memoriesDoc: newMemoriesDocument(backend),
	}
	if err := s.initialize(); err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) initialize() error {
	projects, err := s.projectsDoc.load()
	if err != nil {
		return err
	}
	tasks, err := s.tasksDoc.load()
	if err != nil {
		return err
	}
	memories, err := s.memoriesDoc.load()
	if err != nil {
		return err
	}

	levelsChanged, err := normalizeTasks(tasks.Tasks)
	if err != nil {
		return corrupt(TasksDocument, err)
	}

	result, err := migrate(projects, tasks, s.clock())
	if err != nil {
		return err
	}
	if result.ProjectsMoved > 0 {
		if err := s.projectsDoc.persist(projects); err != nil {
			return err
		}
	}
	if result.changedTasks() || levelsChanged {
		tasks.SchemaVersion = SchemaVersion
		if err := s.tasksDoc.persist(tasks); err != nil {
			return err
		}
	}
	if result.changedTasks() {
		s.log.WithFields(logrus.Fields{
			"migrated":        result.SubtasksMigrated,
			"skipped":         result.SubtasksSkipped,
			"projects":        result.ProjectsMoved,
			"projectsSkipped": result.ProjectsSkipped,
		}).Info("migrated legacy subtasks")
	}
	s.lastMigration = result

	s.projects = &ProjectRepository{s: s, items: projects.Projects}
	s.tasks = &TaskRepository{s: s, items: tasks.Tasks}
	s.memories = &MemoryRepository{s: s, items: memories.Memories}

	s.log.WithFields(logrus.Fields{
		"projects": len(projects.Projects),
		"tasks":    len(tasks.Tasks),
		"memories": len(memories.Memories),
	}).Debug("storage ready")
	return nil
}

// Projects returns the project repository
func (s *Storage) Projects() *ProjectRepository { return s.projects }

// Tasks returns the task repository, including hierarchy operations
func (s *Storage) Tasks() *TaskRepository { return s.tasks }

// Memories returns the memory repository
func (s *Storage) Memories() *MemoryRepository { return s.memories }

// Dir returns the working directory
func (s *Storage) Dir() string { return s.dir }

// Root returns the directory holding the documents
func (s *Storage) Root() string { return s.root }

// BackendInfo describes where the documents are kept
type BackendInfo struct {
	Kind      string   `json:"kind"`
	Location  string   `json:"location,omitempty"`
	Documents []string `json:"documents,omitempty"`
}

// BackendInfo reports the backend in use. Backends that do not implement
// Inspector are reported with kind "custom" only.
func (s *Storage) BackendInfo() (BackendInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in, ok := s.backend.(Inspector)
	if !ok {
		return BackendInfo{Kind: "custom"}, nil
	}
	docs, err := in.Documents()
	if err != nil {
		return BackendInfo{}, err
	}
	return BackendInfo{Kind: in.Kind(), Location: in.Location(), Documents: docs}, nil
}

// LastMigration reports what Open migrated
func (s *Storage) LastMigration() MigrationResult { return s.lastMigration }

// Close releases the backend
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// clock returns the current time at the precision stored on disk
func (s *Storage) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// touch returns a timestamp strictly after prev
func (s *Storage) touch(prev time.Time) time.Time {
	now := s.clock()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond)
	}
	return now
}
