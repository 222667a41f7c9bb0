package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tgienger/atm/internal/db"
)

// Backend reads and writes whole named documents.
// Read reports a document that was never written with an error matching fs.ErrNotExist.
type Backend interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
	Close() error
}

// Inspector is implemented by backends that can describe what they hold
type Inspector interface {
	Kind() string
	Location() string
	Documents() ([]string, error)
}

// FileBackend keeps each document as a file below a root directory
type FileBackend struct {
	root string
}

// NewFileBackend creates a backend rooted at root
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{root: root}
}

// Root returns the backend's root directory
func (b *FileBackend) Root() string {
	return b.root
}

// Path returns the file that holds the named document
func (b *FileBackend) Path(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: invalid document name %q", name)
	}
	return filepath.Join(b.root, clean), nil
}

// Read returns the document's content
func (b *FileBackend) Read(name string) ([]byte, error) {
	path, err := b.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Write replaces the document through a temp file and rename, so a reader
// never observes a half-written file.
func (b *FileBackend) Write(name string, data []byte) error {
	path, err := b.Path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for files
func (b *FileBackend) Close() error {
	return nil
}

// Kind names the backend
func (b *FileBackend) Kind() string { return "file" }

// Location returns the root directory
func (b *FileBackend) Location() string { return b.root }

// Documents returns the names of the stored .json documents in sorted order
func (b *FileBackend) Documents() ([]string, error) {
	names := []string{}
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == b.root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// SQLiteBackend keeps documents as rows of the documents table
type SQLiteBackend struct {
	db *db.DB
}

// NewSQLiteBackend wraps an open database. Close closes the database.
func NewSQLiteBackend(database *db.DB) *SQLiteBackend {
	return &SQLiteBackend{db: database}
}

// Read returns the stored body of the document
func (b *SQLiteBackend) Read(name string) ([]byte, error) {
	data, err := b.db.ReadDocument(name)
	if errors.Is(err, db.ErrNoDocument) {
		return nil, fmt.Errorf("storage: document %s: %w", name, fs.ErrNotExist)
	}
	return data, err
}

// Write replaces the stored body of the document
func (b *SQLiteBackend) Write(name string, data []byte) error {
	return b.db.WriteDocument(name, data)
}

// Close closes the underlying database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Kind names the backend
func (b *SQLiteBackend) Kind() string { return "sqlite" }

// Location returns the database file
func (b *SQLiteBackend) Location() string { return b.db.Path() }

// Documents returns the names of the stored documents in sorted order
func (b *SQLiteBackend) Documents() ([]string, error) {
	names, err := b.db.ListDocuments()
	if err != nil {
		return nil, fmt.Errorf("storage: list documents: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
