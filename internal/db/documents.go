package db

import (
	"database/sql"
	"errors"
)

// ErrNoDocument is returned when a named document has never been written
var ErrNoDocument = errors.New("db: document not found")

// ReadDocument returns the stored body of a document
func (db *DB) ReadDocument(name string) ([]byte, error) {
	var body string
	err := db.QueryRow("SELECT body FROM documents WHERE name = ?", name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// WriteDocument replaces the whole body of a document
func (db *DB) WriteDocument(name string, body []byte) error {
	_, err := db.Exec(`
		INSERT INTO documents (name, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP
	`, name, string(body))
	return err
}

// ListDocuments returns the names of all stored documents
func (db *DB) ListDocuments() ([]string, error) {
	rows, err := db.Query("SELECT name FROM documents ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

