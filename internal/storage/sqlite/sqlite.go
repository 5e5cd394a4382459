// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite keeps the whole credential directory in a single file with no
// server process. It is an alternative to the YAML credential file for
// deployments that prefer a database over a hand-editable document.
//
// The blank import below registers the sqlite3 driver with database/sql.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aanand-mishra/students-report/internal/storage"
	"github.com/aanand-mishra/students-report/internal/types"
)

// SQLite is the concrete implementation of storage.Storage.
// It holds a *sql.DB which is a connection pool managed by database/sql.
type SQLite struct {
	Db *sql.DB
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at path and creates the users table if
// it does not already exist.
func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// Schema:
	//   id: insertion order of the directory
	//   username: unique key
	//   registration_date: RFC 3339 text, NULL when unknown
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			username          TEXT    NOT NULL UNIQUE,
			name              TEXT    NOT NULL,
			email             TEXT    NOT NULL,
			registration_date TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// LoadProfiles returns every user ordered by insertion.
func (s *SQLite) LoadProfiles() ([]types.UserProfile, error) {
	stmt, err := s.Db.Prepare(
		"SELECT username, name, email, registration_date FROM users ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("LoadProfiles: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("LoadProfiles: query: %w", err)
	}
	defer rows.Close()

	profiles := make([]types.UserProfile, 0)
	for rows.Next() {
		var p types.UserProfile
		var registered sql.NullString

		if err := rows.Scan(&p.Username, &p.DisplayName, &p.Email, &registered); err != nil {
			return nil, fmt.Errorf("LoadProfiles: scan row: %w", err)
		}
		if registered.Valid && registered.String != "" {
			t, err := time.Parse(time.RFC3339Nano, registered.String)
			if err != nil {
				return nil, fmt.Errorf("LoadProfiles: user %q registration_date %q: %w", p.Username, registered.String, storage.ErrCorrupt)
			}
			p.RegisteredAt = &t
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadProfiles: rows iteration: %w", err)
	}
	return profiles, nil
}

// SaveProfiles replaces the table contents inside one transaction, so
// readers see either the old directory or the new one.
func (s *SQLite) SaveProfiles(profiles []types.UserProfile) (err error) {
	tx, err := s.Db.Begin()
	if err != nil {
		return fmt.Errorf("SaveProfiles: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM users"); err != nil {
		return fmt.Errorf("SaveProfiles: clear: %w", err)
	}
	// Restart ids so the stored order always matches the slice order.
	if _, err = tx.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'"); err != nil {
		return fmt.Errorf("SaveProfiles: reset sequence: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO users (username, name, email, registration_date) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("SaveProfiles: prepare: %w", err)
	}
	defer stmt.Close()

	for _, p := range profiles {
		var registered sql.NullString
		if p.RegisteredAt != nil {
			registered = sql.NullString{String: p.RegisteredAt.Format(time.RFC3339Nano), Valid: true}
		}
		if _, err = stmt.Exec(p.Username, p.DisplayName, p.Email, registered); err != nil {
			return fmt.Errorf("SaveProfiles: insert %q: %w", p.Username, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("SaveProfiles: commit: %w", err)
	}
	return nil
}
