// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/OpenPSG/stimulus"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		experimenter TEXT NOT NULL DEFAULT '',
		comments TEXT NOT NULL DEFAULT ''
	);
`

// Store is a catalog backed by a SQLite database.
type Store struct {
	db *sql.DB
}

var _ Index = (*Store)(nil)

// Open opens (creating if needed) the catalog database at path. Use
// ":memory:" for a private in-memory catalog.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the catalog schema.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Upsert adds an entry, replacing any entry with the same id.
func (s *Store) Upsert(e stimulus.CatalogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("entry has no id")
	}

	_, err := s.db.Exec(`
		INSERT INTO recordings (id, path, experimenter, comments)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			experimenter = excluded.experimenter,
			comments = excluded.comments
	`, e.ID, e.Path, e.Experimenter, e.Comments)
	if err != nil {
		return fmt.Errorf("upsert recording: %w", err)
	}
	return nil
}

// Lookup returns the entry with the given id.
func (s *Store) Lookup(id string) (stimulus.CatalogEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, path, experimenter, comments
		FROM recordings
		WHERE id = ?
	`, id)

	var e stimulus.CatalogEntry
	if err := row.Scan(&e.ID, &e.Path, &e.Experimenter, &e.Comments); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return stimulus.CatalogEntry{}, fmt.Errorf("recording %q: %w", id, ErrNotFound)
		}
		return stimulus.CatalogEntry{}, fmt.Errorf("scan recording: %w", err)
	}
	return e, nil
}

// List returns every entry ordered by id.
func (s *Store) List() ([]stimulus.CatalogEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, path, experimenter, comments
		FROM recordings
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var entries []stimulus.CatalogEntry
	for rows.Next() {
		var e stimulus.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Path, &e.Experimenter, &e.Comments); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
