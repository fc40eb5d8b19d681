// Package catalog stores converted SFZ instruments in a SQLite database.
//
// Each entry keeps the source file's hashes alongside the converted JSON
// document, so re-converting an unchanged instrument can be detected and
// skipped via FindBySourceHash.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperSFZ/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS instruments (
	id            TEXT PRIMARY KEY,
	path          TEXT NOT NULL,
	source_sha256 TEXT NOT NULL,
	source_blake3 TEXT NOT NULL,
	document      BLOB NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_instruments_source_sha256 ON instruments(source_sha256);
`

// Entry is one cataloged instrument.
type Entry struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	SourceSHA256 string `json:"source_sha256"`
	SourceBLAKE3 string `json:"source_blake3"`
	Document     []byte `json:"-"`
	CreatedAt    string `json:"created_at"`
}

// Catalog is a SQLite-backed instrument store.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Put stores an entry. An empty ID is assigned a fresh UUID; an empty
// CreatedAt is stamped with the current UTC time. Returns the entry ID.
func (c *Catalog) Put(e *Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt == "" {
		e.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := c.db.Exec(
		`INSERT INTO instruments (id, path, source_sha256, source_blake3, document, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Path, e.SourceSHA256, e.SourceBLAKE3, e.Document, e.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store catalog entry: %w", err)
	}
	return e.ID, nil
}

// Get returns the entry with the given ID, or nil if it does not exist.
func (c *Catalog) Get(id string) (*Entry, error) {
	row := c.db.QueryRow(
		`SELECT id, path, source_sha256, source_blake3, document, created_at
		 FROM instruments WHERE id = ?`, id)
	return scanEntry(row)
}

// FindBySourceHash returns the most recent entry whose source SHA-256
// matches, or nil if none exists.
func (c *Catalog) FindBySourceHash(sha256 string) (*Entry, error) {
	row := c.db.QueryRow(
		`SELECT id, path, source_sha256, source_blake3, document, created_at
		 FROM instruments WHERE source_sha256 = ?
		 ORDER BY created_at DESC LIMIT 1`, sha256)
	return scanEntry(row)
}

// List returns all entries ordered by creation time, oldest first.
// Documents are not loaded; use Get for the full entry.
func (c *Catalog) List() ([]*Entry, error) {
	rows, err := c.db.Query(
		`SELECT id, path, source_sha256, source_blake3, created_at
		 FROM instruments ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		if err := rows.Scan(&e.ID, &e.Path, &e.SourceSHA256, &e.SourceBLAKE3, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(row *sql.Row) (*Entry, error) {
	e := &Entry{}
	err := row.Scan(&e.ID, &e.Path, &e.SourceSHA256, &e.SourceBLAKE3, &e.Document, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entry: %w", err)
	}
	return e, nil
}
