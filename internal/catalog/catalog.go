package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Catalog is a SQLite index of saved recordings.
type Catalog struct {
	db *sql.DB
}

// Entry is one saved recording.
type Entry struct {
	ID         string
	Path       string
	SampleRate int
	Samples    int // per-channel sample count
	Duration   float64
	Bytes      int
	CreatedAt  time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	id TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	sample_rate INTEGER NOT NULL,
	samples INTEGER NOT NULL,
	duration REAL NOT NULL,
	bytes INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
)`

// Open opens (creating if necessary) the catalog database at path.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening catalog database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating recordings table: %w", err)
	}

	return &Catalog{db: db}, nil
}

// Add inserts a recording entry.
func (c *Catalog) Add(e Entry) error {
	_, err := c.db.Exec(
		`INSERT INTO recordings (id, path, sample_rate, samples, duration, bytes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Path, e.SampleRate, e.Samples, e.Duration, e.Bytes, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting recording: %w", err)
	}
	return nil
}

// List returns all recordings, newest first.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query(
		`SELECT id, path, sample_rate, samples, duration, bytes, created_at
		 FROM recordings ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying recordings: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Path, &e.SampleRate, &e.Samples, &e.Duration, &e.Bytes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning recording row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
