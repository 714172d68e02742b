// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists projects, cached paper metadata, per-project paper
// state (seen flags and ratings) and cached profile embeddings in SQLite.
//
// The seen flag on a project paper only moves from false to true. ClaimSeen
// performs that transition in a single statement so concurrent claimants of
// the same paper cannot both win.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "recommender.db"

// ErrNotFound reports a missing project.
var ErrNotFound = errors.New("not found")

// Store manages the recommender SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at dataDir/recommender.db and creates
// the schema if it does not exist.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			tags TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS papers (
			hash TEXT PRIMARY KEY,
			openalex_id TEXT,
			metadata TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_openalex_id ON papers(openalex_id)`,
		`CREATE TABLE IF NOT EXISTS project_papers (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			paper_hash TEXT NOT NULL,
			rating INTEGER NOT NULL DEFAULT 0,
			seen INTEGER NOT NULL DEFAULT 0,
			newsletter INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (project_id, paper_hash)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_project_papers_seen ON project_papers(project_id, seen)`,
		// Superseded by project_profiles, which keeps one row per fingerprint.
		`DROP TABLE IF EXISTS profiles`,
		`CREATE TABLE IF NOT EXISTS project_profiles (
			project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			fingerprint TEXT NOT NULL,
			vector TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (project_id, fingerprint)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}
