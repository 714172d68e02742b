// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// CreateProject stores a new project with a generated ID.
func (s *Store) CreateProject(ctx context.Context, title, description string, tags []string) (types.Project, error) {
	p := types.Project{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		CreatedAt:   s.now().UTC(),
		Tags:        tags,
	}
	tagsJSON, _ := json.Marshal(p.Tags)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, tags, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, string(tagsJSON), p.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return types.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return p, nil
}

// GetProject returns the project with id, or ErrNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (types.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, tags, created_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Project{}, fmt.Errorf("reading project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns all projects, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]types.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, tags, created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject overwrites the title, description and tags of an existing
// project. A changed description invalidates the cached profile embedding.
func (s *Store) UpdateProject(ctx context.Context, p types.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	tagsJSON, _ := json.Marshal(p.Tags)
	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, tags = ? WHERE id = ?`,
		strings.TrimSpace(p.Title), strings.TrimSpace(p.Description), string(tagsJSON), p.ID)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", p.ID, ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_profiles WHERE project_id = ?`, p.ID); err != nil {
		return fmt.Errorf("invalidating profile: %w", err)
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (types.Project, error) {
	var (
		p         types.Project
		tags      sql.NullString
		createdAt string
	)
	if err := sc.Scan(&p.ID, &p.Title, &p.Description, &tags, &createdAt); err != nil {
		return types.Project{}, err
	}
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &p.Tags)
	}
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

// Profile returns the cached profile embedding for projectID and
// fingerprint. A project keeps one entry per fingerprint, so profiles built
// from different keyword sets do not evict each other.
func (s *Store) Profile(ctx context.Context, projectID, fingerprint string) ([]float32, bool, error) {
	var vector string
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM project_profiles WHERE project_id = ? AND fingerprint = ?`, projectID, fingerprint,
	).Scan(&vector)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading profile: %w", err)
	}
	var vec []float32
	if err := json.Unmarshal([]byte(vector), &vec); err != nil {
		return nil, false, fmt.Errorf("decoding profile vector: %w", err)
	}
	return vec, true, nil
}

// PutProfile caches the profile embedding for projectID under fingerprint.
func (s *Store) PutProfile(ctx context.Context, projectID, fingerprint string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encoding profile vector: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO project_profiles (project_id, fingerprint, vector, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(project_id, fingerprint) DO UPDATE SET
			vector=excluded.vector, updated_at=excluded.updated_at`,
		projectID, fingerprint, string(data), s.timestamp())
	if err != nil {
		return fmt.Errorf("storing profile: %w", err)
	}
	return nil
}
