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

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// UpsertPapers caches paper metadata keyed by hash. Score is query-specific
// and is not stored.
func (s *Store) UpsertPapers(ctx context.Context, papers []types.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO papers (hash, openalex_id, metadata, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET
			openalex_id=excluded.openalex_id, metadata=excluded.metadata, fetched_at=excluded.fetched_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for _, p := range papers {
		p.Score = 0
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding paper %s: %w", p.Hash, err)
		}
		if _, err := stmt.ExecContext(ctx, p.Hash, p.OpenAlexID, string(data), ts); err != nil {
			return fmt.Errorf("upserting paper %s: %w", p.Hash, err)
		}
	}
	return tx.Commit()
}

// Papers returns cached metadata for the given hashes. Entries fetched more
// than maxAge ago are treated as missing; maxAge <= 0 accepts any entry.
func (s *Store) Papers(ctx context.Context, hashes []string, maxAge time.Duration) (map[string]types.Paper, error) {
	out := make(map[string]types.Paper, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, metadata, fetched_at FROM papers WHERE hash IN (`+placeholders(len(hashes))+`)`,
		args(hashes)...)
	if err != nil {
		return nil, fmt.Errorf("reading papers: %w", err)
	}
	defer rows.Close()

	cutoff := s.now().Add(-maxAge)
	for rows.Next() {
		var hash, metadata, fetchedAt string
		if err := rows.Scan(&hash, &metadata, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scanning paper: %w", err)
		}
		if maxAge > 0 && parseTimestamp(fetchedAt).Before(cutoff) {
			continue
		}
		var p types.Paper
		if err := json.Unmarshal([]byte(metadata), &p); err != nil {
			return nil, fmt.Errorf("decoding paper %s: %w", hash, err)
		}
		out[hash] = p
	}
	return out, rows.Err()
}

// SeenHashes returns the hashes of every paper already shown to or rated by
// the project.
func (s *Store) SeenHashes(ctx context.Context, projectID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_hash FROM project_papers WHERE project_id = ? AND seen = 1 ORDER BY paper_hash`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("reading seen papers: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ClaimSeen marks hash as seen for projectID unless it already is. It reports
// true only for the caller that performed the transition.
func (s *Store) ClaimSeen(ctx context.Context, projectID, hash, summary string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO project_papers (project_id, paper_hash, seen, summary, updated_at) VALUES (?, ?, 1, ?, ?)
		 ON CONFLICT(project_id, paper_hash) DO UPDATE SET
			seen = 1, summary = excluded.summary, updated_at = excluded.updated_at
		 WHERE project_papers.seen = 0`,
		projectID, hash, summary, s.timestamp())
	if err != nil {
		return false, fmt.Errorf("claiming paper %s: %w", hash, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkSeen records delivered papers as seen. Papers already seen keep their
// existing summary and rating.
func (s *Store) MarkSeen(ctx context.Context, projectID string, papers []types.ProjectPaper) error {
	if len(papers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO project_papers (project_id, paper_hash, seen, newsletter, summary, updated_at) VALUES (?, ?, 1, ?, ?, ?)
		 ON CONFLICT(project_id, paper_hash) DO UPDATE SET
			seen = 1, summary = COALESCE(project_papers.summary, excluded.summary), updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for _, pp := range papers {
		if _, err := stmt.ExecContext(ctx, projectID, pp.PaperHash, pp.Newsletter, nullable(pp.Summary), ts); err != nil {
			return fmt.Errorf("marking paper %s seen: %w", pp.PaperHash, err)
		}
	}
	return tx.Commit()
}

// SetRating stores rating for a project paper, creating the row if needed,
// and marks it seen. It returns the previous rating, 0 when unrated.
func (s *Store) SetRating(ctx context.Context, projectID, hash string, rating int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking project: %w", err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	var prev int
	err = tx.QueryRowContext(ctx,
		`SELECT rating FROM project_papers WHERE project_id = ? AND paper_hash = ?`, projectID, hash,
	).Scan(&prev)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reading rating: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_papers (project_id, paper_hash, rating, seen, updated_at) VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(project_id, paper_hash) DO UPDATE SET
			rating = excluded.rating, seen = 1, updated_at = excluded.updated_at`,
		projectID, hash, rating, s.timestamp())
	if err != nil {
		return 0, fmt.Errorf("storing rating: %w", err)
	}
	return prev, tx.Commit()
}

// ProjectPapers returns every paper state recorded for projectID.
func (s *Store) ProjectPapers(ctx context.Context, projectID string) ([]types.ProjectPaper, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_hash, rating, seen, newsletter, summary FROM project_papers
		 WHERE project_id = ? ORDER BY updated_at, paper_hash`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading project papers: %w", err)
	}
	defer rows.Close()

	var out []types.ProjectPaper
	for rows.Next() {
		pp := types.ProjectPaper{ProjectID: projectID}
		var summary sql.NullString
		if err := rows.Scan(&pp.PaperHash, &pp.Rating, &pp.Seen, &pp.Newsletter, &summary); err != nil {
			return nil, fmt.Errorf("scanning project paper: %w", err)
		}
		pp.Summary = summary.String
		out = append(out, pp)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func args(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
