// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feedback records paper ratings and, for low ratings, serves one
// unseen replacement paper from the project's profile-similarity space.
//
// A replacement is claimed as seen in the store before it is returned, so
// concurrent ratings in the same project can never hand out the same paper.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/metrics"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Status describes what happened to the replacement search.
type Status string

const (
	// StatusNotRequested: the rating was 3 or higher.
	StatusNotRequested Status = "not_requested"
	// StatusReplaced: one unseen paper was claimed and returned.
	StatusReplaced Status = "replaced"
	// StatusNoReplacement: no unseen candidate cleared the similarity bar.
	StatusNoReplacement Status = "no_replacement"
	// StatusUnchanged: the same low rating was already recorded, so no
	// second search ran.
	StatusUnchanged Status = "unchanged"
)

// ErrInvalidRating reports a rating outside 1-5 or a missing paper hash.
var ErrInvalidRating = errors.New("invalid rating")

// ErrReplacementSearch reports that the rating was stored but the
// replacement search failed upstream.
var ErrReplacementSearch = errors.New("replacement search failed")

// Rating is one submission.
type Rating struct {
	ProjectID string `json:"project_id" validate:"required"`
	PaperHash string `json:"paper_hash" validate:"required"`
	Value     int    `json:"rating" validate:"min=1,max=5"`
}

// Result is the outcome of a rating submission.
type Result struct {
	Rating      Rating       `json:"rating"`
	Previous    int          `json:"previous"`
	Status      Status       `json:"status"`
	Replacement *types.Paper `json:"replacement,omitempty"`
}

// Store is the persistence the engine needs.
type Store interface {
	GetProject(ctx context.Context, id string) (types.Project, error)
	SetRating(ctx context.Context, projectID, hash string, rating int) (int, error)
	ClaimSeen(ctx context.Context, projectID, hash, summary string) (bool, error)
}

// Candidates supplies unseen papers nearest to the project profile, in
// descending similarity.
type Candidates interface {
	Candidates(ctx context.Context, project types.Project, keywords []string, limit int) ([]types.Paper, error)
}

// Engine handles rating submissions.
type Engine struct {
	store    Store
	cands    Candidates
	pool     int
	minScore float64
	logger   *zap.Logger
}

// New returns an engine. Pool and threshold come from cfg.
func New(store Store, cands Candidates, cfg types.RetrievalConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:    store,
		cands:    cands,
		pool:     max(cfg.ReplacementPool, 1),
		minScore: cfg.MinReplacementScore,
		logger:   logger,
	}
}

// Rate persists the rating and, for ratings of 1 or 2, tries to return
// exactly one replacement.
func (e *Engine) Rate(ctx context.Context, r Rating) (Result, error) {
	r.PaperHash = strings.TrimSpace(r.PaperHash)
	if r.Value < 1 || r.Value > 5 || r.PaperHash == "" {
		return Result{}, fmt.Errorf("%w: rating %d for %q", ErrInvalidRating, r.Value, r.PaperHash)
	}

	project, err := e.store.GetProject(ctx, r.ProjectID)
	if err != nil {
		return Result{}, err
	}

	prev, err := e.store.SetRating(ctx, r.ProjectID, r.PaperHash, r.Value)
	if err != nil {
		return Result{}, err
	}
	res := Result{Rating: r, Previous: prev}

	switch {
	case r.Value > 2:
		res.Status = StatusNotRequested
	case prev == r.Value:
		res.Status = StatusUnchanged
	default:
		replacement, err := e.replace(ctx, project)
		if err != nil {
			metrics.Replacements.WithLabelValues("error").Inc()
			return res, fmt.Errorf("%w: %w", ErrReplacementSearch, err)
		}
		res.Replacement = replacement
		res.Status = StatusNoReplacement
		if replacement != nil {
			res.Status = StatusReplaced
		}
	}

	metrics.Replacements.WithLabelValues(string(res.Status)).Inc()
	e.logger.Info("rating recorded",
		zap.String("project", r.ProjectID),
		zap.String("paper", r.PaperHash),
		zap.Int("rating", r.Value),
		zap.Int("previous", prev),
		zap.String("status", string(res.Status)))
	return res, nil
}

// replace walks candidates best-first and claims the first one above the
// threshold that no concurrent caller has claimed.
func (e *Engine) replace(ctx context.Context, project types.Project) (*types.Paper, error) {
	cands, err := e.cands.Candidates(ctx, project, nil, e.pool)
	if err != nil {
		return nil, err
	}
	for _, c := range cands {
		if c.Score < e.minScore {
			break
		}
		ok, err := e.store.ClaimSeen(ctx, project.ID, c.Hash, c.Excerpt(types.SummaryLength))
		if err != nil {
			return nil, err
		}
		if ok {
			return &c, nil
		}
		e.logger.Debug("replacement candidate already claimed", zap.String("paper", c.Hash))
	}
	return nil, nil
}
