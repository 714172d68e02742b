// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieve produces the raw, similarity-ordered candidate list for a
// project. It embeds the project profile, seeds the vector index from a
// metadata keyword search, queries the index excluding papers the project
// has already seen, and hydrates each hit with bibliographic metadata.
package retrieve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-recommender/internal/llm"
	"github.com/pdiddy/paper-recommender/internal/vector"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// embedConcurrency bounds parallel embedding calls while seeding.
const embedConcurrency = 4

// PaperStore is the relational state retrieval reads and writes.
type PaperStore interface {
	Profile(ctx context.Context, projectID, fingerprint string) ([]float32, bool, error)
	PutProfile(ctx context.Context, projectID, fingerprint string, vec []float32) error
	SeenHashes(ctx context.Context, projectID string) ([]string, error)
	Papers(ctx context.Context, hashes []string, maxAge time.Duration) (map[string]types.Paper, error)
	UpsertPapers(ctx context.Context, papers []types.Paper) error
}

// Metadata is the bibliographic metadata API.
type Metadata interface {
	Search(ctx context.Context, keywords []string, perPage, page int) ([]types.Paper, error)
	Works(ctx context.Context, ids []string) ([]types.Paper, error)
}

// Params selects one retrieval.
type Params struct {
	Project  types.Project
	Keywords []string

	// HasFilters selects the larger candidate pool.
	HasFilters bool

	// Offset skips that many eligible hits, for load-more.
	Offset int

	// Page is the 1-based metadata search page used for seeding. Zero
	// disables seeding.
	Page int

	// Exclude adds hashes to the project's seen set for this query only.
	Exclude []string
}

// Engine runs retrievals.
type Engine struct {
	store    PaperStore
	vectors  vector.Store
	embedder llm.Embedder
	meta     Metadata
	cfg      types.RetrievalConfig
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCacheTTL sets how long cached metadata is trusted.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) { e.cacheTTL = d }
}

// New returns an engine.
func New(store PaperStore, vectors vector.Store, embedder llm.Embedder, meta Metadata, cfg types.RetrievalConfig, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		vectors:  vectors,
		embedder: embedder,
		meta:     meta,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Depth returns the candidate pool size for a query.
func (e *Engine) Depth(hasFilters bool) int {
	if hasFilters {
		return max(e.cfg.FilterDepth, 1)
	}
	return max(e.cfg.BaseDepth, 1)
}

// Retrieve returns up to Depth(p.HasFilters) unseen candidates ordered by
// descending similarity. An empty result is not an error.
func (e *Engine) Retrieve(ctx context.Context, p Params) ([]types.Paper, error) {
	profile, err := e.Profile(ctx, p.Project, p.Keywords)
	if err != nil {
		return nil, err
	}

	depth := e.Depth(p.HasFilters)
	if p.Page > 0 {
		if err := e.seed(ctx, p.Keywords, depth, p.Page); err != nil {
			return nil, err
		}
	}

	seen, err := e.store.SeenHashes(ctx, p.Project.ID)
	if err != nil {
		return nil, err
	}
	matches, err := e.vectors.Search(ctx, vector.Query{
		Vector:  profile,
		Limit:   depth,
		Offset:  p.Offset,
		Exclude: append(seen, p.Exclude...),
	})
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	papers, err := e.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("retrieved candidates",
		zap.String("project", p.Project.ID),
		zap.Int("depth", depth),
		zap.Int("excluded", len(seen)+len(p.Exclude)),
		zap.Int("matches", len(matches)),
		zap.Int("hydrated", len(papers)))
	return papers, nil
}

// Candidates returns up to limit unseen papers from the project's profile
// space without seeding. The replacement engine uses it.
func (e *Engine) Candidates(ctx context.Context, project types.Project, keywords []string, limit int) ([]types.Paper, error) {
	profile, err := e.Profile(ctx, project, keywords)
	if err != nil {
		return nil, err
	}
	seen, err := e.store.SeenHashes(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	matches, err := e.vectors.Search(ctx, vector.Query{Vector: profile, Limit: limit, Exclude: seen})
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}
	return e.hydrate(ctx, matches)
}

// ProfileText is the text embedded as a project's profile.
func ProfileText(project types.Project, keywords []string) string {
	text := strings.TrimSpace(project.Description)
	if len(keywords) > 0 {
		text += "\n\nKeywords: " + strings.Join(keywords, "; ")
	}
	return text
}

// Fingerprint identifies the profile text; a changed description or
// keyword list yields a new fingerprint.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// Profile returns the cached profile embedding or computes and caches it.
func (e *Engine) Profile(ctx context.Context, project types.Project, keywords []string) ([]float32, error) {
	text := ProfileText(project, keywords)
	fp := Fingerprint(text)

	vec, ok, err := e.store.Profile(ctx, project.ID, fp)
	if err != nil {
		return nil, err
	}
	if ok {
		return vec, nil
	}

	vec, err = e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding project profile: %w", err)
	}
	if err := e.store.PutProfile(ctx, project.ID, fp, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// seed indexes keyword search results that are not yet in the vector store.
func (e *Engine) seed(ctx context.Context, keywords []string, perPage, page int) error {
	found, err := e.meta.Search(ctx, keywords, perPage, page)
	if err != nil {
		return fmt.Errorf("seeding from metadata search: %w", err)
	}
	if len(found) == 0 {
		return nil
	}
	if err := e.store.UpsertPapers(ctx, found); err != nil {
		return err
	}

	hashes := make([]string, len(found))
	for i, p := range found {
		hashes[i] = p.Hash
	}
	embedded, err := e.vectors.Has(ctx, hashes)
	if err != nil {
		return fmt.Errorf("checking vector index: %w", err)
	}

	var pending []types.Paper
	for _, p := range found {
		if !embedded[p.Hash] {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	points := make([]vector.Point, len(pending))
	g, gc := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, p := range pending {
		g.Go(func() error {
			vec, err := e.embedder.Embed(gc, p.EmbeddingText())
			if err != nil {
				return fmt.Errorf("embedding paper %s: %w", p.Hash, err)
			}
			points[i] = vector.Point{Hash: p.Hash, Vector: vec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.vectors.Upsert(ctx, points); err != nil {
		return fmt.Errorf("indexing papers: %w", err)
	}
	e.logger.Debug("seeded vector index", zap.Int("found", len(found)), zap.Int("indexed", len(points)))
	return nil
}

// hydrate attaches metadata to matches, from the cache when fresh and from
// the metadata API otherwise. Order and scores follow matches. Hits whose
// metadata cannot be found anywhere are dropped.
func (e *Engine) hydrate(ctx context.Context, matches []vector.Match) ([]types.Paper, error) {
	if len(matches) == 0 {
		return nil, nil
	}
	hashes := make([]string, len(matches))
	for i, m := range matches {
		hashes[i] = m.Hash
	}

	fresh, err := e.store.Papers(ctx, hashes, e.cacheTTL)
	if err != nil {
		return nil, err
	}

	if len(fresh) < len(hashes) {
		if err := e.refresh(ctx, hashes, fresh); err != nil {
			return nil, err
		}
	}

	out := make([]types.Paper, 0, len(matches))
	for _, m := range matches {
		p, ok := fresh[m.Hash]
		if !ok {
			e.logger.Warn("dropping hit without metadata", zap.String("hash", m.Hash))
			continue
		}
		p.Score = m.Score
		out = append(out, p)
	}
	return out, nil
}

// refresh looks up stale or missing entries by OpenAlex ID and fills fresh.
// Entries with no OpenAlex ID fall back to whatever the cache holds.
func (e *Engine) refresh(ctx context.Context, hashes []string, fresh map[string]types.Paper) error {
	var missing []string
	for _, h := range hashes {
		if _, ok := fresh[h]; !ok {
			missing = append(missing, h)
		}
	}
	stale, err := e.store.Papers(ctx, missing, 0)
	if err != nil {
		return err
	}

	var ids []string
	for _, h := range missing {
		if p, ok := stale[h]; ok && p.OpenAlexID != "" {
			ids = append(ids, p.OpenAlexID)
		}
	}
	if len(ids) > 0 {
		updated, err := e.meta.Works(ctx, ids)
		if err != nil {
			return fmt.Errorf("hydrating metadata: %w", err)
		}
		if err := e.store.UpsertPapers(ctx, updated); err != nil {
			return err
		}
		for _, p := range updated {
			fresh[p.Hash] = p
		}
	}
	for _, h := range missing {
		if _, ok := fresh[h]; !ok {
			if p, ok := stale[h]; ok {
				fresh[h] = p
			}
		}
	}
	return nil
}
