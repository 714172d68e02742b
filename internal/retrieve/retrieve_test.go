// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieve

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-recommender/internal/store"
	"github.com/pdiddy/paper-recommender/internal/vector"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// topicEmbedder maps text onto three topic axes so similarity is predictable.
type topicEmbedder struct {
	mu    sync.Mutex
	calls map[string]int
}

func (e *topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	if e.calls == nil {
		e.calls = map[string]int{}
	}
	e.calls[text]++
	e.mu.Unlock()

	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "protein")),
		float32(strings.Count(lower, "climate")),
		float32(strings.Count(lower, "vision")),
		0.1,
	}, nil
}

func (e *topicEmbedder) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

type fakeMetadata struct {
	papers     []types.Paper
	searchErr  error
	worksCalls [][]string
	citations  int
}

func (m *fakeMetadata) Search(_ context.Context, _ []string, perPage, _ int) ([]types.Paper, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.papers[:min(perPage, len(m.papers))], nil
}

func (m *fakeMetadata) Works(_ context.Context, ids []string) ([]types.Paper, error) {
	m.worksCalls = append(m.worksCalls, ids)
	var out []types.Paper
	for _, p := range m.papers {
		for _, id := range ids {
			if p.OpenAlexID == id {
				p.CitedByCount = m.citations
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func corpus() []types.Paper {
	return []types.Paper{
		{Hash: "p1", OpenAlexID: "W1", Title: "Protein folding with protein language models"},
		{Hash: "p2", OpenAlexID: "W2", Title: "Protein structure and climate"},
		{Hash: "c1", OpenAlexID: "W3", Title: "Climate emulators"},
		{Hash: "v1", OpenAlexID: "W4", Title: "Vision transformers"},
		{Hash: "p3", OpenAlexID: "W5", Title: "Protein design"},
	}
}

type fixture struct {
	engine  *Engine
	store   *store.Store
	vectors *vector.Memory
	embed   *topicEmbedder
	meta    *fakeMetadata
	project types.Project
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	project, err := s.CreateProject(context.Background(), "Folding", "Protein structure prediction", nil)
	require.NoError(t, err)

	f := &fixture{
		store:   s,
		vectors: vector.NewMemory(),
		embed:   &topicEmbedder{},
		meta:    &fakeMetadata{papers: corpus()},
		project: project,
	}
	cfg := types.RetrievalConfig{BaseDepth: 2, FilterDepth: 4, ReplacementPool: 3, MinReplacementScore: 0.35}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	f.engine = New(s, f.vectors, f.embed, f.meta, cfg, opts...)
	return f
}

func hashes(ps []types.Paper) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Hash)
	}
	return out
}

func TestDepthPolicy(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 2, f.engine.Depth(false))
	assert.Equal(t, 4, f.engine.Depth(true))
}

func TestRetrieveSeedsAndOrdersBySimilarity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein folding"}, Page: 1})
	require.NoError(t, err)
	require.Len(t, got, 2, "base depth")
	assert.Equal(t, []string{"p1", "p2"}, hashes(got))
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)
	assert.Equal(t, 2, f.vectors.Len(), "seeding indexes one page of base depth")

	got, err = f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein folding"}, HasFilters: true, Page: 1})
	require.NoError(t, err)
	assert.Len(t, got, 4, "filter depth")
	assert.Equal(t, 4, f.vectors.Len())
}

func TestRetrieveExcludesSeenAtQueryTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein"}, HasFilters: true, Page: 1})
	require.NoError(t, err)

	ok, err := f.store.ClaimSeen(ctx, f.project.ID, "p1", "")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein"}})
	require.NoError(t, err)
	assert.NotContains(t, hashes(got), "p1")
	assert.Len(t, got, 2, "depth is filled with unseen papers")

	got, err = f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein"}, Exclude: []string{"p2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "v1"}, hashes(got))
}

func TestRetrieveOffsetPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := Params{Project: f.project, Keywords: []string{"protein"}, HasFilters: true, Page: 1}

	first, err := f.engine.Retrieve(ctx, params)
	require.NoError(t, err)

	params.Offset, params.Page = 2, 0
	params.HasFilters = false
	next, err := f.engine.Retrieve(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, hashes(first)[2:4], hashes(next))
}

func TestProfileIsCachedUntilDescriptionChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Profile(ctx, f.project, []string{"protein"})
	require.NoError(t, err)
	_, err = f.engine.Profile(ctx, f.project, []string{"protein"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.embed.total())

	f.project.Description = "Climate model emulation"
	require.NoError(t, f.store.UpdateProject(ctx, f.project))
	_, err = f.engine.Profile(ctx, f.project, []string{"protein"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.embed.total())
}

func TestProfileCacheHoldsKeywordAndDescriptionProfiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.engine.Profile(ctx, f.project, []string{"protein"})
		require.NoError(t, err)
		_, err = f.engine.Profile(ctx, f.project, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.embed.total(), "one embedding per distinct profile text")
}

func TestSeedingEmbedsEachPaperOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := Params{Project: f.project, Keywords: []string{"protein"}, HasFilters: true, Page: 1}

	_, err := f.engine.Retrieve(ctx, params)
	require.NoError(t, err)
	before := f.embed.total()

	_, err = f.engine.Retrieve(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, before, f.embed.total(), "no re-embedding of indexed papers or cached profile")
}

func TestRetrieveEmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)
	f.meta.papers = nil

	got, err := f.engine.Retrieve(context.Background(), Params{Project: f.project, Keywords: []string{"protein"}, Page: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieveMetadataFailureIsAnError(t *testing.T) {
	f := newFixture(t)
	f.meta.searchErr = errors.New("HTTP 503")

	_, err := f.engine.Retrieve(context.Background(), Params{Project: f.project, Keywords: []string{"protein"}, Page: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestHydrationRefreshesStaleMetadata(t *testing.T) {
	f := newFixture(t, WithCacheTTL(time.Nanosecond))
	f.meta.citations = 42
	ctx := context.Background()

	got, err := f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein"}, Page: 1})
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Len(t, f.meta.worksCalls, 1, "one batched lookup")
	assert.ElementsMatch(t, []string{"W1", "W2"}, f.meta.worksCalls[0])
	for _, p := range got {
		assert.Equal(t, 42, p.CitedByCount)
		assert.NotZero(t, p.Score)
	}
}

func TestCandidatesSkipsSeeding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.engine.Candidates(ctx, f.project, []string{"protein"}, 3)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing indexed yet")

	_, err = f.engine.Retrieve(ctx, Params{Project: f.project, Keywords: []string{"protein"}, HasFilters: true, Page: 1})
	require.NoError(t, err)

	got, err = f.engine.Candidates(ctx, f.project, []string{"protein"}, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSeedingReindexesAfterVectorStoreReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	params := Params{Project: f.project, Keywords: []string{"protein"}, HasFilters: true, Page: 1}

	first, err := f.engine.Retrieve(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// Same relational store, empty index: the cached papers must be embedded again.
	fresh := vector.NewMemory()
	cfg := types.RetrievalConfig{BaseDepth: 2, FilterDepth: 4, ReplacementPool: 3, MinReplacementScore: 0.35}
	restarted := New(f.store, fresh, f.embed, f.meta, cfg, WithLogger(zaptest.NewLogger(t)))

	got, err := restarted.Retrieve(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, hashes(first), hashes(got))
	assert.Equal(t, 4, fresh.Len())

	cands, err := restarted.Candidates(ctx, f.project, []string{"protein"}, 3)
	require.NoError(t, err)
	assert.Len(t, cands, 3)
}
