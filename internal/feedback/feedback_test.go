// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedback

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/paper-recommender/internal/store"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// rankedCandidates serves a fixed similarity ranking, minus whatever the
// store already records as seen.
type rankedCandidates struct {
	store  *store.Store
	ranked []types.Paper
	err    error

	mu    sync.Mutex
	calls int
}

func (r *rankedCandidates) Candidates(ctx context.Context, project types.Project, _ []string, limit int) ([]types.Paper, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	seen, err := r.store.SeenHashes(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	var out []types.Paper
	for _, p := range r.ranked {
		if len(out) == limit {
			break
		}
		if !slices.Contains(seen, p.Hash) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *rankedCandidates) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func ranked(n int, top float64) []types.Paper {
	out := make([]types.Paper, n)
	for i := range out {
		out[i] = types.Paper{
			Hash:     fmt.Sprintf("h%02d", i),
			Title:    fmt.Sprintf("Paper %d", i),
			Abstract: "An abstract.",
			Score:    top - float64(i)*0.01,
		}
	}
	return out
}

type fixture struct {
	engine  *Engine
	store   *store.Store
	cands   *rankedCandidates
	project types.Project
}

func newFixture(t *testing.T, papers []types.Paper) *fixture {
	t.Helper()
	s, err := store.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	project, err := s.CreateProject(context.Background(), "Folding", "Protein structure prediction", nil)
	require.NoError(t, err)

	cands := &rankedCandidates{store: s, ranked: papers}
	cfg := types.RetrievalConfig{ReplacementPool: 10, MinReplacementScore: 0.35}
	return &fixture{
		engine:  New(s, cands, cfg, zaptest.NewLogger(t)),
		store:   s,
		cands:   cands,
		project: project,
	}
}

func (f *fixture) deliver(t *testing.T, papers []types.Paper) {
	t.Helper()
	var pps []types.ProjectPaper
	for _, p := range papers {
		pps = append(pps, types.ProjectPaper{PaperHash: p.Hash, Summary: p.Title})
	}
	require.NoError(t, f.store.MarkSeen(context.Background(), f.project.ID, pps))
}

func (f *fixture) seenCount(t *testing.T) int {
	t.Helper()
	seen, err := f.store.SeenHashes(context.Background(), f.project.ID)
	require.NoError(t, err)
	return len(seen)
}

func TestLowRatingServesOneUnseenReplacement(t *testing.T) {
	papers := ranked(40, 0.9)
	f := newFixture(t, papers)
	f.deliver(t, papers[:20])
	require.Equal(t, 20, f.seenCount(t))

	res, err := f.engine.Rate(context.Background(), Rating{ProjectID: f.project.ID, PaperHash: "h03", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusReplaced, res.Status)
	require.NotNil(t, res.Replacement)
	assert.Equal(t, "h20", res.Replacement.Hash, "best unseen candidate")
	assert.Equal(t, 21, f.seenCount(t))

	pps, err := f.store.ProjectPapers(context.Background(), f.project.ID)
	require.NoError(t, err)
	for _, pp := range pps {
		switch pp.PaperHash {
		case "h03":
			assert.Equal(t, 1, pp.Rating)
		case "h20":
			assert.True(t, pp.Seen)
			assert.Equal(t, "An abstract.", pp.Summary)
		}
	}
}

func TestRatingOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		papers []types.Paper
		value  int
		want   Status
	}{
		{"high rating", ranked(3, 0.9), 5, StatusNotRequested},
		{"neutral rating", ranked(3, 0.9), 3, StatusNotRequested},
		{"low rating", ranked(3, 0.9), 2, StatusReplaced},
		{"below threshold", ranked(3, 0.34), 1, StatusNoReplacement},
		{"nothing unseen", nil, 1, StatusNoReplacement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.papers)
			res, err := f.engine.Rate(context.Background(), Rating{ProjectID: f.project.ID, PaperHash: "rated", Value: tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.want == StatusReplaced, res.Replacement != nil)
			if tt.want == StatusNotRequested {
				assert.Zero(t, f.cands.callCount(), "no search for ratings of 3 or more")
			}
		})
	}
}

func TestThresholdStopsAtFirstWeakCandidate(t *testing.T) {
	papers := []types.Paper{
		{Hash: "weak", Score: 0.2},
		{Hash: "strong", Score: 0.8},
	}
	f := newFixture(t, papers)
	res, err := f.engine.Rate(context.Background(), Rating{ProjectID: f.project.ID, PaperHash: "rated", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusNoReplacement, res.Status, "candidates arrive best-first")
}

func TestRepeatedLowRatingIsUnchanged(t *testing.T) {
	f := newFixture(t, ranked(5, 0.9))
	ctx := context.Background()
	r := Rating{ProjectID: f.project.ID, PaperHash: "rated", Value: 2}

	first, err := f.engine.Rate(ctx, r)
	require.NoError(t, err)
	require.Equal(t, StatusReplaced, first.Status)
	seen := f.seenCount(t)

	again, err := f.engine.Rate(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, StatusUnchanged, again.Status)
	assert.Equal(t, 2, again.Previous)
	assert.Nil(t, again.Replacement)
	assert.Equal(t, seen, f.seenCount(t))
	assert.Equal(t, 1, f.cands.callCount())

	lower, err := f.engine.Rate(ctx, Rating{ProjectID: f.project.ID, PaperHash: "rated", Value: 1})
	require.NoError(t, err)
	assert.Equal(t, StatusReplaced, lower.Status, "a changed low rating searches again")
}

func TestConcurrentRatingsNeverShareAReplacement(t *testing.T) {
	f := newFixture(t, ranked(1, 0.9))
	ctx := context.Background()

	const raters = 4
	results := make([]Result, raters)
	var wg sync.WaitGroup
	for i := range raters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.Rate(ctx, Rating{ProjectID: f.project.ID, PaperHash: fmt.Sprintf("rated-%d", i), Value: 1})
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	wg.Wait()

	replaced := 0
	for _, r := range results {
		if r.Status == StatusReplaced {
			replaced++
			assert.Equal(t, "h00", r.Replacement.Hash)
		} else {
			assert.Equal(t, StatusNoReplacement, r.Status)
		}
	}
	assert.Equal(t, 1, replaced)
}

func TestInvalidRating(t *testing.T) {
	f := newFixture(t, nil)
	for _, r := range []Rating{
		{ProjectID: f.project.ID, PaperHash: "x", Value: 0},
		{ProjectID: f.project.ID, PaperHash: "x", Value: 6},
		{ProjectID: f.project.ID, PaperHash: "  ", Value: 3},
	} {
		_, err := f.engine.Rate(context.Background(), r)
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
	assert.Zero(t, f.seenCount(t), "nothing persisted")
}

func TestUnknownProject(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.Rate(context.Background(), Rating{ProjectID: "missing", PaperHash: "x", Value: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSearchFailureKeepsRating(t *testing.T) {
	f := newFixture(t, nil)
	f.cands.err = errors.New("vector store down")

	res, err := f.engine.Rate(context.Background(), Rating{ProjectID: f.project.ID, PaperHash: "rated", Value: 1})
	require.ErrorIs(t, err, ErrReplacementSearch)
	assert.Equal(t, 1, res.Rating.Value)

	pps, err := f.store.ProjectPapers(context.Background(), f.project.ID)
	require.NoError(t, err)
	require.Len(t, pps, 1)
	assert.Equal(t, 1, pps[0].Rating)
}
