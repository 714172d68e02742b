// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-recommender/internal/llm"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func candidates() []types.Paper {
	return []types.Paper{
		{Hash: "a", Title: "A", FWCI: 0.5, PublicationDate: date(2021, 3, 1), CitedByCount: 10, Authors: []string{"Geoffrey Hinton"}},
		{Hash: "b", Title: "B", FWCI: 1.2, PublicationDate: date(2019, 6, 1), CitedByCount: 80, Authors: []string{"Yann LeCun"}},
		{Hash: "c", Title: "C", FWCI: 1.73, PublicationDate: date(2022, 1, 15), CitedByCount: 40, Authors: []string{"Yoshua Bengio"}},
		{Hash: "d", Title: "D", FWCI: 0.9, PublicationDate: date(2020, 5, 5), CitedByCount: 5,
			CountsByYear: []types.YearCount{{Year: 2023, CitedByCount: 3}}},
		{Hash: "e", Title: "E", FWCI: 1.1, PublicationDate: date(2018, 11, 20), CitedByCount: 120,
			CountsByYear: []types.YearCount{{Year: 2023, CitedByCount: 30}}},
	}
}

func hashes(ps []types.Paper) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Hash)
	}
	return out
}

func TestApplyEmptyCriteriaPassesEverything(t *testing.T) {
	in := candidates()
	assert.Equal(t, in, Apply(in, Criteria{}))
}

func TestApplyIsConjunctive(t *testing.T) {
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"date only", Criteria{DateFrom: ptr(date(2020, 1, 1))}, []string{"a", "c", "d"}},
		{"fwci only", Criteria{MinFWCI: ptr(1.0)}, []string{"b", "c", "e"}},
		{"date and fwci", Criteria{DateFrom: ptr(date(2020, 1, 1)), MinFWCI: ptr(1.0)}, []string{"c"}},
		{"date range", Criteria{DateFrom: ptr(date(2019, 1, 1)), DateTo: ptr(date(2020, 12, 31))}, []string{"b", "d"}},
		{"max fwci", Criteria{MaxFWCI: ptr(0.9)}, []string{"a", "d"}},
		{"min citations", Criteria{MinCitations: ptr(50)}, []string{"b", "e"}},
		{"yearly citations", Criteria{YearlyCitations: []YearlyCitations{{Year: 2023, Min: 10}}}, []string{"e"}},
		{"author surname", Criteria{Authors: []string{"hinton"}}, []string{"a"}},
		{"author full name", Criteria{Authors: []string{"Yann LeCun"}}, []string{"b"}},
		{"two authors", Criteria{Authors: []string{"Hinton", "LeCun"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hashes(Apply(candidates(), tt.c)))
		})
	}
}

func TestApplyRemovingCriterionNeverShrinksResult(t *testing.T) {
	full := Criteria{
		DateFrom:     ptr(date(2019, 1, 1)),
		MinFWCI:      ptr(1.0),
		MinCitations: ptr(30),
	}
	base := len(Apply(candidates(), full))

	relaxed := []Criteria{
		{MinFWCI: full.MinFWCI, MinCitations: full.MinCitations},
		{DateFrom: full.DateFrom, MinCitations: full.MinCitations},
		{DateFrom: full.DateFrom, MinFWCI: full.MinFWCI},
	}
	for _, c := range relaxed {
		assert.GreaterOrEqual(t, len(Apply(candidates(), c)), base)
	}
}

func TestExplainNoCandidates(t *testing.T) {
	// "machine learning in healthcare after 2018" retrieving nothing.
	c := Criteria{DateFrom: ptr(date(2019, 1, 1))}
	exp := Explain(nil, c)

	assert.True(t, exp.NoCandidates)
	assert.Zero(t, exp.Retrieved)
	assert.Empty(t, exp.Criteria, "no closest-value table without candidates")
	assert.Contains(t, exp.Message, "No candidate papers were retrieved")
	assert.Contains(t, exp.Message, "2019-01-01")
}

func TestExplainClosestValueAndDirection(t *testing.T) {
	c := Criteria{MinFWCI: ptr(2.0), DateFrom: ptr(date(2020, 1, 1))}
	raw := candidates()
	require.Empty(t, Apply(raw, c))

	exp := Explain(raw, c)
	assert.False(t, exp.NoCandidates)
	assert.Equal(t, 5, exp.Retrieved)
	require.Len(t, exp.Criteria, 2)

	dateReport, fwciReport := exp.Criteria[0], exp.Criteria[1]

	assert.Equal(t, "fwci", fwciReport.Field)
	assert.Equal(t, OpAtLeast, fwciReport.Operator)
	assert.Equal(t, "2.00", fwciReport.Threshold)
	assert.Equal(t, 0, fwciReport.Matched)
	assert.Equal(t, "1.73", fwciReport.Closest)
	assert.Equal(t, RelaxLower, fwciReport.Relax)

	assert.Equal(t, "publication_date", dateReport.Field)
	assert.Equal(t, 3, dateReport.Matched)
	assert.Equal(t, "2019-06-01", dateReport.Closest, "dates compare as dates")
	assert.Equal(t, RelaxLower, dateReport.Relax)

	assert.Contains(t, exp.Message, "closest value is 1.73, try a lower threshold")
	assert.Contains(t, exp.Message, "closest value is 2019-06-01, try a lower threshold")
}

func TestExplainEachCriterionMatchesAloneButNotTogether(t *testing.T) {
	raw := []types.Paper{
		{Hash: "a", FWCI: 3.0, PublicationDate: date(2015, 1, 1)},
		{Hash: "b", FWCI: 1.5, PublicationDate: date(2021, 1, 1)},
	}
	c := Criteria{MinFWCI: ptr(2.0), DateFrom: ptr(date(2020, 1, 1))}
	require.Empty(t, Apply(raw, c))

	exp := Explain(raw, c)
	require.Len(t, exp.Criteria, 2)

	tests := []struct {
		field   string
		closest string
	}{
		{"publication_date", "2015-01-01"},
		{"fwci", "1.50"},
	}
	for i, tt := range tests {
		r := exp.Criteria[i]
		assert.Equal(t, tt.field, r.Field)
		assert.Equal(t, 1, r.Matched)
		assert.Equal(t, tt.closest, r.Closest)
		assert.Equal(t, RelaxLower, r.Relax)
		assert.Contains(t, exp.Message, "closest value is "+tt.closest+", try a lower threshold")
	}
}

func TestExplainMaxThresholdRelaxesHigher(t *testing.T) {
	exp := Explain(candidates(), Criteria{MaxFWCI: ptr(0.3)})
	require.Len(t, exp.Criteria, 1)
	assert.Equal(t, "0.50", exp.Criteria[0].Closest)
	assert.Equal(t, RelaxHigher, exp.Criteria[0].Relax)
}

func TestExplainAuthorHasNoClosestValue(t *testing.T) {
	exp := Explain(candidates(), Criteria{Authors: []string{"Turing"}})
	require.Len(t, exp.Criteria, 1)
	r := exp.Criteria[0]
	assert.Equal(t, OpAuthored, r.Operator)
	assert.Equal(t, "Turing", r.Threshold)
	assert.Empty(t, r.Closest)
	assert.Contains(t, exp.Message, "try removing this author")
}

type stubJudge struct {
	answer string
	err    error
}

func (s stubJudge) Judge(context.Context, llm.Request) (json.RawMessage, error) {
	return json.RawMessage(s.answer), s.err
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    Criteria
		wantErr error
	}{
		{
			name:   "after a year",
			answer: `{"date_from": "2019-01-01"}`,
			want:   Criteria{DateFrom: ptr(date(2019, 1, 1))},
		},
		{
			name:   "bare years expand to period bounds",
			answer: `{"date_from": "2015", "date_to": "2020"}`,
			want:   Criteria{DateFrom: ptr(date(2015, 1, 1)), DateTo: ptr(date(2020, 12, 31))},
		},
		{
			name:   "metrics and authors",
			answer: `{"authors": [" Hinton ", ""], "min_fwci": 2, "min_percentile": 90, "yearly_citations": [{"year": 2023, "min": 50}, {"year": 0, "min": 1}]}`,
			want: Criteria{
				Authors:         []string{"Hinton"},
				MinFWCI:         ptr(2.0),
				MinPercentile:   ptr(90.0),
				YearlyCitations: []YearlyCitations{{Year: 2023, Min: 50}},
			},
		},
		{name: "bad date", answer: `{"date_from": "last spring"}`, wantErr: llm.ErrMalformed},
		{name: "not json", answer: `no filters here`, wantErr: llm.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor(stubJudge{answer: tt.answer}).Extract(context.Background(), "q")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPropagatesUpstreamError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewExtractor(stubJudge{err: boom}).Extract(context.Background(), "q")
	require.ErrorIs(t, err, boom)
}
