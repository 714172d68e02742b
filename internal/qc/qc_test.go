// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qc

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-recommender/internal/llm"
)

// scriptedJudge answers judgments in order and records the prompts it saw.
type scriptedJudge struct {
	answers []string
	errAt   int
	err     error
	prompts []string
}

func (s *scriptedJudge) Judge(_ context.Context, r llm.Request) (json.RawMessage, error) {
	s.prompts = append(s.prompts, r.Prompt)
	i := len(s.prompts) - 1
	if s.err != nil && i == s.errAt {
		return nil, s.err
	}
	if i >= len(s.answers) {
		return nil, errors.New("unexpected judgment")
	}
	return json.RawMessage(s.answers[i]), nil
}

var testInput = Input{
	Query:    "transformers and protein folding and climate models",
	Keywords: []string{"transformer architectures", "protein structure prediction"},
}

func TestRunAcceptKeepsKeywords(t *testing.T) {
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "accept", "justification": "Specific enough."}`,
	}}

	out, err := NewEngine(j).Run(context.Background(), testInput)
	require.NoError(t, err)

	assert.Equal(t, Accept, out.Decision.Label)
	assert.Nil(t, out.Decision.Tool)
	assert.Equal(t, testInput.Keywords, out.Keywords)
	assert.Equal(t, testInput.Query, out.Query)
	assert.False(t, out.HasFilterInstructions)
	assert.Len(t, j.prompts, 2)
	assert.Contains(t, j.prompts[0], "constraints", "filter detection must run first")
}

func TestRunToolVariantsOverwriteKeywords(t *testing.T) {
	for _, label := range []Label{Reformulate, Broaden, Narrow} {
		t.Run(string(label), func(t *testing.T) {
			j := &scriptedJudge{answers: []string{
				`{"has_filter_instructions": true}`,
				`{"decision": "` + string(label) + `", "justification": "needs work"}`,
				`{"query": "rewritten query", "keywords": ["new phrase one", "new phrase two"]}`,
			}}
			out, err := NewEngine(j).Run(context.Background(), testInput)
			require.NoError(t, err)

			assert.Equal(t, label, out.Decision.Label)
			require.NotNil(t, out.Decision.Tool)
			assert.Equal(t, []string{"new phrase one", "new phrase two"}, out.Keywords)
			assert.Equal(t, "rewritten query", out.Query)
			assert.NotEmpty(t, out.Decision.Tool.Raw)
			assert.Len(t, j.prompts, 3, "exactly one tool must run")
		})
	}
}

func TestRunToolOutputKeepsOnlyTheJSONObject(t *testing.T) {
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "broaden", "justification": "too narrow"}`,
		"Here is the rewrite:\n```json\n{\"query\": \"wider\", \"keywords\": [\"broad phrase\"]}\n```\nHope this helps.",
	}}
	out, err := NewEngine(j).Run(context.Background(), testInput)
	require.NoError(t, err)

	raw := out.Decision.Tool.Raw
	require.True(t, json.Valid(raw), "tool output %q is not JSON", raw)
	assert.JSONEq(t, `{"query": "wider", "keywords": ["broad phrase"]}`, string(raw))
}

func TestRunSplitFilterFlagStands(t *testing.T) {
	// QC splits the query although filter detection found no instructions;
	// the detection result is kept as is.
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "split", "justification": "three topics"}`,
		`{"query": "combined", "keywords": ["transformers for protein folding", "climate model emulation"],
		  "sub_queries": ["transformers for protein folding", "deep learning climate models"]}`,
	}}
	out, err := NewEngine(j).Run(context.Background(), testInput)
	require.NoError(t, err)

	assert.False(t, out.HasFilterInstructions)
	assert.Equal(t, Split, out.Decision.Label)
	assert.Len(t, out.Decision.Tool.SubQueries, 2)
	assert.Equal(t, []string{"transformers for protein folding", "climate model emulation"}, out.Keywords)
}

func TestRunSplitNeedsTwoSubQueries(t *testing.T) {
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "split", "justification": "x"}`,
		`{"query": "q", "keywords": ["a phrase"], "sub_queries": ["only one"]}`,
	}}
	_, err := NewEngine(j).Run(context.Background(), testInput)
	require.ErrorIs(t, err, llm.ErrMalformed)
}

func TestRunReject(t *testing.T) {
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "reject", "justification": "This asks for a recipe, not papers."}`,
	}}
	out, err := NewEngine(j).Run(context.Background(), testInput)
	require.NoError(t, err)
	assert.True(t, out.Rejected())
	assert.Equal(t, "This asks for a recipe, not papers.", out.Decision.Justification)
	assert.Len(t, j.prompts, 2)
}

func TestRunUnknownDecisionIsToolUnavailable(t *testing.T) {
	j := &scriptedJudge{answers: []string{
		`{"has_filter_instructions": false}`,
		`{"decision": "summarize", "justification": "?"}`,
	}}
	_, err := NewEngine(j).Run(context.Background(), testInput)
	require.ErrorIs(t, err, ErrToolUnavailable)
}

func TestRunNeverFallsBackToAccept(t *testing.T) {
	tests := []struct {
		name  string
		judge *scriptedJudge
	}{
		{"filter detection fails", &scriptedJudge{errAt: 0, err: errors.New("timeout")}},
		{"filter detection malformed", &scriptedJudge{answers: []string{`{"something": 1}`}}},
		{"decision fails", &scriptedJudge{answers: []string{`{"has_filter_instructions": true}`}, errAt: 1, err: errors.New("timeout")}},
		{"decision missing", &scriptedJudge{answers: []string{`{"has_filter_instructions": true}`, `{"justification": "x"}`}}},
		{"tool fails", &scriptedJudge{answers: []string{
			`{"has_filter_instructions": true}`, `{"decision": "narrow", "justification": "x"}`,
		}, errAt: 2, err: errors.New("timeout")}},
		{"tool without keywords", &scriptedJudge{answers: []string{
			`{"has_filter_instructions": true}`, `{"decision": "broaden", "justification": "x"}`, `{"query": "q", "keywords": []}`,
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewEngine(tt.judge).Run(context.Background(), testInput)
			require.Error(t, err)
			assert.Equal(t, Outcome{}, out)
		})
	}
}
