// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scope decides whether a query is an answerable academic literature
// search and extracts the keyword phrases that drive retrieval.
package scope

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-recommender/internal/llm"
)

const (
	// MinKeywords and MaxKeywords bound the keyword phrases of a valid query.
	MinKeywords = 2
	MaxKeywords = 5
)

// Result is either Valid or OutOfScope.
type Result interface {
	isResult()
}

// Valid is an in-scope query with its extracted keyword phrases.
type Valid struct {
	Keywords []string `json:"keywords"`
}

// OutOfScope is a query the service will not answer. It is a normal
// terminal outcome, not an error.
type OutOfScope struct {
	ShortExplanation string `json:"short_explanation"`
	Explanation      string `json:"explanation"`
	Suggestion       string `json:"suggestion"`
}

func (Valid) isResult()      {}
func (OutOfScope) isResult() {}

// Classifier labels queries with the judgment service.
type Classifier struct {
	judge llm.Judge
}

// NewClassifier returns a classifier backed by judge.
func NewClassifier(judge llm.Judge) *Classifier {
	return &Classifier{judge: judge}
}

type classifyResponse struct {
	Valid            bool     `json:"valid"`
	Keywords         []string `json:"keywords"`
	ShortExplanation string   `json:"short_explanation"`
	Explanation      string   `json:"explanation"`
	Suggestion       string   `json:"suggestion"`
}

// Classify returns Valid or OutOfScope. A judgment service failure or a
// malformed answer is returned as an error, never as OutOfScope.
func (c *Classifier) Classify(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return OutOfScope{
			ShortExplanation: "Empty query",
			Explanation:      "The query is empty, so there is nothing to search for.",
			Suggestion:       "Describe the research topic you want papers about.",
		}, nil
	}

	prompt, err := llm.Render(classifyPromptTmpl, struct{ Query string }{query})
	if err != nil {
		return nil, err
	}

	var resp classifyResponse
	if err := llm.Decode(ctx, c.judge, llm.Request{Prompt: prompt, Schema: classifySchema}, &resp); err != nil {
		return nil, fmt.Errorf("classifying query: %w", err)
	}

	if !resp.Valid {
		out := OutOfScope{
			ShortExplanation: strings.TrimSpace(resp.ShortExplanation),
			Explanation:      strings.TrimSpace(resp.Explanation),
			Suggestion:       strings.TrimSpace(resp.Suggestion),
		}
		if out.ShortExplanation == "" {
			return nil, fmt.Errorf("classifying query: %w: out-of-scope answer without explanation", llm.ErrMalformed)
		}
		return out, nil
	}

	keywords := CleanKeywords(resp.Keywords)
	if len(keywords) < MinKeywords {
		return nil, fmt.Errorf("classifying query: %w: %d usable keyword(s), need at least %d",
			llm.ErrMalformed, len(keywords), MinKeywords)
	}
	return Valid{Keywords: keywords}, nil
}

// CleanKeywords trims, de-duplicates case-insensitively, drops empty and
// single-character phrases, and caps the list at MaxKeywords.
func CleanKeywords(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, kw := range in {
		kw = strings.Join(strings.Fields(kw), " ")
		if len(kw) < 2 {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}
