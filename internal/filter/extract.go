// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/paper-recommender/internal/llm"
)

// Extractor turns filter instructions in a query into Criteria.
type Extractor struct {
	judge llm.Judge
}

// NewExtractor returns an extractor backed by judge.
func NewExtractor(judge llm.Judge) *Extractor {
	return &Extractor{judge: judge}
}

type extractResponse struct {
	Authors         []string          `json:"authors"`
	DateFrom        string            `json:"date_from"`
	DateTo          string            `json:"date_to"`
	MinFWCI         *float64          `json:"min_fwci"`
	MaxFWCI         *float64          `json:"max_fwci"`
	MinPercentile   *float64          `json:"min_percentile"`
	MinCitations    *int              `json:"min_citations"`
	YearlyCitations []YearlyCitations `json:"yearly_citations"`
	MinScore        *float64          `json:"min_score"`
}

// Extract asks the judgment service for the constraints stated in query.
func (e *Extractor) Extract(ctx context.Context, query string) (Criteria, error) {
	prompt, err := llm.Render(extractPromptTmpl, struct{ Query string }{query})
	if err != nil {
		return Criteria{}, err
	}
	var resp extractResponse
	if err := llm.Decode(ctx, e.judge, llm.Request{Prompt: prompt, Schema: extractSchema}, &resp); err != nil {
		return Criteria{}, fmt.Errorf("extracting filters: %w", err)
	}
	return resp.criteria()
}

func (r extractResponse) criteria() (Criteria, error) {
	c := Criteria{
		MinFWCI:       r.MinFWCI,
		MaxFWCI:       r.MaxFWCI,
		MinPercentile: r.MinPercentile,
		MinCitations:  r.MinCitations,
		MinScore:      r.MinScore,
	}
	for _, a := range r.Authors {
		if a = strings.TrimSpace(a); a != "" {
			c.Authors = append(c.Authors, a)
		}
	}
	for _, yc := range r.YearlyCitations {
		if yc.Year > 0 {
			c.YearlyCitations = append(c.YearlyCitations, yc)
		}
	}

	var err error
	if c.DateFrom, err = parseDate(r.DateFrom, false); err != nil {
		return Criteria{}, err
	}
	if c.DateTo, err = parseDate(r.DateTo, true); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

// parseDate accepts YYYY-MM-DD or a bare year. A bare year expands to its
// first day, or its last day when endOfPeriod is set.
func parseDate(s string, endOfPeriod bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006", s)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable date %q", llm.ErrMalformed, s)
	}
	if endOfPeriod {
		t = t.AddDate(1, 0, -1)
	}
	return &t, nil
}
