// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// YearlyCitations requires at least Min citations received in Year.
type YearlyCitations struct {
	Year int `json:"year" yaml:"year"`
	Min  int `json:"min" yaml:"min"`
}

// Criteria are structured filter constraints extracted from a query. Unset
// fields impose no constraint. All set fields must hold for a paper to pass.
type Criteria struct {
	Authors         []string          `json:"authors,omitempty" yaml:"authors,omitempty"`
	DateFrom        *time.Time        `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo          *time.Time        `json:"date_to,omitempty" yaml:"date_to,omitempty"`
	MinFWCI         *float64          `json:"min_fwci,omitempty" yaml:"min_fwci,omitempty"`
	MaxFWCI         *float64          `json:"max_fwci,omitempty" yaml:"max_fwci,omitempty"`
	MinPercentile   *float64          `json:"min_percentile,omitempty" yaml:"min_percentile,omitempty"`
	MinCitations    *int              `json:"min_citations,omitempty" yaml:"min_citations,omitempty"`
	YearlyCitations []YearlyCitations `json:"yearly_citations,omitempty" yaml:"yearly_citations,omitempty"`
	MinScore        *float64          `json:"min_score,omitempty" yaml:"min_score,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (c Criteria) IsEmpty() bool {
	return len(c.criteria()) == 0
}

// Len returns the number of individual constraints.
func (c Criteria) Len() int {
	return len(c.criteria())
}

// Operator is the comparison a criterion applies.
type Operator string

const (
	OpAtLeast  Operator = ">="
	OpAtMost   Operator = "<="
	OpAuthored Operator = "authored by"
)

// criterion is one hard predicate. Numeric criteria expose value and compare
// it with threshold; the author criterion uses match.
type criterion struct {
	field     string
	op        Operator
	threshold float64
	label     string
	value     func(types.Paper) (float64, bool)
	format    func(float64) string
	match     func(types.Paper) bool
}

func (cr criterion) satisfied(p types.Paper) bool {
	if cr.match != nil {
		return cr.match(p)
	}
	v, ok := cr.value(p)
	if !ok {
		return false
	}
	if cr.op == OpAtMost {
		return v <= cr.threshold
	}
	return v >= cr.threshold
}

func (cr criterion) thresholdText() string {
	if cr.match != nil {
		return cr.label
	}
	return cr.format(cr.threshold)
}

func formatFloat(v float64) string { return fmt.Sprintf("%.2f", v) }

func formatInt(v float64) string { return fmt.Sprintf("%d", int(v)) }

func formatDate(v float64) string { return time.Unix(int64(v), 0).UTC().Format("2006-01-02") }

// criteria expands the set fields into predicates in a stable order.
func (c Criteria) criteria() []criterion {
	var out []criterion

	for _, author := range c.Authors {
		name := strings.TrimSpace(author)
		if name == "" {
			continue
		}
		out = append(out, criterion{
			field: "author",
			op:    OpAuthored,
			label: name,
			match: func(p types.Paper) bool { return hasAuthor(p, name) },
		})
	}

	date := func(p types.Paper) (float64, bool) {
		if p.PublicationDate.IsZero() {
			return 0, false
		}
		return float64(p.PublicationDate.Unix()), true
	}
	if c.DateFrom != nil {
		out = append(out, criterion{field: "publication_date", op: OpAtLeast,
			threshold: float64(c.DateFrom.Unix()), value: date, format: formatDate})
	}
	if c.DateTo != nil {
		out = append(out, criterion{field: "publication_date", op: OpAtMost,
			threshold: float64(c.DateTo.Unix()), value: date, format: formatDate})
	}

	fwci := func(p types.Paper) (float64, bool) { return p.FWCI, true }
	if c.MinFWCI != nil {
		out = append(out, criterion{field: "fwci", op: OpAtLeast, threshold: *c.MinFWCI, value: fwci, format: formatFloat})
	}
	if c.MaxFWCI != nil {
		out = append(out, criterion{field: "fwci", op: OpAtMost, threshold: *c.MaxFWCI, value: fwci, format: formatFloat})
	}
	if c.MinPercentile != nil {
		out = append(out, criterion{field: "citation_percentile", op: OpAtLeast, threshold: *c.MinPercentile,
			value: func(p types.Paper) (float64, bool) { return p.CitationPercentile, true }, format: formatFloat})
	}
	if c.MinCitations != nil {
		out = append(out, criterion{field: "cited_by_count", op: OpAtLeast, threshold: float64(*c.MinCitations),
			value: func(p types.Paper) (float64, bool) { return float64(p.CitedByCount), true }, format: formatInt})
	}
	for _, yc := range c.YearlyCitations {
		year := yc.Year
		out = append(out, criterion{field: fmt.Sprintf("citations_in_%d", year), op: OpAtLeast, threshold: float64(yc.Min),
			value: func(p types.Paper) (float64, bool) {
				n, _ := p.CitationsIn(year)
				return float64(n), true
			}, format: formatInt})
	}
	if c.MinScore != nil {
		out = append(out, criterion{field: "similarity_score", op: OpAtLeast, threshold: *c.MinScore,
			value: func(p types.Paper) (float64, bool) { return p.Score, true }, format: formatFloat})
	}
	return out
}

// hasAuthor matches a requested name against the paper's authors. A single
// token ("Hinton") matches any author whose name contains it as a word; a
// full name must match every token.
func hasAuthor(p types.Paper, name string) bool {
	want := strings.Fields(strings.ToLower(name))
	for _, a := range p.Authors {
		have := strings.Fields(strings.ToLower(strings.ReplaceAll(a, ",", " ")))
		if containsAll(have, want) {
			return true
		}
	}
	return false
}

func containsAll(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w || strings.TrimSuffix(w, ".") == strings.TrimSuffix(h, ".") {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return len(want) > 0
}
