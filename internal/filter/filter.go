// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter applies hard metadata constraints to retrieved candidates
// and, when nothing survives, explains which constraint to relax and by how
// much.
package filter

import (
	"fmt"
	"strings"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Apply returns the candidates satisfying every criterion, in input order.
// Empty criteria return the input unchanged.
func Apply(papers []types.Paper, c Criteria) []types.Paper {
	crit := c.criteria()
	if len(crit) == 0 {
		return papers
	}
	var out []types.Paper
	for _, p := range papers {
		if satisfiesAll(p, crit) {
			out = append(out, p)
		}
	}
	return out
}

func satisfiesAll(p types.Paper, crit []criterion) bool {
	for _, cr := range crit {
		if !cr.satisfied(p) {
			return false
		}
	}
	return true
}

// Direction tells the user which way to move a threshold.
type Direction string

const (
	RelaxNone   Direction = ""
	RelaxLower  Direction = "lower"
	RelaxHigher Direction = "higher"
)

// Report describes one criterion against the retrieved candidates.
type Report struct {
	Field     string    `json:"field"`
	Operator  Operator  `json:"operator"`
	Threshold string    `json:"threshold"`
	Matched   int       `json:"matched"`
	Closest   string    `json:"closest,omitempty"`
	Relax     Direction `json:"relax,omitempty"`
}

// Explanation is produced when filtering leaves no papers.
type Explanation struct {
	Retrieved    int      `json:"retrieved"`
	NoCandidates bool     `json:"no_candidates"`
	Criteria     []Report `json:"criteria,omitempty"`
	Message      string   `json:"message"`
}

// Explain reports, for each criterion, how many of the raw candidates satisfy
// it alone, the closest value among the candidates that fail it and the
// direction that would admit that value. Criteria are judged independently,
// so a criterion some papers satisfy still gets a direction. When raw
// is empty there is nothing to compare against; the explanation says so and
// carries no per-criterion values.
func Explain(raw []types.Paper, c Criteria) Explanation {
	crit := c.criteria()
	if len(raw) == 0 {
		return Explanation{
			NoCandidates: true,
			Message:      noCandidatesMessage(crit),
		}
	}

	exp := Explanation{Retrieved: len(raw)}
	for _, cr := range crit {
		exp.Criteria = append(exp.Criteria, report(raw, cr))
	}
	exp.Message = explanationMessage(exp)
	return exp
}

func report(raw []types.Paper, cr criterion) Report {
	r := Report{Field: cr.field, Operator: cr.op, Threshold: cr.thresholdText()}

	var (
		closest float64
		found   bool
	)
	for _, p := range raw {
		if cr.satisfied(p) {
			r.Matched++
			continue
		}
		if cr.match != nil {
			continue
		}
		v, ok := cr.value(p)
		if !ok {
			continue
		}
		// Nearest failing value is the largest below a minimum or the
		// smallest above a maximum.
		if !found || (cr.op == OpAtLeast && v > closest) || (cr.op == OpAtMost && v < closest) {
			closest = v
			found = true
		}
	}

	if found {
		r.Closest = cr.format(closest)
		switch cr.op {
		case OpAtLeast:
			r.Relax = RelaxLower
		case OpAtMost:
			r.Relax = RelaxHigher
		}
	}
	return r
}

func noCandidatesMessage(crit []criterion) string {
	var b strings.Builder
	b.WriteString("No candidate papers were retrieved for this query, so the filters could not be compared against any paper.")
	if len(crit) > 0 {
		parts := make([]string, 0, len(crit))
		for _, cr := range crit {
			parts = append(parts, fmt.Sprintf("%s %s %s", cr.field, cr.op, cr.thresholdText()))
		}
		fmt.Fprintf(&b, " Requested: %s.", strings.Join(parts, "; "))
	}
	b.WriteString(" Try broader topic keywords.")
	return b.String()
}

func explanationMessage(exp Explanation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "None of the %d retrieved papers satisfies all filters.", exp.Retrieved)
	for _, r := range exp.Criteria {
		fmt.Fprintf(&b, "\n- %s %s %s: %d of %d match", r.Field, r.Operator, r.Threshold, r.Matched, exp.Retrieved)
		switch {
		case r.Relax != RelaxNone:
			fmt.Fprintf(&b, "; closest value is %s, try a %s threshold", r.Closest, r.Relax)
		case r.Matched == 0 && r.Operator == OpAuthored:
			b.WriteString("; try removing this author")
		case r.Matched == 0:
			b.WriteString("; no candidate reports this value")
		}
	}
	return b.String()
}
