// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qc decides whether and how a query is transformed before
// retrieval. Two judgments run in order: filter detection, then the QC
// decision. The decision selects exactly one tool whose output replaces the
// keyword list used for retrieval.
package qc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	json "github.com/goccy/go-json"

	"github.com/pdiddy/paper-recommender/internal/llm"
	"github.com/pdiddy/paper-recommender/internal/scope"
)

// ErrToolUnavailable reports a decision label with no matching tool.
var ErrToolUnavailable = errors.New("QC tool unavailable")

// Label names a QC decision variant.
type Label string

const (
	Accept      Label = "accept"
	Reformulate Label = "reformulate"
	Broaden     Label = "broaden"
	Narrow      Label = "narrow"
	Split       Label = "split"
	Reject      Label = "reject"
)

// Decision is the tagged QC outcome. Tool is set for reformulate, broaden,
// narrow and split; it is nil for accept and reject.
type Decision struct {
	Label         Label       `json:"label"`
	Justification string      `json:"justification"`
	Tool          *ToolOutput `json:"tool,omitempty"`
}

// ToolOutput is the structured result of a dispatched QC tool.
type ToolOutput struct {
	Query      string          `json:"query"`
	Keywords   []string        `json:"keywords"`
	SubQueries []string        `json:"sub_queries,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// Input is what the engine inspects.
type Input struct {
	Query    string
	Keywords []string
}

// Outcome is the engine's result. Query and Keywords are what retrieval
// should use; they equal the input unless a tool rewrote them.
type Outcome struct {
	HasFilterInstructions bool
	Decision              Decision
	Query                 string
	Keywords              []string
}

// Rejected reports whether the query should terminate as out of scope.
func (o Outcome) Rejected() bool {
	return o.Decision.Label == Reject
}

// Engine runs the QC judgments.
type Engine struct {
	judge llm.Judge
}

// NewEngine returns an engine backed by judge.
func NewEngine(judge llm.Judge) *Engine {
	return &Engine{judge: judge}
}

// Run performs filter detection, the QC decision, and the dispatched tool.
// Any failure is returned; the engine never falls back to accept.
func (e *Engine) Run(ctx context.Context, in Input) (Outcome, error) {
	hasFilters, err := e.detectFilters(ctx, in)
	if err != nil {
		return Outcome{}, err
	}

	d, err := e.decide(ctx, in)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		HasFilterInstructions: hasFilters,
		Decision:              d,
		Query:                 in.Query,
		Keywords:              in.Keywords,
	}

	var tool *ToolOutput
	switch d.Label {
	case Accept, Reject:
		return out, nil
	case Reformulate:
		tool, err = e.reformulate(ctx, in)
	case Broaden:
		tool, err = e.broaden(ctx, in)
	case Narrow:
		tool, err = e.narrow(ctx, in)
	case Split:
		tool, err = e.split(ctx, in)
	default:
		return Outcome{}, fmt.Errorf("%w: no tool for decision %q", ErrToolUnavailable, d.Label)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("running %s tool: %w", d.Label, err)
	}

	out.Decision.Tool = tool
	out.Keywords = tool.Keywords
	if tool.Query != "" {
		out.Query = tool.Query
	}
	return out, nil
}

func (e *Engine) detectFilters(ctx context.Context, in Input) (bool, error) {
	prompt, err := llm.Render(filterDetectPromptTmpl, in)
	if err != nil {
		return false, err
	}
	var resp struct {
		HasFilterInstructions *bool `json:"has_filter_instructions"`
	}
	if err := llm.Decode(ctx, e.judge, llm.Request{Prompt: prompt, Schema: filterDetectSchema}, &resp); err != nil {
		return false, fmt.Errorf("detecting filter instructions: %w", err)
	}
	if resp.HasFilterInstructions == nil {
		return false, fmt.Errorf("detecting filter instructions: %w: missing has_filter_instructions", llm.ErrMalformed)
	}
	return *resp.HasFilterInstructions, nil
}

func (e *Engine) decide(ctx context.Context, in Input) (Decision, error) {
	prompt, err := llm.Render(decidePromptTmpl, in)
	if err != nil {
		return Decision{}, err
	}
	var resp struct {
		Decision      string `json:"decision"`
		Justification string `json:"justification"`
	}
	if err := llm.Decode(ctx, e.judge, llm.Request{Prompt: prompt, Schema: decideSchema}, &resp); err != nil {
		return Decision{}, fmt.Errorf("deciding query quality: %w", err)
	}
	label := Label(strings.ToLower(strings.TrimSpace(resp.Decision)))
	if label == "" {
		return Decision{}, fmt.Errorf("deciding query quality: %w: missing decision", llm.ErrMalformed)
	}
	return Decision{Label: label, Justification: strings.TrimSpace(resp.Justification)}, nil
}

func (e *Engine) reformulate(ctx context.Context, in Input) (*ToolOutput, error) {
	return e.runTool(ctx, reformulatePromptTmpl, in)
}

func (e *Engine) broaden(ctx context.Context, in Input) (*ToolOutput, error) {
	return e.runTool(ctx, broadenPromptTmpl, in)
}

func (e *Engine) narrow(ctx context.Context, in Input) (*ToolOutput, error) {
	return e.runTool(ctx, narrowPromptTmpl, in)
}

// split also requires at least two sub-queries.
func (e *Engine) split(ctx context.Context, in Input) (*ToolOutput, error) {
	out, err := e.runTool(ctx, splitPromptTmpl, in)
	if err != nil {
		return nil, err
	}
	var subs []string
	for _, q := range out.SubQueries {
		if q = strings.TrimSpace(q); q != "" {
			subs = append(subs, q)
		}
	}
	if len(subs) < 2 {
		return nil, fmt.Errorf("%w: split produced %d sub-queries", llm.ErrMalformed, len(subs))
	}
	out.SubQueries = subs
	return out, nil
}

func (e *Engine) runTool(ctx context.Context, tmpl *template.Template, in Input) (*ToolOutput, error) {
	prompt, err := llm.Render(tmpl, in)
	if err != nil {
		return nil, err
	}
	raw, err := e.judge.Judge(ctx, llm.Request{Prompt: prompt, Schema: toolSchema})
	if err != nil {
		return nil, err
	}
	obj, err := llm.Extract(raw)
	if err != nil {
		return nil, err
	}
	var out ToolOutput
	if err := llm.Parse(obj, &out); err != nil {
		return nil, err
	}
	out.Query = strings.TrimSpace(out.Query)
	out.Keywords = scope.CleanKeywords(out.Keywords)
	if len(out.Keywords) == 0 {
		return nil, fmt.Errorf("%w: tool returned no keywords", llm.ErrMalformed)
	}
	out.Raw = obj
	return &out, nil
}
