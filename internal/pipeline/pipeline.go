// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one recommendation request: project lookup,
// scope classification, QC, filter extraction, retrieval, filtering and
// delivery. Each request yields a stream of thought events followed by
// exactly one terminal event.
package pipeline

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-recommender/internal/filter"
	"github.com/pdiddy/paper-recommender/internal/metrics"
	"github.com/pdiddy/paper-recommender/internal/qc"
	"github.com/pdiddy/paper-recommender/internal/retrieve"
	"github.com/pdiddy/paper-recommender/internal/scope"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Store is the persistence the pipeline needs.
type Store interface {
	GetProject(ctx context.Context, id string) (types.Project, error)
	MarkSeen(ctx context.Context, projectID string, papers []types.ProjectPaper) error
}

// Classifier decides whether a query is in scope.
type Classifier interface {
	Classify(ctx context.Context, query string) (scope.Result, error)
}

// QualityControl runs filter detection and the QC decision.
type QualityControl interface {
	Run(ctx context.Context, in qc.Input) (qc.Outcome, error)
}

// CriteriaExtractor turns filter instructions into criteria.
type CriteriaExtractor interface {
	Extract(ctx context.Context, query string) (filter.Criteria, error)
}

// Retriever produces raw candidates.
type Retriever interface {
	Retrieve(ctx context.Context, p retrieve.Params) ([]types.Paper, error)
}

// Deps are the pipeline's collaborators.
type Deps struct {
	Store      Store
	Classifier Classifier
	QC         QualityControl
	Extractor  CriteriaExtractor
	Retriever  Retriever
	Logger     *zap.Logger
}

// Request is one recommendation query.
type Request struct {
	ProjectID string `json:"project_id"`
	Query     string `json:"query" validate:"required"`
}

// Pipeline runs requests. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	deps   Deps
	logger *zap.Logger
}

// New returns a pipeline.
func New(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{deps: d, logger: logger}
}

type step struct {
	stage Stage

	// before and after return progress text; empty means no event.
	before func(State) string
	after  func(State) string

	run func(context.Context, State) State
}

// Run streams the events for req. The stream stops early when the consumer
// stops iterating or ctx is canceled.
func (p *Pipeline) Run(ctx context.Context, req Request) iter.Seq[Event] {
	s := State{Query: strings.TrimSpace(req.Query), ProjectID: req.ProjectID, Page: 1}
	return p.stream(ctx, s, []step{
		{stage: StageProject, run: p.loadProject},
		{
			stage:  StageScope,
			before: func(State) string { return "Checking that the query is an academic literature search" },
			after: func(s State) string {
				return "Search keywords: " + strings.Join(s.Keywords, "; ")
			},
			run: p.classify,
		},
		{
			stage:  StageQC,
			before: func(State) string { return "Reviewing the query before retrieval" },
			after:  qcThought,
			run:    p.review,
		},
		{
			stage: StageCriteria,
			before: func(s State) string {
				if !s.HasFilterInstructions {
					return ""
				}
				return "Extracting filter criteria"
			},
			run: p.extractCriteria,
		},
		{
			stage: StageRetrieve,
			before: func(s State) string {
				return "Retrieving candidate papers for: " + strings.Join(s.Keywords, "; ")
			},
			run: p.retrieveCandidates,
		},
		{
			stage: StageFilter,
			before: func(s State) string {
				if s.Criteria.IsEmpty() {
					return ""
				}
				return fmt.Sprintf("Applying %d filter criteria to %d candidates", s.Criteria.Len(), len(s.Raw))
			},
			run: p.applyFilters,
		},
		{stage: StageDeliver, run: p.deliver},
	})
}

// LoadMore continues a listing from c. It emits one papers event, or an
// error event; scope and QC are not re-run.
func (p *Pipeline) LoadMore(ctx context.Context, projectID string, c Cursor) iter.Seq[Event] {
	s := State{
		Query:                 c.Query,
		ProjectID:             projectID,
		Keywords:              c.Keywords,
		HasFilterInstructions: c.HasFilters,
		Criteria:              c.Criteria,
		Offset:                max(c.Offset, 0),
		Page:                  c.Page,
		continuation:          true,
	}
	return p.stream(ctx, s, []step{
		{stage: StageProject, run: p.loadProject},
		{stage: StageRetrieve, run: p.retrieveCandidates},
		{stage: StageFilter, run: p.applyFilters},
		{stage: StageDeliver, run: p.deliver},
	})
}

func (p *Pipeline) stream(ctx context.Context, s State, steps []step) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, st := range steps {
			if err := ctx.Err(); err != nil {
				s = s.fail(st.stage, err)
			} else {
				if st.before != nil {
					if text := st.before(s); text != "" && !yield(thought(text)) {
						p.record("abandoned")
						return
					}
				}
				start := time.Now()
				s = st.run(ctx, s)
				metrics.ObserveStage(string(st.stage), start)
			}

			if s.Err != nil {
				se := asStageError(s.Err)
				metrics.StageErrors.WithLabelValues(string(se.Stage), string(se.Kind)).Inc()
				p.logger.Error("pipeline stage failed",
					zap.String("project", s.ProjectID),
					zap.String("stage", string(se.Stage)),
					zap.String("kind", string(se.Kind)),
					zap.Error(se.Err))
				p.record(string(KindError))
				yield(errorEvent(s.Err))
				return
			}
			if s.Payload != nil {
				p.record(string(s.Payload.Kind))
				yield(*s.Payload)
				return
			}
			if st.after != nil {
				if text := st.after(s); text != "" && !yield(thought(text)) {
					p.record("abandoned")
					return
				}
			}
		}
		s = s.fail(StageDeliver, fmt.Errorf("pipeline ended without a result"))
		yield(errorEvent(s.Err))
	}
}

func (p *Pipeline) record(outcome string) {
	metrics.RunOutcomes.WithLabelValues(outcome).Inc()
}

func (p *Pipeline) loadProject(ctx context.Context, s State) State {
	project, err := p.deps.Store.GetProject(ctx, s.ProjectID)
	if err != nil {
		return s.fail(StageProject, err)
	}
	s.Project = project
	return s
}

func (p *Pipeline) classify(ctx context.Context, s State) State {
	res, err := p.deps.Classifier.Classify(ctx, s.Query)
	if err != nil {
		return s.fail(StageScope, err)
	}
	switch r := res.(type) {
	case scope.Valid:
		s.Keywords = r.Keywords
		return s
	case scope.OutOfScope:
		return s.finish(Event{Kind: KindOutOfScope, OutOfScope: &r})
	default:
		return s.fail(StageScope, fmt.Errorf("unexpected classification %T", res))
	}
}

func (p *Pipeline) review(ctx context.Context, s State) State {
	out, err := p.deps.QC.Run(ctx, qc.Input{Query: s.Query, Keywords: s.Keywords})
	if err != nil {
		return s.fail(StageQC, err)
	}
	metrics.QCDecisions.WithLabelValues(string(out.Decision.Label)).Inc()
	p.logger.Info("qc decision",
		zap.String("project", s.ProjectID),
		zap.String("decision", string(out.Decision.Label)),
		zap.Bool("has_filters", out.HasFilterInstructions),
		zap.Strings("keywords", out.Keywords))

	s.Decision = out.Decision
	s.HasFilterInstructions = out.HasFilterInstructions
	if out.Decision.Tool != nil {
		s.ToolOutput = out.Decision.Tool.Raw
	}
	if out.Rejected() {
		return s.finish(Event{Kind: KindOutOfScope, OutOfScope: &scope.OutOfScope{
			ShortExplanation: "The query cannot be answered as a literature search.",
			Explanation:      out.Decision.Justification,
			Suggestion:       "Describe the research topic you want papers about.",
		}})
	}
	s.Query = out.Query
	s.Keywords = out.Keywords
	return s
}

func qcThought(s State) string {
	d := s.Decision
	if d.Label == qc.Accept {
		return "Query accepted"
	}
	text := fmt.Sprintf("Query %s: %s", qcVerb(d.Label), d.Justification)
	if d.Tool != nil && len(d.Tool.SubQueries) > 0 {
		text += " (topics: " + strings.Join(d.Tool.SubQueries, "; ") + ")"
	}
	return text
}

func qcVerb(l qc.Label) string {
	switch l {
	case qc.Reformulate:
		return "reformulated"
	case qc.Broaden:
		return "broadened"
	case qc.Narrow:
		return "narrowed"
	case qc.Split:
		return "split"
	default:
		return string(l)
	}
}

func (p *Pipeline) extractCriteria(ctx context.Context, s State) State {
	if !s.HasFilterInstructions {
		s.Criteria = filter.Criteria{}
		return s
	}
	c, err := p.deps.Extractor.Extract(ctx, s.Query)
	if err != nil {
		return s.fail(StageCriteria, err)
	}
	s.Criteria = c
	return s
}

func (p *Pipeline) retrieveCandidates(ctx context.Context, s State) State {
	raw, err := p.deps.Retriever.Retrieve(ctx, retrieve.Params{
		Project:    s.Project,
		Keywords:   s.Keywords,
		HasFilters: s.HasFilterInstructions,
		Offset:     s.Offset,
		Page:       s.Page,
	})
	if err != nil {
		return s.fail(StageRetrieve, err)
	}
	s.Raw = raw
	return s
}

func (p *Pipeline) applyFilters(_ context.Context, s State) State {
	s.Filtered = filter.Apply(s.Raw, s.Criteria)
	if len(s.Filtered) > 0 || s.continuation {
		return s
	}
	exp := filter.Explain(s.Raw, s.Criteria)
	return s.finish(Event{Kind: KindNoResults, NoResults: &exp})
}

// deliver records the surviving papers as seen, then emits them.
func (p *Pipeline) deliver(ctx context.Context, s State) State {
	seen := make([]types.ProjectPaper, len(s.Filtered))
	for i, paper := range s.Filtered {
		seen[i] = types.ProjectPaper{
			ProjectID: s.ProjectID,
			PaperHash: paper.Hash,
			Seen:      true,
			Summary:   paper.Excerpt(types.SummaryLength),
		}
	}
	if err := p.deps.Store.MarkSeen(ctx, s.ProjectID, seen); err != nil {
		return s.fail(StageDeliver, err)
	}
	p.logger.Info("delivered papers",
		zap.String("project", s.ProjectID),
		zap.Int("raw", len(s.Raw)),
		zap.Int("delivered", len(s.Filtered)),
		zap.Bool("continuation", s.continuation))

	return s.finish(Event{Kind: KindPapers, Papers: &PapersPayload{
		Papers:    s.Filtered,
		Cursor:    s.cursor(),
		Exhausted: len(s.Raw) == 0,
	}})
}
