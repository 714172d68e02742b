// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/paper-recommender/internal/filter"
	"github.com/pdiddy/paper-recommender/internal/scope"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Kind tags an Event.
type Kind string

const (
	KindThought    Kind = "thought"
	KindPapers     Kind = "papers"
	KindOutOfScope Kind = "out_of_scope"
	KindNoResults  Kind = "no_results"
	KindError      Kind = "error"
)

// Event is one element of a recommendation stream. Exactly one payload
// field matching Kind is set.
type Event struct {
	Kind Kind `json:"type"`

	Thought    string              `json:"thought,omitempty"`
	Papers     *PapersPayload      `json:"papers,omitempty"`
	OutOfScope *scope.OutOfScope   `json:"out_of_scope,omitempty"`
	NoResults  *filter.Explanation `json:"no_results,omitempty"`
	Error      *ErrorPayload       `json:"error,omitempty"`
}

// Terminal reports whether the event ends a Run stream.
func (e Event) Terminal() bool {
	return e.Kind != KindThought
}

// PapersPayload is a delivered page of papers.
type PapersPayload struct {
	Papers []types.Paper `json:"papers"`

	// Cursor continues the listing with LoadMore.
	Cursor Cursor `json:"cursor"`

	// Exhausted is set when retrieval returned no candidates at all, so
	// further LoadMore calls are unlikely to produce papers.
	Exhausted bool `json:"exhausted,omitempty"`
}

// ErrorPayload is the client-facing form of a StageError.
type ErrorPayload struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Cursor carries what LoadMore needs to continue a listing without
// re-running scope or QC.
type Cursor struct {
	Query      string          `json:"query" yaml:"query"`
	Keywords   []string        `json:"keywords" yaml:"keywords"`
	HasFilters bool            `json:"has_filters" yaml:"has_filters"`
	Criteria   filter.Criteria `json:"criteria" yaml:"criteria"`

	// Offset skips unseen candidates that an earlier page retrieved but
	// filtered out. Delivered papers are seen and need no offset.
	Offset int `json:"offset" yaml:"offset"`

	// Page is the next metadata search page used to seed the index.
	Page int `json:"page" yaml:"page"`
}

func thought(text string) Event {
	return Event{Kind: KindThought, Thought: text}
}

func errorEvent(err error) Event {
	se := asStageError(err)
	return Event{Kind: KindError, Error: &ErrorPayload{
		Stage:   se.Stage,
		Kind:    se.Kind,
		Message: se.Err.Error(),
	}}
}
