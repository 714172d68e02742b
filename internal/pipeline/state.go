// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	json "github.com/goccy/go-json"

	"github.com/pdiddy/paper-recommender/internal/filter"
	"github.com/pdiddy/paper-recommender/internal/qc"
	"github.com/pdiddy/paper-recommender/pkg/types"
)

// State is the working record of one invocation. Stages receive it by value
// and return the next value; nothing outside the invocation holds it.
type State struct {
	Query     string
	ProjectID string
	Project   types.Project

	Keywords              []string
	HasFilterInstructions bool

	Decision   qc.Decision
	ToolOutput json.RawMessage
	Criteria   filter.Criteria

	// Offset and Page position retrieval; see Cursor.
	Offset int
	Page   int

	Raw      []types.Paper
	Filtered []types.Paper

	// Err terminates the invocation with an error event.
	Err error

	// Payload terminates the invocation with this event.
	Payload *Event

	// continuation is set for LoadMore, which never reports no-results.
	continuation bool
}

func (s State) fail(stage Stage, err error) State {
	s.Err = wrap(stage, err)
	return s
}

func (s State) finish(ev Event) State {
	s.Payload = &ev
	return s
}

// cursor is the position after this state's delivery.
func (s State) cursor() Cursor {
	return Cursor{
		Query:      s.Query,
		Keywords:   s.Keywords,
		HasFilters: s.HasFilterInstructions,
		Criteria:   s.Criteria,
		Offset:     s.Offset + len(s.Raw) - len(s.Filtered),
		Page:       s.Page + 1,
	}
}
