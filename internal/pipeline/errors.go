// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/paper-recommender/internal/qc"
	"github.com/pdiddy/paper-recommender/internal/store"
)

// Stage names a pipeline step.
type Stage string

const (
	StageProject  Stage = "project"
	StageScope    Stage = "scope"
	StageQC       Stage = "qc"
	StageCriteria Stage = "filter_extraction"
	StageRetrieve Stage = "retrieval"
	StageFilter   Stage = "filter"
	StageDeliver  Stage = "delivery"
)

// ErrorKind classifies a stage failure.
type ErrorKind string

const (
	ToolUnavailable ErrorKind = "tool_unavailable"
	UpstreamFailure ErrorKind = "upstream_failure"
	NotFound        ErrorKind = "not_found"
	Canceled        ErrorKind = "canceled"
)

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// wrap returns err as a StageError for stage, keeping an existing one.
func wrap(stage Stage, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Kind: kindOf(err), Err: err}
}

func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, qc.ErrToolUnavailable):
		return ToolUnavailable
	case errors.Is(err, store.ErrNotFound):
		return NotFound
	case errors.Is(err, context.Canceled):
		return Canceled
	default:
		return UpstreamFailure
	}
}

func asStageError(err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	return &StageError{Kind: kindOf(err), Err: err}
}
