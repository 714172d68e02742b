// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper recommender:
// projects, papers, the project-paper join, and stage configuration.
package types

import "time"

// Project is a user-defined research project. Its Description is the source
// of the retrieval profile.
type Project struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`

	// Tags are derived topic labels for the project.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ProjectPaper joins a project to a paper it has been shown or rated.
// A (ProjectID, PaperHash) pair is unique and Seen never reverts to false.
type ProjectPaper struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	PaperHash string `json:"paper_hash" yaml:"paper_hash"`

	// Rating is 0 when unrated, otherwise 1-5.
	Rating int `json:"rating" yaml:"rating"`

	Seen bool `json:"seen" yaml:"seen"`

	// Newsletter marks papers surfaced by the periodic digest rather than an
	// on-demand recommendation.
	Newsletter bool `json:"newsletter" yaml:"newsletter"`

	// Summary is the short text shown to the user with the paper.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}
