// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// SessionFile is the on-disk record of a recommendation listing. The CLI
// saves it after each page so `more` can continue without re-running scope
// and QC.
type SessionFile struct {
	ProjectID string         `yaml:"project_id"`
	Cursor    Cursor         `yaml:"cursor"`
	Delivered []SessionPaper `yaml:"delivered"`
	Summary   SessionSummary `yaml:"summary"`
}

// SessionPaper is one delivered paper in a session file.
type SessionPaper struct {
	Hash  string  `yaml:"hash"`
	Title string  `yaml:"title"`
	DOI   string  `yaml:"doi,omitempty"`
	Score float64 `yaml:"score"`
}

// SessionSummary stores listing statistics and a timestamp.
type SessionSummary struct {
	Pages     int       `yaml:"pages"`
	Total     int       `yaml:"total"`
	Exhausted bool      `yaml:"exhausted,omitempty"`
	Timestamp time.Time `yaml:"timestamp"`
}

// Append records a papers payload in the session and advances its cursor.
func (f *SessionFile) Append(p PapersPayload) {
	for _, paper := range p.Papers {
		f.Delivered = append(f.Delivered, SessionPaper{
			Hash:  paper.Hash,
			Title: paper.Title,
			DOI:   paper.DOI,
			Score: paper.Score,
		})
	}
	f.Cursor = p.Cursor
	f.Summary.Pages++
	f.Summary.Total = len(f.Delivered)
	f.Summary.Exhausted = p.Exhausted
	f.Summary.Timestamp = time.Now()
}

// WriteSessionFile saves a session to a YAML file.
func WriteSessionFile(path string, f *SessionFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling session file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSessionFile loads a previously saved session file from disk.
func ReadSessionFile(path string) (*SessionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	var f SessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	if f.ProjectID == "" {
		return nil, fmt.Errorf("session file %s has no project_id", path)
	}
	return &f, nil
}
