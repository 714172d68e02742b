// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm abstracts the large-language-model judgment service and the
// embedding service. Judgments return structured JSON; anything that is not
// a JSON object is reported as ErrMalformed and never replaced by a default.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	json "github.com/goccy/go-json"
)

// ErrMalformed reports a judgment response that is empty or not valid JSON
// for the requested shape.
var ErrMalformed = errors.New("malformed judgment response")

// Request is one judgment: a rendered prompt plus a JSON schema hint that
// backends may enforce natively or inline into the prompt.
type Request struct {
	Prompt string
	Schema string
}

// Judge answers a judgment request with a raw JSON object.
type Judge interface {
	Judge(ctx context.Context, req Request) (json.RawMessage, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Decode runs a judgment and unmarshals the JSON object into out.
func Decode(ctx context.Context, j Judge, req Request, out any) error {
	raw, err := j.Judge(ctx, req)
	if err != nil {
		return err
	}
	return Parse(raw, out)
}

// Parse unmarshals the JSON object contained in a raw judgment response.
func Parse(raw json.RawMessage, out any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Extract trims code fences and surrounding prose from a judgment response
// and returns the outermost JSON object.
func Extract(raw json.RawMessage) (json.RawMessage, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMalformed)
	}
	obj := json.RawMessage(s[start : end+1])
	if !json.Valid(obj) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	return obj, nil
}

// Render executes a prompt template with data.
func Render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
