// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/ollama/ollama/api"
)

// OllamaJudge answers judgments with a local Ollama model. The schema hint is
// passed as the structured-output format so the server constrains decoding.
type OllamaJudge struct {
	client *api.Client
	model  string
}

// NewOllamaClient builds an Ollama API client for host (e.g. "http://localhost:11434").
func NewOllamaClient(host string, httpClient *http.Client) (*api.Client, error) {
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama host %q: %w", host, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return api.NewClient(u, httpClient), nil
}

// NewOllamaJudge returns a judge backed by model on client.
func NewOllamaJudge(client *api.Client, model string) *OllamaJudge {
	return &OllamaJudge{client: client, model: model}
}

// Judge runs a single non-streaming chat turn.
func (o *OllamaJudge) Judge(ctx context.Context, r Request) (json.RawMessage, error) {
	stream := false
	format := json.RawMessage(`"json"`)
	if r.Schema != "" {
		format = json.RawMessage(r.Schema)
	}

	req := &api.ChatRequest{
		Model: o.model,
		Messages: []api.Message{
			{Role: "system", Content: jsonOnlySystem},
			{Role: "user", Content: r.Prompt},
		},
		Stream: &stream,
		Format: format,
		Options: map[string]any{
			"temperature": 0.0,
		},
	}

	var content strings.Builder
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calling Ollama chat: %w", err)
	}
	return json.RawMessage(content.String()), nil
}

// OllamaEmbedder produces embeddings with an Ollama embedding model.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder returns an embedder backed by model on client.
func NewOllamaEmbedder(client *api.Client, model string) *OllamaEmbedder {
	return &OllamaEmbedder{client: client, model: model}
}

// Embed returns the embedding for text.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings(ctx, &api.EmbeddingRequest{
		Model:  o.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("Ollama embed failed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("Ollama returned an empty embedding")
	}
	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
