// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// NewJudge returns the judgment backend selected by cfg.
func NewJudge(cfg types.LLMConfig) (Judge, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Backend {
	case types.LLMOllama, "":
		client, err := NewOllamaClient(cfg.Host, httpClient)
		if err != nil {
			return nil, err
		}
		return NewOllamaJudge(client, cfg.Model), nil
	case types.LLMClaude:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude backend requires an API key")
		}
		return &ClaudeJudge{APIKey: cfg.APIKey, Model: cfg.Model, Client: httpClient}, nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q", cfg.Backend)
	}
}

// NewEmbedder returns the embedding backend selected by cfg.
func NewEmbedder(ctx context.Context, cfg types.EmbeddingConfig) (Embedder, error) {
	switch cfg.Backend {
	case types.EmbeddingOllama, "":
		client, err := NewOllamaClient(cfg.Host, nil)
		if err != nil {
			return nil, err
		}
		return NewOllamaEmbedder(client, cfg.Model), nil
	case types.EmbeddingGenAI:
		return NewGenAIEmbedder(ctx, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}
