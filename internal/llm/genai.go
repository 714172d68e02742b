// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIEmbedder generates embeddings using Google's Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates a Gemini embedder. The retrieval-document task
// type is used for both profiles and papers so they share one space.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}
