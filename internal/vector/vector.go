// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vector indexes paper embeddings and answers similarity queries.
// Points are keyed by paper hash; scores are cosine similarity.
package vector

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-recommender/pkg/types"
)

// Point is one indexed paper embedding.
type Point struct {
	Hash   string
	Vector []float32
}

// Match is a search hit.
type Match struct {
	Hash  string
	Score float64
}

// Query selects the nearest points to Vector. Exclude removes hashes before
// Offset and Limit are applied.
type Query struct {
	Vector  []float32
	Limit   int
	Offset  int
	Exclude []string
}

// Store is a vector-similarity index.
type Store interface {
	// EnsureCollection creates the index for vectors of size dim if missing.
	EnsureCollection(ctx context.Context, dim int) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []Point) error

	// Search returns matches in descending score order.
	Search(ctx context.Context, q Query) ([]Match, error)

	// Has reports which of hashes have a point in the index.
	Has(ctx context.Context, hashes []string) (map[string]bool, error)

	// Ping checks that the index is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// New builds the store selected by cfg.
func New(cfg types.VectorConfig) (Store, error) {
	switch cfg.Backend {
	case types.VectorQdrant, "":
		return NewQdrant(cfg.Host, cfg.Port, cfg.Collection)
	case types.VectorMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
