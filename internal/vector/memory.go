// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vector

import (
	"context"
	"math"
	"slices"
	"sync"
)

// Memory is an in-process Store using brute-force cosine similarity. It
// serves tests and single-user local runs without a Qdrant server.
type Memory struct {
	mu     sync.RWMutex
	points map[string][]float32
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{points: make(map[string][]float32)}
}

func (m *Memory) EnsureCollection(context.Context, int) error { return nil }

func (m *Memory) Upsert(_ context.Context, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		m.points[p.Hash] = slices.Clone(p.Vector)
	}
	return nil
}

func (m *Memory) Search(_ context.Context, q Query) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	excluded := make(map[string]bool, len(q.Exclude))
	for _, h := range q.Exclude {
		excluded[h] = true
	}

	matches := make([]Match, 0, len(m.points))
	for hash, vec := range m.points {
		if excluded[hash] {
			continue
		}
		matches = append(matches, Match{Hash: hash, Score: Cosine(q.Vector, vec)})
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Hash < b.Hash {
			return -1
		}
		if a.Hash > b.Hash {
			return 1
		}
		return 0
	})

	if q.Offset >= len(matches) {
		return nil, nil
	}
	matches = matches[q.Offset:]
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (m *Memory) Has(_ context.Context, hashes []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool)
	for _, h := range hashes {
		if _, ok := m.points[h]; ok {
			out[h] = true
		}
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Len returns the number of indexed points.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
