package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"visitassist/types"
)

// MemoryIndex is an in-process VectorIndexer with the same contract as the
// Postgres one. Used by tests and for running without a database.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	dimension int
	metric    string
	chunks    []types.Chunk
	vectors   [][]float32
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string]*memCollection),
	}
}

func (m *MemoryIndex) EnsureCollection(_ context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", ErrDimensionMismatch, dimension)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if col, ok := m.collections[name]; ok {
		if col.dimension != dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, want %d", ErrDimensionMismatch, name, col.dimension, dimension)
		}
		return nil
	}
	m.collections[name] = &memCollection{dimension: dimension, metric: metric}
	return nil
}

func (m *MemoryIndex) Insert(_ context.Context, name string, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[name]
	if !ok {
		return fmt.Errorf("%w: unknown collection %s", ErrIndexUnavailable, name)
	}
	for i, vec := range vectors {
		if len(vec) != col.dimension {
			return fmt.Errorf("%w: vector %d has %d values, collection %s wants %d", ErrDimensionMismatch, i, len(vec), name, col.dimension)
		}
	}
	col.chunks = append(col.chunks, chunks...)
	col.vectors = append(col.vectors, vectors...)
	return nil
}

func (m *MemoryIndex) QuerySimilar(_ context.Context, name string, vector []float32, k int, scoreThreshold float64) ([]types.ScoredChunk, error) {
	if k <= 0 {
		k = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown collection %s", ErrIndexUnavailable, name)
	}

	var results []types.ScoredChunk
	for i, vec := range col.vectors {
		score := cosine(vector, vec)
		if score >= scoreThreshold {
			results = append(results, types.ScoredChunk{Chunk: col.chunks[i], Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MemoryIndex) Clear(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, name)
	return nil
}

// CollectionCount reports how many collections exist; used by tests to
// check EnsureCollection idempotence.
func (m *MemoryIndex) CollectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
