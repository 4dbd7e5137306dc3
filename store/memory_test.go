package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visitassist/types"
)

const testCollection = "visitor_test"

func newCollection(t *testing.T, dim int) *MemoryIndex {
	t.Helper()
	index := NewMemoryIndex()
	require.NoError(t, index.EnsureCollection(context.Background(), testCollection, dim, "cosine"))
	return index
}

func chunkWith(content string) types.Chunk {
	return types.Chunk{DocTitle: "Policy", Content: content}
}

func TestMemoryIndex_RoundTripReflexivity(t *testing.T) {
	// A chunk queried with its own embedding comes back with maximal
	// similarity, above any sensible threshold.
	index := newCollection(t, 3)
	ctx := context.Background()

	vec := []float32{0.5, 0.5, 0.1}
	require.NoError(t, index.Insert(ctx, testCollection, []types.Chunk{chunkWith("id requirements")}, [][]float32{vec}))

	results, err := index.QuerySimilar(ctx, testCollection, vec, 5, 0.7)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "id requirements", results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestMemoryIndex_ThresholdFiltersAndOrders(t *testing.T) {
	index := newCollection(t, 2)
	ctx := context.Background()

	chunks := []types.Chunk{chunkWith("exact"), chunkWith("close"), chunkWith("orthogonal")}
	vectors := [][]float32{
		{1, 0},
		{0.9, 0.45},
		{0, 1},
	}
	require.NoError(t, index.Insert(ctx, testCollection, chunks, vectors))

	results, err := index.QuerySimilar(ctx, testCollection, []float32{1, 0}, 5, 0.7)

	require.NoError(t, err)
	require.Len(t, results, 2, "the orthogonal vector must not clear the threshold")
	assert.Equal(t, "exact", results[0].Chunk.Content)
	assert.Equal(t, "close", results[1].Chunk.Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryIndex_EmptyResultIsNotAnError(t *testing.T) {
	index := newCollection(t, 2)

	results, err := index.QuerySimilar(context.Background(), testCollection, []float32{1, 0}, 5, 0.7)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMemoryIndex_TruncatesToK(t *testing.T) {
	index := newCollection(t, 2)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		require.NoError(t, index.Insert(ctx, testCollection, []types.Chunk{chunkWith("chunk")}, [][]float32{{1, 0}}))
	}

	results, err := index.QuerySimilar(ctx, testCollection, []float32{1, 0}, 3, 0.5)

	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestMemoryIndex_EnsureCollectionIdempotent(t *testing.T) {
	index := newCollection(t, 4)

	require.NoError(t, index.EnsureCollection(context.Background(), testCollection, 4, "cosine"))
	assert.Equal(t, 1, index.CollectionCount())
}

func TestMemoryIndex_EnsureCollectionDimensionDrift(t *testing.T) {
	index := newCollection(t, 4)

	err := index.EnsureCollection(context.Background(), testCollection, 8, "cosine")

	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_InsertDimensionMismatch(t *testing.T) {
	index := newCollection(t, 3)

	err := index.Insert(context.Background(), testCollection, []types.Chunk{chunkWith("bad")}, [][]float32{{1, 0}})

	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryIndex_InsertUnknownCollection(t *testing.T) {
	index := NewMemoryIndex()

	err := index.Insert(context.Background(), "missing", []types.Chunk{chunkWith("x")}, [][]float32{{1}})

	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestMemoryIndex_ClearIdempotent(t *testing.T) {
	index := newCollection(t, 2)
	ctx := context.Background()

	require.NoError(t, index.Clear(ctx, testCollection))
	require.NoError(t, index.Clear(ctx, testCollection))
	assert.Equal(t, 0, index.CollectionCount())
}
