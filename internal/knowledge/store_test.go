package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder maps known texts to fixed vectors so similarity ordering
// is deterministic.
type fakeEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return nil, errors.New("unknown text")
}

func TestMemoryStoreQuery(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"how do I stop SQL injection": {1, 0, 0},
		},
	}
	store := NewMemoryStore(embedder)

	docs := []Document{
		{ID: "sql-injection", Text: "SQL injection is prevented with parameterized queries", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "firewall", Text: "A firewall filters network traffic", Embedding: []float32{0, 1, 0}},
		{ID: "xss", Text: "Cross-site scripting injects scripts into pages", Embedding: []float32{0.5, 0.5, 0}},
	}
	require.NoError(t, store.Load(context.Background(), docs))

	results, err := store.Query(context.Background(), "how do I stop SQL injection", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "sql-injection", results[0].Document.ID)
	assert.Equal(t, "xss", results[1].Document.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreQueryEmpty(t *testing.T) {
	store := NewMemoryStore(&fakeEmbedder{})

	_, err := store.Query(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, ErrEmptyStore)
}

func TestMemoryStoreQueryInvalidK(t *testing.T) {
	store := NewMemoryStore(&fakeEmbedder{})

	_, err := store.Query(context.Background(), "anything", 0)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyStore)
}

func TestMemoryStoreQueryClampsK(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}}
	store := NewMemoryStore(embedder)

	require.NoError(t, store.Load(context.Background(), []Document{
		{ID: "a", Text: "a", Embedding: []float32{1, 0}},
		{ID: "b", Text: "b", Embedding: []float32{0, 1}},
	}))

	results, err := store.Query(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestMemoryStoreQueryTiesKeepInsertionOrder(t *testing.T) {
	embedder := &fakeEmbedder{fallback: []float32{1, 0}}
	store := NewMemoryStore(embedder)

	// Identical embeddings, so every document scores the same.
	require.NoError(t, store.Load(context.Background(), []Document{
		{ID: "first", Text: "first", Embedding: []float32{1, 0}},
		{ID: "second", Text: "second", Embedding: []float32{1, 0}},
		{ID: "third", Text: "third", Embedding: []float32{1, 0}},
	}))

	results, err := store.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "first", results[0].Document.ID)
	assert.Equal(t, "second", results[1].Document.ID)
	assert.Equal(t, "third", results[2].Document.ID)
}

func TestMemoryStoreLoadEmbedsMissing(t *testing.T) {
	embedder := &fakeEmbedder{
		vectors: map[string][]float32{
			"needs embedding": {0, 1, 0},
		},
	}
	store := NewMemoryStore(embedder)

	require.NoError(t, store.Load(context.Background(), []Document{
		{ID: "pre", Text: "already embedded", Embedding: []float32{1, 0, 0}},
		{ID: "raw", Text: "needs embedding"},
	}))

	assert.Equal(t, 2, store.Count())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// Mismatched dimensions and zero vectors degrade to zero.
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}

func TestSeedDocuments(t *testing.T) {
	seeds := SeedDocuments()
	require.NotEmpty(t, seeds)

	seen := make(map[string]bool)
	for _, doc := range seeds {
		assert.NotEmpty(t, doc.ID)
		assert.NotEmpty(t, doc.Text)
		assert.False(t, seen[doc.ID], "duplicate seed id %s", doc.ID)
		seen[doc.ID] = true
	}
}
