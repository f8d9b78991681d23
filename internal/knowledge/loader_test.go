package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return []float32{1, 0, 0}, nil
}

type mapCache struct {
	entries map[string][]float32
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]float32)}
}

func (m *mapCache) GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error) {
	v, ok := m.entries[textHash]
	return v, ok, nil
}

func (m *mapCache) SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error {
	m.entries[textHash] = embedding
	return nil
}

func TestLoaderPrepare(t *testing.T) {
	embedder := &countingEmbedder{}
	loader := NewLoader(embedder, nil, 200)

	docs, err := loader.Prepare(context.Background(), []RawDocument{
		{ID: "sql", Text: "SQL injection is prevented with parameterized queries.", Topic: "sql-injection", Category: "web_security"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "sql", docs[0].ID)
	assert.Equal(t, "web_security", docs[0].Category)
	assert.NotEmpty(t, docs[0].Embedding)
}

func TestLoaderPrepareGeneratesID(t *testing.T) {
	loader := NewLoader(&countingEmbedder{}, nil, 200)

	docs, err := loader.Prepare(context.Background(), []RawDocument{
		{Text: "Firewalls filter network traffic."},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].ID)
}

func TestLoaderPrepareRejectsEmptyText(t *testing.T) {
	loader := NewLoader(&countingEmbedder{}, nil, 200)

	_, err := loader.Prepare(context.Background(), []RawDocument{
		{ID: "blank", Text: "   \n\t  "},
	})
	assert.Error(t, err)
}

func TestLoaderPrepareStripsHTML(t *testing.T) {
	loader := NewLoader(&countingEmbedder{}, nil, 200)

	docs, err := loader.Prepare(context.Background(), []RawDocument{
		{
			ID:   "page",
			HTML: true,
			Text: `<html><head><script>alert(1)</script></head><body><nav>menu</nav><p>Zero-day exploits target unpatched flaws.</p><footer>contact</footer></body></html>`,
		},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, "Zero-day exploits target unpatched flaws.", docs[0].Text)
	assert.NotContains(t, docs[0].Text, "alert")
	assert.NotContains(t, docs[0].Text, "menu")
}

func TestLoaderPrepareChunksLongText(t *testing.T) {
	loader := NewLoader(&countingEmbedder{}, nil, 10)

	long := strings.TrimSpace(strings.Repeat("This sentence pads the document with several words. ", 6))
	docs, err := loader.Prepare(context.Background(), []RawDocument{
		{ID: "long", Text: long},
	})
	require.NoError(t, err)
	require.Greater(t, len(docs), 1)

	for i, doc := range docs {
		assert.Equal(t, fmt.Sprintf("long_%d", i), doc.ID)
		assert.NotEmpty(t, doc.Embedding)
	}
}

func TestLoaderUsesCache(t *testing.T) {
	embedder := &countingEmbedder{}
	cache := newMapCache()
	loader := NewLoader(embedder, cache, 200)

	raw := []RawDocument{{ID: "doc", Text: "Multi-factor authentication adds a second factor."}}

	_, err := loader.Prepare(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)

	// Same text again hits the cache instead of the embedder.
	_, err = loader.Prepare(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.calls)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\n\tb   c  "))
	assert.Empty(t, normalizeWhitespace("   "))
}
