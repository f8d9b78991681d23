package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/halluc-lab/backend/pkg/logger"
)

// ErrEmptyStore is returned by Query when no documents have been
// loaded. An empty store never answers with an empty-but-successful
// result set.
var ErrEmptyStore = errors.New("knowledge store is empty")

// Document is a reference text owned by the store. Immutable after
// load.
type Document struct {
	ID        string
	Text      string
	Topic     string
	Category  string
	Embedding []float32
}

// Result pairs a stored document with its similarity to a query.
type Result struct {
	Document Document
	Score    float64
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is write-once, read-many for a process lifetime: Load ingests a
// fixed document set, Query answers nearest-neighbour lookups over it.
type Store interface {
	Load(ctx context.Context, docs []Document) error
	Query(ctx context.Context, text string, k int) ([]Result, error)
	Count() int
}

// MemoryStore keeps embeddings in process memory. The seed corpus is a
// few dozen short documents, so exhaustive cosine scan is plenty.
type MemoryStore struct {
	embedder Embedder

	mu   sync.RWMutex
	docs []Document
}

func NewMemoryStore(embedder Embedder) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

func (s *MemoryStore) Load(ctx context.Context, docs []Document) error {
	prepared := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			embedding, err := s.embedder.Embed(ctx, doc.Text)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
			doc.Embedding = embedding
		}
		prepared = append(prepared, doc)
	}

	s.mu.Lock()
	s.docs = append(s.docs, prepared...)
	s.mu.Unlock()

	logger.Info("Knowledge store loaded", zap.Int("documents", len(prepared)))

	return nil
}

func (s *MemoryStore) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("invalid k: %d", k)
	}

	s.mu.RLock()
	docs := s.docs
	s.mu.RUnlock()

	if len(docs) == 0 {
		return nil, ErrEmptyStore
	}

	queryEmbedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results := make([]Result, len(docs))
	for i, doc := range docs {
		results[i] = Result{
			Document: doc,
			Score:    CosineSimilarity(queryEmbedding, doc.Embedding),
		}
	}

	// Stable sort keeps insertion order on score ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}

	logger.Debug("Knowledge query completed",
		zap.Int("k", k),
		zap.Float64("top_score", results[0].Score),
	)

	return results[:k], nil
}

func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
