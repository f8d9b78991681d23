// Package milvus provides a Milvus-backed knowledge store for corpora
// too large for an in-process scan. Same contract as the in-memory
// store: write-once load, top-k query, ErrEmptyStore before load.
package milvus

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/knowledge"
	"github.com/halluc-lab/backend/pkg/logger"
)

type Store struct {
	client         client.Client
	collectionName string
	vectorDim      int
	embedder       knowledge.Embedder

	mu    sync.RWMutex
	count int
}

func NewStore(endpoint, collectionName string, vectorDim int, embedder knowledge.Embedder) (*Store, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus knowledge store initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Store{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
		embedder:       embedder,
	}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) EnsureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		if err := s.syncCount(ctx); err != nil {
			return err
		}
		logger.Info("Collection already exists",
			zap.String("collection", s.collectionName),
			zap.Int("documents", s.Count()),
		)
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collectionName,
		Description:    "Cybersecurity reference document embeddings",
		Fields: []*entity.Field{
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "4096",
				},
			},
			{
				Name:     "topic",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "category",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
		},
	}

	err = s.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = s.client.CreateIndex(ctx, s.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = s.client.LoadCollection(ctx, s.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", s.collectionName))

	return nil
}

// syncCount picks up documents inserted by earlier processes, so a
// collection populated before a restart does not read as empty.
func (s *Store) syncCount(ctx context.Context) error {
	stats, err := s.client.GetCollectionStatistics(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to get collection statistics: %w", err)
	}

	rowCount, ok := stats["row_count"]
	if !ok {
		return nil
	}

	n, err := strconv.Atoi(rowCount)
	if err != nil {
		return fmt.Errorf("failed to parse row count %q: %w", rowCount, err)
	}

	s.mu.Lock()
	s.count = n
	s.mu.Unlock()

	return nil
}

func (s *Store) Load(ctx context.Context, docs []knowledge.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	embeddings := make([][]float32, len(docs))
	texts := make([]string, len(docs))
	topics := make([]string, len(docs))
	categories := make([]string, len(docs))

	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			embedding, err := s.embedder.Embed(ctx, doc.Text)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
			doc.Embedding = embedding
		}

		ids[i] = doc.ID
		embeddings[i] = doc.Embedding
		texts[i] = doc.Text
		topics[i] = doc.Topic
		categories[i] = doc.Category
	}

	_, err := s.client.Insert(
		ctx,
		s.collectionName,
		"",
		entity.NewColumnVarChar("doc_id", ids),
		entity.NewColumnFloatVector("embedding", s.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("topic", topics),
		entity.NewColumnVarChar("category", categories),
	)
	if err != nil {
		return fmt.Errorf("failed to insert documents: %w", err)
	}

	err = s.client.Flush(ctx, s.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	s.mu.Lock()
	s.count += len(docs)
	s.mu.Unlock()

	logger.Info("Documents inserted into milvus", zap.Int("count", len(docs)))

	return nil
}

func (s *Store) Query(ctx context.Context, text string, k int) ([]knowledge.Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("invalid k: %d", k)
	}

	if s.Count() == 0 {
		return nil, knowledge.ErrEmptyStore
	}

	queryEmbedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := s.client.Search(
		ctx,
		s.collectionName,
		[]string{},
		"",
		[]string{"doc_id", "text", "topic", "category"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]knowledge.Result, 0, k)
	for _, sr := range searchResult {
		idCol := sr.Fields.GetColumn("doc_id")
		textCol := sr.Fields.GetColumn("text")
		topicCol := sr.Fields.GetColumn("topic")
		categoryCol := sr.Fields.GetColumn("category")

		for i := 0; i < sr.ResultCount; i++ {
			id, _ := idCol.Get(i)
			docText, _ := textCol.Get(i)
			topic, _ := topicCol.Get(i)
			category, _ := categoryCol.Get(i)

			results = append(results, knowledge.Result{
				Document: knowledge.Document{
					ID:       id.(string),
					Text:     docText.(string),
					Topic:    topic.(string),
					Category: category.(string),
				},
				// L2 distance converted so closer means a higher score.
				Score: 1.0 / (1.0 + float64(sr.Scores[i])),
			})
		}
	}

	logger.Debug("Milvus search completed",
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)

	return results, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
