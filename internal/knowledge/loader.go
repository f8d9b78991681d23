package knowledge

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/pkg/logger"
	"github.com/halluc-lab/backend/pkg/utils"
)

// EmbeddingCache avoids re-embedding identical texts across runs. A nil
// cache disables it.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// RawDocument is a document before preparation: possibly HTML, possibly
// longer than one embedding's worth of text.
type RawDocument struct {
	ID       string
	Text     string
	HTML     bool
	Topic    string
	Category string
}

type Loader struct {
	embedder      Embedder
	cache         EmbeddingCache
	maxChunkWords int
	cacheTTL      time.Duration
}

func NewLoader(embedder Embedder, cache EmbeddingCache, maxChunkWords int) *Loader {
	if maxChunkWords <= 0 {
		maxChunkWords = 200
	}
	return &Loader{
		embedder:      embedder,
		cache:         cache,
		maxChunkWords: maxChunkWords,
		cacheTTL:      24 * time.Hour,
	}
}

// Prepare cleans, chunks and embeds raw documents into load-ready
// Documents. Chunked documents keep their parent id with a _N suffix so
// retrieval metadata stays traceable.
func (l *Loader) Prepare(ctx context.Context, raws []RawDocument) ([]Document, error) {
	var docs []Document

	for _, raw := range raws {
		text := raw.Text
		if raw.HTML {
			text = cleanHTML(text)
		}
		text = normalizeWhitespace(text)
		if text == "" {
			return nil, fmt.Errorf("document %s has no usable text", raw.ID)
		}

		id := raw.ID
		if id == "" {
			id = uuid.New().String()
		}

		chunks, err := l.chunk(text)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk document %s: %w", id, err)
		}

		for i, chunkText := range chunks {
			chunkID := id
			if len(chunks) > 1 {
				chunkID = fmt.Sprintf("%s_%d", id, i)
			}

			embedding, err := l.embed(ctx, chunkText)
			if err != nil {
				return nil, fmt.Errorf("failed to embed document %s: %w", chunkID, err)
			}

			docs = append(docs, Document{
				ID:        chunkID,
				Text:      chunkText,
				Topic:     raw.Topic,
				Category:  raw.Category,
				Embedding: embedding,
			})
		}
	}

	logger.Info("Documents prepared",
		zap.Int("raw", len(raws)),
		zap.Int("prepared", len(docs)),
	)

	return docs, nil
}

func (l *Loader) embed(ctx context.Context, text string) ([]float32, error) {
	hash := utils.HashString(text)

	if l.cache != nil {
		embedding, ok, err := l.cache.GetEmbedding(ctx, hash)
		if err != nil {
			logger.Warn("Embedding cache read failed", zap.Error(err))
		} else if ok {
			return embedding, nil
		}
	}

	embedding, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.SetEmbedding(ctx, hash, embedding, l.cacheTTL); err != nil {
			logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}

	return embedding, nil
}

// chunk splits oversized text on sentence boundaries so no chunk cuts a
// sentence in half.
func (l *Loader) chunk(text string) ([]string, error) {
	if wordCount(text) <= l.maxChunkWords {
		return []string{text}, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}

	var chunks []string
	var current strings.Builder
	currentWords := 0

	for _, sentence := range doc.Sentences() {
		words := wordCount(sentence.Text)
		if currentWords+words > l.maxChunkWords && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentWords = 0
		}
		current.WriteString(sentence.Text)
		current.WriteString(" ")
		currentWords += words
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks, nil
}

func cleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text()
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
