package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/knowledge"
	"github.com/halluc-lab/backend/pkg/logger"
)

type KnowledgeHandler struct {
	store       knowledge.Store
	defaultTopK int
}

func NewKnowledgeHandler(store knowledge.Store, defaultTopK int) *KnowledgeHandler {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &KnowledgeHandler{
		store:       store,
		defaultTopK: defaultTopK,
	}
}

// Query returns the nearest reference documents for a piece of text.
// Used to inspect what the RAG strategy would ground on.
func (h *KnowledgeHandler) Query(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
		TopK int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query text is required",
		})
	}

	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTopK
	}

	results, err := h.store.Query(c.Context(), req.Text, topK)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyStore) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Knowledge store is empty",
			})
		}
		logger.Error("Knowledge query failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Knowledge query failed",
		})
	}

	hits := make([]fiber.Map, len(results))
	for i, r := range results {
		hits[i] = fiber.Map{
			"document_id": r.Document.ID,
			"text":        r.Document.Text,
			"topic":       r.Document.Topic,
			"category":    r.Document.Category,
			"score":       r.Score,
		}
	}

	return c.JSON(fiber.Map{
		"results": hits,
		"count":   len(hits),
	})
}
