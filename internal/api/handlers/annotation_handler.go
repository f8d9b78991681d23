package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/metrics"
	"github.com/halluc-lab/backend/internal/storage/models"
	"github.com/halluc-lab/backend/internal/storage/sqlite"
	"github.com/halluc-lab/backend/pkg/logger"
)

type AnnotationHandler struct {
	store *sqlite.Client
}

func NewAnnotationHandler(store *sqlite.Client) *AnnotationHandler {
	return &AnnotationHandler{store: store}
}

// CreateAnnotation records a human hallucination judgement against a
// response.
func (h *AnnotationHandler) CreateAnnotation(c *fiber.Ctx) error {
	var req struct {
		ResponseID      int64  `json:"response_id"`
		IsHallucination bool   `json:"is_hallucination"`
		Type            string `json:"hallucination_type"`
		Severity        string `json:"severity"`
		Description     string `json:"description"`
		Evidence        string `json:"evidence"`
		FalseClaim      string `json:"false_claim"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ResponseID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "response_id is required",
		})
	}

	id, err := h.store.LogAnnotation(&models.Annotation{
		ResponseID:      req.ResponseID,
		IsHallucination: req.IsHallucination,
		Type:            req.Type,
		Severity:        req.Severity,
		Description:     req.Description,
		Evidence:        req.Evidence,
		FalseClaim:      req.FalseClaim,
	})
	if err != nil {
		logger.Error("Failed to log annotation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to log annotation",
		})
	}

	metrics.Annotations.WithLabelValues(
		strconv.FormatBool(req.IsHallucination),
		req.Severity,
	).Inc()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"annotation_id": id,
		"response_id":   req.ResponseID,
	})
}
