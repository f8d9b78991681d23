package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/storage/sqlite"
	"github.com/halluc-lab/backend/pkg/logger"
)

type StatisticsHandler struct {
	store *sqlite.Client
}

func NewStatisticsHandler(store *sqlite.Client) *StatisticsHandler {
	return &StatisticsHandler{store: store}
}

// GetStatistics aggregates hallucination rates by strategy and prompt
// category across every experiment.
func (h *StatisticsHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.store.GetStatistics()
	if err != nil {
		logger.Error("Failed to compute statistics", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to compute statistics",
		})
	}

	groups := make([]fiber.Map, len(stats.Groups))
	for i, g := range stats.Groups {
		groups[i] = fiber.Map{
			"mitigation_strategy": g.Strategy,
			"category":            g.Category,
			"responses":           g.Responses,
			"annotated":           g.Annotated,
			"hallucinations":      g.Hallucinations,
			"hallucination_rate":  g.HallucinationRate,
			"severity_counts":     g.SeverityCounts,
		}
	}

	return c.JSON(fiber.Map{
		"total_experiments": stats.TotalExperiments,
		"total_responses":   stats.TotalResponses,
		"groups":            groups,
	})
}
