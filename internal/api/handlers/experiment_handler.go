package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/runner"
	"github.com/halluc-lab/backend/internal/storage/models"
	"github.com/halluc-lab/backend/internal/storage/sqlite"
	"github.com/halluc-lab/backend/internal/vectors"
	"github.com/halluc-lab/backend/pkg/logger"
)

type ExperimentHandler struct {
	store  *sqlite.Client
	runner *runner.Runner
}

func NewExperimentHandler(store *sqlite.Client, r *runner.Runner) *ExperimentHandler {
	return &ExperimentHandler{
		store:  store,
		runner: r,
	}
}

func (h *ExperimentHandler) CreateExperiment(c *fiber.Ctx) error {
	var req struct {
		Name        string  `json:"name"`
		Description string  `json:"description"`
		Strategy    string  `json:"mitigation_strategy"`
		ModelName   string  `json:"model_name"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Notes       string  `json:"notes"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	strategy, err := agent.ParseStrategy(req.Strategy)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Unknown mitigation strategy",
			"allowed": agent.Strategies(),
		})
	}

	id, err := h.store.CreateExperiment(&models.Experiment{
		Name:        req.Name,
		Description: req.Description,
		Strategy:    string(strategy),
		ModelName:   req.ModelName,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Notes:       req.Notes,
	})
	if err != nil {
		logger.Error("Failed to create experiment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create experiment",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"experiment_id":       id,
		"name":                req.Name,
		"mitigation_strategy": string(strategy),
	})
}

func (h *ExperimentHandler) ListExperiments(c *fiber.Ctx) error {
	summaries, err := h.store.GetAllExperiments()
	if err != nil {
		logger.Error("Failed to list experiments", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list experiments",
		})
	}

	items := make([]fiber.Map, len(summaries))
	for i, s := range summaries {
		items[i] = fiber.Map{
			"experiment_id":       s.ID,
			"name":                s.Name,
			"mitigation_strategy": s.Strategy,
			"created_at":          s.CreatedAt,
			"total_prompts":       s.TotalPrompts,
			"total_responses":     s.TotalResponses,
			"hallucinations":      s.Hallucinations,
			"hallucination_rate":  s.HallucinationRate,
		}
	}

	return c.JSON(fiber.Map{
		"experiments": items,
		"count":       len(items),
	})
}

func (h *ExperimentHandler) GetResults(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid experiment id",
		})
	}

	if _, err := h.store.GetExperiment(int64(id)); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Experiment not found",
			})
		}
		logger.Error("Failed to load experiment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load experiment",
		})
	}

	results, err := h.store.GetExperimentResults(int64(id))
	if err != nil {
		logger.Error("Failed to get experiment results", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get experiment results",
		})
	}

	rows := make([]fiber.Map, len(results))
	for i, r := range results {
		rows[i] = fiber.Map{
			"prompt_id":          r.PromptID,
			"prompt_text":        r.PromptText,
			"category":           r.Category,
			"response_id":        r.ResponseID,
			"response_text":      r.ResponseText,
			"latency_ms":         r.LatencyMS,
			"total_tokens":       r.TotalTokens,
			"annotated":          r.Annotated,
			"is_hallucination":   r.IsHallucination,
			"hallucination_type": r.HallucinationType,
			"severity":           r.Severity,
			"created_at":         r.CreatedAt,
		}
	}

	return c.JSON(fiber.Map{
		"experiment_id": id,
		"results":       rows,
		"count":         len(rows),
	})
}

func (h *ExperimentHandler) ExportCSV(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid experiment id",
		})
	}

	if _, err := h.store.GetExperiment(int64(id)); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Experiment not found",
			})
		}
		logger.Error("Failed to load experiment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load experiment",
		})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="experiment_%d.csv"`, id))

	if err := h.store.ExportCSV(int64(id), c.Response().BodyWriter()); err != nil {
		logger.Error("Failed to export experiment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export experiment",
		})
	}

	return nil
}

// RunBatch executes prompts against the experiment's strategy. The
// request carries either an explicit prompt list or the name of a
// built-in test vector set.
func (h *ExperimentHandler) RunBatch(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid experiment id",
		})
	}

	var req struct {
		Prompts   []runner.PromptInput `json:"prompts"`
		VectorSet string               `json:"vector_set"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	exp, err := h.store.GetExperiment(int64(id))
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Experiment not found",
			})
		}
		logger.Error("Failed to load experiment", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load experiment",
		})
	}

	prompts, err := resolvePrompts(req.Prompts, req.VectorSet)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	strategy, err := agent.ParseStrategy(exp.Strategy)
	if err != nil {
		logger.Error("Experiment has invalid strategy",
			zap.Int64("experiment_id", exp.ID),
			zap.String("strategy", exp.Strategy),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Experiment has an invalid strategy",
		})
	}

	report, err := h.runner.RunBatch(c.Context(), exp.ID, strategy, prompts, nil)
	if err != nil {
		logger.Error("Batch run interrupted", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "Batch run interrupted",
			"report": report,
		})
	}

	return c.JSON(report)
}

func resolvePrompts(explicit []runner.PromptInput, vectorSet string) ([]runner.PromptInput, error) {
	if len(explicit) > 0 {
		for i, p := range explicit {
			if p.Text == "" {
				return nil, fmt.Errorf("prompt %d has empty text", i)
			}
		}
		return explicit, nil
	}

	if vectorSet == "" {
		return nil, fmt.Errorf("either prompts or vector_set is required")
	}

	set, err := vectors.Set(vectorSet)
	if err != nil {
		return nil, err
	}

	prompts := make([]runner.PromptInput, len(set))
	for i, v := range set {
		expected := v.ExpectedHallucination
		prompts[i] = runner.PromptInput{
			Text:                  v.Text,
			Category:              v.Category,
			ExpectedHallucination: &expected,
		}
	}
	return prompts, nil
}
