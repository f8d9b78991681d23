// Package validation rejects malformed experiment, annotation and
// knowledge-query payloads before they reach a handler.
package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/storage/models"
)

type Config struct {
	MaxPromptLength int
	Logger          *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxPromptLength == 0 {
		cfg.MaxPromptLength = 8000
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.Contains(contentType, "application/json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Content type must be application/json",
			})
		}

		path := c.Path()

		switch {
		case strings.HasSuffix(path, "/experiments"):
			return validateExperiment(c, cfg)
		case strings.HasSuffix(path, "/annotations"):
			return validateAnnotation(c, cfg)
		case strings.HasSuffix(path, "/knowledge/query"):
			return validateKnowledgeQuery(c, cfg)
		}

		return c.Next()
	}
}

func validateExperiment(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	name, ok := req["name"].(string)
	if !ok || strings.TrimSpace(name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Experiment name is required",
		})
	}

	strategy, ok := req["mitigation_strategy"].(string)
	if !ok || strategy == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Mitigation strategy is required",
		})
	}
	if _, err := agent.ParseStrategy(strategy); err != nil {
		cfg.Logger.Warn("Rejected unknown strategy",
			zap.String("strategy", strategy),
			zap.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Unknown mitigation strategy",
			"allowed": agent.Strategies(),
		})
	}

	return c.Next()
}

func validateAnnotation(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	if _, ok := req["response_id"].(float64); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "response_id is required",
		})
	}

	if _, ok := req["is_hallucination"].(bool); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "is_hallucination is required and must be a boolean",
		})
	}

	if t, ok := req["hallucination_type"].(string); ok && t != "" {
		if !contains(models.HallucinationTypes, t) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Unknown hallucination type",
				"allowed": models.HallucinationTypes,
			})
		}
	}

	if s, ok := req["severity"].(string); ok && s != "" {
		if !contains(models.SeverityLevels, s) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Unknown severity level",
				"allowed": models.SeverityLevels,
			})
		}
	}

	return c.Next()
}

func validateKnowledgeQuery(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON format",
		})
	}

	text, ok := req["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query text is required",
		})
	}

	if len(text) > cfg.MaxPromptLength {
		cfg.Logger.Warn("Rejected oversized query",
			zap.Int("length", len(text)),
			zap.String("ip", c.IP()),
		)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query text exceeds maximum length",
		})
	}

	return c.Next()
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
