package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/runner"
	"github.com/halluc-lab/backend/internal/storage/sqlite"
	"github.com/halluc-lab/backend/pkg/logger"
)

// WebSocketHandler streams batch-run progress to a connected client,
// one message per finished prompt.
type WebSocketHandler struct {
	store  *sqlite.Client
	runner *runner.Runner
}

func NewWebSocketHandler(store *sqlite.Client, r *runner.Runner) *WebSocketHandler {
	return &WebSocketHandler{
		store:  store,
		runner: r,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type         string               `json:"type"`
			ExperimentID int64                `json:"experiment_id"`
			Prompts      []runner.PromptInput `json:"prompts"`
			VectorSet    string               `json:"vector_set"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "run" {
			continue
		}

		logger.Info("Processing WebSocket batch run",
			zap.Int64("experiment_id", msg.ExperimentID),
			zap.String("vector_set", msg.VectorSet),
		)

		if err := h.streamRun(c, msg.ExperimentID, msg.Prompts, msg.VectorSet); err != nil {
			logger.Error("Failed to stream batch run", zap.Error(err))
			h.sendError(c, err.Error())
		}
	}
}

func (h *WebSocketHandler) streamRun(
	c *websocket.Conn,
	experimentID int64,
	prompts []runner.PromptInput,
	vectorSet string,
) error {
	exp, err := h.store.GetExperiment(experimentID)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return errors.New("experiment not found")
		}
		return err
	}

	strategy, err := agent.ParseStrategy(exp.Strategy)
	if err != nil {
		return err
	}

	resolved, err := resolvePrompts(prompts, vectorSet)
	if err != nil {
		return err
	}

	onProgress := func(p runner.Progress) {
		msg := map[string]interface{}{
			"type":     "progress",
			"progress": p,
		}
		if err := c.WriteJSON(msg); err != nil {
			logger.Debug("WebSocket progress write failed", zap.Error(err))
		}
	}

	report, err := h.runner.RunBatch(context.Background(), exp.ID, strategy, resolved, onProgress)
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"report": report,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
