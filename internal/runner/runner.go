// Package runner drives a batch of prompts through one mitigation
// strategy and persists the outcome of every successful call.
package runner

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/metrics"
	"github.com/halluc-lab/backend/internal/storage/models"
	"github.com/halluc-lab/backend/pkg/logger"
)

// Store is the persistence surface the runner needs.
type Store interface {
	LogPrompt(prompt *models.Prompt) (int64, error)
	LogResponse(resp *models.Response) (int64, error)
	LogRAGContext(rc *models.RAGContext) (int64, error)
}

type Runner struct {
	agent *agent.Agent
	store Store
}

// PromptInput is one prompt queued for a batch run.
type PromptInput struct {
	Text                  string `json:"text"`
	Category              string `json:"category,omitempty"`
	ExpectedHallucination *bool  `json:"expected_hallucination,omitempty"`
}

// Progress reports one finished prompt, successful or not.
type Progress struct {
	Index      int            `json:"index"`
	Total      int            `json:"total"`
	Strategy   agent.Strategy `json:"strategy"`
	PromptID   int64          `json:"prompt_id,omitempty"`
	ResponseID int64          `json:"response_id,omitempty"`
	LatencyMS  int64          `json:"latency_ms,omitempty"`
	Err        string         `json:"error,omitempty"`
}

// BatchReport summarizes a completed batch.
type BatchReport struct {
	ExperimentID int64    `json:"experiment_id"`
	Total        int      `json:"total"`
	Succeeded    int      `json:"succeeded"`
	Failed       int      `json:"failed"`
	Failures     []string `json:"failures,omitempty"`
}

func New(a *agent.Agent, store Store) *Runner {
	return &Runner{agent: a, store: store}
}

// RunBatch runs each prompt sequentially under the given strategy. The
// completion call happens first; prompt and response rows are written
// only after it succeeds, so a failed call leaves no partial state. A
// failure is counted and skipped, never aborting the batch.
func (r *Runner) RunBatch(
	ctx context.Context,
	experimentID int64,
	strategy agent.Strategy,
	prompts []PromptInput,
	onProgress func(Progress),
) (*BatchReport, error) {
	report := &BatchReport{ExperimentID: experimentID, Total: len(prompts)}

	for i, input := range prompts {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("batch interrupted: %w", err)
		}

		progress := Progress{Index: i, Total: len(prompts), Strategy: strategy}

		result, err := r.agent.Run(ctx, strategy, input.Text)
		if err != nil {
			metrics.StrategyRuns.WithLabelValues(string(strategy), "error").Inc()
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("prompt %d: %v", i, err))
			logger.Error("Prompt run failed",
				zap.Int64("experiment_id", experimentID),
				zap.Int("index", i),
				zap.Error(err),
			)
			progress.Err = err.Error()
			emit(onProgress, progress)
			continue
		}

		promptID, responseID, err := r.persist(experimentID, input, result)
		if err != nil {
			metrics.StrategyRuns.WithLabelValues(string(strategy), "error").Inc()
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("prompt %d: %v", i, err))
			logger.Error("Failed to persist prompt run",
				zap.Int64("experiment_id", experimentID),
				zap.Int("index", i),
				zap.Error(err),
			)
			progress.Err = err.Error()
			emit(onProgress, progress)
			continue
		}

		metrics.StrategyRuns.WithLabelValues(string(strategy), "ok").Inc()
		metrics.ResponseLatency.WithLabelValues(string(strategy)).
			Observe(float64(result.Meta.LatencyMS) / 1000)
		metrics.TokensUsed.WithLabelValues(result.Meta.Model, "prompt").
			Add(float64(result.Meta.PromptTokens))
		metrics.TokensUsed.WithLabelValues(result.Meta.Model, "completion").
			Add(float64(result.Meta.CompletionTokens))
		if strategy == agent.StrategyRAG {
			metrics.RetrievedDocuments.Observe(float64(len(result.Meta.Retrieved)))
		}
		if result.Meta.Unparsed {
			metrics.UnparsedResponses.Inc()
		}

		report.Succeeded++
		progress.PromptID = promptID
		progress.ResponseID = responseID
		progress.LatencyMS = result.Meta.LatencyMS
		emit(onProgress, progress)
	}

	logger.Info("Batch completed",
		zap.Int64("experiment_id", experimentID),
		zap.String("strategy", string(strategy)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

func (r *Runner) persist(experimentID int64, input PromptInput, result *agent.Result) (int64, int64, error) {
	promptID, err := r.store.LogPrompt(&models.Prompt{
		ExperimentID:          experimentID,
		Text:                  input.Text,
		Category:              input.Category,
		ExpectedHallucination: input.ExpectedHallucination,
	})
	if err != nil {
		return 0, 0, err
	}

	responseID, err := r.store.LogResponse(&models.Response{
		PromptID:         promptID,
		Text:             result.Text,
		LatencyMS:        result.Meta.LatencyMS,
		PromptTokens:     result.Meta.PromptTokens,
		CompletionTokens: result.Meta.CompletionTokens,
		TotalTokens:      result.Meta.TotalTokens,
		Artifact:         marshalArtifact(result.Meta),
	})
	if err != nil {
		return 0, 0, err
	}

	if len(result.Meta.Retrieved) > 0 {
		docs := make([]models.RetrievedDocument, len(result.Meta.Retrieved))
		for i, d := range result.Meta.Retrieved {
			docs[i] = models.RetrievedDocument{DocumentID: d.DocumentID, Score: d.Score}
		}
		if _, err := r.store.LogRAGContext(&models.RAGContext{
			ResponseID: responseID,
			Documents:  docs,
		}); err != nil {
			return 0, 0, err
		}
	}

	return promptID, responseID, nil
}

// marshalArtifact keeps only the strategy-specific fields; the common
// measurement columns already live on the response row.
func marshalArtifact(meta agent.Metadata) string {
	artifact := map[string]interface{}{}

	if meta.Draft != "" {
		artifact["draft"] = meta.Draft
	}
	if meta.Critique != "" {
		artifact["critique"] = meta.Critique
	}
	if meta.Reasoning != "" {
		artifact["reasoning"] = meta.Reasoning
	}
	if meta.Answer != "" {
		artifact["answer"] = meta.Answer
	}
	if meta.Confidence != "" {
		artifact["confidence"] = meta.Confidence
	}
	if meta.Limitations != "" {
		artifact["limitations"] = meta.Limitations
	}
	if meta.Unparsed {
		artifact["unparsed"] = true
	}

	if len(artifact) == 0 {
		return ""
	}

	data, err := json.Marshal(artifact)
	if err != nil {
		logger.Warn("Failed to marshal response artifact", zap.Error(err))
		return ""
	}
	return string(data)
}

func emit(onProgress func(Progress), p Progress) {
	if onProgress != nil {
		onProgress(p)
	}
}
