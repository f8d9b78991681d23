package runner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halluc-lab/backend/internal/agent"
	"github.com/halluc-lab/backend/internal/knowledge"
	"github.com/halluc-lab/backend/internal/llm"
	"github.com/halluc-lab/backend/internal/storage/models"
)

// scriptedCompleter fails on marked prompts and answers the rest.
type scriptedCompleter struct {
	failOn map[string]bool
	calls  int
}

func (s *scriptedCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	if s.failOn[req.UserPrompt] {
		return nil, llm.ErrUpstreamUnavailable
	}
	return &llm.CompletionResponse{
		Content: "answer to: " + req.UserPrompt,
		Usage:   llm.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
	}, nil
}

func (s *scriptedCompleter) Model() string { return "test-model" }

type memoryExperimentStore struct {
	prompts     []models.Prompt
	responses   []models.Response
	ragContexts []models.RAGContext
	failPrompts bool
}

func (m *memoryExperimentStore) LogPrompt(p *models.Prompt) (int64, error) {
	if m.failPrompts {
		return 0, errors.New("storage down")
	}
	m.prompts = append(m.prompts, *p)
	return int64(len(m.prompts)), nil
}

func (m *memoryExperimentStore) LogResponse(r *models.Response) (int64, error) {
	m.responses = append(m.responses, *r)
	return int64(len(m.responses)), nil
}

func (m *memoryExperimentStore) LogRAGContext(rc *models.RAGContext) (int64, error) {
	m.ragContexts = append(m.ragContexts, *rc)
	return int64(len(m.ragContexts)), nil
}

type singleDocRetriever struct{}

func (singleDocRetriever) Query(ctx context.Context, text string, k int) ([]knowledge.Result, error) {
	return []knowledge.Result{
		{Document: knowledge.Document{ID: "sql-injection", Text: "Use parameterized queries."}, Score: 0.9},
	}, nil
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	completer := &scriptedCompleter{failOn: map[string]bool{"bad prompt": true}}
	store := &memoryExperimentStore{}
	r := New(agent.New(completer, nil, 3), store)

	var progress []Progress
	report, err := r.RunBatch(
		context.Background(),
		1,
		agent.StrategyBaseline,
		[]PromptInput{
			{Text: "good prompt", Category: "control"},
			{Text: "bad prompt", Category: "fabricated_cve"},
			{Text: "another good prompt", Category: "control"},
		},
		func(p Progress) { progress = append(progress, p) },
	)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0], "prompt 1")

	// The failed prompt left no rows behind.
	require.Len(t, store.prompts, 2)
	require.Len(t, store.responses, 2)
	assert.Equal(t, "good prompt", store.prompts[0].Text)
	assert.Equal(t, "another good prompt", store.prompts[1].Text)

	require.Len(t, progress, 3)
	assert.Empty(t, progress[0].Err)
	assert.NotEmpty(t, progress[1].Err)
	assert.Positive(t, progress[0].ResponseID)
}

func TestRunBatchPersistsRAGContext(t *testing.T) {
	completer := &scriptedCompleter{}
	store := &memoryExperimentStore{}
	r := New(agent.New(completer, singleDocRetriever{}, 3), store)

	report, err := r.RunBatch(
		context.Background(),
		7,
		agent.StrategyRAG,
		[]PromptInput{{Text: "How do I stop SQL injection?"}},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)

	require.Len(t, store.ragContexts, 1)
	require.Len(t, store.ragContexts[0].Documents, 1)
	assert.Equal(t, "sql-injection", store.ragContexts[0].Documents[0].DocumentID)
}

func TestRunBatchStorageFailureCountsAsFailed(t *testing.T) {
	completer := &scriptedCompleter{}
	store := &memoryExperimentStore{failPrompts: true}
	r := New(agent.New(completer, nil, 3), store)

	report, err := r.RunBatch(
		context.Background(),
		1,
		agent.StrategyBaseline,
		[]PromptInput{{Text: "anything"}},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Succeeded)
	assert.Empty(t, store.responses)
}

func TestRunBatchStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	completer := &scriptedCompleter{}
	store := &memoryExperimentStore{}
	r := New(agent.New(completer, nil, 3), store)

	_, err := r.RunBatch(ctx, 1, agent.StrategyBaseline, []PromptInput{{Text: "anything"}}, nil)
	require.Error(t, err)
	assert.Zero(t, completer.calls)
}

func TestMarshalArtifact(t *testing.T) {
	meta := agent.Metadata{
		Strategy: agent.StrategySelfCritique,
		Draft:    "first attempt",
		Critique: "CRITIQUE: invented a CVE",
	}

	artifact := marshalArtifact(meta)
	require.NotEmpty(t, artifact)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(artifact), &decoded))
	assert.Equal(t, "first attempt", decoded["draft"])
	assert.NotContains(t, decoded, "reasoning")

	// Common measurement fields alone produce no artifact.
	assert.Empty(t, marshalArtifact(agent.Metadata{Strategy: agent.StrategyBaseline, TotalTokens: 10}))
}
