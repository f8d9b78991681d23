// Package agent issues prompts to the completion service under one of
// four hallucination-mitigation strategies and reports the response
// together with measurement metadata.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halluc-lab/backend/internal/knowledge"
	"github.com/halluc-lab/backend/internal/llm"
	"github.com/halluc-lab/backend/pkg/logger"
)

// Completer is the completion-service boundary. Satisfied by
// *llm.Client; stubbed in tests.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	Model() string
}

// Retriever is the slice of the knowledge store the RAG strategy needs.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]knowledge.Result, error)
}

type Agent struct {
	llm      Completer
	store    Retriever
	topK     int
	ragTemp  float32
	critTemp float32
}

type RAGOptions struct {
	TopK int
}

func New(completer Completer, store Retriever, topK int) *Agent {
	if topK <= 0 {
		topK = 3
	}
	return &Agent{
		llm:   completer,
		store: store,
		topK:  topK,
		// Grounded generation and critique both run cooler than the
		// experiment temperature.
		ragTemp:  0.3,
		critTemp: 0.3,
	}
}

// Run dispatches a prompt to the strategy's entry point.
func (a *Agent) Run(ctx context.Context, strategy Strategy, prompt string) (*Result, error) {
	switch strategy {
	case StrategyBaseline:
		return a.Baseline(ctx, prompt)
	case StrategyRAG:
		return a.WithRetrieval(ctx, prompt, RAGOptions{})
	case StrategySelfCritique:
		return a.SelfCritique(ctx, prompt)
	case StrategyChainOfThought:
		return a.ChainOfThought(ctx, prompt)
	default:
		return nil, fmt.Errorf("unknown mitigation strategy: %q", strategy)
	}
}

// Baseline sends the raw prompt with no mitigation.
func (a *Agent) Baseline(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{UserPrompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("baseline strategy: %w", err)
	}

	meta := a.newMetadata(StrategyBaseline, start)
	meta.FinishReason = resp.FinishReason
	addUsage(&meta, resp.Usage)

	return &Result{Text: resp.Content, Meta: meta}, nil
}

// WithRetrieval grounds the prompt with the top-k most similar
// reference documents before a single completion call.
func (a *Agent) WithRetrieval(ctx context.Context, prompt string, opts RAGOptions) (*Result, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = a.topK
	}

	retrieved, err := a.store.Query(ctx, prompt, topK)
	if err != nil {
		return nil, fmt.Errorf("rag strategy: retrieval: %w", err)
	}

	texts := make([]string, len(retrieved))
	docs := make([]RetrievedDoc, len(retrieved))
	for i, r := range retrieved {
		texts[i] = r.Document.Text
		docs[i] = RetrievedDoc{DocumentID: r.Document.ID, Score: r.Score}
	}

	start := time.Now()

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  buildRAGPrompt(prompt, texts),
		Temperature: a.ragTemp,
	})
	if err != nil {
		return nil, fmt.Errorf("rag strategy: %w", err)
	}

	meta := a.newMetadata(StrategyRAG, start)
	meta.FinishReason = resp.FinishReason
	meta.Retrieved = docs
	addUsage(&meta, resp.Usage)

	logger.Debug("RAG completion",
		zap.Int("retrieved", len(docs)),
		zap.Int("total_tokens", meta.TotalTokens),
	)

	return &Result{Text: resp.Content, Meta: meta}, nil
}

// SelfCritique generates a draft, then asks the model to critique and
// revise it against anti-fabrication principles. Always exactly two
// completion calls; both the draft and the critique land in metadata.
func (a *Agent) SelfCritique(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()

	draftResp, err := a.llm.Complete(ctx, llm.CompletionRequest{UserPrompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("self_critique strategy: draft: %w", err)
	}

	critiqueResp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  buildCritiquePrompt(prompt, draftResp.Content),
		Temperature: a.critTemp,
	})
	if err != nil {
		return nil, fmt.Errorf("self_critique strategy: critique: %w", err)
	}

	meta := a.newMetadata(StrategySelfCritique, start)
	meta.FinishReason = critiqueResp.FinishReason
	meta.Draft = draftResp.Content
	meta.Critique = critiqueResp.Content
	addUsage(&meta, draftResp.Usage)
	addUsage(&meta, critiqueResp.Usage)

	return &Result{Text: extractRevision(critiqueResp.Content), Meta: meta}, nil
}

// ChainOfThought demands explicit reasoning, an answer, a confidence
// label and limitations. A parse miss is recoverable: the raw text is
// returned with Unparsed set, never an error.
func (a *Agent) ChainOfThought(ctx context.Context, prompt string) (*Result, error) {
	start := time.Now()

	resp, err := a.llm.Complete(ctx, llm.CompletionRequest{
		UserPrompt: buildChainOfThoughtPrompt(prompt),
	})
	if err != nil {
		return nil, fmt.Errorf("chain_of_thought strategy: %w", err)
	}

	meta := a.newMetadata(StrategyChainOfThought, start)
	meta.FinishReason = resp.FinishReason
	addUsage(&meta, resp.Usage)

	fields, ok := parseChainOfThought(resp.Content)
	if ok {
		meta.Reasoning = fields.Reasoning
		meta.Answer = fields.Answer
		meta.Confidence = fields.Confidence
		meta.Limitations = fields.Limitations
	} else {
		meta.Unparsed = true
		logger.Warn("Chain-of-thought response missing markers",
			zap.Int("length", len(resp.Content)),
		)
	}

	return &Result{Text: resp.Content, Meta: meta}, nil
}

func (a *Agent) newMetadata(strategy Strategy, start time.Time) Metadata {
	return Metadata{
		Strategy:  strategy,
		Model:     a.llm.Model(),
		LatencyMS: time.Since(start).Milliseconds(),
	}
}

func addUsage(meta *Metadata, usage llm.Usage) {
	meta.PromptTokens += usage.PromptTokens
	meta.CompletionTokens += usage.CompletionTokens
	meta.TotalTokens += usage.TotalTokens
}
