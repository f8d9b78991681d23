package agent

import "fmt"

// Strategy selects the mitigation applied to a prompt. Each variant
// carries its behaviour in the agent's matching method; Run dispatches.
type Strategy string

const (
	StrategyBaseline       Strategy = "baseline"
	StrategyRAG            Strategy = "rag"
	StrategySelfCritique   Strategy = "self_critique"
	StrategyChainOfThought Strategy = "chain_of_thought"
)

func Strategies() []Strategy {
	return []Strategy{
		StrategyBaseline,
		StrategyRAG,
		StrategySelfCritique,
		StrategyChainOfThought,
	}
}

func ParseStrategy(s string) (Strategy, error) {
	for _, strategy := range Strategies() {
		if string(strategy) == s {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown mitigation strategy: %q", s)
}

// RetrievedDoc records one retrieval hit for a RAG run.
type RetrievedDoc struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// Metadata accompanies every response. Strategy-specific fields are
// zero-valued for strategies that do not produce them.
type Metadata struct {
	Strategy         Strategy       `json:"strategy"`
	Model            string         `json:"model"`
	LatencyMS        int64          `json:"latency_ms"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	FinishReason     string         `json:"finish_reason,omitempty"`
	Retrieved        []RetrievedDoc `json:"retrieved,omitempty"`
	Draft            string         `json:"draft,omitempty"`
	Critique         string         `json:"critique,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	Answer           string         `json:"answer,omitempty"`
	Confidence       string         `json:"confidence,omitempty"`
	Limitations      string         `json:"limitations,omitempty"`
	Unparsed         bool           `json:"unparsed,omitempty"`
}

// Result is the agent's answer to one prompt under one strategy.
type Result struct {
	Text string
	Meta Metadata
}
