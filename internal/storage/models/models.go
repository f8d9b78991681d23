package models

import "time"

// Experiment is the root of one run; never mutated after creation.
type Experiment struct {
	ID          int64
	Name        string
	Description string
	Strategy    string
	ModelName   string
	Temperature float64
	MaxTokens   int
	Notes       string
	CreatedAt   time.Time
}

type Prompt struct {
	ID                    int64
	ExperimentID          int64
	Text                  string
	Category              string
	ExpectedHallucination *bool
	CreatedAt             time.Time
}

// Response is created once and never updated. Artifact holds the
// strategy-specific payload (draft/critique, chain-of-thought fields)
// as JSON; empty means none.
type Response struct {
	ID               int64
	PromptID         int64
	Text             string
	LatencyMS        int64
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Artifact         string
	CreatedAt        time.Time
}

// Annotation attaches a human hallucination judgement to a response.
type Annotation struct {
	ID              int64
	ResponseID      int64
	IsHallucination bool
	Type            string
	Severity        string
	Description     string
	Evidence        string
	FalseClaim      string
	CreatedAt       time.Time
}

type RetrievedDocument struct {
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
}

// RAGContext snapshots what was retrieved for one response.
type RAGContext struct {
	ID         int64
	ResponseID int64
	Documents  []RetrievedDocument
	CreatedAt  time.Time
}

// ExperimentResult is one joined row of prompts, responses and
// (optionally) annotations for an experiment.
type ExperimentResult struct {
	ExperimentID      int64
	ExperimentName    string
	Strategy          string
	PromptID          int64
	PromptText        string
	Category          string
	ResponseID        int64
	ResponseText      string
	LatencyMS         int64
	TotalTokens       int
	Annotated         bool
	IsHallucination   *bool
	HallucinationType *string
	Severity          *string
	CreatedAt         time.Time
}

type ExperimentSummary struct {
	ID                int64
	Name              string
	Strategy          string
	CreatedAt         time.Time
	TotalPrompts      int
	TotalResponses    int
	Hallucinations    int
	HallucinationRate float64
}

// StatGroup aggregates annotations for one (strategy, category) pair.
// HallucinationRate is hallucinations over annotated responses, defined
// as zero when nothing is annotated.
type StatGroup struct {
	Strategy          string
	Category          string
	Responses         int
	Annotated         int
	Hallucinations    int
	HallucinationRate float64
	SeverityCounts    map[string]int
}

type Statistics struct {
	TotalExperiments int
	TotalResponses   int
	Groups           []StatGroup
}

// HallucinationTypes is the annotation vocabulary for the type tag.
var HallucinationTypes = []string{
	"factual_error",
	"fabricated_citation",
	"fake_entity",
	"temporal_error",
	"security_misinformation",
	"fabricated_cve",
	"fake_tool",
	"confabulation",
}

// SeverityLevels is the annotation vocabulary for the severity tag.
var SeverityLevels = []string{"low", "medium", "high", "critical"}
