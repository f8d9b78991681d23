package sqlite

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halluc-lab/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func createExperiment(t *testing.T, client *Client, name, strategy string) int64 {
	t.Helper()

	id, err := client.CreateExperiment(&models.Experiment{
		Name:        name,
		Strategy:    strategy,
		ModelName:   "gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	return id
}

func logPromptAndResponse(t *testing.T, client *Client, experimentID int64, category string) (int64, int64) {
	t.Helper()

	promptID, err := client.LogPrompt(&models.Prompt{
		ExperimentID: experimentID,
		Text:         "Explain CVE-2023-99999.",
		Category:     category,
	})
	require.NoError(t, err)

	responseID, err := client.LogResponse(&models.Response{
		PromptID:         promptID,
		Text:             "I could not find any record of that CVE.",
		LatencyMS:        1200,
		PromptTokens:     15,
		CompletionTokens: 12,
		TotalTokens:      27,
	})
	require.NoError(t, err)

	return promptID, responseID
}

func TestCreateAndGetExperiment(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "baseline run", "baseline")
	require.Positive(t, id)

	exp, err := client.GetExperiment(id)
	require.NoError(t, err)
	assert.Equal(t, "baseline run", exp.Name)
	assert.Equal(t, "baseline", exp.Strategy)
	assert.Equal(t, "gpt-3.5-turbo", exp.ModelName)
	assert.InDelta(t, 0.7, exp.Temperature, 1e-9)
}

func TestGetExperimentNotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetExperiment(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogPromptRejectsUnknownExperiment(t *testing.T) {
	client := newTestClient(t)

	_, err := client.LogPrompt(&models.Prompt{
		ExperimentID: 999,
		Text:         "orphan prompt",
	})
	assert.ErrorIs(t, err, ErrStorage)
}

func TestGetExperimentResults(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "rag run", "rag")
	_, responseID := logPromptAndResponse(t, client, id, "fabricated_cve")
	logPromptAndResponse(t, client, id, "control")

	_, err := client.LogAnnotation(&models.Annotation{
		ResponseID:      responseID,
		IsHallucination: true,
		Type:            "fabricated_cve",
		Severity:        "high",
		Description:     "Invented CVE details",
	})
	require.NoError(t, err)

	results, err := client.GetExperimentResults(id)
	require.NoError(t, err)
	require.Len(t, results, 2)

	annotated := results[0]
	assert.True(t, annotated.Annotated)
	require.NotNil(t, annotated.IsHallucination)
	assert.True(t, *annotated.IsHallucination)
	require.NotNil(t, annotated.Severity)
	assert.Equal(t, "high", *annotated.Severity)

	bare := results[1]
	assert.False(t, bare.Annotated)
	assert.Nil(t, bare.IsHallucination)
	assert.Nil(t, bare.HallucinationType)
}

func TestReannotatedResponseCountsOnce(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "revised judgement", "baseline")
	_, responseID := logPromptAndResponse(t, client, id, "fabricated_cve")

	_, err := client.LogAnnotation(&models.Annotation{
		ResponseID:      responseID,
		IsHallucination: true,
		Type:            "fabricated_cve",
		Severity:        "critical",
	})
	require.NoError(t, err)

	// A second annotation revises the first; only it should be visible.
	_, err = client.LogAnnotation(&models.Annotation{
		ResponseID:      responseID,
		IsHallucination: false,
		Severity:        "low",
	})
	require.NoError(t, err)

	results, err := client.GetExperimentResults(id)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotNil(t, results[0].IsHallucination)
	assert.False(t, *results[0].IsHallucination)
	require.NotNil(t, results[0].Severity)
	assert.Equal(t, "low", *results[0].Severity)

	summaries, err := client.GetAllExperiments()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].TotalResponses)
	assert.Zero(t, summaries[0].Hallucinations)

	stats, err := client.GetStatistics()
	require.NoError(t, err)
	require.Len(t, stats.Groups, 1)
	assert.Equal(t, 1, stats.Groups[0].Responses)
	assert.Equal(t, 1, stats.Groups[0].Annotated)
	assert.Zero(t, stats.Groups[0].Hallucinations)
	assert.Empty(t, stats.Groups[0].SeverityCounts)
}

func TestLogRAGContextRoundTrip(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "rag run", "rag")
	_, responseID := logPromptAndResponse(t, client, id, "control")

	ctxID, err := client.LogRAGContext(&models.RAGContext{
		ResponseID: responseID,
		Documents: []models.RetrievedDocument{
			{DocumentID: "sql-injection", Score: 0.91},
			{DocumentID: "xss", Score: 0.44},
		},
	})
	require.NoError(t, err)
	assert.Positive(t, ctxID)
}

func TestGetAllExperiments(t *testing.T) {
	client := newTestClient(t)

	first := createExperiment(t, client, "first", "baseline")
	createExperiment(t, client, "second", "chain_of_thought")

	_, responseID := logPromptAndResponse(t, client, first, "control")
	_, err := client.LogAnnotation(&models.Annotation{
		ResponseID:      responseID,
		IsHallucination: true,
		Severity:        "medium",
	})
	require.NoError(t, err)

	summaries, err := client.GetAllExperiments()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byName := make(map[string]models.ExperimentSummary)
	for _, s := range summaries {
		byName[s.Name] = s
	}

	assert.Equal(t, 1, byName["first"].TotalResponses)
	assert.Equal(t, 1, byName["first"].Hallucinations)
	assert.InDelta(t, 1.0, byName["first"].HallucinationRate, 1e-9)

	assert.Zero(t, byName["second"].TotalResponses)
	assert.Zero(t, byName["second"].HallucinationRate)
}

func TestGetStatistics(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "stats run", "baseline")

	_, annotatedID := logPromptAndResponse(t, client, id, "fabricated_cve")
	logPromptAndResponse(t, client, id, "fabricated_cve")

	_, err := client.LogAnnotation(&models.Annotation{
		ResponseID:      annotatedID,
		IsHallucination: true,
		Type:            "fabricated_cve",
		Severity:        "high",
	})
	require.NoError(t, err)

	stats, err := client.GetStatistics()
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalExperiments)
	assert.Equal(t, 2, stats.TotalResponses)
	require.Len(t, stats.Groups, 1)

	group := stats.Groups[0]
	assert.Equal(t, "baseline", group.Strategy)
	assert.Equal(t, "fabricated_cve", group.Category)
	assert.Equal(t, 2, group.Responses)
	assert.Equal(t, 1, group.Annotated)
	assert.Equal(t, 1, group.Hallucinations)
	assert.InDelta(t, 1.0, group.HallucinationRate, 1e-9)
	assert.Equal(t, 1, group.SeverityCounts["high"])
}

func TestGetStatisticsNoAnnotations(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "bare run", "rag")
	logPromptAndResponse(t, client, id, "control")

	stats, err := client.GetStatistics()
	require.NoError(t, err)
	require.Len(t, stats.Groups, 1)

	// Zero annotated responses must report a zero rate, not NaN.
	assert.Zero(t, stats.Groups[0].HallucinationRate)
	assert.Equal(t, 1, stats.Groups[0].Responses)
}

func TestExportCSV(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "export run", "self_critique")
	_, responseID := logPromptAndResponse(t, client, id, "fabricated_cve")
	_, err := client.LogAnnotation(&models.Annotation{
		ResponseID:      responseID,
		IsHallucination: true,
		Type:            "fabricated_cve",
		Severity:        "critical",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, client.ExportCSV(id, &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header := records[0]
	assert.Equal(t, "experiment_id", header[0])
	assert.Contains(t, header, "is_hallucination")

	row := records[1]
	assert.Equal(t, "export run", row[1])
	assert.Equal(t, "self_critique", row[2])
	assert.Equal(t, "true", row[10])
	assert.Equal(t, "true", row[11])
	assert.Equal(t, "critical", row[13])
}

func TestExportCSVEmptyExperiment(t *testing.T) {
	client := newTestClient(t)

	id := createExperiment(t, client, "empty run", "baseline")

	var buf bytes.Buffer
	require.NoError(t, client.ExportCSV(id, &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
