// Package metrics exposes Prometheus instrumentation for strategy runs,
// completion usage and annotation activity.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StrategyRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halluc_strategy_runs_total",
			Help: "Prompt runs by mitigation strategy and outcome",
		},
		[]string{"strategy", "status"},
	)

	ResponseLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "halluc_response_latency_seconds",
			Help:    "End-to-end completion latency by strategy",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"strategy"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halluc_llm_tokens_total",
			Help: "Tokens consumed by model and token type",
		},
		[]string{"model", "type"},
	)

	RetrievedDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "halluc_retrieved_documents",
			Help:    "Documents returned per retrieval query",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
	)

	Annotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halluc_annotations_total",
			Help: "Annotations recorded by judgement and severity",
		},
		[]string{"is_hallucination", "severity"},
	)

	KnowledgeDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halluc_knowledge_documents",
			Help: "Documents currently loaded in the knowledge store",
		},
	)

	UnparsedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halluc_unparsed_responses_total",
			Help: "Chain-of-thought responses that missed the expected format",
		},
	)
)

// Handler serves the Prometheus scrape endpoint through Fiber.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
