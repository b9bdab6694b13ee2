// Package observability exposes Prometheus metrics for LLM calls, tool
// executions and research requests.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records operational counters and latencies. A nil *Metrics
// is valid and records nothing, so components never have to branch on
// whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	llmCalls      *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	llmTokens     *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	researchCalls *prometheus.CounterVec
}

// NewMetrics creates a Metrics backed by its own Prometheus registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biomed_llm_calls_total",
			Help: "Chat completion calls by model and status.",
		}, []string{"model", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biomed_llm_call_duration_seconds",
			Help:    "Chat completion latency by model.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"model"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biomed_llm_tokens_total",
			Help: "Total tokens consumed by model.",
		}, []string{"model"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biomed_tool_executions_total",
			Help: "Tool adapter executions by tool and status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biomed_tool_execution_duration_seconds",
			Help:    "Tool adapter latency by tool.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool"}),
		researchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "biomed_research_requests_total",
			Help: "Top-level research operations by name and status.",
		}, []string{"operation", "status"}),
	}

	registry.MustRegister(m.llmCalls, m.llmDuration, m.llmTokens, m.toolCalls, m.toolDuration, m.researchCalls)

	return m
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordLLMCall records one chat completion round trip.
func (m *Metrics) RecordLLMCall(model string, duration time.Duration, tokens int, err error) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model, statusLabel(err)).Inc()
	m.llmDuration.WithLabelValues(model).Observe(duration.Seconds())
	if tokens > 0 {
		m.llmTokens.WithLabelValues(model).Add(float64(tokens))
	}
}

// RecordToolExecution records one tool adapter run.
func (m *Metrics) RecordToolExecution(tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, statusLabel(err)).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordResearchRequest records one top-level research operation.
func (m *Metrics) RecordResearchRequest(operation string, err error) {
	if m == nil {
		return
	}
	m.researchCalls.WithLabelValues(operation, statusLabel(err)).Inc()
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
