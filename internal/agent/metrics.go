package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatTurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskflow_chat_turns_total",
		Help: "Chat turns by outcome (reply, fallback, error).",
	}, []string{"outcome"})

	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskflow_tool_calls_total",
		Help: "Tool executions by tool name and status.",
	}, []string{"tool", "status"})

	llmRequestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taskflow_llm_request_seconds",
		Help:    "Latency of model round-trips.",
		Buckets: prometheus.DefBuckets,
	})
)
