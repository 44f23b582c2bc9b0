package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the bot.
type Metrics struct {
	// Command metrics
	CommandRequests *prometheus.CounterVec
	CommandLatency  prometheus.Histogram
	CommandErrors   *prometheus.CounterVec

	// Orchestration metrics
	TokensUsed *prometheus.CounterVec
	ToolCalls  *prometheus.CounterVec

	// Guard metrics
	RateLimitRejections *prometheus.CounterVec
}

var globalMetrics *Metrics

// Init initializes the Prometheus metrics.
func Init() *Metrics {
	metrics := &Metrics{
		CommandRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epicgpt_command_requests_total",
			Help: "Total number of slash command invocations by command and status",
		}, []string{"command", "status"}), // status: "ok" or "error"

		CommandLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "epicgpt_command_duration_seconds",
			Help:    "Slash command handling latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		CommandErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epicgpt_command_errors_total",
			Help: "Total number of command errors by command",
		}, []string{"command"}),

		TokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epicgpt_tokens_total",
			Help: "Total completion API tokens consumed by kind",
		}, []string{"kind"}), // kind: "prompt", "completion", "cached"

		ToolCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epicgpt_tool_calls_total",
			Help: "Total number of tool executions by tool name",
		}, []string{"tool"}),

		RateLimitRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "epicgpt_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter, by class",
		}, []string{"class"}),
	}

	globalMetrics = metrics
	return metrics
}

// Get returns the global metrics instance (nil if Init was never called).
func Get() *Metrics {
	return globalMetrics
}
