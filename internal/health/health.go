// Package health records a rejection counter for tool calls that fail
// validation or execution, consumed by internal/mcpserver and exported as
// a Prometheus call counter and latency histogram for whatever scrapes this
// process.
package health

import "github.com/prometheus/client_golang/prometheus"

// Sink counts successful and rejected tool calls. A non-zero rejection
// rate is what the original server's HealthCheck field exposed to an
// external liveness probe; that probe surface itself is out of scope here
// (see SPEC_FULL.md Non-goals), but the counting is cheap and load-bearing
// enough to keep as a seam other components can call into.
type Sink struct {
	calls     *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewSink registers its metrics against reg. Pass prometheus.NewRegistry()
// in tests to avoid colliding with the global default registry.
func NewSink(reg prometheus.Registerer) *Sink {
	s := &Sink{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graphql_mcp_tool_calls_total",
			Help: "Count of MCP tool calls by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "graphql_mcp_tool_call_duration_seconds",
			Help: "Tool call latency by tool name.",
		}, []string{"tool"}),
	}
	reg.MustRegister(s.calls, s.durations)
	return s
}

// RecordSuccess increments the success counter for tool and observes
// durationSeconds against its latency histogram.
func (s *Sink) RecordSuccess(tool string, durationSeconds float64) {
	s.calls.WithLabelValues(tool, "success").Inc()
	s.durations.WithLabelValues(tool).Observe(durationSeconds)
}

// RecordRejection increments the rejection counter for tool. reason is a
// short, low-cardinality label such as "not_found", "invalid_arguments",
// or "graphql_error".
func (s *Sink) RecordRejection(tool, reason string) {
	s.calls.WithLabelValues(tool, "rejected:"+reason).Inc()
}
