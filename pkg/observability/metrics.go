package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver, so components can be wired without instrumentation.
type Metrics struct {
	toolCalls          *prometheus.CounterVec
	executions         *prometheus.CounterVec
	validationFailures prometheus.Counter
	storageDivergence  prometheus.Counter
	webhookDuration    prometheus.Histogram
}

// New registers the pipeline collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "tool_calls_total",
			Help:      "Tool calls handled, by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "executions_total",
			Help:      "Webhook execution attempts, by final status.",
		}, []string{"status"}),
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "validation_failures_total",
			Help:      "Intents rejected by the validator.",
		}),
		storageDivergence: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "storage_divergence_total",
			Help:      "Best-effort storage writes that failed while the ledger succeeded.",
		}),
		webhookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "webhook_duration_seconds",
			Help:      "Latency of webhook dispatches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.toolCalls, m.executions, m.validationFailures, m.storageDivergence, m.webhookDuration)
	return m
}

// ToolCall counts one handled tool call.
func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// Execution counts one execution attempt by final status.
func (m *Metrics) Execution(status string) {
	if m == nil {
		return
	}
	m.executions.WithLabelValues(status).Inc()
}

// ValidationFailure counts one rejected intent.
func (m *Metrics) ValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

// StorageDivergence counts one failed best-effort storage write.
func (m *Metrics) StorageDivergence() {
	if m == nil {
		return
	}
	m.storageDivergence.Inc()
}

// WebhookDuration records the latency of one dispatch.
func (m *Metrics) WebhookDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.webhookDuration.Observe(d.Seconds())
}
