package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the agent's Prometheus instruments. A nil *Metrics is a
// no-op, so callers never need to guard their Record calls.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	approvalOutcomes *prometheus.CounterVec
	postsPublished   prometheus.Counter
	repliesPublished prometheus.Counter
	memoriesSaved    prometheus.Counter
}

// NewMetrics registers the agent's instruments on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_automation_runs_total",
			Help: "Automation runs by final status.",
		}, []string{"status"}),
		approvalOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_approval_outcomes_total",
			Help: "Approval session outcomes by goal.",
		}, []string{"goal", "outcome"}),
		postsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_posts_published_total",
			Help: "Brand posts published.",
		}),
		repliesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_replies_published_total",
			Help: "Engagement replies published.",
		}),
		memoriesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agent_feedback_memories_saved_total",
			Help: "Feedback memories persisted.",
		}),
	}

	registry.MustRegister(
		m.runsTotal,
		m.approvalOutcomes,
		m.postsPublished,
		m.repliesPublished,
		m.memoriesSaved,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished automation run with its final status.
func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}

	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordApprovalOutcome counts one approval session result.
func (m *Metrics) RecordApprovalOutcome(goal, outcome string) {
	if m == nil {
		return
	}

	m.approvalOutcomes.WithLabelValues(goal, outcome).Inc()
}

// RecordPostPublished counts a published brand post.
func (m *Metrics) RecordPostPublished() {
	if m == nil {
		return
	}

	m.postsPublished.Inc()
}

// RecordReplyPublished counts a published engagement reply.
func (m *Metrics) RecordReplyPublished() {
	if m == nil {
		return
	}

	m.repliesPublished.Inc()
}

// RecordMemorySaved counts a persisted feedback memory.
func (m *Metrics) RecordMemorySaved() {
	if m == nil {
		return
	}

	m.memoriesSaved.Inc()
}
