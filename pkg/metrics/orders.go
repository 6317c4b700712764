package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderFlowMetrics records outcomes of the confirmation and cancellation flows.
type OrderFlowMetrics struct {
	duration  *prometheus.HistogramVec
	completed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	replayed  *prometheus.CounterVec
}

// NewOrderFlowMetrics registers the order flow metrics on the provided registerer.
func NewOrderFlowMetrics(reg prometheus.Registerer) *OrderFlowMetrics {
	if reg == nil {
		return &OrderFlowMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_flow_duration_seconds",
		Help:    "Duration of order flow transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	completed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_flow_completed",
		Help: "Order flows that committed a state transition.",
	}, []string{"flow"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_flow_failed",
		Help: "Order flows that returned an error.",
	}, []string{"flow"})
	replayed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_flow_replayed",
		Help: "Order flows short-circuited by the idempotency guard.",
	}, []string{"flow"})
	reg.MustRegister(duration, completed, failed, replayed)
	return &OrderFlowMetrics{
		duration:  duration,
		completed: completed,
		failed:    failed,
		replayed:  replayed,
	}
}

// ObserveDuration records the duration for the named flow.
func (m *OrderFlowMetrics) ObserveDuration(flow string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(flow)).Observe(duration.Seconds())
}

// IncCompleted increments the committed counter for the named flow.
func (m *OrderFlowMetrics) IncCompleted(flow string) {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.WithLabelValues(normalizeLabel(flow)).Inc()
}

// IncFailed increments the failure counter for the named flow.
func (m *OrderFlowMetrics) IncFailed(flow string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(flow)).Inc()
}

// IncReplayed increments the idempotent-replay counter for the named flow.
func (m *OrderFlowMetrics) IncReplayed(flow string) {
	if m == nil || m.replayed == nil {
		return
	}
	m.replayed.WithLabelValues(normalizeLabel(flow)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}
