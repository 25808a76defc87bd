package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records email outbox delivery.
type OutboxMetrics struct {
	sent          prometheus.Counter
	failed        *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// NewOutboxMetrics registers the outbox worker metrics.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	sent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_sent_total",
		Help: "Emails delivered from the outbox.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Email delivery failures, by outcome.",
	}, []string{"outcome"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of a single outbox batch in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(sent, failed, batchDuration)
	return &OutboxMetrics{sent: sent, failed: failed, batchDuration: batchDuration}
}

// IncSent counts a delivered email.
func (m *OutboxMetrics) IncSent() {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.Inc()
}

// IncFailed counts a failed delivery; outcome is "retry" or "terminal".
func (m *OutboxMetrics) IncFailed(outcome string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBatch records the duration of a processed batch.
func (m *OutboxMetrics) ObserveBatch(duration time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(duration.Seconds())
}
