package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded per processed webhook event.
const (
	WebhookOutcomeApplied          = "applied"
	WebhookOutcomeDuplicate        = "duplicate"
	WebhookOutcomeStale            = "stale"
	WebhookOutcomeBenignMiss       = "benign_miss"
	WebhookOutcomeInvalidSignature = "invalid_signature"
	WebhookOutcomeIgnored          = "ignored"
	WebhookOutcomeError            = "error"
)

// WebhookMetrics tracks payment webhook reconciliation outcomes.
type WebhookMetrics struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Payment webhook events by type and reconciliation outcome.",
	}, []string{"event_type", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_seconds",
		Help:    "Time spent reconciling a webhook event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(events, duration)
	return &WebhookMetrics{
		events:   events,
		duration: duration,
	}
}

// IncEvent counts one processed event with its outcome.
func (w *WebhookMetrics) IncEvent(eventType, outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveProcessing records how long reconciliation of one event took.
func (w *WebhookMetrics) ObserveProcessing(eventType string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}
