package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts inbound payment event outcomes.
type WebhookMetrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers webhook processing metrics.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Inbound payment webhook events by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_webhook_duration_seconds",
		Help:    "Time spent processing a payment webhook delivery.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	reg.MustRegister(outcomes, duration)
	return &WebhookMetrics{outcomes: outcomes, duration: duration}
}

// Observe records one webhook delivery with its outcome label.
func (w *WebhookMetrics) Observe(outcome string, duration time.Duration) {
	if w == nil || w.outcomes == nil {
		return
	}
	label := normalizeLabel(outcome)
	w.outcomes.WithLabelValues(label).Inc()
	w.duration.WithLabelValues(label).Observe(duration.Seconds())
}

// BookingMetrics counts hold attempts and their contention outcomes.
type BookingMetrics struct {
	holds *prometheus.CounterVec
}

// NewBookingMetrics registers booking hold metrics.
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	if reg == nil {
		return &BookingMetrics{}
	}
	holds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_hold_attempts_total",
		Help: "Booking hold attempts by result.",
	}, []string{"result"})
	reg.MustRegister(holds)
	return &BookingMetrics{holds: holds}
}

// IncHold records one hold attempt result (held, conflict, error).
func (b *BookingMetrics) IncHold(result string) {
	if b == nil || b.holds == nil {
		return
	}
	b.holds.WithLabelValues(normalizeLabel(result)).Inc()
}
