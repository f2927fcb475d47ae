package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records outcomes and latency for provider webhook deliveries.
type WebhookMetrics struct {
	duration *prometheus.HistogramVec
	handled  *prometheus.CounterVec
	ignored  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event"})
	handled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_handled",
		Help: "Webhook deliveries handled successfully.",
	}, []string{"event"})
	ignored := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_ignored",
		Help: "Webhook deliveries acknowledged without a handler.",
	}, []string{"event"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected",
		Help: "Webhook deliveries rejected before handling.",
	}, []string{"reason"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_failed",
		Help: "Webhook deliveries whose handler returned an error.",
	}, []string{"event"})
	reg.MustRegister(duration, handled, ignored, rejected, failed)
	return &WebhookMetrics{
		duration: duration,
		handled:  handled,
		ignored:  ignored,
		rejected: rejected,
		failed:   failed,
	}
}

// ObserveDuration records how long handling the named event took.
func (w *WebhookMetrics) ObserveDuration(event string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(event)).Observe(duration.Seconds())
}

// IncHandled increments the handled counter for the named event.
func (w *WebhookMetrics) IncHandled(event string) {
	if w == nil || w.handled == nil {
		return
	}
	w.handled.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncIgnored increments the ignored counter for the named event.
func (w *WebhookMetrics) IncIgnored(event string) {
	if w == nil || w.ignored == nil {
		return
	}
	w.ignored.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncRejected increments the rejected counter for the given reason.
func (w *WebhookMetrics) IncRejected(reason string) {
	if w == nil || w.rejected == nil {
		return
	}
	w.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncFailed increments the failure counter for the named event.
func (w *WebhookMetrics) IncFailed(event string) {
	if w == nil || w.failed == nil {
		return
	}
	w.failed.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
