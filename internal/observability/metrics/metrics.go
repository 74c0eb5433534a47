package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	webhookLatency   *prometheus.HistogramVec
	eventsTotal      *prometheus.CounterVec
	draftsTotal      *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landing",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by outcome",
		}, []string{"outcome"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "landing",
			Subsystem: "leads",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of lead webhook calls as seen by the submitter",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landing",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Tracking events pushed to sinks",
		}, []string{"event", "status"}),
		draftsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "landing",
			Subsystem: "leads",
			Name:      "drafts_saved_total",
			Help:      "Partial lead saves by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.webhookLatency, m.eventsTotal, m.draftsTotal)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveWebhookLatency(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(outcome).Observe(seconds)
}

// ObserveEvent satisfies the events notifier observer.
func (m *LeadMetrics) ObserveEvent(name, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(name, status).Inc()
}

func (m *LeadMetrics) ObserveDraft(status string) {
	if m == nil {
		return
	}
	m.draftsTotal.WithLabelValues(status).Inc()
}
