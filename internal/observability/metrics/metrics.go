package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	slotFetches     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	creationLatency *prometheus.HistogramVec
	activeSessions  prometheus.Gauge
	confirmations   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		slotFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduledpros",
			Subsystem: "booking",
			Name:      "slot_fetch_total",
			Help:      "Available-slot fetches by outcome",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduledpros",
			Subsystem: "booking",
			Name:      "submission_total",
			Help:      "Appointment creation requests by outcome",
		}, []string{"outcome"}),
		creationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduledpros",
			Subsystem: "booking",
			Name:      "creation_latency_seconds",
			Help:      "Latency of appointment creation requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scheduledpros",
			Subsystem: "booking",
			Name:      "active_sessions",
			Help:      "Booking sessions held in memory",
		}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduledpros",
			Subsystem: "notify",
			Name:      "confirmation_total",
			Help:      "Customer confirmations by channel and status",
		}, []string{"channel", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotFetches, m.submissions, m.creationLatency, m.activeSessions, m.confirmations)
	return m
}

func (m *BookingMetrics) ObserveSlotFetch(outcome string) {
	if m == nil {
		return
	}
	m.slotFetches.WithLabelValues(outcome).Inc()
}

// ObserveSubmission counts a submission. Suppressed duplicates carry no latency.
func (m *BookingMetrics) ObserveSubmission(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	if seconds > 0 {
		m.creationLatency.WithLabelValues(outcome).Observe(seconds)
	}
}

func (m *BookingMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *BookingMetrics) ObserveConfirmation(channel, status string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(channel, status).Inc()
}
