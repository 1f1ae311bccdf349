package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking lifecycle.
type BookingMetrics struct {
	transitionsTotal  *prometheus.CounterVec
	createdTotal      *prometheus.CounterVec
	acceptanceLatency prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soothe",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking transition attempts by event and outcome (applied or stale)",
		}, []string{"event", "outcome"}),
		createdTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soothe",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Booking requests created per service tier",
		}, []string{"service"}),
		acceptanceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "soothe",
			Subsystem: "booking",
			Name:      "acceptance_latency_seconds",
			Help:      "Time from request creation to therapist acceptance",
			Buckets:   []float64{5, 10, 20, 30, 45, 60, 90, 120},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.createdTotal, m.acceptanceLatency)
	return m
}

func (m *BookingMetrics) ObserveTransition(event string, applied bool) {
	if m == nil {
		return
	}
	outcome := "stale"
	if applied {
		outcome = "applied"
	}
	m.transitionsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *BookingMetrics) ObserveCreated(service string) {
	if m == nil {
		return
	}
	m.createdTotal.WithLabelValues(service).Inc()
}

func (m *BookingMetrics) ObserveAcceptanceLatency(seconds float64) {
	if m == nil {
		return
	}
	m.acceptanceLatency.Observe(seconds)
}
