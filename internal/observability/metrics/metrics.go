package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the booking and
// reconciliation flows. A nil receiver is a no-op so wiring stays optional.
type SchedulingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	reconcileRuns      *prometheus.CounterVec
	reconcileActions   *prometheus.CounterVec
	messagesTotal      *prometheus.CounterVec
	bookingLatency     prometheus.Histogram
	availabilityLatency prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"outcome"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Total cancellation attempts",
		}, []string{"outcome"}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Total reconciliation passes",
		}, []string{"status"}),
		reconcileActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Subsystem: "reconcile",
			Name:      "actions_total",
			Help:      "Reconciliation actions applied to local state",
		}, []string{"action"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa",
			Subsystem: "messages",
			Name:      "processed_total",
			Help:      "Scheduled messages processed by terminal status",
		}, []string{"type", "status"}),
		bookingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spa",
			Subsystem: "scheduling",
			Name:      "booking_latency_seconds",
			Help:      "End-to-end booking latency",
			Buckets:   prometheus.DefBuckets,
		}),
		availabilityLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "spa",
			Subsystem: "scheduling",
			Name:      "availability_latency_seconds",
			Help:      "Availability computation latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.reconcileRuns,
		m.reconcileActions, m.messagesTotal, m.bookingLatency, m.availabilityLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.Observe(seconds)
}

func (m *SchedulingMetrics) ObserveCancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveReconcileRun(status string) {
	if m == nil {
		return
	}
	m.reconcileRuns.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveReconcileAction(action string) {
	if m == nil {
		return
	}
	m.reconcileActions.WithLabelValues(action).Inc()
}

func (m *SchedulingMetrics) ObserveMessage(messageType, status string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(messageType, status).Inc()
}

func (m *SchedulingMetrics) ObserveAvailability(seconds float64) {
	if m == nil {
		return
	}
	m.availabilityLatency.Observe(seconds)
}
