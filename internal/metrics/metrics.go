package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking, relocation, and
// cancellation flows. All methods are nil-safe so callers can run
// without a registry wired in.
type SchedulingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	relocationsTotal   *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	elasticTotal       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts by discipline and outcome",
		}, []string{"discipline", "status"}),
		relocationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "relocations_total",
			Help:      "Appointments moved by the shrink relocation cascade, by terminal tier",
		}, []string{"tier"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Cancelled appointments by actor",
		}, []string{"actor"}),
		elasticTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "elastic_sessions_total",
			Help:      "Elastic resize operations by discipline and action",
		}, []string{"discipline", "action"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.relocationsTotal, m.cancellationsTotal, m.elasticTotal)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(discipline, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(discipline, status).Inc()
}

func (m *SchedulingMetrics) ObserveRelocation(tier string) {
	if m == nil {
		return
	}
	m.relocationsTotal.WithLabelValues(tier).Inc()
}

func (m *SchedulingMetrics) ObserveCancellation(actor string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(actor).Inc()
}

func (m *SchedulingMetrics) ObserveElastic(discipline, action string) {
	if m == nil {
		return
	}
	m.elasticTotal.WithLabelValues(discipline, action).Inc()
}
