package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBooking("wave", "success")
	m.ObserveBooking("wave", "success")
	m.ObserveBooking("stream", "conflict")
	m.ObserveRelocation("new_window")
	m.ObserveCancellation("patient")
	m.ObserveElastic("wave", "shrink")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("wave", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("stream", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relocationsTotal.WithLabelValues("new_window")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cancellationsTotal.WithLabelValues("patient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.elasticTotal.WithLabelValues("wave", "shrink")))
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *SchedulingMetrics

	assert.NotPanics(t, func() {
		m.ObserveBooking("wave", "success")
		m.ObserveRelocation("cancelled")
		m.ObserveCancellation("doctor")
		m.ObserveElastic("stream", "expand")
	})
}
