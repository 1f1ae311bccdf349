package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveCreated("swedish")
	m.ObserveTransition("accept", true)
	m.ObserveTransition("expire", false)
	m.ObserveTransition("expire", false)
	m.ObserveAcceptanceLatency(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.createdTotal.WithLabelValues("swedish")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("accept", "applied")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("expire", "stale")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.acceptanceLatency))
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveCreated("swedish")
	m.ObserveTransition("accept", true)
	m.ObserveAcceptanceLatency(1)
}
