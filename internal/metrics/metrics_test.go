package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncrementRegistration("approved")
	m.IncrementRegistration("approved")
	m.IncrementOccupancy(-1)
	m.IncrementRejected("contract.terminate", "conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RegistrationTransitions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OccupancyChanges.WithLabelValues("down")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedOperations.WithLabelValues("contract.terminate", "conflict")))
}

func TestResidentsGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetResidents(7)
	m.IncrementOccupancy(1)
	m.IncrementOccupancy(1)
	m.IncrementOccupancy(-1)
	assert.Equal(t, 8.0, testutil.ToFloat64(m.Residents))

	m.SetResidents(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Residents))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementContract("renewed")
		m.IncrementPublishFailures()
		m.SetResidents(4)
	})
}
