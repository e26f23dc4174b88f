// Package metrics exposes Prometheus counters for occupancy lifecycle
// transitions and a gauge of beds in use.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the lifecycle collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RegistrationTransitions *prometheus.CounterVec
	ContractTransitions     *prometheus.CounterVec
	PaymentTransitions      *prometheus.CounterVec
	TicketTransitions       *prometheus.CounterVec
	RejectedOperations      *prometheus.CounterVec
	OccupancyChanges        *prometheus.CounterVec
	Residents               prometheus.Gauge
	EventPublishFailures    prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RegistrationTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_registration_transitions_total",
			Help: "Registrations moved into each status",
		}, []string{"status"}),
		ContractTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_contract_transitions_total",
			Help: "Contract lifecycle actions applied",
		}, []string{"action"}),
		PaymentTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_payment_transitions_total",
			Help: "Payments moved into each status",
		}, []string{"status"}),
		TicketTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_maintenance_transitions_total",
			Help: "Maintenance tickets moved into each status",
		}, []string{"status"}),
		RejectedOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_rejected_operations_total",
			Help: "Operations refused with a domain error, by operation and error kind",
		}, []string{"operation", "kind"}),
		OccupancyChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dormitory_occupancy_changes_total",
			Help: "Room occupancy increments and decrements",
		}, []string{"direction"}),
		Residents: f.NewGauge(prometheus.GaugeOpts{
			Name: "dormitory_residents",
			Help: "Beds currently taken across all rooms",
		}),
		EventPublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "dormitory_event_publish_failures_total",
			Help: "Domain events that could not be handed to the broker",
		}),
	}
}

func (m *Metrics) IncrementRegistration(status string) {
	if m == nil {
		return
	}
	m.RegistrationTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementContract(action string) {
	if m == nil {
		return
	}
	m.ContractTransitions.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementPayment(status string) {
	if m == nil {
		return
	}
	m.PaymentTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementTicket(status string) {
	if m == nil {
		return
	}
	m.TicketTransitions.WithLabelValues(status).Inc()
}

// IncrementRejected counts an operation that failed with a domain error.
func (m *Metrics) IncrementRejected(operation, kind string) {
	if m == nil {
		return
	}
	m.RejectedOperations.WithLabelValues(operation, kind).Inc()
}

// IncrementOccupancy records a change of delta beds (+1 or -1).
func (m *Metrics) IncrementOccupancy(delta int) {
	if m == nil {
		return
	}
	dir := "up"
	if delta < 0 {
		dir = "down"
	}
	m.OccupancyChanges.WithLabelValues(dir).Inc()
	m.Residents.Add(float64(delta))
}

// SetResidents resets the residents gauge from a full room count.
func (m *Metrics) SetResidents(n int) {
	if m == nil {
		return
	}
	m.Residents.Set(float64(n))
}

func (m *Metrics) IncrementPublishFailures() {
	if m == nil {
		return
	}
	m.EventPublishFailures.Inc()
}
