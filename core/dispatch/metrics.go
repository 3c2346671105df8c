package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	emergenciesReceived *prometheus.CounterVec
	assignmentLatency   prometheus.Histogram
	assignmentsTotal    *prometheus.CounterVec
	officerDistance     prometheus.Histogram
	activeEmergencies   prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, *prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge) {
	rec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergencies_received_total",
			Help: "new_emergency events by outcome (stored, duplicate)",
		},
		[]string{"outcome"},
	)
	lat := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assignment_latency_seconds",
			Help:    "Time from emergency receipt to assignment response",
			Buckets: prometheus.DefBuckets,
		},
	)
	asn := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignments_total",
			Help: "Auto-assignment attempts by result",
		},
		[]string{"result"},
	)
	dist := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assigned_officer_distance_km",
			Help:    "Great-circle distance of the selected officer",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
		},
	)
	act := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_emergencies",
			Help: "Emergencies currently held in the store",
		},
	)
	return rec, lat, asn, dist, act
}

func init() {
	emergenciesReceived, assignmentLatency, assignmentsTotal, officerDistance, activeEmergencies = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(emergenciesReceived, assignmentLatency, assignmentsTotal, officerDistance, activeEmergencies)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	emergenciesReceived, assignmentLatency, assignmentsTotal, officerDistance, activeEmergencies = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
