package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/safih1/policedispatch/core/metrics"
)

// PromSink records lifecycle events in Prometheus metrics.
type PromSink struct {
	lifecycle  *prometheus.CounterVec
	notices    *prometheus.CounterVec
	distance   prometheus.Histogram
	locations  *prometheus.CounterVec
	connection *prometheus.GaugeVec
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// /metrics endpoint is started separately with StartPromServer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	s, err := NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	lifecycle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "emergency_lifecycle_events_total",
		Help: "Emergency lifecycle transitions by kind and source",
	}, []string{"kind", "source"})
	notices := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "operator_notices_total",
		Help: "Operator notices by kind",
	}, []string{"kind"})
	distance := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "emergency_officer_distance_km",
		Help:    "Distance of the officer at assignment or accept time",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
	})
	locations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "officer_location_updates_total",
		Help: "Officer position broadcasts by reported status",
	}, []string{"status"})
	connection := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "backend_channel_state",
		Help: "1 for the current state of the backend channel, 0 otherwise",
	}, []string{"state"})

	var err error
	if lifecycle, err = register(reg, lifecycle); err != nil {
		return nil, err
	}
	if notices, err = register(reg, notices); err != nil {
		return nil, err
	}
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if locations, err = register(reg, locations); err != nil {
		return nil, err
	}
	if connection, err = register(reg, connection); err != nil {
		return nil, err
	}
	return &PromSink{lifecycle: lifecycle, notices: notices, distance: distance, locations: locations, connection: connection}, nil
}

// register returns the already registered collector when c was registered
// before, so several sinks can share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordLifecycle counts the transition and observes the officer distance of
// assignments.
func (s *PromSink) RecordLifecycle(ev coremetrics.LifecycleEvent) error {
	s.lifecycle.WithLabelValues(ev.Kind, ev.Source).Inc()
	if ev.OfficerID != nil && ev.DistanceKm > 0 {
		s.distance.Observe(ev.DistanceKm)
	}
	return nil
}

// RecordNotice counts operator notices.
func (s *PromSink) RecordNotice(ev coremetrics.NoticeEvent) error {
	s.notices.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordOfficerLocation counts position broadcasts.
func (s *PromSink) RecordOfficerLocation(ev coremetrics.OfficerLocationEvent) error {
	s.locations.WithLabelValues(ev.Status).Inc()
	return nil
}

var channelStates = []string{"idle", "connecting", "open", "closed", "failed"}

// RecordConnection flags the current channel state.
func (s *PromSink) RecordConnection(ev coremetrics.ConnectionEvent) error {
	for _, st := range channelStates {
		v := 0.0
		if st == ev.State {
			v = 1
		}
		s.connection.WithLabelValues(st).Set(v)
	}
	return nil
}
