package coordinator

import "github.com/prometheus/client_golang/prometheus"

var (
	framesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_frames_handled_total",
			Help: "Decoded inbound frames by message type",
		},
		[]string{"type"},
	)
	framesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_frames_rejected_total",
			Help: "Inbound frames dropped by reason (malformed, unknown_type)",
		},
		[]string{"reason"},
	)
	operatorActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "operator_actions_total",
			Help: "Operator actions by action and result",
		},
		[]string{"action", "result"},
	)
)

func init() {
	prometheus.MustRegister(framesHandled, framesRejected, operatorActions)
}

func observeAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operatorActions.WithLabelValues(action, result).Inc()
}
