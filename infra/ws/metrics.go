package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	dialAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "police_channel_dial_attempts_total",
		Help: "Dial attempts to the dispatch backend channel by result",
	}, []string{"result"})
	framesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "police_channel_frames_received_total",
		Help: "Inbound frames read from the dispatch backend channel",
	})
	framesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "police_channel_frames_sent_total",
		Help: "Outbound frames by result (sent, dropped, failed)",
	}, []string{"result"})
	channelOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "police_channel_open",
		Help: "1 while the dispatch backend channel is open",
	})
)

func init() {
	prometheus.MustRegister(dialAttempts, framesReceived, framesSent, channelOpen)
}
