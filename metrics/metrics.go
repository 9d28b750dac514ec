package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	LiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chatey",
		Name:      "live_subscriptions",
		Help:      "Message subscriptions currently open.",
	})

	Snapshots = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatey",
		Name:      "message_snapshots_total",
		Help:      "Message snapshots applied to the local cache.",
	})

	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatey",
		Name:      "messages_sent_total",
		Help:      "Messages written to the backend.",
	})

	PartialFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatey",
		Name:      "partial_failures_total",
		Help:      "Multi-write operations that stopped after some writes landed.",
	}, []string{"op"})

	Notices = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatey",
		Name:      "notices_total",
		Help:      "Transient notices published, by kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(LiveSubscriptions)
	prometheus.MustRegister(Snapshots)
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(PartialFailures)
	prometheus.MustRegister(Notices)
}
