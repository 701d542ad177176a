// Package metrics exposes the operational counters/gauges this server
// tracks via Prometheus, a direct carry-over of the teacher's own
// prometheus/client_golang dependency (used in the teacher for its own
// stats.go instrumentation).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ActiveConnections tracks the live-clients map size.
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_active_connections",
		Help: "Number of currently connected sessions.",
	})

	// MessagesRouted counts messages routed, labeled by channel
	// ("global" or "room").
	MessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_messages_routed_total",
		Help: "Total number of messages routed, by channel.",
	}, []string{"channel"})

	// RoomPopulation tracks the number of live rooms.
	RoomPopulation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatd_rooms_total",
		Help: "Number of currently live rooms.",
	})

	// AuthOutcomes counts auth attempts, labeled by operation and outcome.
	AuthOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatd_auth_outcomes_total",
		Help: "Total auth operations, by operation and outcome.",
	}, []string{"operation", "outcome"})
)

// Register wires every collector into the default Prometheus registry.
// Called once at startup.
func Register() {
	prometheus.MustRegister(ActiveConnections, MessagesRouted, RoomPopulation, AuthOutcomes)
}
