package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics covers the subscriber registry of the broadcast hub.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	ConnectionsRejected *prometheus.CounterVec
	MessagesPublished   prometheus.Counter
	SlowClientsEvicted  prometheus.Counter
}

func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of connected match_update subscribers.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_rejected_total",
			Help:      "Total number of refused subscriber connections, by reason.",
		}, []string{"reason"}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_published_total",
			Help:      "Total number of match_update messages queued to subscribers.",
		}),
		SlowClientsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "slow_clients_evicted_total",
			Help:      "Total number of subscribers dropped because their send buffer was full.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsRejected, m.MessagesPublished, m.SlowClientsEvicted)
	return m
}
