package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics covers the Redis fan-out between instances.
type RelayMetrics struct {
	Messages           *prometheus.CounterVec
	BreakerTransitions *prometheus.CounterVec
	CommandDuration    *prometheus.HistogramVec
	CommandsTotal      *prometheus.CounterVec
	DialErrors         prometheus.Counter
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Total number of relayed match snapshots, by direction and result.",
		}, []string{"direction", "result"}),
		BreakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "circuit_breaker_transitions_total",
			Help:      "Total number of Redis circuit breaker state changes, by new state.",
		}, []string{"state"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "command_duration_seconds",
			Help:      "Duration of Redis commands in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"command"}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Total number of Redis commands, by command and status.",
		}, []string{"command", "status"}),
		DialErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "dial_errors_total",
			Help:      "Total number of failed Redis connection attempts.",
		}),
	}

	reg.MustRegister(m.Messages, m.BreakerTransitions, m.CommandDuration, m.CommandsTotal, m.DialErrors)
	return m
}

func (m *RelayMetrics) Published(ok bool) {
	m.Messages.WithLabelValues("out", resultLabel(ok)).Inc()
}

func (m *RelayMetrics) Received(ok bool) {
	m.Messages.WithLabelValues("in", resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
