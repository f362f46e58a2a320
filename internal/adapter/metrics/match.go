package metrics

import "github.com/prometheus/client_golang/prometheus"

// MatchMetrics counts match mutations by operation and outcome.
type MatchMetrics struct {
	Mutations *prometheus.CounterVec
}

func NewMatchMetrics(reg prometheus.Registerer) *MatchMetrics {
	m := &MatchMetrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_mutations_total",
			Help:      "Total number of match mutations, by operation and result.",
		}, []string{"operation", "result"}),
	}

	reg.MustRegister(m.Mutations)
	return m
}

func (m *MatchMetrics) RecordMutation(operation, result string) {
	m.Mutations.WithLabelValues(operation, result).Inc()
}
