package metrics

import "github.com/prometheus/client_golang/prometheus"

// DatabaseMetrics is fed by the pgx query tracer.
type DatabaseMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

func NewDatabaseMetrics(reg prometheus.Registerer) *DatabaseMetrics {
	m := &DatabaseMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of PostgreSQL queries in seconds, by statement kind.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"statement"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed PostgreSQL queries, by statement kind.",
		}, []string{"statement"}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors)
	return m
}
