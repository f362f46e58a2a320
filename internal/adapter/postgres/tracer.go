package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
)

// MetricsTracer records query latency and failures per statement kind.
type MetricsTracer struct {
	metrics *metrics.DatabaseMetrics
	now     func() time.Time
}

var _ pgx.QueryTracer = (*MetricsTracer)(nil)

func NewMetricsTracer(m *metrics.DatabaseMetrics) *MetricsTracer {
	return &MetricsTracer{metrics: m, now: time.Now}
}

type queryContextKey struct{}

type queryStart struct {
	at        time.Time
	statement string
}

func (t *MetricsTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryStart{at: t.now(), statement: statementKind(data.SQL)})
}

func (t *MetricsTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryContextKey{}).(queryStart)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(start.statement).Observe(t.now().Sub(start.at).Seconds())
	if data.Err != nil {
		t.metrics.QueryErrors.WithLabelValues(start.statement).Inc()
	}
}

// statementKind reduces SQL to its leading keyword to bound label cardinality.
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch kind := strings.ToUpper(fields[0]); kind {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "BEGIN", "COMMIT", "ROLLBACK":
		return strings.ToLower(kind)
	default:
		return "other"
	}
}
