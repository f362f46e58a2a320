package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
)

func TestStatementKind(t *testing.T) {
	tests := map[string]string{
		"SELECT document FROM matches":          "select",
		"\n\t  insert into matches values ($1)": "insert",
		"UPDATE matches SET x = 1":              "update",
		"SELECT pg_advisory_lock($1)":           "select",
		"CREATE TABLE x()":                      "other",
		"":                                      "unknown",
		"   ":                                   "unknown",
	}

	for sql, want := range tests {
		assert.Equal(t, want, statementKind(sql), "sql=%q", sql)
	}
}

func TestMetricsTracer_RecordsDurationAndErrors(t *testing.T) {
	m := metrics.NewDatabaseMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(m)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	tracer.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 10 * time.Millisecond)
	}

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "SELECT 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE matches"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("deadlock detected")})

	assert.Equal(t, 2, testutil.CollectAndCount(m.QueryDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("select")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("update")))
}

func TestMetricsTracer_EndWithoutStartIsIgnored(t *testing.T) {
	m := metrics.NewDatabaseMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(m)

	assert.NotPanics(t, func() {
		tracer.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{Err: errors.New("x")})
	})
	assert.Equal(t, 0, testutil.CollectAndCount(m.QueryErrors))
}

func TestExtractSSLMode(t *testing.T) {
	assert.Equal(t, "disable", extractSSLMode("postgres://u:p@localhost:5432/db?sslmode=disable"))
	assert.Equal(t, "require", extractSSLMode("postgres://u:p@localhost/db?sslmode=REQUIRE"))
	assert.Equal(t, "prefer (default)", extractSSLMode("postgres://u:p@localhost/db"))
	assert.Equal(t, "unknown", extractSSLMode("postgres://%zz"))
}
