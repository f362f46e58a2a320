package redis

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
)

func newTestMetricsHook(t *testing.T) (*MetricsHook, *metrics.RelayMetrics) {
	t.Helper()
	m := metrics.NewRelayMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(m)

	base := time.Date(2026, 5, 9, 19, 30, 0, 0, time.UTC)
	calls := 0
	hook.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 2 * time.Millisecond)
	}
	return hook, m
}

func TestMetricsHook_CountsCommandsByStatus(t *testing.T) {
	hook, m := newTestMetricsHook(t)
	ctx := context.Background()

	ok := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return nil })
	failing := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return errors.New("broken pipe") })
	missing := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })

	require.NoError(t, ok(ctx, goredis.NewIntCmd(ctx, "publish", "ch", "msg")))
	require.Error(t, failing(ctx, goredis.NewIntCmd(ctx, "publish", "ch", "msg")))
	require.ErrorIs(t, missing(ctx, goredis.NewStringCmd(ctx, "get", "k")), goredis.Nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("publish", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("publish", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.CommandDuration))
}

func TestMetricsHook_PipelineCountsAsOneCommand(t *testing.T) {
	hook, m := newTestMetricsHook(t)
	ctx := context.Background()

	pipe := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })
	require.NoError(t, pipe(ctx, []goredis.Cmder{
		goredis.NewStatusCmd(ctx, "ping"),
		goredis.NewStatusCmd(ctx, "ping"),
	}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CommandsTotal.WithLabelValues(pipelineCommand, "success")))
}

func TestMetricsHook_DialErrors(t *testing.T) {
	hook, m := newTestMetricsHook(t)

	dial := hook.DialHook(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("connection refused")
	})
	_, err := dial(context.Background(), "tcp", "localhost:6379")

	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DialErrors))
}

func TestMetricsHook_NilMetrics(t *testing.T) {
	hook := NewMetricsHook(nil)
	ctx := context.Background()

	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return errors.New("boom") })

	assert.NotPanics(t, func() { _ = process(ctx, goredis.NewStatusCmd(ctx, "ping")) })
}
