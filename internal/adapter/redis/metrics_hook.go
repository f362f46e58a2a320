package redis

import (
	"context"
	"errors"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
)

const pipelineCommand = "pipeline"

// MetricsHook records latency and outcome of every Redis command. Installed
// outside the circuit breaker, it also counts calls the open breaker rejects.
type MetricsHook struct {
	metrics *metrics.RelayMetrics
	now     func() time.Time
}

var _ goredis.Hook = (*MetricsHook)(nil)

// NewMetricsHook returns a hook reporting to m. A nil m disables recording.
func NewMetricsHook(m *metrics.RelayMetrics) *MetricsHook {
	return &MetricsHook{metrics: m, now: time.Now}
}

func (h *MetricsHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && h.metrics != nil {
			h.metrics.DialErrors.Inc()
		}
		return conn, err
	}
}

func (h *MetricsHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		start := h.now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), start, err)
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		start := h.now()
		err := next(ctx, cmds)
		h.observe(pipelineCommand, start, err)
		return err
	}
}

func (h *MetricsHook) observe(command string, start time.Time, err error) {
	if h.metrics == nil {
		return
	}
	status := "success"
	if err != nil && !errors.Is(err, goredis.Nil) {
		status = "error"
	}
	h.metrics.CommandsTotal.WithLabelValues(command, status).Inc()
	h.metrics.CommandDuration.WithLabelValues(command).Observe(h.now().Sub(start).Seconds())
}
