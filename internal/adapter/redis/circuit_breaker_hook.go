package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// CircuitBreakerHook fails Redis calls fast after repeated errors, so a
// Redis outage cannot stall the mutation path.
type CircuitBreakerHook struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

// NewCircuitBreakerHook trips after five consecutive failures and probes
// again after thirty seconds. relayMetrics may be nil.
func NewCircuitBreakerHook(relayMetrics *metrics.RelayMetrics) *CircuitBreakerHook {
	return newCircuitBreakerHook(breakerOpenTimeout, relayMetrics)
}

func newCircuitBreakerHook(openTimeout time.Duration, relayMetrics *metrics.RelayMetrics) *CircuitBreakerHook {
	settings := gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if relayMetrics != nil {
				relayMetrics.BreakerTransitions.WithLabelValues(to.String()).Inc()
			}
		},
	}
	return &CircuitBreakerHook{cb: gobreaker.NewTwoStepCircuitBreaker(settings)}
}

// Check fails while the breaker is open, without touching Redis.
func (h *CircuitBreakerHook) Check(context.Context) error {
	if state := h.cb.State(); state == gobreaker.StateOpen {
		return fmt.Errorf("redis circuit breaker is %s: %w", state, gobreaker.ErrOpenState)
	}
	return nil
}

func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		done, err := h.cb.Allow()
		if err != nil {
			return nil, fmt.Errorf("redis circuit breaker: %w", err)
		}
		conn, err := next(ctx, network, addr)
		done(err == nil)
		return conn, err
	}
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		done, err := h.cb.Allow()
		if err != nil {
			return fmt.Errorf("redis circuit breaker: %w", err)
		}
		err = next(ctx, cmd)
		done(isHealthy(err))
		return err
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		done, err := h.cb.Allow()
		if err != nil {
			return fmt.Errorf("redis circuit breaker: %w", err)
		}
		err = next(ctx, cmds)
		done(isHealthy(err))
		return err
	}
}

// isHealthy treats a missing key as a healthy round trip.
func isHealthy(err error) bool {
	return err == nil || errors.Is(err, goredis.Nil)
}
