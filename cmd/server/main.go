package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/billiards-bug/scoreboard/internal/adapter/httpserver"
	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
	"github.com/billiards-bug/scoreboard/internal/adapter/postgres"
	"github.com/billiards-bug/scoreboard/internal/adapter/redis"
	"github.com/billiards-bug/scoreboard/internal/adapter/websocket"
	"github.com/billiards-bug/scoreboard/internal/app"
	"github.com/billiards-bug/scoreboard/internal/domain"
	"github.com/billiards-bug/scoreboard/internal/platform/config"
	"github.com/billiards-bug/scoreboard/internal/platform/logging"
	"github.com/billiards-bug/scoreboard/internal/platform/retry"
	"github.com/billiards-bug/scoreboard/internal/platform/version"
)

var startupRetry = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Startup dependency not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

var relaySubscribeRetry = retry.Policy{
	MaxAttempts:    10,
	InitialBackoff: time.Second,
	MaxBackoff:     30 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Relay subscription failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, dbMetrics *metrics.DatabaseMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := retry.Do(ctx, startupRetry, retry.Always, func(ctx context.Context) (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL, dbMetrics)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config, relayMetrics *metrics.RelayMetrics) (*goredis.Client, *redis.CircuitBreakerHook) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	metricsHook := redis.NewMetricsHook(relayMetrics)
	breaker := redis.NewCircuitBreakerHook(relayMetrics)
	client, err := retry.Do(ctx, startupRetry, retry.Always, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, metricsHook, breaker)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client, breaker
}

// runRelay keeps the relay subscribed until ctx is done. While it is not,
// updates are delivered locally and the relay readiness check fails.
func runRelay(ctx context.Context, relay *redis.Relay) {
	for ctx.Err() == nil {
		err := retry.DoVoid(ctx, relaySubscribeRetry, retry.Always, relay.Run)
		if err != nil && ctx.Err() == nil {
			slog.Error("Relay subscription unavailable, updates from other instances will not arrive", "error", err)
		}
	}
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, stopRelay context.CancelFunc, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopRelay()
		slog.Info("Closing subscriber connections", "subscribers", hub.ClientCount())
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	registry := metrics.NewRegistry()
	dbMetrics := metrics.NewDatabaseMetrics(registry)
	wsMetrics := metrics.NewWebSocketMetrics(registry)
	matchMetrics := metrics.NewMatchMetrics(registry)

	pool := setupDB(cfg, dbMetrics)
	defer pool.Close()

	repo := postgres.NewMatchRepo(pool)
	store := app.NewMatchStore(repo, clock)
	if err := ensureMatch(store); err != nil {
		slog.Error("Failed to create default match", "error", err)
		os.Exit(1)
	}

	hub := websocket.NewHub(clock, cfg.MaxWebSocketConnections, wsMetrics)

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: repo.Ping},
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	var publisher domain.MatchPublisher = websocket.NewPublisher(hub)
	if cfg.RelayEnabled() {
		relayMetrics := metrics.NewRelayMetrics(registry)
		redisClient, breaker := setupRedis(cfg, relayMetrics)
		defer func() { _ = redisClient.Close() }()

		relay := redis.NewRelay(redisClient, publisher, relayMetrics)
		go runRelay(relayCtx, relay)
		publisher = relay

		healthChecks = append(healthChecks,
			httpserver.HealthCheck{
				Name: "redis",
				Check: func(ctx context.Context) error {
					if err := breaker.Check(ctx); err != nil {
						return err
					}
					return redisClient.Ping(ctx).Err()
				},
			},
			httpserver.HealthCheck{Name: "relay", Check: relay.Check, ReadinessOnly: true},
		)
		slog.Info("Cross-instance relay enabled", "channel", redis.MatchUpdateChannel)
	}

	service := app.NewService(store, publisher, matchMetrics)

	srv := httpserver.NewServer(cfg, clock, service, hub, registry, healthChecks)

	done := runGracefulShutdown(cfg, srv, stopRelay, hub)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

func ensureMatch(store *app.MatchStore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.Ensure(ctx)
}
