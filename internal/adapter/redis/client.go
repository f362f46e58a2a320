// Package redis relays match snapshots between scoreboard instances over
// Redis Pub/Sub.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses redisURL, installs hooks and pings. Hooks run in the
// order given, the first one outermost. Command deadlines come from the
// caller's context.
func NewClient(ctx context.Context, redisURL string, hooks ...goredis.Hook) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.ContextTimeoutEnabled = true

	rdb := goredis.NewClient(opts)
	for _, hook := range hooks {
		rdb.AddHook(hook)
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	slog.Info("Redis connected", "addr", opts.Addr, "db", opts.DB)
	return rdb, nil
}
