package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"3000"`
	AppURL      string `env:"APP_URL" default:"http://localhost:3000"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"1000"`
	MaxConnectionsPerIP     int     `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"20"`
	WebSocketConnectRate    float64 `env:"WEBSOCKET_CONNECT_RATE" default:"5"`
	WebSocketConnectBurst   int     `env:"WEBSOCKET_CONNECT_BURST" default:"10"`

	MutationRateLimit float64 `env:"MUTATION_RATE_LIMIT" default:"20"`
	MutationRateBurst int     `env:"MUTATION_RATE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// IsDevelopment reports whether the service runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// RelayEnabled reports whether cross-instance fan-out through Redis is configured.
func (c *Config) RelayEnabled() bool {
	return c.RedisURL != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if cfg.Port == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.MaxWebSocketConnections <= 0 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be positive, got %d", cfg.MaxWebSocketConnections)
	}
	if cfg.MaxConnectionsPerIP <= 0 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS_PER_IP must be positive, got %d", cfg.MaxConnectionsPerIP)
	}
	if cfg.WebSocketConnectRate <= 0 || cfg.WebSocketConnectBurst < 1 {
		return fmt.Errorf("WEBSOCKET_CONNECT_RATE must be positive and WEBSOCKET_CONNECT_BURST at least 1, got %v/%d",
			cfg.WebSocketConnectRate, cfg.WebSocketConnectBurst)
	}
	if cfg.MutationRateLimit <= 0 {
		return fmt.Errorf("MUTATION_RATE_LIMIT must be positive, got %v", cfg.MutationRateLimit)
	}
	if cfg.MutationRateBurst < 1 {
		return fmt.Errorf("MUTATION_RATE_BURST must be at least 1, got %d", cfg.MutationRateBurst)
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
