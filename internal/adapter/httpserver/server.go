package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billiards-bug/scoreboard/internal/adapter/metrics"
	wshub "github.com/billiards-bug/scoreboard/internal/adapter/websocket"
	"github.com/billiards-bug/scoreboard/internal/domain"
	"github.com/billiards-bug/scoreboard/internal/platform/config"
)

// subscriberHub is the part of the websocket hub the upgrade handler needs.
type subscriberHub interface {
	Register(conn *websocket.Conn, snapshot domain.Snapshot) error
	Unregister(conn *websocket.Conn)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	matches  domain.MatchService
	hub      subscriberHub
	upgrader websocket.Upgrader
	limits   *connectionLimits

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(cfg *config.Config, clock clockwork.Clock, matches domain.MatchService, hub subscriberHub, reg *prometheus.Registry, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:    e,
		config:  cfg,
		clock:   clock,
		matches: matches,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     wshub.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		},
		limits:         newConnectionLimits(clock, cfg.MaxConnectionsPerIP, cfg.WebSocketConnectRate, cfg.WebSocketConnectBurst),
		httpMetrics:    metrics.NewHTTPMetrics(reg),
		metricsHandler: metrics.Handler(reg),
		healthChecks:   healthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones. Hijacked
// websocket connections are not tracked here; the hub closes those.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
