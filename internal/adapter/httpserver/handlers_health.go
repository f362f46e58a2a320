package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/billiards-bug/scoreboard/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, e.g. a Postgres or Redis ping.
// ReadinessOnly checks are skipped by the startup probe.
type HealthCheck struct {
	Name          string
	Check         func(ctx context.Context) error
	ReadinessOnly bool
}

type healthResponse struct {
	Status      string            `json:"status"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
	Checks      map[string]string `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx, false)
}

// handleLiveness never touches dependencies; a Postgres outage must not
// get the process restarted.
func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": s.clock.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx, true)
}

// runHealthChecks stops at the first failing check.
func (s *Server) runHealthChecks(c echo.Context, ctx context.Context, readiness bool) error {
	passed := make(map[string]string, len(s.healthChecks))

	for _, hc := range s.healthChecks {
		if hc.ReadinessOnly && !readiness {
			continue
		}
		if err := hc.Check(ctx); err != nil {
			slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
			return writeHealth(c, http.StatusServiceUnavailable, healthResponse{
				Status:      "unhealthy",
				FailedCheck: hc.Name,
				Error:       err.Error(),
				Checks:      passed,
			})
		}
		passed[hc.Name] = "ok"
	}

	return writeHealth(c, http.StatusOK, healthResponse{Status: "ready", Checks: passed})
}

func writeHealth(c echo.Context, status int, body healthResponse) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send health response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
