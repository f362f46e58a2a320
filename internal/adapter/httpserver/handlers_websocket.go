package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	wshub "github.com/billiards-bug/scoreboard/internal/adapter/websocket"
	"github.com/billiards-bug/scoreboard/internal/domain"
)

const (
	// Subscribers only ever send control frames.
	maxInboundMessageSize = 512
	closeWriteTimeout     = time.Second
)

// handleWebSocket upgrades the request and registers the connection with the
// hub. The join snapshot is taken through the gateway so no update published
// after it can be missed.
func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()

	ip := c.RealIP()
	if ok, reason := s.limits.acquire(ip); !ok {
		s.httpMetrics.UpgradesRejected.WithLabelValues(string(reason)).Inc()
		slog.InfoContext(ctx, "WebSocket upgrade rejected", "client", ip, "reason", reason)
		return c.JSON(http.StatusTooManyRequests, rateLimitResponse{
			Error: "too many connections",
			Type:  string(reason),
		})
	}
	defer s.limits.release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		slog.DebugContext(ctx, "WebSocket upgrade failed", "error", err)
		return nil
	}
	conn.SetReadLimit(maxInboundMessageSize)

	err = s.matches.Subscribe(ctx, func(m domain.Match) error {
		return s.hub.Register(conn, m.Snapshot())
	})
	if err != nil {
		s.refuse(conn, err)
		return nil
	}

	defer s.hub.Unregister(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.DebugContext(ctx, "Subscriber connection lost", "error", err)
			}
			return nil
		}
	}
}

func (s *Server) refuse(conn *websocket.Conn, err error) {
	code, reason := websocket.CloseInternalServerErr, "subscription failed"
	switch {
	case errors.Is(err, wshub.ErrTooManyConnections):
		code, reason = websocket.ClosePolicyViolation, "too many connections"
	case errors.Is(err, wshub.ErrHubStopped):
		code, reason = websocket.CloseServiceRestart, "server shutting down"
	default:
		slog.Error("Failed to register subscriber", "error", err)
	}

	// A timed out Register may still complete inside the hub.
	s.hub.Unregister(conn)

	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, s.clock.Now().Add(closeWriteTimeout))
	_ = conn.Close()
}
