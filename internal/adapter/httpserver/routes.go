package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const maxRequestBody = "64K"

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(s.httpMetrics.Middleware())
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "",
		ContentTypeNosniff: "nosniff",
		HSTSMaxAge:         63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	s.registerHealthRoutes()
	s.registerMatchRoutes()

	s.echo.GET("/ws", s.handleWebSocket)
	s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
}

func (s *Server) registerMatchRoutes() {
	limiter := newRateLimiter(s.config.MutationRateLimit, s.config.MutationRateBurst)
	bodyLimit := middleware.BodyLimit(maxRequestBody)

	api := s.echo.Group("/api")
	api.GET("/match", s.handleGetMatch)
	api.POST("/match", s.handleUpdateMatch, limiter, bodyLimit)
	api.POST("/score", s.handleChangeScore, limiter, bodyLimit)
	api.POST("/reset", s.handleResetScores, limiter, bodyLimit)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
