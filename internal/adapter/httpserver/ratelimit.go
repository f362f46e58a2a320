package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	apperrors "github.com/billiards-bug/scoreboard/internal/platform/errors"
)

const rateLimiterExpiry = 5 * time.Minute

type rateLimitResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// newRateLimiter returns a per-client-IP token bucket for the mutation routes.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: store,
		ErrorHandler: func(c echo.Context, err error) error {
			return apperrors.InternalError("Failed to identify client", err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			slog.InfoContext(c.Request().Context(), "Rate limit exceeded",
				"client", identifier, "path", c.Request().URL.Path)
			return c.JSON(http.StatusTooManyRequests, rateLimitResponse{
				Error: "rate limit exceeded",
				Type:  "rate_limited",
			})
		},
	})
}
