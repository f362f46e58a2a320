package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(10, 3)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
		req.RemoteAddr = testRemoteAddr
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := handler(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(0.01, 1)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/score", nil)
	req.RemoteAddr = testRemoteAddr
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp rateLimitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, "rate_limited", resp.Type)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	e := echo.New()
	mw := newRateLimiter(0.01, 1)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	// First IP uses its burst
	req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
	req.RemoteAddr = testRemoteAddr
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second IP still has its own burst
	req = httptest.NewRequest(http.MethodPost, "/api/score", nil)
	req.RemoteAddr = "5.6.7.8:5678"
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	// First IP is now blocked
	req = httptest.NewRequest(http.MethodPost, "/api/score", nil)
	req.RemoteAddr = testRemoteAddr
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	err = handler(c)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiterHonoursForwardedFor(t *testing.T) {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	mw := newRateLimiter(0.01, 1)

	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	codes := make([]int, 0, 2)
	for _, client := range []string{"203.0.113.7", "203.0.113.8"} {
		req := httptest.NewRequest(http.MethodPost, "/api/score", nil)
		req.RemoteAddr = "10.0.0.5:4321" // private proxy, trusted by default
		req.Header.Set(echo.HeaderXForwardedFor, client)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
}
