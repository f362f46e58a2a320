package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AllFamiliesRegisterTogether(t *testing.T) {
	reg := NewRegistry()

	assert.NotPanics(t, func() {
		NewHTTPMetrics(reg)
		NewWebSocketMetrics(reg)
		NewMatchMetrics(reg)
		NewRelayMetrics(reg)
		NewDatabaseMetrics(reg)
	})
}

func TestMatchMetrics_RecordMutation(t *testing.T) {
	m := NewMatchMetrics(prometheus.NewRegistry())

	m.RecordMutation("change_score", "applied")
	m.RecordMutation("change_score", "applied")
	m.RecordMutation("reset_scores", "rejected")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("change_score", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("reset_scores", "rejected")))
}

func TestRelayMetrics(t *testing.T) {
	m := NewRelayMetrics(prometheus.NewRegistry())

	m.Published(true)
	m.Published(false)
	m.Received(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("out", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("out", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Messages.WithLabelValues("in", "ok")))
}

func TestHTTPMiddleware_RecordsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.POST("/api/score", func(c echo.Context) error {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid action"})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/score", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/score", "400")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlightGauge))

	var sample dto.Metric
	observer := m.RequestDuration.WithLabelValues("POST", "/api/score", "400")
	require.NoError(t, observer.(prometheus.Metric).Write(&sample))
	assert.Equal(t, uint64(1), sample.GetHistogram().GetSampleCount())
}

func TestHTTPMiddleware_SkipsProbesAndUpgrade(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/health/live", ok)
	e.GET("/metrics", ok)
	e.GET("/ws", ok)

	for _, path := range []string{"/health/live", "/metrics", "/ws"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 0, testutil.CollectAndCount(m.RequestsTotal))
}

func TestHandler_ServesFamilies(t *testing.T) {
	reg := NewRegistry()
	m := NewMatchMetrics(reg)
	m.RecordMutation("update_match", "applied")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scoreboard_match_mutations_total{operation="update_match",result="applied"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
