package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/billiards-bug/scoreboard/internal/domain"
	"github.com/billiards-bug/scoreboard/internal/platform/config"
)

var testMatchTime = time.Date(2026, 5, 9, 19, 30, 0, 0, time.UTC)

type mockMatchService struct {
	currentMatchFn func(ctx context.Context) domain.Match
	updateMatchFn  func(ctx context.Context, update domain.MatchUpdate) error
	changeScoreFn  func(ctx context.Context, player int, action string) error
	resetScoresFn  func(ctx context.Context, confirm bool) error
	subscribeFn    func(ctx context.Context, join func(domain.Match) error) error
}

func (m *mockMatchService) CurrentMatch(ctx context.Context) domain.Match {
	if m.currentMatchFn != nil {
		return m.currentMatchFn(ctx)
	}
	return domain.DefaultMatch(testMatchTime)
}

func (m *mockMatchService) UpdateMatch(ctx context.Context, update domain.MatchUpdate) error {
	if m.updateMatchFn != nil {
		return m.updateMatchFn(ctx, update)
	}
	return nil
}

func (m *mockMatchService) ChangeScore(ctx context.Context, player int, action string) error {
	if m.changeScoreFn != nil {
		return m.changeScoreFn(ctx, player, action)
	}
	return nil
}

func (m *mockMatchService) ResetScores(ctx context.Context, confirm bool) error {
	if m.resetScoresFn != nil {
		return m.resetScoresFn(ctx, confirm)
	}
	return nil
}

func (m *mockMatchService) Subscribe(ctx context.Context, join func(domain.Match) error) error {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, join)
	}
	return join(m.CurrentMatch(ctx))
}

type mockHub struct {
	registerFn   func(conn *websocket.Conn, snapshot domain.Snapshot) error
	unregisterFn func(conn *websocket.Conn)
}

func (m *mockHub) Register(conn *websocket.Conn, snapshot domain.Snapshot) error {
	if m.registerFn != nil {
		return m.registerFn(conn, snapshot)
	}
	return nil
}

func (m *mockHub) Unregister(conn *websocket.Conn) {
	if m.unregisterFn != nil {
		m.unregisterFn(conn)
	}
}

type testServerOption func(*testServerOptions)

type testServerOptions struct {
	hub          subscriberHub
	clock        clockwork.Clock
	healthChecks []HealthCheck
	cfg          func(*config.Config)
}

func withHub(hub subscriberHub) testServerOption {
	return func(o *testServerOptions) { o.hub = hub }
}

func withClock(clock clockwork.Clock) testServerOption {
	return func(o *testServerOptions) { o.clock = clock }
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withConfig(fn func(*config.Config)) testServerOption {
	return func(o *testServerOptions) { o.cfg = fn }
}

func newTestServer(t *testing.T, svc domain.MatchService, opts ...testServerOption) *Server {
	t.Helper()

	o := testServerOptions{hub: &mockHub{}, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &config.Config{
		AppEnv:                  "development",
		Port:                    "0",
		AppURL:                  "http://localhost:3000",
		MaxWebSocketConnections: 10,
		MaxConnectionsPerIP:     10,
		WebSocketConnectRate:    100,
		WebSocketConnectBurst:   100,
		MutationRateLimit:       1000,
		MutationRateBurst:       1000,
		ShutdownTimeout:         time.Second,
	}
	if o.cfg != nil {
		o.cfg(cfg)
	}

	return NewServer(cfg, o.clock, svc, o.hub, prometheus.NewRegistry(), o.healthChecks)
}

// serve runs a request through the full middleware chain.
func serve(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

var _ http.Handler = (*Server)(nil)
