package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin returns the upgrader's origin policy. Allowed are requests
// without an Origin header, OBS browser sources (obs://), and the scoreboard's
// own origin taken from appURL. In development any loopback origin passes too.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			return true
		case strings.HasPrefix(origin, "obs://"):
			return true
		case appOrigin != "" && strings.EqualFold(origin, appOrigin):
			return true
		case isDevelopment && isLoopbackOrigin(origin):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
