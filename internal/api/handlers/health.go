package handlers

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthInfo is the static part of the health response.
type HealthInfo struct {
	Version  string
	Source   string
	Strategy string
}

// HealthHandler returns a handler for the GET /api/health endpoint.
func HealthHandler(cache ReportCache, info HealthInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("health check requested", "remoteAddr", r.RemoteAddr)

		cached, computedAt := cache.Status()
		body := map[string]interface{}{
			"status":   "healthy",
			"version":  info.Version,
			"source":   info.Source,
			"strategy": info.Strategy,
			"cached":   cached,
		}
		if cached {
			body["computed_at"] = computedAt.UTC().Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, body)
	}
}
