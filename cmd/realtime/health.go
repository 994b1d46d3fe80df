package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/realtime-client/internal/connection"
	"github.com/rickgao/realtime-client/internal/metrics"
)

type statusSource interface {
	Status() connection.Status
}

type pinger interface {
	Ping(ctx context.Context) error
}

// newHandler serves metrics at metricsPath and health at /healthz. db may be
// nil when the journal is disabled.
func newHandler(client statusSource, db pinger, g prometheus.Gatherer, metricsPath string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, metrics.Handler(g))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		st := client.Status()
		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		conn := map[string]any{
			"state":              st.State.String(),
			"reconnect_attempts": st.ReconnectAttempts,
			"subscriptions":      st.Subscriptions,
			"frames_received":    st.FramesReceived,
			"parse_errors":       st.ParseErrors,
			"payload_mismatches": st.PayloadMismatches,
		}
		if !st.LastHeartbeat.IsZero() {
			conn["last_heartbeat"] = st.LastHeartbeat.UTC().Format(time.RFC3339)
		}
		health.Components["realtime"] = conn

		switch {
		case st.Exhausted:
			health.Status = "unhealthy"
		case !st.IsConnected:
			health.Status = "degraded"
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["journal"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
