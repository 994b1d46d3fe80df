package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/realtime-client/internal/connection"
	"github.com/rickgao/realtime-client/internal/metrics"
)

type fixedStatus connection.Status

func (f fixedStatus) Status() connection.Status { return connection.Status(f) }

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func getHealth(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     connection.Status
		db         pinger
		wantCode   int
		wantStatus string
	}{
		{
			name:       "connected",
			status:     connection.Status{IsConnected: true, State: connection.StateConnected, LastHeartbeat: time.Now()},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
		},
		{
			name:       "reconnecting",
			status:     connection.Status{State: connection.StateDisconnected, ReconnectPending: true},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name:       "exhausted",
			status:     connection.Status{State: connection.StateDisconnected, Exhausted: true},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
		{
			name:       "journal down",
			status:     connection.Status{IsConnected: true, State: connection.StateConnected},
			db:         fakePinger{err: errors.New("connection refused")},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(fixedStatus(tt.status), tt.db, prometheus.NewRegistry(), "/metrics")
			code, body := getHealth(t, h)

			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", body["status"], tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveReconnectAttempt()

	h := newHandler(fixedStatus{}, nil, reg, "/metrics")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "realtime_reconnect_attempts_total 1") {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}
}

func TestSplitChannels(t *testing.T) {
	got := splitChannels(" post:42, ,campaign:7,")
	if len(got) != 2 || got[0] != "post:42" || got[1] != "campaign:7" {
		t.Errorf("splitChannels() = %v", got)
	}
	if got := splitChannels(""); len(got) != 0 {
		t.Errorf("splitChannels(\"\") = %v", got)
	}
}
