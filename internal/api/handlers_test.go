// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/fieldsense/fieldsense/internal/models"
	"github.com/fieldsense/fieldsense/internal/store"
)

// envelope mirrors models.APIResponse with a raw Data field so tests
// can decode the payload per endpoint.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func newTestHandler(t *testing.T) (*Handler, *store.Store) {
	t.Helper()
	s := store.New(store.DefaultMaxReadings, store.DefaultMaxAlerts)
	return NewHandler(s, nil, []string{"*"}, 30*time.Second), s
}

func testReading(nodeID string, ts time.Time) *models.SensorReading {
	return &models.SensorReading{
		NodeID:    nodeID,
		Timestamp: ts,
		Air:       &models.AirMetrics{PM25: 12.0, Temperature: 21.5},
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func TestHealthReportsActiveNodes(t *testing.T) {
	h, s := newTestHandler(t)
	s.RecordReading(testReading("node-1", time.Now()))
	s.RecordReading(testReading("node-2", time.Now()))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Errorf("expected success status, got %q", env.Status)
	}

	var health models.HealthStatus
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}
	if health.ActiveNodes != 2 {
		t.Errorf("expected 2 active nodes, got %d", health.ActiveNodes)
	}
}

func TestNodesServedThroughCache(t *testing.T) {
	h, s := newTestHandler(t)
	s.RecordReading(testReading("node-1", time.Now()))

	rec := httptest.NewRecorder()
	h.Nodes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil))
	if env := decodeEnvelope(t, rec); env.Metadata.Cached {
		t.Error("first request should not be served from cache")
	}

	// Node added after the first request is invisible until the TTL expires
	s.RecordReading(testReading("node-2", time.Now()))

	rec = httptest.NewRecorder()
	h.Nodes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil))
	env := decodeEnvelope(t, rec)
	if !env.Metadata.Cached {
		t.Error("second request should be served from cache")
	}

	var nodes map[string]*models.Node
	if err := json.Unmarshal(env.Data, &nodes); err != nil {
		t.Fatalf("decode nodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Errorf("cached payload should still list 1 node, got %d", len(nodes))
	}
	if _, ok := nodes["node-1"]; !ok {
		t.Errorf("registry not keyed by node_id: %v", nodes)
	}
}

func TestDataRecentDefaultAndClamp(t *testing.T) {
	h, s := newTestHandler(t)
	for i := 0; i < 60; i++ {
		s.RecordReading(testReading(fmt.Sprintf("node-%d", i), time.Now()))
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"default window", "", 50},
		{"explicit limit", "?limit=10", 10},
		{"clamped to window", "?limit=500", 50},
		{"zero clamped up", "?limit=0", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.DataRecent(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/recent"+tt.query, nil))

			var readings []*models.SensorReading
			env := decodeEnvelope(t, rec)
			if err := json.Unmarshal(env.Data, &readings); err != nil {
				t.Fatalf("decode readings: %v", err)
			}
			if len(readings) != tt.want {
				t.Errorf("expected %d readings, got %d", tt.want, len(readings))
			}
		})
	}
}

func TestAlertsDefaultWindow(t *testing.T) {
	h, s := newTestHandler(t)
	for i := 0; i < 30; i++ {
		s.RecordAlert(&models.Alert{
			ID:       fmt.Sprintf("alert-%d", i),
			NodeID:   "node-1",
			Severity: models.SeverityWarning,
		})
	}

	rec := httptest.NewRecorder()
	h.Alerts(rec, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))

	var alerts []*models.Alert
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 20 {
		t.Errorf("expected 20 alerts, got %d", len(alerts))
	}
	// Newest first
	if alerts[0].ID != "alert-29" {
		t.Errorf("expected newest alert first, got %s", alerts[0].ID)
	}
}

func TestDataHistoricalFiltersByCutoff(t *testing.T) {
	h, s := newTestHandler(t)
	s.RecordReading(testReading("old", time.Now().Add(-48*time.Hour)))
	s.RecordReading(testReading("recent", time.Now().Add(-1*time.Hour)))

	rec := httptest.NewRecorder()
	h.DataHistorical(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/historical?hours=24", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var readings []*models.SensorReading
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &readings); err != nil {
		t.Fatalf("decode readings: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("expected 1 reading within 24h, got %d", len(readings))
	}
	if readings[0].NodeID != "recent" {
		t.Errorf("expected recent reading, got %s", readings[0].NodeID)
	}
}

func TestDataHistoricalRejectsBadHours(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name  string
		query string
	}{
		{"non-numeric", "?hours=yesterday"},
		{"zero", "?hours=0"},
		{"negative", "?hours=-5"},
		{"beyond max", "?hours=200"},
		{"float", "?hours=3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.DataHistorical(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/historical"+tt.query, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Status != "error" {
				t.Errorf("expected error status, got %q", env.Status)
			}
			if env.Error == nil || env.Error.Code != "INVALID_PARAMETER" {
				t.Errorf("expected INVALID_PARAMETER error, got %+v", env.Error)
			}
		})
	}
}

func TestDataHistoricalDefaultsWithoutParam(t *testing.T) {
	h, s := newTestHandler(t)
	s.RecordReading(testReading("recent", time.Now()))

	rec := httptest.NewRecorder()
	h.DataHistorical(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/historical", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with default hours, got %d", rec.Code)
	}
}

func TestWebSocketUnavailableWithoutHub(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.WebSocket(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without hub, got %d", rec.Code)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	s := store.New(store.DefaultMaxReadings, store.DefaultMaxAlerts)
	h := NewHandler(s, nil, []string{"https://dash.example.com"}, 0)

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"allowed origin", "https://dash.example.com", true},
		{"unknown origin", "https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
