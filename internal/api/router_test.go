// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/fieldsense/fieldsense/internal/store"
	ws "github.com/fieldsense/fieldsense/internal/websocket"
)

func newTestServer(t *testing.T, mwConfig *ChiMiddlewareConfig) (*httptest.Server, *store.Store, *ws.Hub) {
	t.Helper()

	s := store.New(store.DefaultMaxReadings, store.DefaultMaxAlerts)
	hub := ws.NewHub()
	hub.SetSnapshotSource(func() interface{} {
		return s.Snapshot(10, 20)
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.RunWithContext(ctx) }()

	handler := NewHandler(s, hub, []string{"*"}, 30*time.Second)
	srv := httptest.NewServer(NewRouter(handler, mwConfig).Setup())
	t.Cleanup(srv.Close)
	return srv, s, hub
}

func TestRouterServesQueryEndpoints(t *testing.T) {
	srv, s, _ := newTestServer(t, nil)
	s.RecordReading(testReading("node-1", time.Now()))

	paths := []string{
		"/api/v1/health",
		"/api/v1/nodes",
		"/api/v1/data/recent",
		"/api/v1/data/historical",
		"/api/v1/alerts",
	}
	for _, path := range paths {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("GET %s: expected application/json, got %q", path, got)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Errorf("GET %s: missing X-Request-ID header", path)
		}
	}
}

func TestRouterExposesPrometheusMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}

func TestRouterRateLimitReturnsEnvelope(t *testing.T) {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.RateLimitRequests = 2
	srv, _, _ := newTestServer(t, mwConfig)

	var last *http.Response
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/nodes")
		if err != nil {
			t.Fatalf("GET /api/v1/nodes: %v", err)
		}
		if last != nil {
			last.Body.Close()
		}
		last = resp
	}
	defer last.Body.Close()

	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", last.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(last.Body).Decode(&env); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if env.Error == nil || env.Error.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("expected RATE_LIMIT_EXCEEDED, got %+v", env.Error)
	}
}

func TestWebSocketSnapshotFirstThenBroadcast(t *testing.T) {
	srv, s, hub := newTestServer(t, nil)
	s.RecordReading(testReading("node-1", time.Now()))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp != nil {
		resp.Body.Close()
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first ws.Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != ws.EventSnapshot {
		t.Fatalf("expected snapshot first, got %q", first.Type)
	}

	hub.BroadcastJSON(ws.EventReadingUpdate, testReading("node-2", time.Now()))

	var second ws.Message
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if second.Type != ws.EventReadingUpdate {
		t.Errorf("expected reading-update after snapshot, got %q", second.Type)
	}
}

func TestRouterHistoricalValidationEndToEnd(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/data/historical?hours=bogus")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if env.Error == nil || env.Error.Code != "INVALID_PARAMETER" {
		t.Errorf("expected INVALID_PARAMETER, got %+v", env.Error)
	}
}
