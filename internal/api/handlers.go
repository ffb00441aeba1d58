// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fieldsense/fieldsense/internal/cache"
	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/store"
	ws "github.com/fieldsense/fieldsense/internal/websocket"
)

// Handler contains dependencies for the query API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrade (this file)
//   - handlers_helpers.go: response envelope and parameter helpers
//   - handlers_health.go: health endpoint
//   - handlers_data.go: node registry, readings, and alert endpoints
type Handler struct {
	store       *store.Store
	hub         *ws.Hub
	cache       *cache.Cache
	corsOrigins []string
	startTime   time.Time
}

// NewHandler creates the API handler. The cache backs GET /api/v1/nodes;
// pass the TTL the deployment wants for that window (zero selects the
// cache default).
func NewHandler(s *store.Store, hub *ws.Hub, corsOrigins []string, cacheTTL time.Duration) *Handler {
	return &Handler{
		store:       s,
		hub:         hub,
		cache:       cache.New(cacheTTL),
		corsOrigins: corsOrigins,
		startTime:   time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow clients.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
// Sensor gateways and scripts omit the Origin header and are allowed;
// browser connections must match the configured CORS origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range h.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and registers the client with the
// hub. The hub queues the state snapshot onto the client before any
// later broadcast, so the dashboard renders from a consistent baseline.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
