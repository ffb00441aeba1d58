// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"net/http"
	"time"

	"github.com/fieldsense/fieldsense/internal/metrics"
)

const (
	// nodesCacheKey caches the registry payload of GET /api/v1/nodes.
	nodesCacheKey = "nodes"

	defaultRecentReadings = 50
	defaultRecentAlerts   = 20

	defaultHistoricalHours = 24
	maxHistoricalHours     = 7 * 24
)

// Nodes returns the node registry. The payload is served through the
// TTL cache so dashboard polling does not hammer the store lock.
func (h *Handler) Nodes(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.Get(nodesCacheKey); ok {
		metrics.RecordCacheLookup(true)
		respondSuccess(w, cached, true)
		return
	}
	metrics.RecordCacheLookup(false)

	nodes := h.store.Nodes()
	h.cache.Set(nodesCacheKey, nodes)
	respondSuccess(w, nodes, false)
}

// DataRecent returns the most recent readings, newest first. The limit
// parameter is optional and clamped to the default window.
func (h *Handler) DataRecent(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(getIntParam(r, "limit", defaultRecentReadings), defaultRecentReadings)
	respondSuccess(w, h.store.RecentReadings(limit), false)
}

// Alerts returns the most recent alerts, newest first.
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(getIntParam(r, "limit", defaultRecentAlerts), defaultRecentAlerts)
	respondSuccess(w, h.store.RecentAlerts(limit), false)
}

// DataHistorical returns readings newer than now minus the requested
// number of hours. Non-numeric or out-of-range hours are a client
// error rather than a silent fallback.
func (h *Handler) DataHistorical(w http.ResponseWriter, r *http.Request) {
	hours, err := strictIntParam(r, "hours", defaultHistoricalHours)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "hours must be an integer", err)
		return
	}
	if hours < 1 || hours > maxHistoricalHours {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER", "hours must be between 1 and 168", nil)
		return
	}

	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)
	respondSuccess(w, h.store.ReadingsSince(cutoff), false)
}
