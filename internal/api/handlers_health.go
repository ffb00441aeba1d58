// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"net/http"
	"time"

	"github.com/fieldsense/fieldsense/internal/models"
)

// Health reports liveness plus the count of nodes currently online.
// The pipeline holds all state in memory, so a responding process is a
// healthy one.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, models.HealthStatus{
		Status:      "healthy",
		ActiveNodes: h.store.NodeCount(),
		Uptime:      time.Since(h.startTime).Seconds(),
	}, false)
}
