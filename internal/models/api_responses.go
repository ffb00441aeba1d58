// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" or "error". Data carries the payload on success;
// Error is populated only on failure.
//
// Example:
//
//	{
//	  "status": "success",
//	  "data": {"status": "healthy", "activeNodes": 4},
//	  "metadata": {"timestamp": "2026-08-30T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata. Cached is set when the payload
// was served from the in-memory response cache rather than the store.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Cached    bool      `json:"cached,omitempty"`
}

// APIError is a structured error body.
//
// Codes in use: INVALID_PARAMETER, NOT_FOUND, RATE_LIMIT_EXCEEDED,
// INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status      string  `json:"status"`
	ActiveNodes int     `json:"activeNodes"`
	Uptime      float64 `json:"uptime"`
}
