// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package api provides the HTTP query surface: a Chi router with CORS,
// IP rate limiting, request ID propagation, and Prometheus
// instrumentation, plus the WebSocket upgrade endpoint for the
// real-time dashboard feed.
//
// All JSON endpoints return the models.APIResponse envelope
// {status, data, metadata, error}. Reads go straight to the in-memory
// store and never block ingestion.
package api
