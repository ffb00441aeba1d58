// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package middleware provides HTTP middleware shared across the API surface:
// request ID propagation, Prometheus instrumentation, and gzip compression.
//
// Middlewares are written as func(http.HandlerFunc) http.HandlerFunc so they
// compose directly; the api package bridges them into Chi's
// func(http.Handler) http.Handler form where needed.
package middleware
