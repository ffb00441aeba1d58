// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fieldsense/fieldsense/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so the shared middleware package
// works with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router sets up the HTTP routes for the query surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router around the given handler. A nil mwConfig
// selects the secure defaults.
func NewRouter(handler *Handler, mwConfig *ChiMiddlewareConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// Setup configures all HTTP routes and returns the root handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order. CORS must be
	// global so OPTIONS preflight is always answered.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	// Health gets a permissive limit so monitoring can poll freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	// Query endpoints share the default limit, compression, and
	// Prometheus instrumentation.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.Compression))
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		r.Get("/nodes", router.handler.Nodes)
		r.Get("/data/recent", router.handler.DataRecent)
		r.Get("/data/historical", router.handler.DataHistorical)
		r.Get("/alerts", router.handler.Alerts)
	})

	// WebSocket upgrade sits outside the instrumented group: the
	// hijacked connection cannot go through wrapping response writers.
	r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).
		Get("/ws", router.handler.WebSocket)

	r.Handle("/metrics", promhttp.Handler())

	return r
}
