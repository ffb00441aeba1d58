// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package main is the entry point for the Fieldsense server.
//
// Fieldsense ingests air and water quality readings from field sensor
// nodes over NATS, evaluates them against fixed environmental
// thresholds, and fans readings and alerts out to dashboards over
// WebSocket. CRITICAL alerts are additionally escalated by email.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Store: Bounded in-memory windows for readings, alerts, and node status
//  3. WebSocket Hub: Real-time fan-out to connected dashboards
//  4. Notifier: SMTP escalation for CRITICAL alerts (log-only when unconfigured)
//  5. Broker: Embedded or external NATS, alert publisher, queue-grouped subscriber
//  6. Detection Engine: Threshold evaluation and the escalation path
//  7. HTTP Server: Query API, Prometheus metrics, and the WebSocket endpoint
//
// All long-running components run under a suture supervisor tree and
// are restarted on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (SERVER_PORT, BROKER_URL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the NATS subscriber and publisher
//   - Shuts down the embedded NATS server last
//
// # Example Usage
//
// Single-binary deployment with the embedded broker:
//
//	./fieldsense
//
// Against an external NATS cluster:
//
//	export BROKER_EMBEDDED=false
//	export BROKER_URL=nats://nats.internal:4222
//	./fieldsense
//
// With email escalation:
//
//	export NOTIFIER_SMTP_HOST=smtp.example.com
//	export NOTIFIER_SMTP_USERNAME=alerts@example.com
//	export NOTIFIER_SMTP_PASSWORD=secret
//	export NOTIFIER_RECIPIENTS=ops@example.com,water-team@example.com
//	./fieldsense
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldsense/fieldsense/internal/api"
	"github.com/fieldsense/fieldsense/internal/config"
	"github.com/fieldsense/fieldsense/internal/detection"
	"github.com/fieldsense/fieldsense/internal/ingest"
	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/notify"
	"github.com/fieldsense/fieldsense/internal/store"
	"github.com/fieldsense/fieldsense/internal/supervisor"
	ws "github.com/fieldsense/fieldsense/internal/websocket"
)

// Snapshot window sizes pushed to a dashboard on connect. Kept smaller
// than the store windows so the initial frame stays light.
const (
	snapshotAlerts   = 10
	snapshotReadings = 20
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Fieldsense with supervisor tree")

	// Root context, cancelled by the signal handler below.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === IN-MEMORY STORE ===

	s := store.New(cfg.Store.MaxReadings, cfg.Store.MaxAlerts)
	logging.Info().
		Int("max_readings", cfg.Store.MaxReadings).
		Int("max_alerts", cfg.Store.MaxAlerts).
		Msg("In-memory store initialized")

	// === WEBSOCKET HUB ===

	hub := ws.NewHub()
	hub.SetSnapshotSource(func() interface{} {
		return s.Snapshot(snapshotAlerts, snapshotReadings)
	})

	// === NOTIFIER ===

	var notifier detection.Notifier
	if cfg.NotifierConfigured() {
		notifier = notify.NewSMTPNotifier(cfg.Notifier)
		logging.Info().
			Str("host", cfg.Notifier.Host).
			Int("recipients", len(cfg.Notifier.Recipients)).
			Msg("SMTP notifier configured")
	} else {
		notifier = notify.NewLogNotifier()
		logging.Info().Msg("SMTP not configured, CRITICAL alerts logged only")
	}

	// === BROKER (NATS) ===

	brokerComponents, err := initBroker(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize messaging layer")
	}

	// === DETECTION ENGINE ===

	engine := detection.NewEngine(s, hub, brokerComponents.publisher)
	engine.RegisterNotifier(notifier)

	adapter := ingest.NewAdapter(brokerComponents.subscriber, brokerComponents.topics, engine, hub)

	// === STALENESS SWEEPER ===

	sweeper := store.NewSweeper(s,
		cfg.Staleness.StaleAfter,
		cfg.Staleness.OfflineAfter,
		cfg.Staleness.SweepInterval,
	)

	// === HTTP SERVER ===

	handler := api.NewHandler(s, hub, cfg.Query.CORSOrigins, cfg.Query.CacheTTL)

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Query.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Query.RateLimitRequests
	mwConfig.RateLimitWindow = cfg.Query.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Query.RateLimitDisabled

	router := api.NewRouter(handler, mwConfig)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Messaging layer services
	tree.AddMessagingService(supervisor.NewContextService("websocket-hub", hub))
	tree.AddMessagingService(supervisor.NewContextService("ingest-adapter", adapter))
	tree.AddMessagingService(supervisor.NewContextService("staleness-sweeper", sweeper))
	logging.Info().Msg("Messaging layer services added to supervisor tree")

	// API layer services
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// Drain messaging last; the ingest adapter is already stopped.
	brokerComponents.Shutdown(cfg.Broker.CloseTimeout)

	logging.Info().Msg("Application stopped gracefully")
}
