// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package metrics exposes Prometheus instrumentation for the ingest
// pipeline, the alert escalation path, the WebSocket hub and the HTTP
// API. Everything registers against the default registry via promauto
// and is served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest pipeline
	IngestMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Total messages consumed from the bus, by topic",
		},
		[]string{"topic"},
	)

	IngestDecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_decode_failures_total",
			Help: "Messages dropped because the payload could not be decoded",
		},
		[]string{"topic"},
	)

	ReadingsStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readings_stored_total",
			Help: "Sensor readings accepted into the in-memory window",
		},
	)

	// Detection and escalation
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_total",
			Help: "Alerts recorded, by severity and source domain",
		},
		[]string{"severity", "source"},
	)

	AlertRepublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_republish_total",
			Help: "Alert republish attempts to the bus, by result",
		},
		[]string{"result"},
	)

	NotifierSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifier_sends_total",
			Help: "Escalation attempts, by notifier and result",
		},
		[]string{"notifier", "result"},
	)

	// WebSocket hub
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connected_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	WSBroadcastDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_broadcast_drops_total",
			Help: "Events dropped because a client send buffer was full",
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Response cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "API responses served from the in-memory cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "API responses that missed the in-memory cache",
		},
	)
)

// RecordIngestMessage counts a consumed bus message.
func RecordIngestMessage(topic string) {
	IngestMessagesTotal.WithLabelValues(topic).Inc()
}

// RecordDecodeFailure counts a dropped, undecodable message.
func RecordDecodeFailure(topic string) {
	IngestDecodeFailures.WithLabelValues(topic).Inc()
}

// RecordReadingStored counts a reading accepted into the store.
func RecordReadingStored() {
	ReadingsStoredTotal.Inc()
}

// RecordAlert counts a recorded alert.
func RecordAlert(severity, source string) {
	AlertsTotal.WithLabelValues(severity, source).Inc()
}

// RecordAlertRepublish counts a bus republish attempt.
func RecordAlertRepublish(success bool) {
	AlertRepublishTotal.WithLabelValues(resultLabel(success)).Inc()
}

// RecordNotifierSend counts an escalation attempt.
func RecordNotifierSend(notifier string, success bool) {
	NotifierSendsTotal.WithLabelValues(notifier, resultLabel(success)).Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheLookup counts a response cache lookup.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
