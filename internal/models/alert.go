// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package models

import (
	"time"
)

// Alert severity levels, ordered by urgency.
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// Alert categories. Rule alerts come from the built-in threshold
// detector; anomaly alerts arrive pre-computed on the ai-alerts topic.
const (
	CategoryRuleThreshold = "rule-threshold"
	CategoryAIAnomaly     = "ai-anomaly"
)

// Alert source domains.
const (
	SourceAir   = "air"
	SourceWater = "water"
)

// Node status values. A node is online while readings keep arriving,
// stale once its last reading ages past the staleness window, and
// offline after the longer offline window.
const (
	NodeStatusOnline  = "online"
	NodeStatusStale   = "stale"
	NodeStatusOffline = "offline"
)

// Alert is a detected or ingested anomaly tied to a node reading.
//
// Threshold is the human-readable bound that was crossed, e.g. "35"
// for a simple ceiling or "6.5-8.5" for a safe range.
//
// Example:
//
//	{
//	  "id": "7f8a1c2e-...",
//	  "node_id": "node-riverside-03",
//	  "category": "rule-threshold",
//	  "source": "air",
//	  "parameter": "pm2_5",
//	  "value": 40,
//	  "threshold": "35",
//	  "severity": "WARNING",
//	  "message": "High PM2.5 detected: 40.0 μg/m³",
//	  "timestamp": "2026-08-30T12:00:00Z"
//	}
type Alert struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"node_id"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	Parameter string    `json:"parameter"`
	Value     float64   `json:"value"`
	Threshold string    `json:"threshold"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Location  *Location `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// IsCritical reports whether the alert requires escalation.
func (a *Alert) IsCritical() bool {
	return a.Severity == SeverityCritical
}

// Node is the tracked state of a field node: its most recent reading,
// when it was last heard from, and its liveness status.
type Node struct {
	NodeID   string         `json:"node_id"`
	Reading  *SensorReading `json:"reading,omitempty"`
	LastSeen time.Time      `json:"last_seen"`
	Status   string         `json:"status"`
}

// AIPrediction is a forecast message relayed from the analytics
// pipeline. The prediction body is model-defined and the server does
// not interpret it, it only fans it out to connected dashboards.
type AIPrediction struct {
	Type       string         `json:"type,omitempty"`
	NodeID     string         `json:"node_id,omitempty"`
	Prediction map[string]any `json:"prediction,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Snapshot is the initial state pushed to a dashboard on connect. It is
// captured under a single lock so nodes, alerts and readings are
// mutually consistent. Nodes is keyed by node_id, matching the /nodes
// endpoint.
type Snapshot struct {
	Nodes          map[string]*Node `json:"nodes"`
	RecentAlerts   []*Alert         `json:"recentAlerts"`
	RecentReadings []*SensorReading `json:"recentData"`
}
