// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package ingest

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fieldsense/fieldsense/internal/models"
)

// aiAlertMessage is the wire shape of the ai-alerts topic. The edge
// analytics service publishes the triggering reading together with the
// model verdict, not a ready-made alert; normalization happens here.
type aiAlertMessage struct {
	Type          string                `json:"type"`
	NodeID        string                `json:"node_id"`
	Severity      string                `json:"severity,omitempty"`
	Data          *models.SensorReading `json:"data,omitempty"`
	AnomalyResult *anomalyResult        `json:"anomaly_result,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}

// anomalyResult is the model verdict attached to an AI alert.
type anomalyResult struct {
	Anomaly      bool    `json:"anomaly"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
	AnomalyScore float64 `json:"anomaly_score"`
}

// reasonRules maps tokens the anomaly explainer emits in its reason
// text to the parameter they implicate. First match wins.
var reasonRules = []struct {
	token     string
	source    string
	parameter string
}{
	{"PM2.5", models.SourceAir, "pm2_5"},
	{"CO", models.SourceAir, "co"},
	{"pH", models.SourceWater, "ph"},
	{"turbidity", models.SourceWater, "turbidity"},
}

// normalizeAIAlert maps the inbound message onto the internal Alert
// shape: reason becomes the message, severity defaults to WARNING, and
// source/parameter are derived from the reason text or, failing that,
// from which metric block the attached reading carries.
func normalizeAIAlert(msg *aiAlertMessage) *models.Alert {
	alert := &models.Alert{
		ID:        uuid.New().String(),
		Category:  models.CategoryAIAnomaly,
		NodeID:    msg.NodeID,
		Severity:  models.SeverityWarning,
		Message:   "Statistical anomaly",
		Timestamp: msg.Timestamp,
	}

	if sev := strings.ToUpper(msg.Severity); sev == models.SeverityCritical {
		alert.Severity = sev
	}

	var reason string
	if msg.AnomalyResult != nil {
		reason = msg.AnomalyResult.Reason
	}
	if reason != "" {
		alert.Message = reason
	}

	alert.Source, alert.Parameter = classifyAnomaly(reason, msg.Data)

	if msg.Data != nil {
		if alert.NodeID == "" {
			alert.NodeID = msg.Data.NodeID
		}
		alert.Location = msg.Data.Location
		alert.Value = parameterValue(msg.Data, alert.Parameter)
	}

	return alert
}

func classifyAnomaly(reason string, reading *models.SensorReading) (source, parameter string) {
	for _, r := range reasonRules {
		if strings.Contains(reason, r.token) {
			return r.source, r.parameter
		}
	}
	// Multivariate or unexplained anomalies are filed under whichever
	// domain the reading actually measured.
	if reading != nil && reading.HasWater() && !reading.HasAir() {
		return models.SourceWater, "anomaly"
	}
	return models.SourceAir, "anomaly"
}

func parameterValue(reading *models.SensorReading, parameter string) float64 {
	switch parameter {
	case "pm2_5":
		if reading.HasAir() {
			return reading.Air.PM25
		}
	case "co":
		if reading.HasAir() {
			return reading.Air.CO
		}
	case "ph":
		if reading.HasWater() {
			return reading.Water.PH
		}
	case "turbidity":
		if reading.HasWater() {
			return reading.Water.Turbidity
		}
	}
	return 0
}
