// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package notify delivers CRITICAL alert escalations. The SMTP
// notifier emails operators; when no credentials are configured the
// server degrades to a log-only notifier so the pipeline behaves the
// same either way.
package notify

import (
	"context"

	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/models"
)

// LogNotifier records what would have been sent. Used when SMTP is not
// configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Name returns the notifier name.
func (n *LogNotifier) Name() string { return "log" }

// Enabled always reports true; logging cannot be misconfigured.
func (n *LogNotifier) Enabled() bool { return true }

// SendAlertEmail logs the alert instead of emailing it.
func (n *LogNotifier) SendAlertEmail(_ context.Context, alert *models.Alert, _ *models.SensorReading) error {
	logging.Warn().
		Str("alert_id", alert.ID).
		Str("severity", alert.Severity).
		Str("node_id", alert.NodeID).
		Str("message", alert.Message).
		Msg("Email not configured, alert escalation logged only")
	return nil
}
