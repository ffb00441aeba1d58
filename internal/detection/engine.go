// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/metrics"
	"github.com/fieldsense/fieldsense/internal/models"
	"github.com/fieldsense/fieldsense/internal/store"
)

// Event types pushed to connected dashboards.
const (
	EventAlertsUpdate = "alerts-update"
	EventAIAlert      = "ai-alert"
)

// DefaultNotifyTimeout bounds a single escalation attempt.
const DefaultNotifyTimeout = 10 * time.Second

// Broadcaster fans an event out to connected WebSocket clients.
type Broadcaster interface {
	BroadcastJSON(eventType string, data interface{})
}

// AlertPublisher republishes alerts onto the message bus so external
// consumers see rule alerts alongside raw sensor data.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *models.Alert) error
}

// Notifier escalates an alert out of band. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Name() string
	Enabled() bool
	SendAlertEmail(ctx context.Context, alert *models.Alert, reading *models.SensorReading) error
}

// Engine runs threshold detection over incoming readings and owns the
// escalation path: store, dashboard broadcast, bus republish, and
// email for CRITICAL alerts. Escalation failures are logged and never
// block ingestion.
type Engine struct {
	store       *store.Store
	broadcaster Broadcaster
	publisher   AlertPublisher

	mu            sync.RWMutex
	notifiers     []Notifier
	notifyTimeout time.Duration
}

// NewEngine creates an Engine. The publisher may be nil, in which case
// republishing is skipped.
func NewEngine(s *store.Store, broadcaster Broadcaster, publisher AlertPublisher) *Engine {
	return &Engine{
		store:         s,
		broadcaster:   broadcaster,
		publisher:     publisher,
		notifyTimeout: DefaultNotifyTimeout,
	}
}

// RegisterNotifier adds an escalation notifier.
func (e *Engine) RegisterNotifier(n Notifier) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.notifiers = append(e.notifiers, n)
	logging.Info().Str("notifier", n.Name()).Bool("enabled", n.Enabled()).Msg("Registered notifier")
}

// ProcessReading records a reading, evaluates it against the threshold
// rules, and escalates any resulting alerts. The returned alerts are
// what the detector produced; escalation failures do not surface here.
func (e *Engine) ProcessReading(ctx context.Context, reading *models.SensorReading) []*models.Alert {
	e.store.RecordReading(reading)
	metrics.RecordReadingStored()

	alerts := Detect(reading)
	if len(alerts) == 0 {
		return nil
	}

	for _, alert := range alerts {
		e.store.RecordAlert(alert)
		metrics.RecordAlert(alert.Severity, alert.Source)
	}

	// Dashboards get the whole batch in one event.
	if e.broadcaster != nil {
		e.broadcaster.BroadcastJSON(EventAlertsUpdate, alerts)
	}

	for _, alert := range alerts {
		e.republish(ctx, alert)
		if alert.IsCritical() {
			e.escalate(alert, reading)
		}
	}

	return alerts
}

// ProcessAIAlert ingests a pre-computed anomaly alert from the
// analytics pipeline and pushes it through the same escalation path as
// rule alerts.
func (e *Engine) ProcessAIAlert(ctx context.Context, alert *models.Alert) error {
	if err := validateAIAlert(alert); err != nil {
		return err
	}

	alert.Category = models.CategoryAIAnomaly
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	e.store.RecordAlert(alert)
	metrics.RecordAlert(alert.Severity, alert.Source)

	if e.broadcaster != nil {
		e.broadcaster.BroadcastJSON(EventAIAlert, alert)
	}

	e.republish(ctx, alert)
	if alert.IsCritical() {
		e.escalate(alert, nil)
	}

	return nil
}

func validateAIAlert(alert *models.Alert) error {
	switch {
	case alert.NodeID == "":
		return fmt.Errorf("ai alert missing node_id")
	case alert.Parameter == "":
		return fmt.Errorf("ai alert missing parameter")
	case alert.Severity != models.SeverityWarning && alert.Severity != models.SeverityCritical:
		return fmt.Errorf("ai alert has unknown severity %q", alert.Severity)
	case alert.Source != models.SourceAir && alert.Source != models.SourceWater:
		return fmt.Errorf("ai alert has unknown source %q", alert.Source)
	}
	return nil
}

func (e *Engine) republish(ctx context.Context, alert *models.Alert) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishAlert(ctx, alert); err != nil {
		metrics.RecordAlertRepublish(false)
		logging.Error().Err(err).
			Str("alert_id", alert.ID).
			Str("parameter", alert.Parameter).
			Msg("Failed to republish alert")
		return
	}
	metrics.RecordAlertRepublish(true)
}

// escalate fires notifiers in the background so a slow SMTP server
// never stalls the ingest pipeline. Each attempt gets its own timeout
// detached from the message context.
func (e *Engine) escalate(alert *models.Alert, reading *models.SensorReading) {
	e.mu.RLock()
	notifiers := make([]Notifier, len(e.notifiers))
	copy(notifiers, e.notifiers)
	timeout := e.notifyTimeout
	e.mu.RUnlock()

	for _, n := range notifiers {
		if !n.Enabled() {
			continue
		}
		go func(n Notifier) {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := n.SendAlertEmail(ctx, alert, reading); err != nil {
				metrics.RecordNotifierSend(n.Name(), false)
				logging.Error().Err(err).
					Str("notifier", n.Name()).
					Str("alert_id", alert.ID).
					Msg("Alert escalation failed")
				return
			}
			metrics.RecordNotifierSend(n.Name(), true)
		}(n)
	}
}
