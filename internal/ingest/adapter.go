// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package ingest consumes the telemetry topics and drives readings and
// alerts through detection, storage and fan-out. Malformed payloads
// are logged, counted and dropped; the stream never stalls on bad
// input.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/fieldsense/fieldsense/internal/broker"
	"github.com/fieldsense/fieldsense/internal/detection"
	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/metrics"
	"github.com/fieldsense/fieldsense/internal/models"
	"github.com/fieldsense/fieldsense/internal/validation"
)

// DecodeError wraps a payload that could not be turned into a valid
// domain object.
type DecodeError struct {
	Topic  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s message: %s: %v", e.Topic, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode %s message: %s", e.Topic, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Broadcaster fans decoded events out to connected dashboards.
type Broadcaster interface {
	BroadcastJSON(eventType string, data interface{})
}

// Event types pushed for raw stream relays.
const (
	EventReadingUpdate = "reading-update"
	EventAIPrediction  = "ai-prediction"
)

// Adapter subscribes to the four telemetry topics and routes messages
// into the pipeline.
type Adapter struct {
	subscriber *broker.Subscriber
	topics     broker.TopicSet
	engine     *detection.Engine
	hub        Broadcaster
}

// NewAdapter creates an ingest adapter.
func NewAdapter(subscriber *broker.Subscriber, topics broker.TopicSet, engine *detection.Engine, hub Broadcaster) *Adapter {
	return &Adapter{
		subscriber: subscriber,
		topics:     topics,
		engine:     engine,
		hub:        hub,
	}
}

// RunWithContext consumes all topics until the context is cancelled.
// Designed for suture supervision; a subscription failure surfaces so
// the supervisor restarts the whole adapter.
func (a *Adapter) RunWithContext(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	run := func(topic string, handler func(ctx context.Context, msg *message.Message) error) {
		g.Go(func() error {
			return a.subscriber.NewMessageHandler(topic).Handle(handler).Run(ctx)
		})
	}

	run(a.topics.SensorData, a.handleSensorData)
	run(a.topics.Alerts, a.handleAlertEcho)
	run(a.topics.AIAlerts, a.handleAIAlert)
	run(a.topics.AIPredictions, a.handleAIPrediction)

	logging.Info().
		Str("sensor_data", a.topics.SensorData).
		Str("ai_alerts", a.topics.AIAlerts).
		Str("ai_predictions", a.topics.AIPredictions).
		Msg("Ingest adapter started")

	return g.Wait()
}

// handleSensorData decodes a reading, runs detection and relays the
// reading to dashboards. Alerts broadcast before the reading update so
// a dashboard never renders a violating sample without its alert.
func (a *Adapter) handleSensorData(ctx context.Context, msg *message.Message) error {
	metrics.RecordIngestMessage(a.topics.SensorData)

	reading, err := decodeReading(a.topics.SensorData, msg.Payload)
	if err != nil {
		a.dropMessage(a.topics.SensorData, msg, err)
		return nil
	}

	a.engine.ProcessReading(ctx, reading)

	if a.hub != nil {
		a.hub.BroadcastJSON(EventReadingUpdate, reading)
	}
	return nil
}

// handleAlertEcho observes the alerts topic. The server is the main
// producer on that subject, so inbound traffic is its own republish or
// an external tool; it is logged for visibility and otherwise ignored
// to avoid processing loops.
func (a *Adapter) handleAlertEcho(_ context.Context, msg *message.Message) error {
	metrics.RecordIngestMessage(a.topics.Alerts)
	logging.Debug().
		Str("message_uuid", msg.UUID).
		Int("bytes", len(msg.Payload)).
		Msg("Alert echo observed on bus")
	return nil
}

// handleAIAlert normalizes an inbound anomaly message into the Alert
// shape and escalates it. The analytics service publishes a reading
// plus model verdict; it does not speak the internal alert schema.
func (a *Adapter) handleAIAlert(ctx context.Context, msg *message.Message) error {
	metrics.RecordIngestMessage(a.topics.AIAlerts)

	var wire aiAlertMessage
	if err := json.Unmarshal(msg.Payload, &wire); err != nil {
		a.dropMessage(a.topics.AIAlerts, msg, &DecodeError{Topic: a.topics.AIAlerts, Reason: "invalid JSON", Err: err})
		return nil
	}

	if err := a.engine.ProcessAIAlert(ctx, normalizeAIAlert(&wire)); err != nil {
		a.dropMessage(a.topics.AIAlerts, msg, err)
	}
	return nil
}

// handleAIPrediction relays a forecast to dashboards without
// interpreting it.
func (a *Adapter) handleAIPrediction(_ context.Context, msg *message.Message) error {
	metrics.RecordIngestMessage(a.topics.AIPredictions)

	var prediction models.AIPrediction
	if err := json.Unmarshal(msg.Payload, &prediction); err != nil {
		a.dropMessage(a.topics.AIPredictions, msg, &DecodeError{Topic: a.topics.AIPredictions, Reason: "invalid JSON", Err: err})
		return nil
	}
	if prediction.Timestamp.IsZero() {
		prediction.Timestamp = time.Now()
	}

	if a.hub != nil {
		a.hub.BroadcastJSON(EventAIPrediction, &prediction)
	}
	return nil
}

// dropMessage counts and logs an undecodable message. The caller acks
// it afterwards; redelivering a payload that can never decode would
// only loop.
func (a *Adapter) dropMessage(topic string, msg *message.Message, err error) {
	metrics.RecordDecodeFailure(topic)
	logging.Warn().Err(err).
		Str("topic", topic).
		Str("message_uuid", msg.UUID).
		Msg("Dropping undecodable message")
}

func decodeReading(topic string, payload []byte) (*models.SensorReading, error) {
	var reading models.SensorReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return nil, &DecodeError{Topic: topic, Reason: "invalid JSON", Err: err}
	}
	if err := validation.ValidateStruct(&reading); err != nil {
		return nil, &DecodeError{Topic: topic, Reason: "failed validation", Err: err}
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}
	return &reading, nil
}
