// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fieldsense/fieldsense/internal/models"
)

// Publisher republishes alerts onto the bus so external consumers (the
// analytics pipeline, recorders) see rule alerts alongside raw sensor
// data. Publishes run behind a circuit breaker; when the bus is down
// the breaker opens and alert processing continues without it.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	topics         TopicSet

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a resilient core NATS publisher.
func NewPublisher(cfg PublisherConfig, topics TopicSet, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Publisher reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:    "alert-publisher",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
	})

	return &Publisher{
		publisher:      pub,
		circuitBreaker: breaker,
		topics:         topics,
	}, nil
}

// Publish sends a message to the given topic behind the circuit
// breaker.
func (p *Publisher) Publish(_ context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	return err
}

// PublishAlert serializes an alert and publishes it to the alerts
// topic. Implements detection.AlertPublisher.
func (p *Publisher) PublishAlert(ctx context.Context, alert *models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := message.NewMessage(alert.ID, payload)
	msg.Metadata.Set("severity", alert.Severity)
	msg.Metadata.Set("category", alert.Category)

	return p.Publish(ctx, p.topics.Alerts, msg)
}

// BreakerState returns the circuit breaker state for health reporting.
func (p *Publisher) BreakerState() string {
	return p.circuitBreaker.State().String()
}

// Close shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
