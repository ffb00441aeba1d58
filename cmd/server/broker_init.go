// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldsense/fieldsense/internal/broker"
	"github.com/fieldsense/fieldsense/internal/config"
	"github.com/fieldsense/fieldsense/internal/logging"
)

// BrokerComponents holds the NATS components for lifecycle management.
// The embedded server is nil when an external broker is configured.
type BrokerComponents struct {
	server     *broker.EmbeddedServer
	publisher  *broker.Publisher
	subscriber *broker.Subscriber
	topics     broker.TopicSet
}

// initBroker starts the embedded NATS server when configured, then
// connects the publisher and subscriber to it. On any failure the
// components started so far are torn down before returning.
func initBroker(cfg *config.Config) (*BrokerComponents, error) {
	components := &BrokerComponents{
		topics: broker.NewTopicSet(cfg.Broker.TopicPrefix),
	}

	var url string
	if cfg.Broker.Embedded {
		serverCfg := broker.ServerConfig{
			Host: cfg.Broker.EmbeddedHost,
			Port: cfg.Broker.EmbeddedPort,
		}
		server, err := broker.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		components.server = server
		url = server.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	} else {
		url = cfg.Broker.URL
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	wmLogger := broker.NewWatermillLogger()

	publisher, err := broker.NewPublisher(broker.DefaultPublisherConfig(url), components.topics, wmLogger)
	if err != nil {
		components.Shutdown(cfg.Broker.CloseTimeout)
		return nil, fmt.Errorf("create alert publisher: %w", err)
	}
	components.publisher = publisher

	subCfg := broker.DefaultSubscriberConfig(url)
	subCfg.QueueGroup = cfg.Broker.QueueGroup
	subCfg.SubscribersCount = cfg.Broker.SubscribersCount
	subCfg.CloseTimeout = cfg.Broker.CloseTimeout

	subscriber, err := broker.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		components.Shutdown(cfg.Broker.CloseTimeout)
		return nil, fmt.Errorf("create sensor subscriber: %w", err)
	}
	components.subscriber = subscriber

	logging.Info().
		Str("topic_prefix", cfg.Broker.TopicPrefix).
		Str("queue_group", subCfg.QueueGroup).
		Int("subscribers", subCfg.SubscribersCount).
		Msg("Messaging layer initialized")

	return components, nil
}

// Shutdown tears the messaging layer down in dependency order:
// subscriber first so no new messages arrive, publisher next, then
// the embedded server once both clients are gone.
func (b *BrokerComponents) Shutdown(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	if b.subscriber != nil {
		if err := b.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close subscriber")
		}
		b.subscriber = nil
	}

	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close publisher")
		}
		b.publisher = nil
	}

	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := b.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Embedded NATS server shutdown error")
		}
		cancel()
		b.server = nil
	}

	logging.Info().Msg("Messaging layer stopped")
}
