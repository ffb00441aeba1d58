// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package broker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Subscriber wraps a Watermill core NATS subscriber. Subscriptions are
// queue-grouped so multiple server instances split the stream instead
// of duplicating it.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a core NATS subscriber.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{
		subscriber: sub,
		config:     *cfg,
		logger:     logger,
	}, nil
}

// Subscribe returns a channel of messages for the given topic. The
// channel closes when the context is cancelled or the subscriber is
// closed.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// MessageHandler provides a fluent API for message processing.
type MessageHandler struct {
	subscriber *Subscriber
	topic      string
	handler    func(ctx context.Context, msg *message.Message) error
	logger     watermill.LoggerAdapter
}

// NewMessageHandler creates a handler for the given topic.
func (s *Subscriber) NewMessageHandler(topic string) *MessageHandler {
	return &MessageHandler{
		subscriber: s,
		topic:      topic,
		logger:     s.logger,
	}
}

// Handle sets the processing function. A returned error nacks the
// message; nil acks it.
func (h *MessageHandler) Handle(fn func(ctx context.Context, msg *message.Message) error) *MessageHandler {
	h.handler = fn
	return h
}

// Run consumes messages until the context is cancelled.
func (h *MessageHandler) Run(ctx context.Context) error {
	messages, err := h.subscriber.Subscribe(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", h.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := h.processMessage(ctx, msg); err != nil {
				h.logger.Error("Message processing failed", err, watermill.LogFields{
					"message_uuid": msg.UUID,
					"topic":        h.topic,
				})
			}
		}
	}
}

func (h *MessageHandler) processMessage(ctx context.Context, msg *message.Message) error {
	if h.handler == nil {
		msg.Ack()
		return nil
	}

	if err := h.handler(ctx, msg); err != nil {
		msg.Nack()
		return err
	}

	msg.Ack()
	return nil
}
