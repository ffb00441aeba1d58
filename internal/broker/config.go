// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package broker provides the NATS messaging layer: an optional
// embedded server, a resilient publisher for alert republishing, and
// durable-free core NATS subscriptions for sensor ingestion. Telemetry
// is a live stream; a reading missed while the server is down is
// superseded by the next one, so plain core NATS delivery is used
// throughout and JetStream stays disabled.
package broker

import (
	"time"
)

// DefaultTopicPrefix is the first token of every bus subject.
const DefaultTopicPrefix = "telemetry"

// TopicSet holds the bus subjects the server consumes and produces.
type TopicSet struct {
	SensorData    string
	Alerts        string
	AIAlerts      string
	AIPredictions string
}

// NewTopicSet derives the subject names from a prefix.
func NewTopicSet(prefix string) TopicSet {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return TopicSet{
		SensorData:    prefix + ".sensor-data",
		Alerts:        prefix + ".alerts",
		AIAlerts:      prefix + ".ai-alerts",
		AIPredictions: prefix + ".ai-predictions",
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host string
	Port int
}

// DefaultServerConfig returns the embedded server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: "127.0.0.1",
		Port: 4222,
	}
}

// SubscriberConfig configures a core NATS subscriber.
type SubscriberConfig struct {
	URL              string
	QueueGroup       string
	SubscribersCount int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns subscriber defaults for the given
// server URL.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		QueueGroup:       "fieldsense",
		SubscribersCount: 1,
		CloseTimeout:     10 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// PublisherConfig configures the alert publisher.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int

	// Circuit breaker settings protecting publishes during outages.
	BreakerFailureThreshold uint32
	BreakerTimeout          time.Duration
}

// DefaultPublisherConfig returns publisher defaults for the given
// server URL.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:                     url,
		MaxReconnects:           -1,
		ReconnectWait:           2 * time.Second,
		ReconnectBuffer:         8 * 1024 * 1024,
		BreakerFailureThreshold: 5,
		BreakerTimeout:          30 * time.Second,
	}
}
