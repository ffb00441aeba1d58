// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

// Package config loads layered configuration with koanf v2:
// struct defaults, then an optional YAML file, then environment
// variables. Validation runs at load time; a malformed configuration
// is a startup failure, a missing one is not.
package config

import (
	"time"

	"github.com/fieldsense/fieldsense/internal/broker"
	"github.com/fieldsense/fieldsense/internal/notify"
	"github.com/fieldsense/fieldsense/internal/store"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Broker    BrokerConfig      `koanf:"broker"`
	Store     StoreConfig       `koanf:"store"`
	Staleness StalenessConfig   `koanf:"staleness"`
	Query     QueryConfig       `koanf:"query"`
	Notifier  notify.SMTPConfig `koanf:"notifier"`
	Logging   LoggingConfig     `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// BrokerConfig configures the NATS connection and topic layout.
// When Embedded is set, an in-process NATS server is started and URL
// is ignored.
type BrokerConfig struct {
	URL              string        `koanf:"url"`
	Embedded         bool          `koanf:"embedded"`
	EmbeddedHost     string        `koanf:"embedded_host"`
	EmbeddedPort     int           `koanf:"embedded_port" validate:"gte=0,lte=65535"`
	TopicPrefix      string        `koanf:"topic_prefix" validate:"required"`
	QueueGroup       string        `koanf:"queue_group" validate:"required"`
	SubscribersCount int           `koanf:"subscribers_count" validate:"gte=1"`
	CloseTimeout     time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// StoreConfig bounds the in-memory windows.
type StoreConfig struct {
	MaxReadings int `koanf:"max_readings" validate:"gte=1"`
	MaxAlerts   int `koanf:"max_alerts" validate:"gte=1"`
}

// StalenessConfig controls node status demotion.
type StalenessConfig struct {
	StaleAfter    time.Duration `koanf:"stale_after" validate:"gt=0"`
	OfflineAfter  time.Duration `koanf:"offline_after" validate:"gt=0"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

// QueryConfig tunes the HTTP query surface.
type QueryConfig struct {
	CacheTTL          time.Duration `koanf:"cache_ttl" validate:"gt=0"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// layered first, then overridden by file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5000,
			Timeout: 30 * time.Second,
		},
		Broker: BrokerConfig{
			URL:              "nats://127.0.0.1:4222",
			Embedded:         true,
			EmbeddedHost:     "127.0.0.1",
			EmbeddedPort:     4222,
			TopicPrefix:      broker.DefaultTopicPrefix,
			QueueGroup:       "fieldsense",
			SubscribersCount: 1,
			CloseTimeout:     10 * time.Second,
		},
		Store: StoreConfig{
			MaxReadings: store.DefaultMaxReadings,
			MaxAlerts:   store.DefaultMaxAlerts,
		},
		Staleness: StalenessConfig{
			StaleAfter:    store.DefaultStaleAfter,
			OfflineAfter:  store.DefaultOfflineAfter,
			SweepInterval: store.DefaultSweepInterval,
		},
		Query: QueryConfig{
			CacheTTL:          30 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Notifier: notify.SMTPConfig{
			Host:          "",
			Port:          587,
			Username:      "",
			Password:      "",
			From:          "",
			Recipients:    nil,
			RatePerMinute: 6,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
