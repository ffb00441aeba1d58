// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fieldsense/config.yaml",
	"/etc/fieldsense/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration using koanf v2 with layered sources,
// precedence ENV > file > defaults, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env strings.
var sliceConfigPaths = []string{
	"query.cors_origins",
	"notifier.recipients",
}

// processSliceFields converts comma-separated strings to slices for
// the known slice fields. Env vars arrive as plain strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice from YAML
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped keys are dropped so stray environment variables cannot
// pollute the configuration.
//
// Examples:
//   - BROKER_URL -> broker.url
//   - NOTIFIER_SMTP_HOST -> notifier.host
//   - STORE_MAX_READINGS -> store.max_readings
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"server_host":    "server.host",
		"server_port":    "server.port",
		"server_timeout": "server.timeout",

		// Broker
		"broker_url":           "broker.url",
		"broker_embedded":      "broker.embedded",
		"broker_embedded_host": "broker.embedded_host",
		"broker_embedded_port": "broker.embedded_port",
		"broker_topic_prefix":  "broker.topic_prefix",
		"broker_queue_group":   "broker.queue_group",
		"broker_subscribers":   "broker.subscribers_count",
		"broker_close_timeout": "broker.close_timeout",

		// Store windows
		"store_max_readings": "store.max_readings",
		"store_max_alerts":   "store.max_alerts",

		// Staleness sweeper
		"stale_after":    "staleness.stale_after",
		"offline_after":  "staleness.offline_after",
		"sweep_interval": "staleness.sweep_interval",

		// Query surface
		"query_cache_ttl":     "query.cache_ttl",
		"rate_limit_requests": "query.rate_limit_requests",
		"rate_limit_window":   "query.rate_limit_window",
		"disable_rate_limit":  "query.rate_limit_disabled",
		"cors_origins":        "query.cors_origins",

		// Email notifier
		"notifier_smtp_host":       "notifier.host",
		"notifier_smtp_port":       "notifier.port",
		"notifier_smtp_username":   "notifier.username",
		"notifier_smtp_password":   "notifier.password",
		"notifier_from":            "notifier.from",
		"notifier_recipients":      "notifier.recipients",
		"notifier_rate_per_minute": "notifier.rate_per_minute",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
