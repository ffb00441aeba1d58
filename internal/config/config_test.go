// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("default port = %d, want 5000", cfg.Server.Port)
	}
	if !cfg.Broker.Embedded {
		t.Error("broker should default to embedded")
	}
	if cfg.Broker.TopicPrefix != "telemetry" {
		t.Errorf("topic prefix = %q, want telemetry", cfg.Broker.TopicPrefix)
	}
	if cfg.Store.MaxReadings != 1000 || cfg.Store.MaxAlerts != 500 {
		t.Errorf("window defaults = %d/%d, want 1000/500", cfg.Store.MaxReadings, cfg.Store.MaxAlerts)
	}
	if cfg.Query.CacheTTL != 30*time.Second {
		t.Errorf("cache TTL = %s, want 30s", cfg.Query.CacheTTL)
	}
	if cfg.NotifierConfigured() {
		t.Error("notifier should not be configured by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("BROKER_TOPIC_PREFIX", "env")
	t.Setenv("STORE_MAX_READINGS", "250")
	t.Setenv("NOTIFIER_SMTP_HOST", "smtp.example.com")
	t.Setenv("NOTIFIER_SMTP_USERNAME", "alerts@example.com")
	t.Setenv("NOTIFIER_RECIPIENTS", "ops@example.com, water@example.com")
	t.Setenv("CORS_ORIGINS", "https://dash.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Broker.TopicPrefix != "env" {
		t.Errorf("topic prefix = %q, want env", cfg.Broker.TopicPrefix)
	}
	if cfg.Store.MaxReadings != 250 {
		t.Errorf("max readings = %d, want 250", cfg.Store.MaxReadings)
	}
	if !cfg.NotifierConfigured() {
		t.Error("notifier should be configured")
	}
	if len(cfg.Notifier.Recipients) != 2 || cfg.Notifier.Recipients[1] != "water@example.com" {
		t.Errorf("recipients = %v, want comma-split pair", cfg.Notifier.Recipients)
	}
	if len(cfg.Query.CORSOrigins) != 1 || cfg.Query.CORSOrigins[0] != "https://dash.example.com" {
		t.Errorf("cors origins = %v", cfg.Query.CORSOrigins)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9100
query:
  cache_ttl: 10s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from file", cfg.Server.Port)
	}
	if cfg.Query.CacheTTL != 10*time.Second {
		t.Errorf("cache TTL = %s, want 10s from file", cfg.Query.CacheTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug from file", cfg.Logging.Level)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SERVER_PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("port = %d, env should beat file", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "port out of range",
			env:  map[string]string{"SERVER_PORT": "99999"},
			want: "Port",
		},
		{
			name: "bad log level",
			env:  map[string]string{"LOG_LEVEL": "loud"},
			want: "Level",
		},
		{
			name: "offline before stale",
			env:  map[string]string{"STALE_AFTER": "10m", "OFFLINE_AFTER": "90s"},
			want: "OFFLINE_AFTER",
		},
		{
			name: "partial smtp credentials",
			env:  map[string]string{"NOTIFIER_SMTP_HOST": "smtp.example.com"},
			want: "NOTIFIER_SMTP_USERNAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err.Error(), tt.want)
			}
		})
	}
}

func TestEnvTransformDropsUnknownKeys(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH should be dropped, got %q", got)
	}
	if got := envTransformFunc("BROKER_URL"); got != "broker.url" {
		t.Errorf("BROKER_URL = %q, want broker.url", got)
	}
}
