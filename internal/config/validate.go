// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package config

import (
	"fmt"

	"github.com/fieldsense/fieldsense/internal/validation"
)

// Validate checks that the configuration is internally consistent.
// Tag-level checks run through the validation package; cross-field
// rules are checked here.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if c.Staleness.OfflineAfter <= c.Staleness.StaleAfter {
		return fmt.Errorf("OFFLINE_AFTER (%s) must be greater than STALE_AFTER (%s)",
			c.Staleness.OfflineAfter, c.Staleness.StaleAfter)
	}

	if !c.Broker.Embedded && c.Broker.URL == "" {
		return fmt.Errorf("BROKER_URL is required when BROKER_EMBEDDED=false")
	}

	// Partial SMTP credentials are a misconfiguration; absent ones just
	// select the log-only notifier.
	if c.Notifier.Host != "" && c.Notifier.Username == "" {
		return fmt.Errorf("NOTIFIER_SMTP_USERNAME is required when NOTIFIER_SMTP_HOST is set")
	}

	return nil
}

// NotifierConfigured reports whether SMTP escalation is fully
// configured. When false the pipeline degrades to log-only escalation.
func (c *Config) NotifierConfigured() bool {
	return c.Notifier.Host != "" && c.Notifier.Username != ""
}
