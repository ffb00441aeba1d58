// Fieldsense - Environmental Telemetry Monitoring
// Copyright 2026 Fieldsense Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fieldsense/fieldsense

package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fieldsense/fieldsense/internal/logging"
	"github.com/fieldsense/fieldsense/internal/models"
)

// SMTPConfig configures the email notifier. The notifier is disabled
// unless Host and Username are both set.
type SMTPConfig struct {
	Host       string   `koanf:"host"`
	Port       int      `koanf:"port"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	From       string   `koanf:"from"`
	Recipients []string `koanf:"recipients"`

	// RatePerMinute bounds outbound mail during alert storms.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// SMTPNotifier emails CRITICAL alerts to the configured recipients.
// Sends are paced by a token bucket so an alert storm cannot flood the
// mail server; a send that cannot acquire a token before its context
// deadline is dropped with an error.
type SMTPNotifier struct {
	cfg     SMTPConfig
	limiter *rate.Limiter

	// send is swappable for tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates an email notifier.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if len(cfg.Recipients) == 0 && cfg.Username != "" {
		cfg.Recipients = []string{cfg.Username}
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 6
	}

	return &SMTPNotifier{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		send:    smtp.SendMail,
	}
}

// Name returns the notifier name.
func (n *SMTPNotifier) Name() string { return "smtp" }

// Enabled reports whether credentials are configured.
func (n *SMTPNotifier) Enabled() bool {
	return n.cfg.Host != "" && n.cfg.Username != ""
}

// SendAlertEmail renders and sends the alert email. The reading may be
// nil for alerts that arrived without an attached sample.
func (n *SMTPNotifier) SendAlertEmail(ctx context.Context, alert *models.Alert, reading *models.SensorReading) error {
	if !n.Enabled() {
		return nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("email rate limit: %w", err)
	}

	body, err := renderAlertEmail(alert, reading)
	if err != nil {
		return fmt.Errorf("render alert email: %w", err)
	}

	subject := fmt.Sprintf("%s ALERT: %s %s", alert.Severity, alert.Parameter, strings.ToUpper(alert.Source))
	msg := buildMessage(n.cfg.From, n.cfg.Recipients, subject, body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)

	if err := n.send(addr, auth, n.cfg.From, n.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	logging.Info().
		Str("alert_id", alert.ID).
		Str("severity", alert.Severity).
		Int("recipients", len(n.cfg.Recipients)).
		Msg("Alert email sent")
	return nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: Fieldsense Monitoring <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
