// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

// Package notify implements the outbound alert channels: Twilio SMS and
// voice, SMTP email with the evidence snapshot attached, and a generic
// HTTP webhook. Every channel is best effort; a failed send is logged and
// counted, never retried inline, and never blocks the pipeline.
package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/sentinelcam/sentinel/internal/alert"
)

// Message is one alert handed to a channel, with the encoded evidence
// snapshot when one was captured.
type Message struct {
	Record   alert.Record
	Snapshot []byte // JPEG bytes, may be nil
}

// Body renders the standard notification text.
func (m Message) Body() string {
	return fmt.Sprintf("ALERT: %s\nReasons: %s\nSite: %s\nAt: %s",
		m.Record.Level,
		m.Record.Label(),
		m.Record.Pipeline,
		m.Record.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
	)
}

// Subject renders the standard notification subject line.
func (m Message) Subject() string {
	return fmt.Sprintf("Sentinel Alert - %s", m.Record.Level)
}

// Notifier is one outbound alert channel.
type Notifier interface {
	// Name returns the channel identifier used in logs and metrics.
	Name() string

	// Send delivers the alert. Implementations must honor ctx.
	Send(ctx context.Context, msg Message) error
}

// ValidateWebhookURL rejects URLs that are not plain http(s) endpoints.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("webhook URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return fmt.Errorf("webhook URL must have a host")
	}
	return nil
}
