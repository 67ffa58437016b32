// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/sentinelcam/sentinel/internal/alert"
)

// WebhookConfig holds the generic webhook settings.
type WebhookConfig struct {
	URL    string `koanf:"url" json:"url" validate:"omitempty,url"`
	Method string `koanf:"method" json:"method" validate:"omitempty,oneof=POST PUT PATCH"`

	// Auth is the literal Authorization header value, if any.
	Auth string `koanf:"auth" json:"auth"`

	Headers map[string]string `koanf:"headers" json:"headers"`
}

// Enabled reports whether the config carries a URL.
func (c WebhookConfig) Enabled() bool { return c.URL != "" }

// Webhook posts alerts to an arbitrary HTTP endpoint as JSON.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook creates the webhook channel.
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if err := ValidateWebhookURL(cfg.URL); err != nil {
		return nil, err
	}
	return &Webhook{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Name returns the channel identifier.
func (w *Webhook) Name() string { return "webhook" }

// webhookPayload is the wire shape posted to the endpoint.
type webhookPayload struct {
	Event     string       `json:"event"`
	Timestamp time.Time    `json:"timestamp"`
	Alert     alert.Record `json:"alert"`
}

// Send posts the alert.
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	payload := webhookPayload{
		Event:     "sentinel.alert",
		Timestamp: time.Now().UTC(),
		Alert:     msg.Record,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	method := strings.ToUpper(w.cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, w.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sentinel/1.0")
	for key, value := range w.cfg.Headers {
		req.Header.Set(key, value)
	}
	if w.cfg.Auth != "" {
		req.Header.Set("Authorization", w.cfg.Auth)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
