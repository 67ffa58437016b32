// Sentinel - Unattended-Site Video Monitoring and Tiered Alerting
// Copyright 2026 Sentinel Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sentinelcam/sentinel

package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentinelcam/sentinel/internal/decision"
)

// defaultTwilioBaseURL is the production Twilio REST endpoint.
const defaultTwilioBaseURL = "https://api.twilio.com"

// TwilioConfig holds the Twilio account and routing settings.
type TwilioConfig struct {
	AccountSID string `koanf:"account_sid" json:"account_sid"`
	AuthToken  string `koanf:"auth_token" json:"auth_token" validate:"required_with=AccountSID"`
	From       string `koanf:"from" json:"from" validate:"required_with=AccountSID"`
	To         string `koanf:"to" json:"to" validate:"required_with=AccountSID"`

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string `koanf:"base_url" json:"base_url"`
}

// Enabled reports whether the config carries credentials.
func (c TwilioConfig) Enabled() bool { return c.AccountSID != "" }

func (c TwilioConfig) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimSuffix(c.BaseURL, "/")
	}
	return defaultTwilioBaseURL
}

// twilioClient holds the shared HTTP plumbing for the SMS and voice
// channels.
type twilioClient struct {
	cfg    TwilioConfig
	client *http.Client
}

func newTwilioClient(cfg TwilioConfig) *twilioClient {
	return &twilioClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// post submits a form to a Twilio resource and checks for a 2xx response.
func (t *twilioClient) post(ctx context.Context, resource string, form url.Values) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/%s.json", t.cfg.baseURL(), t.cfg.AccountSID, resource)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio %s returned %d: %s", resource, resp.StatusCode, string(body))
	}
	return nil
}

// TwilioSMS sends the alert body as an SMS.
type TwilioSMS struct {
	*twilioClient
}

// NewTwilioSMS creates the SMS channel.
func NewTwilioSMS(cfg TwilioConfig) *TwilioSMS {
	return &TwilioSMS{twilioClient: newTwilioClient(cfg)}
}

// Name returns the channel identifier.
func (t *TwilioSMS) Name() string { return "twilio_sms" }

// Send submits the SMS.
func (t *TwilioSMS) Send(ctx context.Context, msg Message) error {
	form := url.Values{
		"To":   {t.cfg.To},
		"From": {t.cfg.From},
		"Body": {msg.Body()},
	}
	return t.post(ctx, "Messages", form)
}

// TwilioCall places a voice call that reads the alert out loud. Calls are
// reserved for HIGH alerts; lower levels are a silent success.
type TwilioCall struct {
	*twilioClient
}

// NewTwilioCall creates the voice channel.
func NewTwilioCall(cfg TwilioConfig) *TwilioCall {
	return &TwilioCall{twilioClient: newTwilioClient(cfg)}
}

// Name returns the channel identifier.
func (t *TwilioCall) Name() string { return "twilio_call" }

// Send places the call for HIGH alerts.
func (t *TwilioCall) Send(ctx context.Context, msg Message) error {
	if msg.Record.Level != decision.LevelHigh {
		return nil
	}

	say := fmt.Sprintf("Sentinel high alert at %s. Reasons: %s.",
		msg.Record.Pipeline, strings.ReplaceAll(msg.Record.Label(), "_", " "))
	twiml := fmt.Sprintf("<Response><Say>%s</Say></Response>", html.EscapeString(say))

	form := url.Values{
		"To":    {t.cfg.To},
		"From":  {t.cfg.From},
		"Twiml": {twiml},
	}
	return t.post(ctx, "Calls", form)
}
